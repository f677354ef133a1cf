package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_cart/certshop/internal/certificate"
	"github.com/fjod/go_cart/certshop/internal/delivery"
	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/events"
	"github.com/fjod/go_cart/certshop/internal/metrics"
	"github.com/fjod/go_cart/certshop/internal/session"
	log "github.com/sirupsen/logrus"
)

// deliver makes one delivery attempt for record and applies its outcome. It holds the
// send slot for the whole attempt. The returned error is a store failure; a failed
// delivery is recorded on the record instead.
func (s *CheckoutService) deliver(ctx context.Context, record *domain.PurchaseRecord, issuer string) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.deliverLocked(ctx, record, issuer)
}

func (s *CheckoutService) deliverLocked(ctx context.Context, record *domain.PurchaseRecord, issuer string) error {
	persistCtx := context.WithoutCancel(ctx)

	if err := s.store.Set(persistCtx, session.KeySendingPurchase, record.ID); err != nil {
		return fmt.Errorf("failed to set sending marker: %w", err)
	}
	defer func() {
		if err := s.store.Delete(persistCtx, session.KeySendingPurchase); err != nil {
			log.WithError(err).WithField("purchase_id", record.ID).Error("failed to clear sending marker")
		}
	}()
	s.dispatcher.Dispatch(ctx, events.Event{Type: events.DeliveryStarted, PurchaseID: record.ID})

	started := time.Now()
	sendErr := s.sender.Send(ctx, buildMessage(*record, issuer))
	metrics.DeliveryLatency.Observe(time.Since(started).Seconds())
	metrics.DeliveryAttempts.WithLabelValues(metrics.DeliveryResult(sendErr)).Inc()

	record.RecordDelivery(sendErr, s.now())

	entry := log.WithFields(log.Fields{
		"purchase_id": record.ID,
		"to":          record.BuyerEmail,
		"attempts":    record.EmailAttempts,
	})
	if sendErr != nil {
		entry.WithError(sendErr).Warn("certificate delivery failed")
	} else {
		entry.Info("certificate delivered")
	}
	return nil
}

func (s *CheckoutService) settled(ctx context.Context, record domain.PurchaseRecord) {
	s.dispatcher.Dispatch(ctx, events.Event{
		Type:       events.DeliverySettled,
		PurchaseID: record.ID,
		Purchase:   &record,
		Message:    record.LastEmailError,
	})
}

// buildMessage is shared by the first delivery and every resend.
func buildMessage(record domain.PurchaseRecord, issuer string) delivery.Message {
	msg := delivery.Message{
		To:      record.BuyerEmail,
		Subject: fmt.Sprintf("Your certificate for %s", record.Name),
		Body: fmt.Sprintf(
			"Hello %s,\n\nThank you for purchasing %d %s of %s.\nPurchase ID: %s\nPurchased: %s\n\nYour certificate is attached.\n",
			issuer, record.Quantity, record.Unit, record.Name, record.ID, record.Time),
	}
	if !record.HasCertificate() {
		return msg
	}

	data, err := certificate.DecodeDataURI(record.Certificate)
	if err != nil {
		log.WithError(err).WithField("purchase_id", record.ID).Warn("stored certificate unreadable, sending without attachment")
		return msg
	}
	msg.Attachments = []delivery.Attachment{{
		Name:        certificate.FileName(record.ID),
		ContentType: "image/png",
		Data:        data,
	}}
	return msg
}
