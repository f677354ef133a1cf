package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/events"
	"github.com/fjod/go_cart/certshop/internal/session"
	log "github.com/sirupsen/logrus"
)

// Resend retries delivery of an existing purchase. Only delivery fields change and the
// record keeps its place in the history. Concurrent resends of the same purchase share
// one attempt; resends of other purchases wait for the send slot.
func (s *CheckoutService) Resend(ctx context.Context, purchaseID string) (*domain.PurchaseRecord, error) {
	v, err, shared := s.resends.Do(purchaseID, func() (any, error) {
		return s.resend(ctx, purchaseID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.WithField("purchase_id", purchaseID).Debug("resend joined in-flight attempt")
	}
	record := v.(domain.PurchaseRecord)
	return &record, nil
}

func (s *CheckoutService) resend(ctx context.Context, purchaseID string) (domain.PurchaseRecord, error) {
	record, err := s.history.find(ctx, purchaseID)
	if err != nil {
		return domain.PurchaseRecord{}, err
	}
	if record.BuyerEmail == "" || !record.HasCertificate() {
		return domain.PurchaseRecord{}, fmt.Errorf("%w: %s", ErrResendUnavailable, purchaseID)
	}

	status, err := advance(domain.CheckoutStatusIdle, domain.CheckoutStatusSending)
	if err != nil {
		return domain.PurchaseRecord{}, err
	}

	profile, err := session.LoadProfile(ctx, s.store)
	if err != nil {
		return domain.PurchaseRecord{}, fmt.Errorf("failed to load profile: %w", err)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	// re-read under the slot: a checkout may have delivered it meanwhile
	if record, err = s.history.find(ctx, purchaseID); err != nil {
		return domain.PurchaseRecord{}, err
	}
	if err := s.deliverLocked(ctx, &record, profile.DisplayName()); err != nil {
		return domain.PurchaseRecord{}, err
	}

	persistCtx := context.WithoutCancel(ctx)
	if err := s.history.replace(persistCtx, record); err != nil {
		return domain.PurchaseRecord{}, err
	}
	if _, err = advance(status, domain.CheckoutStatusSettled); err != nil {
		return domain.PurchaseRecord{}, err
	}

	s.settled(persistCtx, record)
	s.dispatcher.Dispatch(persistCtx, events.Event{
		Type:       events.ResendCompleted,
		PurchaseID: record.ID,
		Purchase:   &record,
		Message:    resendNotice(record),
	})
	return record, nil
}

func resendNotice(record domain.PurchaseRecord) string {
	if record.EmailSent {
		return fmt.Sprintf("Certificate re-sent to %s.", record.BuyerEmail)
	}
	return fmt.Sprintf("Resend to %s failed: %s", record.BuyerEmail, record.LastEmailError)
}
