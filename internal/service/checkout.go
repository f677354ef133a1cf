package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/events"
	"github.com/fjod/go_cart/certshop/internal/metrics"
	"github.com/fjod/go_cart/certshop/internal/session"
	log "github.com/sirupsen/logrus"
)

// Checkout drains the cart into purchase records in catalog order. Each entry gets its
// certificate and, when the buyer has an e-mail on file, one delivery attempt. A failed
// certificate or delivery is recorded on the entry and never stops the batch. An empty
// cart is a no-op.
func (s *CheckoutService) Checkout(ctx context.Context) (*CheckoutResult, error) {
	s.checkoutMu.Lock()
	defer s.checkoutMu.Unlock()

	started := time.Now()
	status := domain.CheckoutStatusIdle

	snapshot, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if snapshot.IsEmpty() {
		return &CheckoutResult{Purchases: []domain.PurchaseRecord{}}, nil
	}

	if status, err = advance(status, domain.CheckoutStatusDraining); err != nil {
		return nil, err
	}

	profile, err := session.LoadProfile(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	issuer := profile.DisplayName()

	// once draining has begun the batch is committed even if the caller goes away
	persistCtx := context.WithoutCancel(ctx)

	purchases := make([]domain.PurchaseRecord, 0, len(snapshot.Items))
	failed := 0
	for _, item := range snapshot.Items {
		record := s.newRecord(item, profile.Email)

		if status, err = advance(status, domain.CheckoutStatusIssuing); err != nil {
			return nil, err
		}
		s.issue(&record, issuer)

		attempted := false
		if record.BuyerEmail != "" {
			if status, err = advance(status, domain.CheckoutStatusSending); err != nil {
				return nil, err
			}
			if err := s.deliver(ctx, &record, issuer); err != nil {
				return nil, err
			}
			attempted = true
			if !record.EmailSent {
				failed++
			}
		}

		if err := s.history.prepend(persistCtx, record); err != nil {
			s.dropCommitted(persistCtx, purchases)
			return nil, fmt.Errorf("failed to store purchase %s: %w", record.ID, err)
		}
		metrics.PurchasesCreated.Inc()
		s.dispatcher.Dispatch(persistCtx, events.Event{
			Type:       events.PurchaseCreated,
			PurchaseID: record.ID,
			Purchase:   &record,
		})
		if attempted {
			s.settled(persistCtx, record)
		}
		purchases = append(purchases, record)
	}

	if _, err = advance(status, domain.CheckoutStatusSettled); err != nil {
		return nil, err
	}
	if err := s.ledger.Clear(persistCtx); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	notice := checkoutNotice(len(purchases), failed, profile.Email != "")
	s.dispatcher.Dispatch(persistCtx, events.Event{Type: events.CheckoutCompleted, Message: notice})
	metrics.CheckoutDuration.Observe(time.Since(started).Seconds())

	log.WithFields(log.Fields{
		"purchases":       len(purchases),
		"delivery_failed": failed,
		"total":           snapshot.Total.String(),
	}).Info("checkout completed")

	return &CheckoutResult{Purchases: purchases, Notice: notice}, nil
}

// dropCommitted takes the entries already in the history out of the cart, so a retried
// checkout does not buy them twice.
func (s *CheckoutService) dropCommitted(ctx context.Context, committed []domain.PurchaseRecord) {
	if len(committed) == 0 {
		return
	}
	ids := make([]string, 0, len(committed))
	for _, p := range committed {
		ids = append(ids, p.ID)
		if err := s.ledger.Remove(ctx, p.ProductID); err != nil {
			log.WithError(err).WithField("product_id", p.ProductID).Error("failed to drop purchased product from cart")
		}
	}
	log.WithField("purchase_ids", ids).Warn("checkout interrupted, committed purchases kept")
}

func (s *CheckoutService) newRecord(item domain.CartSnapshotItem, buyerEmail string) domain.PurchaseRecord {
	now := s.now()
	return domain.PurchaseRecord{
		ID:         newPurchaseID(now, item.ProductID),
		ProductID:  item.ProductID,
		Name:       item.ProductName,
		Price:      item.UnitPrice,
		Quantity:   item.Quantity,
		Unit:       item.Unit,
		Time:       now.Format(domain.TimeLayout),
		CreatedAt:  now,
		BuyerEmail: buyerEmail,
	}
}

func checkoutNotice(purchases, failed int, hasEmail bool) string {
	switch {
	case !hasEmail:
		return fmt.Sprintf("Purchase complete: %d item(s). Add an e-mail to your profile to receive certificates.", purchases)
	case failed > 0:
		return fmt.Sprintf("Purchase complete: %d item(s). %d certificate e-mail(s) failed, use resend to retry.", purchases, failed)
	default:
		return fmt.Sprintf("Purchase complete: %d item(s). Certificates sent.", purchases)
	}
}
