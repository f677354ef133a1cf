package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/certshop/internal/certificate"
	"github.com/fjod/go_cart/certshop/internal/delivery"
	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/events"
	"github.com/fjod/go_cart/certshop/internal/session"
	"golang.org/x/sync/singleflight"
)

type CertificateIssuer interface {
	Generate(p domain.PurchaseRecord, issuer string) (*certificate.Certificate, error)
}

// CartLedger is the part of the cart the checkout drains.
type CartLedger interface {
	Snapshot(ctx context.Context) (*domain.CartSnapshot, error)
	Remove(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
}

type CheckoutResult struct {
	Purchases []domain.PurchaseRecord `json:"purchases"`
	Notice    string                  `json:"notice,omitempty"`
}

// CheckoutService turns the session cart into purchase records, issues their certificates
// and delivers them. Checkouts are serialized per service, and so are delivery attempts.
type CheckoutService struct {
	store      session.Store
	ledger     CartLedger
	issuer     CertificateIssuer
	sender     delivery.Sender
	sentLog    *delivery.SentLog
	dispatcher events.Dispatcher
	history    *history
	now        func() time.Time

	checkoutMu sync.Mutex
	// sendMu is the session's single send slot; sendingPurchase names its holder.
	sendMu  sync.Mutex
	resends singleflight.Group
}

func NewCheckoutService(
	store session.Store,
	ledger CartLedger,
	issuer CertificateIssuer,
	sender delivery.Sender,
	dispatcher events.Dispatcher) *CheckoutService {

	sentLog := delivery.NewSentLog(store)
	if dispatcher == nil {
		dispatcher = events.Discard{}
	}
	return &CheckoutService{
		store:      store,
		ledger:     ledger,
		issuer:     issuer,
		sender:     delivery.WithSentLog(sender, sentLog),
		sentLog:    sentLog,
		dispatcher: dispatcher,
		history:    &history{store: store},
		now:        time.Now,
	}
}

// Purchases returns the purchase history, most recent first.
func (s *CheckoutService) Purchases(ctx context.Context) ([]domain.PurchaseRecord, error) {
	return s.history.list(ctx)
}

func (s *CheckoutService) Purchase(ctx context.Context, purchaseID string) (*domain.PurchaseRecord, error) {
	record, err := s.history.find(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SendingPurchase returns the id of the purchase whose delivery is in flight, if any.
func (s *CheckoutService) SendingPurchase(ctx context.Context) (string, bool, error) {
	id, err := s.store.Get(ctx, session.KeySendingPurchase)
	if errors.Is(err, session.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read sending marker: %w", err)
	}
	return id, true, nil
}

func (s *CheckoutService) SentEmails(ctx context.Context) ([]delivery.SentEmail, error) {
	return s.sentLog.Entries(ctx)
}

// Idle reports whether no checkout or delivery is running right now.
func (s *CheckoutService) Idle() bool {
	if !s.checkoutMu.TryLock() {
		return false
	}
	defer s.checkoutMu.Unlock()
	if !s.sendMu.TryLock() {
		return false
	}
	s.sendMu.Unlock()
	return true
}

func advance(from, to domain.CheckoutStatus) (domain.CheckoutStatus, error) {
	if !domain.CanTransitionTo(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", IllegalTransitionError, from, to)
	}
	return to, nil
}
