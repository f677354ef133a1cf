package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	"github.com/fjod/go_cart/certshop/internal/cart"
	"github.com/fjod/go_cart/certshop/internal/certificate"
	"github.com/fjod/go_cart/certshop/internal/delivery"
	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/events"
	"github.com/fjod/go_cart/certshop/internal/session"
	"github.com/stretchr/testify/require"
)

// MockIssuer implements CertificateIssuer for testing
type MockIssuer struct {
	mu      sync.Mutex
	Err     error
	Issuers []string
}

func (m *MockIssuer) Generate(p domain.PurchaseRecord, issuer string) (*certificate.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Issuers = append(m.Issuers, issuer)
	if m.Err != nil {
		return nil, m.Err
	}
	png := []byte("png-" + p.ID)
	return &certificate.Certificate{
		PNG:      png,
		DataURI:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		FileName: certificate.FileName(p.ID),
	}, nil
}

// GatedSender blocks every send until release is called, then applies the next outcome.
type GatedSender struct {
	mu       sync.Mutex
	outcomes []bool
	calls    []delivery.Message
	started  chan string
	gate     chan struct{}
}

func NewGatedSender(outcomes ...bool) *GatedSender {
	return &GatedSender{
		outcomes: outcomes,
		started:  make(chan string, 16),
		gate:     make(chan struct{}),
	}
}

func (g *GatedSender) Send(ctx context.Context, msg delivery.Message) error {
	g.mu.Lock()
	g.calls = append(g.calls, msg)
	ok := true
	if len(g.outcomes) > 0 {
		ok = g.outcomes[0]
		g.outcomes = g.outcomes[1:]
	}
	g.mu.Unlock()

	g.started <- msg.To
	select {
	case <-g.gate:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", delivery.ErrDeliveryFailed, ctx.Err())
	}
	if !ok {
		return fmt.Errorf("%w: gated failure", delivery.ErrDeliveryFailed)
	}
	return nil
}

func (g *GatedSender) release() {
	g.gate <- struct{}{}
}

func (g *GatedSender) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// ScriptedSender settles immediately with the next outcome, then succeeds.
type ScriptedSender struct {
	mu       sync.Mutex
	outcomes []bool
	calls    []delivery.Message
}

func (s *ScriptedSender) Send(_ context.Context, msg delivery.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, msg)
	ok := true
	if len(s.outcomes) > 0 {
		ok = s.outcomes[0]
		s.outcomes = s.outcomes[1:]
	}
	if !ok {
		return fmt.Errorf("%w: scripted failure", delivery.ErrDeliveryFailed)
	}
	return nil
}

type recordingDispatcher struct {
	m      sync.Mutex
	events []events.Event
}

func (r *recordingDispatcher) Dispatch(_ context.Context, e events.Event) {
	r.m.Lock()
	defer r.m.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingDispatcher) types() []events.Type {
	r.m.Lock()
	defer r.m.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recordingDispatcher) reset() {
	r.m.Lock()
	defer r.m.Unlock()
	r.events = nil
}

type fixture struct {
	store      *session.MemoryStore
	ledger     *cart.Ledger
	svc        *CheckoutService
	issuer     *MockIssuer
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T, sender delivery.Sender) *fixture {
	t.Helper()
	catalog, err := domain.NewCatalog(domain.DefaultProducts())
	require.NoError(t, err)

	store := session.NewMemoryStore()
	d := &recordingDispatcher{}
	ledger := cart.NewLedger(store, catalog, d)
	issuer := &MockIssuer{}
	return &fixture{
		store:      store,
		ledger:     ledger,
		svc:        NewCheckoutService(store, ledger, issuer, sender, d),
		issuer:     issuer,
		dispatcher: d,
	}
}

func (f *fixture) withEmail(t *testing.T, email string) *fixture {
	t.Helper()
	require.NoError(t, session.SaveProfile(context.Background(), f.store, session.Profile{
		Username:    "alice",
		CompanyName: "Acme Ltd",
		Email:       email,
	}))
	return f
}

func (f *fixture) fill(t *testing.T, items map[string]int) *fixture {
	t.Helper()
	for id, qty := range items {
		require.NoError(t, f.ledger.Add(context.Background(), id, qty))
	}
	f.dispatcher.reset()
	return f
}
