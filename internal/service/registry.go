package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/certshop/internal/cart"
	"github.com/fjod/go_cart/certshop/internal/delivery"
	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/events"
	"github.com/fjod/go_cart/certshop/internal/metrics"
	"github.com/fjod/go_cart/certshop/internal/session"
	log "github.com/sirupsen/logrus"
)

// CleanupInterval is how often idle workspaces are looked for.
const CleanupInterval = 30 * time.Second

var ErrEmptySessionID = errors.New("session id is required")

// Workspace bundles everything that acts on one session.
type Workspace struct {
	ID       string
	Store    session.Store
	Cart     *cart.Ledger
	Checkout *CheckoutService

	lastSeen time.Time
}

type Registry struct {
	provider   session.Provider
	catalog    *domain.Catalog
	issuer     CertificateIssuer
	sender     delivery.Sender
	dispatcher events.Dispatcher
	idleTTL    time.Duration
	now        func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace

	stopCleanup chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// NewRegistry builds workspaces on demand. With a positive idleTTL, workspaces not used
// for that long are dropped by a background loop. The session data stays with the
// provider and is found again when the session comes back.
func NewRegistry(
	provider session.Provider,
	catalog *domain.Catalog,
	issuer CertificateIssuer,
	sender delivery.Sender,
	dispatcher events.Dispatcher,
	idleTTL time.Duration) *Registry {

	if dispatcher == nil {
		dispatcher = events.Discard{}
	}
	r := &Registry{
		provider:    provider,
		catalog:     catalog,
		issuer:      issuer,
		sender:      sender,
		dispatcher:  dispatcher,
		idleTTL:     idleTTL,
		now:         time.Now,
		workspaces:  make(map[string]*Workspace),
		stopCleanup: make(chan struct{}),
	}

	if idleTTL > 0 {
		interval := CleanupInterval
		if idleTTL < interval {
			interval = idleTTL
		}
		r.wg.Add(1)
		go r.cleanupLoop(interval)
	}
	return r
}

func (r *Registry) Workspace(ctx context.Context, sessionID string) (*Workspace, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.workspaces[sessionID]; ok {
		ws.lastSeen = r.now()
		return ws, nil
	}

	store, err := r.provider.Open(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to open session %s: %w", sessionID, err)
	}
	dispatcher := events.WithSession(r.dispatcher, sessionID)
	ledger := cart.NewLedger(store, r.catalog, dispatcher)

	ws := &Workspace{
		ID:       sessionID,
		Store:    store,
		Cart:     ledger,
		Checkout: NewCheckoutService(store, ledger, r.issuer, r.sender, dispatcher),
		lastSeen: r.now(),
	}
	r.workspaces[sessionID] = ws
	metrics.ActiveSessions.Set(float64(len(r.workspaces)))

	log.WithField("session_id", sessionID).Debug("workspace opened")
	return ws, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

func (r *Registry) cleanupLoop(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stopCleanup:
			return
		}
	}
}

// evictIdle drops workspaces idle for longer than idleTTL. A workspace with a checkout or
// delivery still running is kept.
func (r *Registry) evictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for id, ws := range r.workspaces {
		if ws.lastSeen.After(cutoff) || !ws.Checkout.Idle() {
			continue
		}
		delete(r.workspaces, id)
		evicted++
	}
	if evicted > 0 {
		metrics.ActiveSessions.Set(float64(len(r.workspaces)))
		log.WithField("evicted", evicted).Debug("idle workspaces evicted")
	}
	return evicted
}

// Close stops the background cleanup and waits for it to finish.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stopCleanup)
		r.wg.Wait()
	})
}
