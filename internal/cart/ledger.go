package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/events"
	"github.com/fjod/go_cart/certshop/internal/session"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUnknownProduct  = errors.New("unknown product")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
)

// Ledger is the pending product selection of one session, stored as a JSON map
// productID -> quantity under session.KeyCart. Every mutation rewrites the whole map.
type Ledger struct {
	store      session.Store
	catalog    *domain.Catalog
	dispatcher events.Dispatcher
	mu         sync.Mutex
}

func NewLedger(store session.Store, catalog *domain.Catalog, dispatcher events.Dispatcher) *Ledger {
	return &Ledger{
		store:      store,
		catalog:    catalog,
		dispatcher: dispatcher,
	}
}

func (l *Ledger) Add(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return l.mutate(ctx, productID, func(entries map[string]int) error {
		if quantity > math.MaxInt-entries[productID] {
			return fmt.Errorf("%w: %s would exceed %d", ErrInvalidQuantity, productID, math.MaxInt)
		}
		entries[productID] += quantity
		return nil
	})
}

// SetQuantity replaces the quantity of a product; a non-positive quantity removes it.
func (l *Ledger) SetQuantity(ctx context.Context, productID string, quantity int) error {
	return l.mutate(ctx, productID, func(entries map[string]int) error {
		if quantity <= 0 {
			delete(entries, productID)
			return nil
		}
		entries[productID] = quantity
		return nil
	})
}

func (l *Ledger) Remove(ctx context.Context, productID string) error {
	return l.mutate(ctx, productID, func(entries map[string]int) error {
		delete(entries, productID)
		return nil
	})
}

func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	err := l.store.Delete(ctx, session.KeyCart)
	l.mu.Unlock()
	if err != nil {
		log.WithError(err).Error("cart clear failed")
		return err
	}

	l.dispatcher.Dispatch(ctx, events.Event{Type: events.CartUpdated})
	return nil
}

// Snapshot prices the cart against the catalog. Items come back in catalog order.
func (l *Ledger) Snapshot(ctx context.Context) (*domain.CartSnapshot, error) {
	l.mu.Lock()
	entries, err := l.load(ctx)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	snapshot := &domain.CartSnapshot{
		Items: make([]domain.CartSnapshotItem, 0, len(entries)),
		Total: decimal.Zero,
	}
	for _, product := range l.catalog.Products() {
		quantity, ok := entries[product.ID]
		if !ok || quantity <= 0 {
			continue
		}
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
		snapshot.Items = append(snapshot.Items, domain.CartSnapshotItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Unit:        product.Unit,
			Quantity:    quantity,
			UnitPrice:   product.Price,
			Subtotal:    subtotal,
		})
		snapshot.Total = snapshot.Total.Add(subtotal)
		snapshot.ItemCount += quantity
	}

	if len(snapshot.Items) != len(entries) {
		for id := range entries {
			if _, ok := l.catalog.Lookup(id); !ok {
				log.WithField("product_id", id).Warn("cart holds a product missing from the catalog, skipping")
			}
		}
	}
	return snapshot, nil
}

func (l *Ledger) mutate(ctx context.Context, productID string, apply func(map[string]int) error) error {
	if _, ok := l.catalog.Lookup(productID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}

	l.mu.Lock()
	entries, err := l.load(ctx)
	if err == nil {
		if err = apply(entries); err != nil {
			l.mu.Unlock()
			return err
		}
		err = session.SetJSON(ctx, l.store, session.KeyCart, entries)
	}
	l.mu.Unlock()
	if err != nil {
		log.WithError(err).WithField("product_id", productID).Error("cart update failed")
		return err
	}

	l.dispatcher.Dispatch(ctx, events.Event{Type: events.CartUpdated})
	return nil
}

func (l *Ledger) load(ctx context.Context) (map[string]int, error) {
	entries := make(map[string]int)
	if _, err := session.GetJSON(ctx, l.store, session.KeyCart, &entries); err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if entries == nil {
		entries = make(map[string]int)
	}
	return entries, nil
}
