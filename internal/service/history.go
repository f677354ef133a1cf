package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/session"
)

// history is the session's purchase list under session.KeyPurchases, most recent first.
type history struct {
	store session.Store
	mu    sync.Mutex
}

func (h *history) list(ctx context.Context) ([]domain.PurchaseRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

func (h *history) find(ctx context.Context, id string) (domain.PurchaseRecord, error) {
	records, err := h.list(ctx)
	if err != nil {
		return domain.PurchaseRecord{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.PurchaseRecord{}, fmt.Errorf("%w: %s", ErrPurchaseNotFound, id)
}

func (h *history) prepend(ctx context.Context, record domain.PurchaseRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.load(ctx)
	if err != nil {
		return err
	}
	records = append([]domain.PurchaseRecord{record}, records...)
	return h.save(ctx, records)
}

// replace overwrites the record with the same id in place. Records are only ever
// prepended, so matching by id keeps the original relative position.
func (h *history) replace(ctx context.Context, record domain.PurchaseRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.load(ctx)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == record.ID {
			records[i] = record
			return h.save(ctx, records)
		}
	}
	return fmt.Errorf("%w: %s", ErrPurchaseNotFound, record.ID)
}

func (h *history) load(ctx context.Context) ([]domain.PurchaseRecord, error) {
	var records []domain.PurchaseRecord
	if _, err := session.GetJSON(ctx, h.store, session.KeyPurchases, &records); err != nil {
		return nil, fmt.Errorf("failed to load purchase history: %w", err)
	}
	if records == nil {
		records = []domain.PurchaseRecord{}
	}
	return records, nil
}

func (h *history) save(ctx context.Context, records []domain.PurchaseRecord) error {
	if err := session.SetJSON(ctx, h.store, session.KeyPurchases, records); err != nil {
		return fmt.Errorf("failed to save purchase history: %w", err)
	}
	return nil
}
