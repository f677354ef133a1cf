package service

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_ReplaceKeepsPositionAfterPrepend(t *testing.T) {
	h := &history{store: session.NewMemoryStore()}
	ctx := context.Background()

	require.NoError(t, h.prepend(ctx, domain.PurchaseRecord{ID: "a"}))
	require.NoError(t, h.prepend(ctx, domain.PurchaseRecord{ID: "b"}))
	require.NoError(t, h.prepend(ctx, domain.PurchaseRecord{ID: "c"}))

	require.NoError(t, h.replace(ctx, domain.PurchaseRecord{ID: "b", EmailAttempts: 7}))

	records, err := h.list(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{records[0].ID, records[1].ID, records[2].ID})
	assert.Equal(t, 7, records[1].EmailAttempts)
}

func TestHistory_ReplaceUnknown(t *testing.T) {
	h := &history{store: session.NewMemoryStore()}

	err := h.replace(context.Background(), domain.PurchaseRecord{ID: "missing"})

	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestHistory_CorruptValue(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), session.KeyPurchases, "{not json"))
	h := &history{store: store}

	_, err := h.list(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load purchase history")
}
