package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/certshop/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSentLog_AppendsOnSuccess(t *testing.T) {
	store := session.NewMemoryStore()
	sentLog := NewSentLog(store)
	fixedNow := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sentLog.now = func() time.Time { return fixedNow }
	sender := WithSentLog(NewFixed(true), sentLog)

	require.NoError(t, sender.Send(context.Background(), testMessage()))

	entries, err := sentLog.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "buyer@example.com", entries[0].To)
	assert.Equal(t, []string{"certificate-1.png"}, entries[0].Attachments)
	assert.Equal(t, fixedNow, entries[0].SentAt)
}

func TestWithSentLog_NoEntryOnFailure(t *testing.T) {
	store := session.NewMemoryStore()
	sentLog := NewSentLog(store)
	sender := WithSentLog(NewFixed(false), sentLog)

	err := sender.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	entries, err := sentLog.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = store.Get(context.Background(), session.KeySentEmails)
	assert.ErrorIs(t, err, session.ErrKeyNotFound)
}

func TestSentLog_PreservesOrder(t *testing.T) {
	sentLog := NewSentLog(session.NewMemoryStore())
	ctx := context.Background()

	first := testMessage()
	second := testMessage()
	second.To = "other@example.com"
	require.NoError(t, sentLog.Append(ctx, first))
	require.NoError(t, sentLog.Append(ctx, second))

	entries, err := sentLog.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "other@example.com", entries[1].To)
}
