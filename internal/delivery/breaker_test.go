package delivery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contextRelay fails only when the caller's context is done.
type contextRelay struct {
	calls int
}

func (r *contextRelay) Send(ctx context.Context, _ Message) error {
	r.calls++
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

func TestBreaker_CancelledSendsDoNotTrip(t *testing.T) {
	relay := &contextRelay{}
	b := NewBreaker(relay, BreakerSettings{Name: "test", FailureThreshold: 2, OpenTimeout: time.Minute})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Send(cancelled, testMessage()), context.Canceled)
		require.ErrorIs(t, b.Send(expired, testMessage()), context.DeadlineExceeded)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())

	require.NoError(t, b.Send(context.Background(), testMessage()))
	assert.Equal(t, 7, relay.calls)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	relay := NewFixed(false)
	b := NewBreaker(relay, BreakerSettings{Name: "test", FailureThreshold: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	require.ErrorIs(t, b.Send(ctx, testMessage()), ErrDeliveryFailed)
	require.ErrorIs(t, b.Send(ctx, testMessage()), ErrDeliveryFailed)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Send(ctx, testMessage())
	require.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Len(t, relay.Calls(), 2, "open breaker must not reach the relay")
}

func TestBreaker_PassesSuccess(t *testing.T) {
	relay := NewFixed(true)
	b := NewBreaker(relay, BreakerSettings{Name: "test"})

	require.NoError(t, b.Send(context.Background(), testMessage()))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	relay := NewFixed(false)
	b := NewBreaker(relay, BreakerSettings{Name: "test", FailureThreshold: 1, OpenTimeout: 10 * time.Millisecond})
	ctx := context.Background()

	require.Error(t, b.Send(ctx, testMessage()))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	relay.SetOutcome(true)
	require.Eventually(t, func() bool {
		return b.State() == gobreaker.StateHalfOpen
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Send(ctx, testMessage()))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
