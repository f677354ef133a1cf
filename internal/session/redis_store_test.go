package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore for one session
func setupTestRedis(t *testing.T, sessionID string) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, sessionID, 30*time.Minute), mr, client
}

func TestRedisStore_Get_Missing(t *testing.T) {
	store, _, _ := setupTestRedis(t, "s1")

	_, err := store.Get(context.Background(), KeyCart)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	store, mr, _ := setupTestRedis(t, "s1")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyCart, `{"p1":2}`))

	assert.Equal(t, `{"p1":2}`, mr.HGet(sessionKey("s1"), KeyCart))

	v, err := store.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `{"p1":2}`, v)
}

func TestRedisStore_SetSlidesTTL(t *testing.T) {
	store, mr, _ := setupTestRedis(t, "s1")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyCart, "{}"))
	mr.FastForward(20 * time.Minute)
	require.NoError(t, store.Set(ctx, KeyPurchases, "[]"))

	ttl := mr.TTL(sessionKey("s1"))
	assert.True(t, ttl > 20*time.Minute, "TTL should be refreshed on write")
	assert.True(t, ttl <= 30*time.Minute)
}

func TestRedisStore_SessionExpires(t *testing.T) {
	store, mr, _ := setupTestRedis(t, "s1")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyCart, "{}"))
	mr.FastForward(31 * time.Minute)

	_, err := store.Get(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStore_DeleteAndClear(t *testing.T) {
	store, mr, _ := setupTestRedis(t, "s1")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyCart, "{}"))
	require.NoError(t, store.Set(ctx, KeySendingPurchase, "abc"))

	require.NoError(t, store.Delete(ctx, KeySendingPurchase))
	_, err := store.Get(ctx, KeySendingPurchase)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists(sessionKey("s1")))
}

func TestRedisStore_SessionsAreIsolated(t *testing.T) {
	_, _, client := setupTestRedis(t, "unused")
	ctx := context.Background()
	provider := NewRedisProvider(client, time.Minute)

	a, err := provider.Open(ctx, "a")
	require.NoError(t, err)
	b, err := provider.Open(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, KeyCart, `{"p1":1}`))
	_, err = b.Get(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisProvider_RequiresSessionID(t *testing.T) {
	_, _, client := setupTestRedis(t, "unused")

	_, err := NewRedisProvider(client, time.Minute).Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSessionID)
}

func TestPingRedis(t *testing.T) {
	_, _, client := setupTestRedis(t, "unused")

	err := PingRedis(context.Background(), client, 3, time.Millisecond, 5*time.Millisecond)
	assert.NoError(t, err)
}

func TestPingRedis_GivesUp(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	err := PingRedis(context.Background(), client, 2, time.Millisecond, 2*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoSessionID)
}

func TestSessionKey_Format(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
}
