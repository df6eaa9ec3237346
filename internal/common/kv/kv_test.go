package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "securityAnalytics", `{"totalAttempts":1}`, 0))

	val, err := store.Get(ctx, "securityAnalytics")
	require.NoError(t, err)
	assert.Equal(t, `{"totalAttempts":1}`, val)

	require.NoError(t, store.Delete(ctx, "securityAnalytics"))
	_, err = store.Get(ctx, "securityAnalytics")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }

	require.NoError(t, store.Set(ctx, "intel:1.2.3.4", "cached", 5*time.Minute))

	val, err := store.Get(ctx, "intel:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "cached", val)

	store.now = func() time.Time { return base.Add(6 * time.Minute) }
	_, err = store.Get(ctx, "intel:1.2.3.4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteMissingKey(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.Delete(context.Background(), "never-set"))
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "riskWeights", `{"travelMismatch":25}`, 0))

	val, err := store.Get(ctx, "riskWeights")
	require.NoError(t, err)
	assert.Equal(t, `{"travelMismatch":25}`, val)

	require.NoError(t, store.Delete(ctx, "riskWeights"))
	_, err = store.Get(ctx, "riskWeights")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	store, mr := newRedisTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "intel:8.8.8.8", "cached", time.Minute))

	val, err := store.Get(ctx, "intel:8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "cached", val)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, "intel:8.8.8.8")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorePing(t *testing.T) {
	store, mr := newRedisTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
