package redis

import (
	"context"
	"testing"
	"time"

	"value-ledger/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryCache_SetAndGet(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewEntryCache(client)
	ctx := context.Background()

	key := domain.BuildEntryCacheKey("e-1")
	value := []byte(`{"id":"e-1","amount":"40"}`)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestEntryCache_NamespacedKey(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewEntryCache(client)

	require.NoError(t, cache.Set(context.Background(), domain.BuildEntryCacheKey("e-2"), []byte("x"), time.Hour))
	assert.True(t, s.Exists("ledger:entry:e-2"))
}

func TestEntryCache_TTLExpiry(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewEntryCache(client)
	ctx := context.Background()

	key := domain.BuildEntryCacheKey("e-3")
	require.NoError(t, cache.Set(ctx, key, []byte(`{}`), time.Second))

	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestEntryCache_ServerDown(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewEntryCache(client)
	s.Close()

	_, err := cache.Get(context.Background(), domain.BuildEntryCacheKey("e-4"))
	assert.ErrorContains(t, err, "redis entry cache get")
}
