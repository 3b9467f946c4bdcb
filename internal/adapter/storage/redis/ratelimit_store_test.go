package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_Increment(t *testing.T) {
	s, client := newTestClient(t)
	store := NewRateLimitStore(client)
	// 1699999980 is a minute boundary; the window closes at 1700000040.
	fixed := time.Unix(1700000000, 0)
	store.now = func() time.Time { return fixed }
	ctx := context.Background()

	t.Run("counts within a window", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			count, err := store.Increment(ctx, "alice:transfer", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, i, count)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		count, err := store.Increment(ctx, "bob:transfer", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("counter expires after the window closes", func(t *testing.T) {
		key := fmt.Sprintf("ledger:ratelimit:bob:transfer:%d", fixed.Unix()/60)
		assert.Equal(t, 41*time.Second, s.TTL(key))
	})

	t.Run("next window starts from one", func(t *testing.T) {
		store.now = func() time.Time { return fixed.Add(time.Minute) }
		count, err := store.Increment(ctx, "alice:transfer", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("sub-second window rounds up to one second", func(t *testing.T) {
		store.now = func() time.Time { return fixed }
		count, err := store.Increment(ctx, "carol:session", 500*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, 2*time.Second, s.TTL(fmt.Sprintf("ledger:ratelimit:carol:session:%d", fixed.Unix())))
	})

	t.Run("redis down", func(t *testing.T) {
		s.Close()
		_, err := store.Increment(ctx, "alice:transfer", time.Minute)
		assert.Error(t, err)
	})
}
