package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/longbox/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCache(t *testing.T) {
	cache := newSearchCache(time.Minute)
	defer cache.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.set("saga 1", []model.ComicMatch{{ExternalID: "1", Title: "Saga"}})

	got, ok := cache.get("saga 1")
	require.True(t, ok)
	require.Len(t, got, 1)

	// Callers get their own copy.
	got[0].Title = "changed"
	again, _ := cache.get("saga 1")
	assert.Equal(t, "Saga", again[0].Title)

	now = now.Add(2 * time.Minute)
	_, ok = cache.get("saga 1")
	assert.False(t, ok, "entry should expire after TTL")

	cache.evictExpired()
	assert.Equal(t, 0, cache.size())
}

func TestRateLimiter(t *testing.T) {
	t.Run("drains bucket", func(t *testing.T) {
		rl := newRateLimiter(3)
		defer rl.Close()

		for i := 0; i < 3; i++ {
			require.NoError(t, rl.wait(context.Background()))
		}
		assert.Equal(t, 0, rl.available())
		assert.False(t, rl.tryAcquire())
	})

	t.Run("context cancellation", func(t *testing.T) {
		rl := newRateLimiter(1)
		defer rl.Close()
		require.NoError(t, rl.wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := rl.wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		rl := newRateLimiter(1)
		rl.Close()
		rl.Close()
	})
}
