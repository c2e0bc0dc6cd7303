package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payforge/payforge/pkg/ratelimit"
)

// errStore simulates an unreachable backend.
type errStore struct{}

func (errStore) AddAndCount(context.Context, string, time.Time, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func (errStore) Count(context.Context, string, time.Time, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func (errStore) Reset(context.Context, string) error {
	return errors.New("connection refused")
}

func TestLimiterAllow(t *testing.T) {
	t.Parallel()

	t.Run("admits up to the limit then denies", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		limiter, err := ratelimit.New(store, 3, time.Minute)
		require.NoError(t, err)

		ctx := context.Background()
		for i := range 3 {
			res, err := limiter.Allow(ctx, "tenant:a")
			require.NoError(t, err)
			assert.True(t, res.Allowed, "request %d should pass", i+1)
			assert.Equal(t, 3, res.Limit)
			assert.Equal(t, 3-i-1, res.Remaining)
			assert.False(t, res.Fallback)
		}

		res, err := limiter.Allow(ctx, "tenant:a")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Zero(t, res.Remaining)
		assert.Positive(t, res.RetryAfter)
		assert.False(t, res.ResetAt.IsZero())
	})

	t.Run("keys are throttled independently", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		limiter, err := ratelimit.New(store, 1, time.Minute)
		require.NoError(t, err)

		ctx := context.Background()

		res, err := limiter.Allow(ctx, "tenant:a")
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		res, err = limiter.Allow(ctx, "tenant:a")
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		res, err = limiter.Allow(ctx, "tenant:b")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("quota recovers as the window slides", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		now := time.Now()
		limiter, err := ratelimit.New(store, 2, time.Minute,
			ratelimit.WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		ctx := context.Background()
		for range 2 {
			res, err := limiter.Allow(ctx, "tenant:a")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		}

		res, err := limiter.Allow(ctx, "tenant:a")
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		now = now.Add(2 * time.Minute)

		res, err = limiter.Allow(ctx, "tenant:a")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("fails open when the store is down", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.New(errStore{}, 5, time.Minute)
		require.NoError(t, err)

		res, err := limiter.Allow(context.Background(), "tenant:a")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.True(t, res.Fallback)
		assert.Equal(t, 5, res.Remaining)
	})

	t.Run("requires a key", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		limiter, err := ratelimit.New(store, 5, time.Minute)
		require.NoError(t, err)

		_, err = limiter.Allow(context.Background(), "")
		assert.ErrorIs(t, err, ratelimit.ErrKeyRequired)
	})
}

func TestLimiterStatus(t *testing.T) {
	t.Parallel()

	t.Run("does not consume quota", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		limiter, err := ratelimit.New(store, 2, time.Minute)
		require.NoError(t, err)

		ctx := context.Background()
		_, err = limiter.Allow(ctx, "tenant:a")
		require.NoError(t, err)

		for range 5 {
			res, err := limiter.Status(ctx, "tenant:a")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 1, res.Remaining)
		}
	})

	t.Run("reports exhaustion without recording", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		limiter, err := ratelimit.New(store, 1, time.Minute)
		require.NoError(t, err)

		ctx := context.Background()
		_, err = limiter.Allow(ctx, "tenant:a")
		require.NoError(t, err)

		res, err := limiter.Status(ctx, "tenant:a")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
	})
}

func TestLimiterReset(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()
	defer store.Close()

	limiter, err := ratelimit.New(store, 1, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()

	res, err := limiter.Allow(ctx, "tenant:a")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, "tenant:a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	require.NoError(t, limiter.Reset(ctx, "tenant:a"))

	res, err = limiter.Allow(ctx, "tenant:a")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNew(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()
	defer store.Close()

	t.Run("rejects invalid configuration", func(t *testing.T) {
		t.Parallel()

		_, err := ratelimit.New(nil, 1, time.Minute)
		assert.ErrorIs(t, err, ratelimit.ErrStoreRequired)

		_, err = ratelimit.New(store, 0, time.Minute)
		assert.ErrorIs(t, err, ratelimit.ErrInvalidLimit)

		_, err = ratelimit.New(store, 1, 0)
		assert.ErrorIs(t, err, ratelimit.ErrInvalidWindow)
	})

	t.Run("class selection", func(t *testing.T) {
		t.Parallel()

		cfg := ratelimit.Config{
			LiveRequests: 1000,
			LiveWindow:   time.Minute,
			TestRequests: 100,
			TestWindow:   30 * time.Second,
		}

		live, err := ratelimit.NewForClass(store, cfg, ratelimit.ClassLive)
		require.NoError(t, err)
		assert.Equal(t, 1000, live.Limit())
		assert.Equal(t, time.Minute, live.Window())

		test, err := ratelimit.NewForClass(store, cfg, ratelimit.ClassTest)
		require.NoError(t, err)
		assert.Equal(t, 100, test.Limit())
		assert.Equal(t, 30*time.Second, test.Window())

		unknown, err := ratelimit.NewForClass(store, cfg, ratelimit.Class("other"))
		require.NoError(t, err)
		assert.Equal(t, 100, unknown.Limit())
	})
}
