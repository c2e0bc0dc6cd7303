package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payforge/payforge/pkg/cache"
)

func TestGetOrSetWithLock(t *testing.T) {
	t.Parallel()

	t.Run("fetches on miss and caches", func(t *testing.T) {
		t.Parallel()

		c, _ := newCache(t, cache.Config{Namespace: "pf"})
		ctx := context.Background()

		var calls atomic.Int32
		fetcher := func(ctx context.Context) (any, error) {
			calls.Add(1)
			return payment{ID: "pay_1", Amount: 500}, nil
		}

		var got payment
		require.NoError(t, c.GetOrSetWithLock(ctx, "payment:1", &got, fetcher))
		assert.Equal(t, int64(500), got.Amount)
		assert.Equal(t, int32(1), calls.Load())

		// Second call is a plain hit.
		var again payment
		require.NoError(t, c.GetOrSetWithLock(ctx, "payment:1", &again, fetcher))
		assert.Equal(t, got, again)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		t.Parallel()

		c, _ := newCache(t, cache.Config{
			Namespace:   "pf",
			LockTTL:     5 * time.Second,
			LockRetries: 20,
			LockBackoff: 5 * time.Millisecond,
		})
		ctx := context.Background()

		var calls atomic.Int32
		fetcher := func(ctx context.Context) (any, error) {
			calls.Add(1)
			time.Sleep(20 * time.Millisecond)
			return payment{ID: "pay_1", Amount: 500}, nil
		}

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				var got payment
				assert.NoError(t, c.GetOrSetWithLock(ctx, "payment:1", &got, fetcher))
				assert.Equal(t, int64(500), got.Amount)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load(), "stampede lock must collapse fetches")
	})

	t.Run("falls back to direct fetch under sustained contention", func(t *testing.T) {
		t.Parallel()

		c, mr := newCache(t, cache.Config{
			Namespace:   "pf",
			LockTTL:     time.Minute,
			LockRetries: 2,
			LockBackoff: time.Millisecond,
		})
		ctx := context.Background()

		// Another process holds the lock and never finishes.
		mr.Set("pf:lock:payment:1", "foreign-token")

		var calls atomic.Int32
		fetcher := func(ctx context.Context) (any, error) {
			calls.Add(1)
			return payment{ID: "pay_1", Amount: 500}, nil
		}

		var got payment
		require.NoError(t, c.GetOrSetWithLock(ctx, "payment:1", &got, fetcher))
		assert.Equal(t, int64(500), got.Amount)
		assert.Equal(t, int32(1), calls.Load())

		// The foreign lock must survive; only its owner may release it.
		held, err := mr.Get("pf:lock:payment:1")
		require.NoError(t, err)
		assert.Equal(t, "foreign-token", held)
	})

	t.Run("fetches directly when the store is down", func(t *testing.T) {
		t.Parallel()

		c, mr := newCache(t, cache.Config{Namespace: "pf"})
		mr.Close()
		ctx := context.Background()

		var got payment
		err := c.GetOrSetWithLock(ctx, "payment:1", &got, func(ctx context.Context) (any, error) {
			return payment{ID: "pay_1", Amount: 500}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(500), got.Amount)
	})

	t.Run("fetcher errors propagate", func(t *testing.T) {
		t.Parallel()

		c, _ := newCache(t, cache.Config{Namespace: "pf"})
		ctx := context.Background()

		wantErr := errors.New("upstream unavailable")
		var got payment
		err := c.GetOrSetWithLock(ctx, "payment:1", &got, func(ctx context.Context) (any, error) {
			return nil, wantErr
		})
		assert.ErrorIs(t, err, wantErr)

		// A failed fetch must not leave the lock held.
		var again payment
		require.NoError(t, c.GetOrSetWithLock(ctx, "payment:1", &again, func(ctx context.Context) (any, error) {
			return payment{ID: "pay_1", Amount: 1}, nil
		}))
		assert.Equal(t, int64(1), again.Amount)
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		t.Parallel()

		c, mr := newCache(t, cache.Config{
			Namespace:   "pf",
			LockRetries: 50,
			LockBackoff: 50 * time.Millisecond,
		})

		mr.Set("pf:lock:payment:1", "foreign-token")

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		var got payment
		err := c.GetOrSetWithLock(ctx, "payment:1", &got, func(ctx context.Context) (any, error) {
			return payment{}, nil
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("input validation", func(t *testing.T) {
		t.Parallel()

		c, _ := newCache(t, cache.Config{})
		ctx := context.Background()

		var got payment
		err := c.GetOrSetWithLock(ctx, "", &got, func(ctx context.Context) (any, error) { return nil, nil })
		assert.ErrorIs(t, err, cache.ErrKeyRequired)

		err = c.GetOrSetWithLock(ctx, "k", &got, nil)
		assert.ErrorIs(t, err, cache.ErrNilFetcher)
	})
}

func TestLockRelease(t *testing.T) {
	t.Parallel()

	c, mr := newCache(t, cache.Config{Namespace: "pf", LockBackoff: time.Millisecond})
	ctx := context.Background()

	var got string
	require.NoError(t, c.GetOrSetWithLock(ctx, "k", &got, func(ctx context.Context) (any, error) {
		return "v", nil
	}))

	// The winner's lock must be gone after the call returns.
	assert.False(t, mr.Exists("pf:lock:k"))
}
