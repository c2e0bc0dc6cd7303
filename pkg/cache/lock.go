package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if this caller still holds it, so a
// fetcher that outlived its lock TTL cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// GetOrSetWithLock returns the cached value or computes it exactly once
// per lock window. On a miss the caller races for a short-TTL lock; the
// winner re-checks the cache (a concurrent writer may have just
// finished), runs the fetcher, stores the result, and releases the lock
// whether or not the fetch succeeded. Losers back off and retry the whole
// operation a bounded number of times, then fall back to a direct
// uncached fetch so the call terminates under sustained contention.
//
// The returned value is written into dest in both the hit and fetch
// paths. Fetcher errors propagate unchanged.
func (c *Cache) GetOrSetWithLock(ctx context.Context, key string, dest any, fetcher func(ctx context.Context) (any, error), opts ...ItemOption) error {
	if key == "" {
		return ErrKeyRequired
	}
	if fetcher == nil {
		return ErrNilFetcher
	}

	o := c.itemOptions(opts)
	nskey := c.namespacedKey(o.namespace, key)
	lockKey := c.lockKey(o.namespace, key)

	for attempt := 0; attempt <= c.cfg.LockRetries; attempt++ {
		if c.Get(ctx, key, dest, opts...) {
			return nil
		}

		token := uuid.New().String()
		acquired, err := c.client.SetNX(ctx, lockKey, token, c.cfg.LockTTL).Result()
		if err != nil {
			// Store down: the lock cannot help anyone, fetch directly.
			c.logger.WarnContext(ctx, "stampede lock unavailable, fetching directly",
				slog.String("key", nskey),
				slog.Any("error", err))
			return c.fetchInto(ctx, key, dest, fetcher, opts)
		}

		if acquired {
			err := func() error {
				defer c.releaseLock(ctx, lockKey, token)

				// Another holder may have populated the key between our
				// miss and the lock grant.
				if c.Get(ctx, key, dest, opts...) {
					return nil
				}
				return c.fetchInto(ctx, key, dest, fetcher, opts)
			}()
			return err
		}

		if attempt == c.cfg.LockRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffWithJitter(c.cfg.LockBackoff, attempt)):
		}
	}

	// Retry budget spent while another holder kept the lock. Liveness
	// wins over single-flight exactness here.
	c.logger.WarnContext(ctx, "stampede lock contended past retry budget, fetching directly",
		slog.String("key", nskey),
		slog.Any("error", ErrLockContended))
	return c.fetchInto(ctx, key, dest, fetcher, opts)
}

// fetchInto runs the fetcher, stores its result, and decodes it into dest
// through the same JSON path a cache hit takes, so both paths yield
// identical shapes.
func (c *Cache) fetchInto(ctx context.Context, key string, dest any, fetcher func(ctx context.Context) (any, error), opts []ItemOption) error {
	value, err := fetcher(ctx)
	if err != nil {
		return err
	}

	c.Set(ctx, key, value, opts...)

	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

func (c *Cache) releaseLock(ctx context.Context, lockKey, token string) {
	if err := releaseScript.Run(ctx, c.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
		c.logger.WarnContext(ctx, "stampede lock release failed",
			slog.String("lock", lockKey),
			slog.Any("error", err))
	}
}

func (c *Cache) lockKey(namespace, key string) string {
	return namespace + ":lock:" + key
}

// maxLockBackoff caps the doubling so a generous retry budget cannot
// stretch a single wait past a couple of seconds (or overflow the shift).
const maxLockBackoff = 2 * time.Second

// backoffWithJitter doubles the base per attempt up to maxLockBackoff and
// adds up to 50% random jitter so contenders do not retry in lockstep.
func backoffWithJitter(base time.Duration, attempt int) time.Duration {
	backoff := base
	for range attempt {
		if backoff >= maxLockBackoff {
			break
		}
		backoff <<= 1
	}
	if backoff > maxLockBackoff {
		backoff = maxLockBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(backoff)/2 + 1))
	return backoff + jitter
}
