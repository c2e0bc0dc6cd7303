package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a cache-aside layer over Redis. Values are JSON-serialized;
// keys are namespaced as <namespace>:<key>.
type Cache struct {
	client redis.UniversalClient
	cfg    Config
	logger *slog.Logger
}

// New creates a cache over the given Redis client.
func New(client redis.UniversalClient, cfg Config, opts ...Option) (*Cache, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "cache"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if cfg.LockRetries <= 0 {
		cfg.LockRetries = 5
	}
	if cfg.LockBackoff <= 0 {
		cfg.LockBackoff = 50 * time.Millisecond
	}

	c := &Cache{
		client: client,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get fetches and deserializes the value into dest, reporting whether it
// was a hit. Store and decode errors are logged and reported as misses;
// callers never fail because the cache is down.
func (c *Cache) Get(ctx context.Context, key string, dest any, opts ...ItemOption) bool {
	o := c.itemOptions(opts)
	nskey := c.namespacedKey(o.namespace, key)

	payload, err := c.client.Get(ctx, nskey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "cache read failed, treating as miss",
				slog.String("key", nskey),
				slog.Any("error", err))
		}
		return false
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		c.logger.WarnContext(ctx, "cache entry undecodable, treating as miss",
			slog.String("key", nskey),
			slog.Any("error", err))
		return false
	}
	return true
}

// Set serializes and writes the value, reporting success. A TTL of zero
// (via WithTTL(0)) stores the entry without expiry. Tagged writes also
// register the key in each tag's membership set.
func (c *Cache) Set(ctx context.Context, key string, value any, opts ...ItemOption) bool {
	o := c.itemOptions(opts)
	nskey := c.namespacedKey(o.namespace, key)

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache value not serializable",
			slog.String("key", nskey),
			slog.Any("error", err))
		return false
	}

	if err := c.client.Set(ctx, nskey, payload, o.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", nskey),
			slog.Any("error", err))
		return false
	}

	for _, tag := range o.tags {
		c.registerTag(ctx, o.namespace, tag, nskey, o.ttl)
	}
	return true
}

// Delete removes a single entry.
func (c *Cache) Delete(ctx context.Context, key string, opts ...ItemOption) bool {
	o := c.itemOptions(opts)
	nskey := c.namespacedKey(o.namespace, key)

	if err := c.client.Del(ctx, nskey).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache delete failed",
			slog.String("key", nskey),
			slog.Any("error", err))
		return false
	}
	return true
}

// WriteThrough runs the updater against the source of truth and then
// overwrites the cache with its result, closing the stale-read window a
// plain cache-aside write would leave. The updater's value is returned
// even when the subsequent cache write fails.
func (c *Cache) WriteThrough(ctx context.Context, key string, updater func(ctx context.Context) (any, error), opts ...ItemOption) (any, error) {
	if updater == nil {
		return nil, ErrNilUpdater
	}

	value, err := updater(ctx)
	if err != nil {
		return nil, err
	}

	c.Set(ctx, key, value, opts...)
	return value, nil
}

// Invalidate deletes all keys matching the namespaced pattern. Pattern
// syntax is Redis MATCH globbing (e.g. "payment:*").
func (c *Cache) Invalidate(ctx context.Context, pattern string, opts ...ItemOption) error {
	o := c.itemOptions(opts)
	nspattern := c.namespacedKey(o.namespace, pattern)

	iter := c.client.Scan(ctx, 0, nspattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// InvalidateByTag deletes every key registered under the tag, then the
// tag set itself.
func (c *Cache) InvalidateByTag(ctx context.Context, tag string, opts ...ItemOption) error {
	o := c.itemOptions(opts)
	tagKey := c.tagKey(o.namespace, tag)

	members, err := c.client.SMembers(ctx, tagKey).Result()
	if err != nil {
		return err
	}

	if len(members) > 0 {
		if err := c.client.Del(ctx, members...).Err(); err != nil {
			return err
		}
	}
	return c.client.Del(ctx, tagKey).Err()
}

// registerTag adds the key to the tag's membership set and raises the tag
// set's TTL monotonically to at least the member's TTL. A zero member TTL
// makes the tag set persistent, since it now tracks a non-expiring entry.
// A set created by this very SAdd has no TTL yet and must receive the
// member's; only a set that already existed without one is treated as
// deliberately persistent.
func (c *Cache) registerTag(ctx context.Context, namespace, tag, nskey string, memberTTL time.Duration) {
	tagKey := c.tagKey(namespace, tag)

	existed, err := c.client.Exists(ctx, tagKey).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "tag registration failed",
			slog.String("tag", tagKey),
			slog.String("key", nskey),
			slog.Any("error", err))
		return
	}

	if err := c.client.SAdd(ctx, tagKey, nskey).Err(); err != nil {
		c.logger.WarnContext(ctx, "tag registration failed",
			slog.String("tag", tagKey),
			slog.String("key", nskey),
			slog.Any("error", err))
		return
	}

	if memberTTL == 0 {
		if err := c.client.Persist(ctx, tagKey).Err(); err != nil {
			c.logger.WarnContext(ctx, "tag persist failed",
				slog.String("tag", tagKey),
				slog.Any("error", err))
		}
		return
	}

	if existed == 0 {
		_ = c.client.Expire(ctx, tagKey, memberTTL).Err()
		return
	}

	current, err := c.client.TTL(ctx, tagKey).Result()
	if err != nil {
		return
	}
	// -1 means the pre-existing set is persistent; never lower that.
	if current >= 0 && memberTTL > current {
		_ = c.client.Expire(ctx, tagKey, memberTTL).Err()
	}
}

func (c *Cache) itemOptions(opts []ItemOption) itemOptions {
	o := itemOptions{
		ttl:       c.cfg.DefaultTTL,
		namespace: c.cfg.Namespace,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (c *Cache) namespacedKey(namespace, key string) string {
	return namespace + ":" + key
}

func (c *Cache) tagKey(namespace, tag string) string {
	return namespace + ":tag:" + tag
}
