package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ttlBuffer is added to the key TTL beyond the window length so a key
// whose last entry sits at the window edge is not expired mid-check.
const ttlBuffer = 10 * time.Second

// RedisStore implements Store over a Redis sorted set per key. Entries
// are scored by request time in milliseconds; members are unique tokens
// so concurrent requests landing on the same millisecond never collide.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix sets the namespace prepended to every store key.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// NewRedisStore creates a Redis-backed sliding-window store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrStoreRequired
	}

	s := &RedisStore{
		client:    client,
		keyPrefix: "ratelimit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddAndCount prunes, records, refreshes the TTL, and counts in a single
// MULTI/EXEC round trip. The whole sequence executes atomically on the
// server, which is what makes the limiter correct across processes.
func (s *RedisStore) AddAndCount(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	rkey := s.key(key)
	windowStart := now.Add(-window).UnixMilli()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "-inf", "("+strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, rkey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.New().String(),
	})
	pipe.Expire(ctx, rkey, window+ttlBuffer)
	card := pipe.ZCard(ctx, rkey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return card.Val(), nil
}

// Count prunes and counts without inserting an entry.
func (s *RedisStore) Count(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	rkey := s.key(key)
	windowStart := now.Add(-window).UnixMilli()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "-inf", "("+strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, rkey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return card.Val(), nil
}

// Reset removes all recorded entries for the key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) key(key string) string {
	return s.keyPrefix + ":" + key
}
