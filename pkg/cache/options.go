package cache

import (
	"log/slog"
	"time"
)

// Config carries cache defaults, loadable from the environment.
type Config struct {
	Namespace   string        `env:"CACHE_NAMESPACE" envDefault:"cache"`   // Namespace prefixes every key.
	DefaultTTL  time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"5m"`    // DefaultTTL applies when a write specifies none. Zero disables expiry.
	LockTTL     time.Duration `env:"CACHE_LOCK_TTL" envDefault:"10s"`      // LockTTL bounds how long a crashed fetcher can hold the stampede lock.
	LockRetries int           `env:"CACHE_LOCK_RETRIES" envDefault:"5"`    // LockRetries bounds contention retries before the direct-fetch fallback.
	LockBackoff time.Duration `env:"CACHE_LOCK_BACKOFF" envDefault:"50ms"` // LockBackoff is the base backoff between lock attempts.
}

// Option configures a Cache at construction.
type Option func(*Cache)

// WithLogger sets the logger for fail-open events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ItemOption configures a single cache operation.
type ItemOption func(*itemOptions)

type itemOptions struct {
	ttl       time.Duration
	namespace string
	tags      []string
}

// WithTTL overrides the default TTL for this write. Zero means the entry
// never expires.
func WithTTL(ttl time.Duration) ItemOption {
	return func(o *itemOptions) {
		o.ttl = ttl
	}
}

// WithNamespace overrides the cache's namespace for this operation.
func WithNamespace(namespace string) ItemOption {
	return func(o *itemOptions) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

// WithTags registers the written key under each tag for bulk invalidation.
func WithTags(tags ...string) ItemOption {
	return func(o *itemOptions) {
		o.tags = append(o.tags, tags...)
	}
}
