package ratelimit

import (
	"context"
	"time"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAt is when the current window boundary rolls over.
	ResetAt time.Time

	// RetryAfter is how long a denied caller should wait. Zero when allowed.
	RetryAfter time.Duration

	// Fallback is true when the store was unreachable and the check was
	// allowed without consulting real counts.
	Fallback bool
}

// Store defines the atomic sliding-window operations a backend must provide.
// All three operations prune entries older than now-window before acting.
type Store interface {
	// AddAndCount records one request at now under a unique token and
	// returns the number of entries left in the window, including the one
	// just added. Prune, add, TTL refresh, and count happen atomically.
	AddAndCount(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)

	// Count returns the in-window entry count without recording a request,
	// for inspection that must not consume quota.
	Count(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)

	// Reset clears all recorded entries for the key.
	Reset(ctx context.Context, key string) error
}
