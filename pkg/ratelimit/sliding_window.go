package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// nearLimitFraction is the share of the quota past which a warning is
// logged, so capacity alerts fire before clients start seeing 429s.
const nearLimitFraction = 0.8

// Limiter is a sliding-window rate limiter over a shared store.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets the logger for fail-open and near-limit events.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source, used by window-expiry tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a sliding-window limiter allowing limit requests per window.
func New(store Store, limit int, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}

	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// NewForClass creates a limiter with the configured defaults for a traffic class.
func NewForClass(store Store, cfg Config, class Class, opts ...Option) (*Limiter, error) {
	limit, window := cfg.ForClass(class)
	return New(store, limit, window, opts...)
}

// Allow records one request for the key and reports whether it fits the
// window. Store failures are downgraded to an allowed result with
// Fallback set; the limiter never propagates infrastructure errors to
// request handling.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := l.now()

	count, err := l.store.AddAndCount(ctx, key, now, l.window)
	if err != nil {
		l.logger.ErrorContext(ctx, "rate limit store unavailable, failing open",
			slog.String("key", key),
			slog.Any("error", err))
		return l.failOpen(now), nil
	}

	if float64(count) > float64(l.limit)*nearLimitFraction && count <= int64(l.limit) {
		l.logger.WarnContext(ctx, "rate limit nearly exhausted",
			slog.String("key", key),
			slog.Int64("count", count),
			slog.Int("limit", l.limit))
	}

	return l.result(now, count), nil
}

// Status reports the current window occupancy without consuming quota.
func (l *Limiter) Status(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := l.now()

	count, err := l.store.Count(ctx, key, now, l.window)
	if err != nil {
		l.logger.ErrorContext(ctx, "rate limit store unavailable, failing open",
			slog.String("key", key),
			slog.Any("error", err))
		return l.failOpen(now), nil
	}

	res := l.result(now, count)
	// A status probe does not occupy a slot, so the key is still allowed
	// when exactly at the limit boundary.
	res.Allowed = count < int64(l.limit)
	if res.Allowed {
		res.RetryAfter = 0
	}
	return res, nil
}

// Reset clears the window for the key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return l.store.Reset(ctx, key)
}

// Limit returns the configured quota.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// result derives the client-facing quota fields from a window count.
func (l *Limiter) result(now time.Time, count int64) *Result {
	windowMs := l.window.Milliseconds()
	nowMs := now.UnixMilli()

	// The reset boundary is the next multiple of the window length, so
	// all instances report the same reset time regardless of when each
	// key's first request arrived.
	resetMs := ((nowMs + windowMs - 1) / windowMs) * windowMs
	if resetMs == nowMs {
		resetMs += windowMs
	}

	res := &Result{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: max(0, l.limit-int(count)),
		ResetAt:   time.UnixMilli(resetMs),
	}
	if !res.Allowed {
		secs := (resetMs - nowMs + 999) / 1000
		res.RetryAfter = time.Duration(secs) * time.Second
	}
	return res
}

// failOpen builds the permissive result returned when the store is down.
func (l *Limiter) failOpen(now time.Time) *Result {
	return &Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit,
		ResetAt:   now.Add(l.window),
		Fallback:  true,
	}
}
