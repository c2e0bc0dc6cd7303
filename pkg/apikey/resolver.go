package apikey

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/payforge/payforge/pkg/async"
	"github.com/payforge/payforge/pkg/reqctx"
)

// Resolver authenticates presented API keys against stored records.
type Resolver struct {
	storage      Storage
	logger       *slog.Logger
	touchTimeout time.Duration
	now          func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used for touch failures and diagnostics.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTouchTimeout bounds the detached last-used update.
func WithTouchTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.touchTimeout = d
		}
	}
}

// WithClock overrides the time source, used by expiry tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a resolver backed by the given storage.
func NewResolver(storage Storage, opts ...ResolverOption) (*Resolver, error) {
	if storage == nil {
		return nil, errors.New("apikey: storage is required")
	}

	r := &Resolver{
		storage:      storage,
		logger:       slog.Default(),
		touchTimeout: 5 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Authenticate verifies a presented key and returns the matching key and
// its tenant. Verification order: prefix parse, candidate hash comparison,
// key liveness (revoked/expired), tenant liveness. The distinction between
// ErrUnauthenticated and ErrTenantInactive is deliberate; everything that
// would reveal whether a particular key exists collapses into
// ErrKeyNotFound.
func (r *Resolver) Authenticate(ctx context.Context, raw string) (*Key, *Tenant, error) {
	prefix, _, err := ParsePrefix(raw)
	if err != nil {
		return nil, nil, err
	}

	candidates, err := r.storage.ListKeysByPrefix(ctx, prefix)
	if err != nil {
		return nil, nil, err
	}

	var matched *Key
	for i := range candidates {
		if verifySecret(candidates[i].SecretHash, raw) {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		return nil, nil, ErrKeyNotFound
	}

	now := r.now()
	if matched.Revoked() {
		return nil, nil, ErrKeyRevoked
	}
	if matched.Expired(now) {
		return nil, nil, ErrKeyExpired
	}

	tenant, err := r.storage.GetTenant(ctx, matched.TenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			// Orphaned key: report as not-found rather than leaking that
			// the key itself verified.
			return nil, nil, ErrKeyNotFound
		}
		return nil, nil, err
	}
	if !tenant.Active {
		return nil, nil, ErrTenantInactive
	}

	r.touchAsync(ctx, matched.ID, now)

	return matched, tenant, nil
}

// touchAsync records the last-used timestamp and IP without blocking the
// response. The future runs on a detached context because the client may
// stop waiting before the write lands; failure is logged, never surfaced.
func (r *Resolver) touchAsync(ctx context.Context, keyID uuid.UUID, usedAt time.Time) {
	ip := ""
	if rc, ok := reqctx.FromContext(ctx); ok {
		ip = rc.IPAddress
	}

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.touchTimeout)

	fut := async.Async(detached, keyID, func(ctx context.Context, id uuid.UUID) (struct{}, error) {
		return struct{}{}, r.storage.TouchKey(ctx, id, usedAt, ip)
	})

	go func() {
		defer cancel()
		if _, err := fut.Await(); err != nil {
			r.logger.WarnContext(detached, "failed to record api key usage",
				slog.String("api_key_id", keyID.String()),
				slog.Any("error", err))
		}
	}()
}
