package reqctx

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RequestContext holds the identity and client metadata of one in-flight
// request. The zero value of every optional field means "not resolved yet".
type RequestContext struct {
	CorrelationID string
	RequestID     string
	StartTime     time.Time
	IPAddress     string
	UserAgent     string

	// Set by the API key resolver once tenant identity is known.
	TenantID uuid.UUID
	APIKeyID uuid.UUID

	// Set by other auth paths (dashboard sessions), never by the key resolver.
	UserID   uuid.UUID
	UserRole string
}

// HasTenant reports whether tenant identity has been bound to this context.
func (rc RequestContext) HasTenant() bool {
	return rc.TenantID != uuid.Nil
}

// Elapsed returns the time spent handling the request so far.
func (rc RequestContext) Elapsed() time.Duration {
	if rc.StartTime.IsZero() {
		return 0
	}
	return time.Since(rc.StartTime)
}

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithContext binds rc to the context, opening a request scope.
// Everything derived from the returned context observes rc.
func WithContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext retrieves the request context. The second return is false
// when called outside any bound scope; callers must treat the value as
// absent rather than relying on zero fields.
func FromContext(ctx context.Context) (RequestContext, bool) {
	if ctx == nil {
		return RequestContext{}, false
	}
	rc, ok := ctx.Value(contextKey{}).(RequestContext)
	return rc, ok
}

// WithTenant derives a child scope whose request context is a superset of
// the parent's, extended with tenant identity. The parent scope is left
// untouched, so code that captured the parent context never observes the
// tenant fields. Returns ErrTenantAlreadyBound if the scope already
// carries a tenant: at most one tenant is ever bound to a given context.
func WithTenant(ctx context.Context, tenantID, apiKeyID uuid.UUID) (context.Context, error) {
	rc, ok := FromContext(ctx)
	if !ok {
		return ctx, ErrNoContext
	}
	if rc.HasTenant() {
		return ctx, ErrTenantAlreadyBound
	}
	rc.TenantID = tenantID
	rc.APIKeyID = apiKeyID
	return WithContext(ctx, rc), nil
}

// WithUser derives a child scope extended with user identity, used by
// session-based auth paths that bypass API keys.
func WithUser(ctx context.Context, userID uuid.UUID, role string) (context.Context, error) {
	rc, ok := FromContext(ctx)
	if !ok {
		return ctx, ErrNoContext
	}
	rc.UserID = userID
	rc.UserRole = role
	return WithContext(ctx, rc), nil
}

// TenantIDFromContext returns just the tenant ID. The second return is
// false when no scope is bound or no tenant has been resolved.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	rc, ok := FromContext(ctx)
	if !ok || !rc.HasTenant() {
		return uuid.Nil, false
	}
	return rc.TenantID, true
}
