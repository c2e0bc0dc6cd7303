package apikey

import (
	"errors"
	"net/http"
	"strings"

	"github.com/payforge/payforge/pkg/reqctx"
)

// ErrorHandler maps resolution errors to client-facing responses.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates the request's bearer API key and re-opens the
// reqctx scope extended with tenant identity. Requests without an
// Authorization header pass through unauthenticated; route-level guards
// decide whether that is acceptable.
func Middleware(resolver *Resolver, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			key, _, err := resolver.Authenticate(r.Context(), raw)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			ctx, err := reqctx.WithTenant(r.Context(), key.TenantID, key.ID)
			if err != nil {
				// No correlation scope or a double bind: both are pipeline
				// wiring bugs, not client errors.
				cfg.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant guards routes that must run with a resolved tenant.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := reqctx.TenantIDFromContext(r.Context()); !ok {
				errorHandler(w, r, ErrKeyNotFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	errorHandler ErrorHandler
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// bearerToken extracts the API key from the Authorization header.
// Returns empty string when no bearer credentials are present.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		http.Error(w, "Tenant is inactive", http.StatusForbidden)
	case errors.Is(err, ErrUnauthenticated):
		http.Error(w, "Invalid API key", http.StatusUnauthorized)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
