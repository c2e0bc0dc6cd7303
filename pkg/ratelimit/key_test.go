package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payforge/payforge/pkg/ratelimit"
	"github.com/payforge/payforge/pkg/reqctx"
)

func TestIdentity(t *testing.T) {
	t.Parallel()

	t.Run("prefers tenant identity", func(t *testing.T) {
		t.Parallel()

		tenantID := uuid.New()
		req := httptest.NewRequest("GET", "/test", nil)
		ctx := reqctx.WithContext(req.Context(), reqctx.RequestContext{IPAddress: "203.0.113.7"})
		ctx, err := reqctx.WithTenant(ctx, tenantID, uuid.New())
		require.NoError(t, err)

		key := ratelimit.Identity()(req.WithContext(ctx))
		assert.Equal(t, "tenant:"+tenantID.String(), key)
	})

	t.Run("falls back to api key identity", func(t *testing.T) {
		t.Parallel()

		keyID := uuid.New()
		req := httptest.NewRequest("GET", "/test", nil)
		ctx := reqctx.WithContext(req.Context(), reqctx.RequestContext{
			IPAddress: "203.0.113.7",
			APIKeyID:  keyID,
		})

		key := ratelimit.Identity()(req.WithContext(ctx))
		assert.Equal(t, "key:"+keyID.String(), key)
	})

	t.Run("falls back to client ip", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/test", nil)
		ctx := reqctx.WithContext(req.Context(), reqctx.RequestContext{IPAddress: "203.0.113.7"})

		key := ratelimit.Identity()(req.WithContext(ctx))
		assert.Equal(t, "ip:203.0.113.7", key)
	})

	t.Run("empty outside any scope", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/test", nil)
		assert.Empty(t, ratelimit.Identity()(req))
	})
}

func TestComposite(t *testing.T) {
	t.Parallel()

	pathKey := func(r *http.Request) string { return r.URL.Path }
	methodKey := func(r *http.Request) string { return r.Method }
	emptyKey := func(r *http.Request) string { return "" }

	t.Run("joins parts", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/test", nil)
		key := ratelimit.Composite(methodKey, pathKey)(req)
		assert.Equal(t, "GET:/test", key)
	})

	t.Run("skips empty parts", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/test", nil)
		key := ratelimit.Composite(emptyKey, methodKey)(req)
		assert.Equal(t, "GET", key)
	})

	t.Run("empty when no part matches", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/test", nil)
		assert.Empty(t, ratelimit.Composite(emptyKey)(req))
	})

	t.Run("hashes oversized keys", func(t *testing.T) {
		t.Parallel()

		long := func(r *http.Request) string { return strings.Repeat("x", 100) }

		req := httptest.NewRequest("GET", "/test", nil)
		key := ratelimit.Composite(long, pathKey)(req)
		assert.Len(t, key, 32)

		again := ratelimit.Composite(long, pathKey)(req)
		assert.Equal(t, key, again, "hashing must be deterministic")
	})
}
