package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/payforge/payforge/pkg/reqctx"
)

// maxKeyLength is the maximum allowed length for a rate limit key
// to keep store keys bounded.
const maxKeyLength = 64

// KeyFunc extracts a rate-limiting identifier from an HTTP request.
type KeyFunc func(*http.Request) string

// Identity keys the limit on the most specific identity available in the
// request scope: resolved tenant, then API key, then client IP. Requests
// outside any scope return an empty key, which the middleware treats as
// "skip".
func Identity() KeyFunc {
	return func(r *http.Request) string {
		rc, ok := reqctx.FromContext(r.Context())
		if !ok {
			return ""
		}
		if rc.HasTenant() {
			return "tenant:" + rc.TenantID.String()
		}
		if rc.APIKeyID != uuid.Nil {
			return "key:" + rc.APIKeyID.String()
		}
		if rc.IPAddress != "" {
			return "ip:" + rc.IPAddress
		}
		return ""
	}
}

// Composite combines multiple key extraction functions into a single key.
// Long keys (>64 chars) are hashed to 32 hex chars using SHA256 to keep
// store keys bounded while avoiding collisions.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}

		if len(parts) == 0 {
			return ""
		}

		if len(parts) == 1 && len(parts[0]) <= maxKeyLength {
			return parts[0]
		}

		combined := strings.Join(parts, ":")

		if len(combined) > maxKeyLength {
			hash := sha256.Sum256([]byte(combined))
			// 128-bit hash provides sufficient collision resistance
			return hex.EncodeToString(hash[:16])
		}

		return combined
	}
}
