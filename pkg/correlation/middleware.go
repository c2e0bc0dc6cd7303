package correlation

import (
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/payforge/payforge/pkg/reqctx"
)

const (
	// CorrelationHeader threads one logical request across services.
	// Client-supplied values are honored when well-formed.
	CorrelationHeader = "X-Correlation-ID"

	// RequestHeader carries the per-request id. Always server-generated.
	RequestHeader = "X-Request-ID"

	maxIDLength = 128
	idPattern   = "^[a-zA-Z0-9_-]+$"
)

var validIDRegex = regexp.MustCompile(idPattern)

// Middleware creates the baseline request context and opens the reqctx
// scope wrapping the rest of request processing. Both ids are set as
// response headers before the handler runs so they reach the client even
// when the handler fails mid-write.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationHeader)
		if !isValidID(correlationID) {
			correlationID = uuid.New().String()
		}
		requestID := uuid.New().String()

		w.Header().Set(CorrelationHeader, correlationID)
		w.Header().Set(RequestHeader, requestID)

		rc := reqctx.RequestContext{
			CorrelationID: correlationID,
			RequestID:     requestID,
			StartTime:     time.Now(),
			IPAddress:     ClientIP(r),
			UserAgent:     r.UserAgent(),
		}

		next.ServeHTTP(w, r.WithContext(reqctx.WithContext(r.Context(), rc)))
	})
}

// isValidID rejects ids that are empty, oversized, or carry characters
// unsafe for logs and headers.
func isValidID(id string) bool {
	if len(id) == 0 || len(id) > maxIDLength {
		return false
	}
	return validIDRegex.MatchString(id)
}
