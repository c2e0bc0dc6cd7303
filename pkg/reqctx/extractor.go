package reqctx

import (
	"context"
	"log/slog"
)

// CorrelationIDExtractor returns a logger ContextExtractor that injects
// the correlation id into every log record emitted within a request scope.
func CorrelationIDExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if rc, ok := FromContext(ctx); ok && rc.CorrelationID != "" {
			return slog.String("correlation_id", rc.CorrelationID), true
		}
		return slog.Attr{}, false
	}
}

// RequestIDExtractor returns a logger ContextExtractor for the request id.
func RequestIDExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if rc, ok := FromContext(ctx); ok && rc.RequestID != "" {
			return slog.String("request_id", rc.RequestID), true
		}
		return slog.Attr{}, false
	}
}

// TenantIDExtractor returns a logger ContextExtractor for the tenant id.
// Emits nothing before tenant resolution.
func TenantIDExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := TenantIDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
