package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// TenantID records the tenant identifier under the key "tenant_id".
func TenantID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("tenant_id", id)
}

// APIKeyID records the API key identifier under the key "api_key_id".
func APIKeyID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("api_key_id", id)
}

// CorrelationID records the correlation identifier under the key
// "correlation_id".
func CorrelationID(id string) slog.Attr {
	return slog.String("correlation_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
