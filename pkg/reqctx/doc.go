// Package reqctx carries per-request identity across the full call graph
// of one request without explicit parameter threading.
//
// A RequestContext is created once by the correlation middleware and bound
// to the request's context.Context. Tenant identity is attached later by
// the API key resolver via WithTenant, which derives a child scope rather
// than mutating the bound value: code holding the parent context never
// observes tenant fields, and concurrent requests cannot observe each
// other's identity.
//
// Downstream consumers (rate limiter, cache, RLS binder, handlers) read
// identity with FromContext instead of receiving it as an argument:
//
//	rc, ok := reqctx.FromContext(ctx)
//	if !ok {
//		// outside any request scope; caller must handle explicitly
//	}
//
// Tests can inject a context directly with WithContext without going
// through HTTP machinery.
package reqctx
