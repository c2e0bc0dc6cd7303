// Package correlation provides the first-touched HTTP middleware of the
// request pipeline. It establishes the baseline request context (ids,
// timing, client metadata), echoes tracing headers to the client, and
// opens the reqctx scope that every downstream middleware and handler
// runs inside.
//
// Chain order matters: this middleware must run before the API key
// resolver and the rate limiter, both of which read identity from the
// scope it opens.
package correlation
