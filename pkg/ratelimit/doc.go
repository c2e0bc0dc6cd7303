// Package ratelimit enforces a sliding-window rate limit against a shared
// Redis store, correct across many concurrent processes.
//
// Each check is one atomic round trip: prune entries older than the
// trailing window, record the current request under a unique token,
// refresh the key's TTL, and read the resulting cardinality. Correctness
// under horizontal scaling rests entirely on the store's atomicity, not
// on in-process locks.
//
// The limiter fails open: if the store is unreachable the check is
// logged and allowed with Fallback set, because blocking legitimate
// payment traffic on an infrastructure blip costs more than briefly
// under-enforcing a quota.
//
// Window boundaries trust the local wall clock. Across hosts with skewed
// clocks this can under- or over-count near window edges; the tolerance
// is deployment-specific and deliberately not compensated for here.
package ratelimit
