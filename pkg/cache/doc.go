// Package cache provides a cache-aside layer over Redis with stampede
// protection and tag-based bulk invalidation.
//
// Reads and writes fail open: a store error is logged and reported as a
// miss (or a failed write) instead of propagating, so a Redis outage
// degrades to recomputation rather than request failures. This mirrors
// the rate limiter's availability-over-strictness stance.
//
// GetOrSetWithLock guards expensive fetches with a short-TTL lock taken
// via SET NX. The guarantee is cooperative, not strict: the lock can
// expire while a slow fetch is still running, letting a second caller
// recompute concurrently. That relaxation is accepted in favor of
// liveness. Contenders retry a bounded number of times with exponential
// backoff and jitter, then fall back to a direct uncached fetch, so the
// operation always terminates.
//
// Tag sets expire with their longest-lived member: every tagged write
// raises the tag set's TTL monotonically to at least the member's TTL,
// never lowering it.
package cache
