package rls

import "errors"

var (
	// ErrNoTenant is returned when a tenant-bound connection is requested
	// outside a scope with a resolved tenant. Callers decide whether that
	// is fatal for the route.
	ErrNoTenant = errors.New("rls: no tenant in request context")

	ErrPoolRequired = errors.New("rls: connection pool is required")
	ErrBindFailed   = errors.New("rls: failed to bind tenant on session")
)
