package apikey

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is the class error for all key-verification
	// failures. Check with errors.Is to map to a 401.
	ErrUnauthenticated = errors.New("apikey: authentication failed")

	// ErrUnauthorized is the class error for key-valid-but-forbidden
	// conditions. Deliberately distinct from ErrUnauthenticated so an
	// inactive tenant is not reported as a missing key.
	ErrUnauthorized = errors.New("apikey: authorization failed")

	ErrInvalidKeyFormat = fmt.Errorf("%w: malformed api key", ErrUnauthenticated)
	ErrKeyNotFound      = fmt.Errorf("%w: api key not found", ErrUnauthenticated)
	ErrKeyExpired       = fmt.Errorf("%w: api key expired", ErrUnauthenticated)
	ErrKeyRevoked       = fmt.Errorf("%w: api key revoked", ErrUnauthenticated)
	ErrTenantInactive   = fmt.Errorf("%w: tenant is inactive", ErrUnauthorized)

	// ErrTenantNotFound is returned by Storage implementations when a
	// key references a tenant that no longer exists.
	ErrTenantNotFound = errors.New("apikey: tenant not found")
)
