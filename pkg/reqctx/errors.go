package reqctx

import "errors"

var (
	// ErrNoContext is returned when a scope-extending call runs outside
	// any bound request scope.
	ErrNoContext = errors.New("reqctx: no request context in scope")

	// ErrTenantAlreadyBound is returned when a second tenant bind is
	// attempted on the same scope.
	ErrTenantAlreadyBound = errors.New("reqctx: tenant already bound to request context")
)
