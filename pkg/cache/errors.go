package cache

import "errors"

var (
	ErrClientRequired = errors.New("cache: redis client is required")
	ErrKeyRequired    = errors.New("cache: key is required")
	ErrNilFetcher     = errors.New("cache: fetcher is required")
	ErrNilUpdater     = errors.New("cache: updater is required")

	// ErrLockContended is recorded internally when the stampede lock
	// could not be acquired within the bounded retry budget. The caller
	// still gets a value via the direct-fetch fallback.
	ErrLockContended = errors.New("cache: stampede lock contended")
)
