package cache

import "errors"

// Sentinel errors shared by the memory and redis backends. GetWithFetch
// treats ErrCacheMiss as a signal to call the fetch function, not a failure.
var (
	ErrCacheMiss = errors.New("cache: key not found")

	ErrCacheUnavailable = errors.New("cache: backend unavailable")

	// ErrInvalidValue indicates a stored value that cannot be decoded into
	// the requested type.
	ErrInvalidValue = errors.New("cache: invalid value")
)
