// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across engine/service layers.
var (
	// ErrNotFound indicates the requested version or conflict does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStrategy indicates a resolution strategy not applicable to the
	// requested operation (e.g. merge passed to resolve-all).
	ErrInvalidStrategy = errors.New("invalid strategy")
)
