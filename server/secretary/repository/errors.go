package repository

import "errors"

var (
	// ErrNotFound means the primary record is absent or expired.
	ErrNotFound = errors.New("record not found")

	// ErrStoreUnavailable wraps transient key-value store failures. Mutations
	// are retried once by the adapter before this surfaces.
	ErrStoreUnavailable = errors.New("store unavailable")
)
