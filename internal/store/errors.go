package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStaleVersion is returned when an optimistic-concurrency update
	// targets a version that is no longer current. Callers translate this
	// into a stale-preview error for the API surface.
	ErrStaleVersion = errors.New("stale version")
)
