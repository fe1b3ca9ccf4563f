package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a unique key (user email, document
	// external ID) is already taken.
	ErrConflict = errors.New("record already exists")
)
