package store

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicatePending is returned when inserting a second pending
	// candidate for the same user and merchant key.
	ErrDuplicatePending = errors.New("pending candidate already exists")
)
