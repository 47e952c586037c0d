package domain

import "errors"

var (
	// ErrInvalidArgument marks malformed client input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when the referenced object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrStorage wraps every failure reported by the storage backend.
	ErrStorage = errors.New("storage failure")
)
