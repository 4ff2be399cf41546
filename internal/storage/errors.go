package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when appending a record whose key
	// already exists. The record stream is append-only; duplicates are
	// rejected rather than updated.
	ErrDuplicateKey = errors.New("duplicate key: record stream is append-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
