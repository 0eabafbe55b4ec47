package storage

import "errors"

var (
	// ErrNotFound indicates no content exists for the given hash.
	ErrNotFound = errors.New("storage: content not found")

	// ErrInvalidHash indicates the hash is not 32 lowercase hex characters.
	ErrInvalidHash = errors.New("storage: hash must be 32 lowercase hex characters")

	// ErrIOFailure indicates a file read/write error.
	ErrIOFailure = errors.New("storage: I/O failure")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = errors.New("storage: invalid base directory")

	// ErrUnsupportedHash indicates an unknown key hash algorithm.
	ErrUnsupportedHash = errors.New("storage: unsupported hash algorithm")
)
