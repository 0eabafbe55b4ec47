package store

import "errors"

var (
	// ErrInvalidRoot indicates the storage root is empty or not absolute.
	ErrInvalidRoot = errors.New("store: storage root must be an absolute path")

	// ErrMissingKeyOrValue indicates Add was called without a key or values.
	ErrMissingKeyOrValue = errors.New("store: a key and at least one value are required")

	// ErrMissingKey indicates Get or Remove was called without keys, or
	// Get was given an empty key.
	ErrMissingKey = errors.New("store: at least one key is required")

	// ErrInvalidKey indicates a key that is not valid UTF-8. The index file
	// is JSON, which cannot hold such a key unchanged.
	ErrInvalidKey = errors.New("store: key must be valid UTF-8")

	// ErrKeyExists indicates Add was called for a key already in the index.
	ErrKeyExists = errors.New("store: key already exists")

	// ErrHashCollision indicates a new key hashes to a hash already owned
	// by a different key.
	ErrHashCollision = errors.New("store: key hash collides with an existing key")
)
