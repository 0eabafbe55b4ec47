package index

import "errors"

var (
	// ErrCorruptIndex indicates the persisted index could not be decoded.
	ErrCorruptIndex = errors.New("index: corrupt index")

	// ErrUnknownKind indicates an unrecognized index backend name.
	ErrUnknownKind = errors.New("index: unknown backend (must be \"json\" or \"bolt\")")

	// ErrNilBackend indicates an Index was constructed without a backend.
	ErrNilBackend = errors.New("index: backend is nil")
)
