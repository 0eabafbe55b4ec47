package storage

// HashSize is the required length of a key hash in hex characters
// (128-bit digest = 16 bytes = 32 hex chars).
const HashSize = 32

// Store persists opaque value blobs addressed by the hash of their key.
// Hashes are lowercase hex strings of exactly HashSize characters.
type Store interface {
	// Write stores contents under hash, replacing any previous contents.
	Write(hash string, contents []byte) error

	// Read returns the contents stored under hash, or ErrNotFound.
	Read(hash string) ([]byte, error)

	// Delete removes the contents stored under hash.
	// Deleting a hash with no stored contents is not an error.
	Delete(hash string) error

	// Has reports whether contents exist for hash.
	Has(hash string) (bool, error)

	// List returns every stored hash.
	List() ([]string, error)
}
