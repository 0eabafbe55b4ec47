package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Algorithm names a key hash function. Every algorithm produces a
// 128-bit digest so content filenames keep the same shape.
type Algorithm string

const (
	// MD5 is the default key hash.
	MD5 Algorithm = "md5"

	// BLAKE2b is BLAKE2b truncated to a 16-byte output.
	BLAKE2b Algorithm = "blake2b"

	// BLAKE3 is the first 16 bytes of the BLAKE3 output.
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm resolves a configured algorithm name (case-insensitive).
// An empty name selects MD5.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", MD5:
		return MD5, nil
	case BLAKE2b:
		return BLAKE2b, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedHash, name)
	}
}

// HashKey returns the hex digest of key under algo.
func HashKey(algo Algorithm, key string) (string, error) {
	switch algo {
	case "", MD5:
		sum := md5.Sum([]byte(key))
		return hex.EncodeToString(sum[:]), nil
	case BLAKE2b:
		h, err := blake2b.New(HashSize/2, nil)
		if err != nil {
			return "", fmt.Errorf("storage: blake2b: %w", err)
		}
		h.Write([]byte(key))
		return hex.EncodeToString(h.Sum(nil)), nil
	case BLAKE3:
		sum := blake3.Sum256([]byte(key))
		return hex.EncodeToString(sum[:HashSize/2]), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedHash, string(algo))
	}
}

// ValidateHash checks that hash is exactly HashSize lowercase hex characters.
// Hashes become filenames, so anything else is rejected before touching disk.
func ValidateHash(hash string) error {
	if len(hash) != HashSize {
		return fmt.Errorf("%w: got %d characters", ErrInvalidHash, len(hash))
	}
	for i := 0; i < len(hash); i++ {
		c := hash[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidHash, hash)
		}
	}
	return nil
}
