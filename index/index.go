// Package index tracks which content hash each logical key maps to.
//
// The mapping is loaded from its backend on first access, mutated in
// memory by Add and Remove, and written back only by an explicit Flush.
// Keeping mutation separate from persistence lets a caller pair one
// in-memory change with other I/O and persist it with a single write.
package index

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is a single key -> hash mapping.
type Entry struct {
	Key  string
	Hash string
}

// Backend persists the full mapping as one document.
type Backend interface {
	// Load returns the persisted entries in iteration order.
	// A backend with nothing persisted yet returns no entries and no error.
	Load() ([]Entry, error)

	// Save replaces the persisted mapping with entries.
	Save(entries []Entry) error

	// Close releases backend resources.
	Close() error
}

// Kind names an index backend.
type Kind string

const (
	// KindJSON stores the index as a JSON object at {root}/index.
	KindJSON Kind = "json"

	// KindBolt stores the index in a bbolt database at {root}/index.db.
	KindBolt Kind = "bolt"
)

// ParseKind resolves a configured backend name (case-insensitive).
// An empty name selects KindJSON.
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case "", KindJSON:
		return KindJSON, nil
	case KindBolt:
		return KindBolt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// Open creates the backend of the given kind rooted at root.
func Open(root string, kind Kind) (Backend, error) {
	switch kind {
	case "", KindJSON:
		return NewJSONFile(root), nil
	case KindBolt:
		return OpenBolt(root)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
}

// Index is the in-memory key -> hash mapping over a Backend.
// It is safe for concurrent use.
type Index struct {
	backend Backend

	mu     sync.Mutex
	loaded bool
	keys   []string          // iteration order
	hashes map[string]string // key -> hash
}

// New creates an Index over backend. Nothing is read until first access.
func New(backend Backend) *Index {
	return &Index{backend: backend}
}

// load reads the backend once per Index. Caller must hold ix.mu.
func (ix *Index) load() error {
	if ix.loaded {
		return nil
	}
	if ix.backend == nil {
		return ErrNilBackend
	}

	entries, err := ix.backend.Load()
	if err != nil {
		return err
	}

	ix.keys = make([]string, 0, len(entries))
	ix.hashes = make(map[string]string, len(entries))
	for _, e := range entries {
		// A repeated key keeps its first position and its last hash.
		if _, exists := ix.hashes[e.Key]; !exists {
			ix.keys = append(ix.keys, e.Key)
		}
		ix.hashes[e.Key] = e.Hash
	}
	ix.loaded = true
	return nil
}

// Entries returns a snapshot of the mapping in iteration order,
// loading it from the backend first if needed.
func (ix *Index) Entries() ([]Entry, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.load(); err != nil {
		return nil, err
	}
	return ix.snapshot(), nil
}

func (ix *Index) snapshot() []Entry {
	out := make([]Entry, 0, len(ix.keys))
	for _, k := range ix.keys {
		out = append(out, Entry{Key: k, Hash: ix.hashes[k]})
	}
	return out
}

// Lookup returns the hash mapped to key.
func (ix *Index) Lookup(key string) (string, bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.load(); err != nil {
		return "", false, err
	}
	hash, ok := ix.hashes[key]
	return hash, ok, nil
}

// Owner returns the first key in iteration order mapped to hash.
func (ix *Index) Owner(hash string) (string, bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.load(); err != nil {
		return "", false, err
	}
	for _, k := range ix.keys {
		if ix.hashes[k] == hash {
			return k, true, nil
		}
	}
	return "", false, nil
}

// Add maps key to hash in memory. A key already present keeps its position.
func (ix *Index) Add(key, hash string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.load(); err != nil {
		return err
	}
	if _, exists := ix.hashes[key]; !exists {
		ix.keys = append(ix.keys, key)
	}
	ix.hashes[key] = hash
	return nil
}

// Remove deletes key from memory. Removing an absent key is a no-op.
func (ix *Index) Remove(key string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.load(); err != nil {
		return err
	}
	if _, exists := ix.hashes[key]; !exists {
		return nil
	}
	delete(ix.hashes, key)
	for i, k := range ix.keys {
		if k == key {
			ix.keys = append(ix.keys[:i], ix.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Flush writes the whole in-memory mapping to the backend.
// Flushes are serialized so the last caller's view wins.
func (ix *Index) Flush() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.load(); err != nil {
		return err
	}
	return ix.backend.Save(ix.snapshot())
}

// Close releases the backend.
func (ix *Index) Close() error {
	if ix.backend == nil {
		return nil
	}
	return ix.backend.Close()
}
