// Package store implements the hashstore operations (add, get, list,
// remove, check) on top of a content store and a key index.
//
// Store is the only writer of both. Each operation that mutates the
// index flushes it exactly once. The content write and the index flush
// run concurrently and are not atomic with respect to each other; a
// crash between them leaves an index entry without content, or content
// without an index entry. Reads treat either case as "not found".
package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"unicode/utf8"

	"github.com/bitfsorg/hashstore/index"
	"github.com/bitfsorg/hashstore/storage"
)

// Store composes a content store and a key index.
type Store struct {
	files  storage.Store
	index  *index.Index
	algo   storage.Algorithm
	logger *slog.Logger
}

type options struct {
	logger *slog.Logger
	algo   storage.Algorithm
	kind   index.Kind
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHashAlgorithm selects the key hash. The default is storage.MD5.
func WithHashAlgorithm(algo storage.Algorithm) Option {
	return func(o *options) { o.algo = algo }
}

// WithIndexKind selects the index backend used by Open. The default is
// index.KindJSON.
func WithIndexKind(kind index.Kind) Option {
	return func(o *options) { o.kind = kind }
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.DiscardHandler),
		algo:   storage.MD5,
		kind:   index.KindJSON,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open creates a Store rooted at root, which must be an absolute path.
// Layout: {root}/index (or {root}/index.db) and {root}/cache/{hash}.
// Nothing is read until the first operation.
func Open(root string, opts ...Option) (*Store, error) {
	if root == "" || !filepath.IsAbs(root) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoot, root)
	}
	o := buildOptions(opts)

	if _, err := storage.HashKey(o.algo, ""); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	files, err := storage.NewFileStore(root)
	if err != nil {
		return nil, fmt.Errorf("store: init content store: %w", err)
	}

	backend, err := index.Open(root, o.kind)
	if err != nil {
		return nil, fmt.Errorf("store: init index: %w", err)
	}

	o.logger.Debug("store opened", "root", root, "index", string(o.kind), "hash", string(o.algo))

	return &Store{
		files:  files,
		index:  index.New(backend),
		algo:   o.algo,
		logger: o.logger,
	}, nil
}

// New creates a Store from an existing content store and index.
// The index-kind option is ignored.
func New(files storage.Store, idx *index.Index, opts ...Option) *Store {
	o := buildOptions(opts)
	return &Store{
		files:  files,
		index:  idx,
		algo:   o.algo,
		logger: o.logger,
	}
}

// Close releases the index backend.
func (s *Store) Close() error {
	return s.index.Close()
}

// checkKeys rejects keys the index cannot round-trip.
func checkKeys(keys []string) error {
	for _, key := range keys {
		if !utf8.ValidString(key) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func (s *Store) hash(key string) (string, error) {
	return storage.HashKey(s.algo, key)
}

// List returns every key in the index, in index iteration order.
func (s *Store) List() ([]string, error) {
	entries, err := s.index.Entries()
	if err != nil {
		return nil, fmt.Errorf("store: load index: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys, nil
}
