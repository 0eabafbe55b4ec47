package store

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/hashstore/storage"
)

// Status is the outcome of looking up one key.
type Status int

const (
	// NotFound means no content file exists for the key.
	NotFound Status = iota
	// Found means Value holds the stored content.
	Found
)

// String returns "found" or "not found".
func (st Status) String() string {
	if st == Found {
		return "found"
	}
	return "not found"
}

// Lookup is the result of Get for a single key.
type Lookup struct {
	Key    string
	Value  string // empty unless Status == Found
	Status Status
}

// Get reads the value of every key concurrently. It returns ErrMissingKey
// if no keys or an empty key is given, and ErrInvalidKey for a key that is
// not valid UTF-8. Absence is reported per
// key as NotFound, not as an error; the index is not consulted, so an
// index entry whose content file is missing is also NotFound.
//
// Results list found keys before not-found keys, each group in request
// order. Any I/O failure other than absence aborts with an error.
func (s *Store) Get(keys ...string) ([]Lookup, error) {
	if len(keys) == 0 || slices.Contains(keys, "") {
		return nil, ErrMissingKey
	}
	if err := checkKeys(keys); err != nil {
		return nil, err
	}

	results := make([]Lookup, len(keys))
	var g errgroup.Group
	for i, key := range keys {
		g.Go(func() error {
			hash, err := s.hash(key)
			if err != nil {
				return err
			}
			data, err := s.files.Read(hash)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				results[i] = Lookup{Key: key, Status: NotFound}
			case err != nil:
				return fmt.Errorf("get %q: %w", key, err)
			default:
				results[i] = Lookup{Key: key, Value: string(data), Status: Found}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	return partition(results), nil
}

// partition moves found lookups ahead of not-found ones, keeping the
// relative order within each group.
func partition(results []Lookup) []Lookup {
	out := make([]Lookup, 0, len(results))
	for _, r := range results {
		if r.Status == Found {
			out = append(out, r)
		}
	}
	for _, r := range results {
		if r.Status != Found {
			out = append(out, r)
		}
	}
	return out
}
