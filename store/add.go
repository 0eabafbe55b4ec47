package store

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Add stores values, joined by single spaces, under key.
//
// It returns ErrMissingKeyOrValue if key is empty or no values are given,
// ErrInvalidKey if key is not valid UTF-8, ErrKeyExists if key is already
// indexed, and ErrHashCollision if a different key already owns key's
// hash. None of these write anything.
//
// The content write and the index add+flush run concurrently. Both must
// succeed; on failure the other write may or may not have happened.
func (s *Store) Add(key string, values ...string) error {
	if key == "" || len(values) == 0 {
		return ErrMissingKeyOrValue
	}
	if err := checkKeys([]string{key}); err != nil {
		return err
	}

	if _, exists, err := s.index.Lookup(key); err != nil {
		return fmt.Errorf("store: load index: %w", err)
	} else if exists {
		return fmt.Errorf("%w: %q", ErrKeyExists, key)
	}

	hash, err := s.hash(key)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	owner, taken, err := s.index.Owner(hash)
	if err != nil {
		return fmt.Errorf("store: load index: %w", err)
	}
	if taken {
		return fmt.Errorf("%w: %q and %q both hash to %s", ErrHashCollision, key, owner, hash)
	}

	blob := strings.Join(values, " ")
	s.logger.Debug("adding key", "key", key, "hash", hash, "bytes", len(blob))

	var g errgroup.Group
	g.Go(func() error {
		return s.files.Write(hash, []byte(blob))
	})
	g.Go(func() error {
		if err := s.index.Add(key, hash); err != nil {
			return err
		}
		return s.index.Flush()
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("store: add %q: %w", key, err)
	}

	return nil
}
