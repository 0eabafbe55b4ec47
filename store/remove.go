package store

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Remove deletes keys and their content files. Keys that were never added
// are ignored. It returns ErrMissingKey if no keys are given and
// ErrInvalidKey for a key that is not valid UTF-8; neither deletes anything.
//
// Content deletes are issued concurrently for every key, whether or not
// the key is indexed. The keys are removed from the in-memory index and
// the index is flushed once, concurrently with the pending deletes.
func (s *Store) Remove(keys ...string) error {
	if len(keys) == 0 {
		return ErrMissingKey
	}
	if err := checkKeys(keys); err != nil {
		return err
	}

	var g errgroup.Group
	for _, key := range keys {
		hash, err := s.hash(key)
		if err != nil {
			_ = g.Wait()
			return fmt.Errorf("store: %w", err)
		}
		g.Go(func() error {
			if err := s.files.Delete(hash); err != nil {
				return fmt.Errorf("delete content for %q: %w", key, err)
			}
			return nil
		})
	}

	for _, key := range keys {
		if err := s.index.Remove(key); err != nil {
			_ = g.Wait()
			return fmt.Errorf("store: load index: %w", err)
		}
	}
	s.logger.Debug("removing keys", "count", len(keys))

	g.Go(s.index.Flush)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("store: remove: %w", err)
	}
	return nil
}
