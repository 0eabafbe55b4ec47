package store

import (
	"errors"
	"fmt"

	"github.com/bitfsorg/hashstore/storage"
)

// Report describes divergence between the index and the content files.
type Report struct {
	// Missing lists indexed keys whose content file does not exist.
	Missing []string
	// Orphaned lists content hashes that no index entry refers to.
	Orphaned []string
}

// Consistent reports whether the index and content files agree.
func (r *Report) Consistent() bool {
	return len(r.Missing) == 0 && len(r.Orphaned) == 0
}

// Check compares the index with the content files. It never modifies
// either side; orphaned files are reported, not collected.
func (s *Store) Check() (*Report, error) {
	entries, err := s.index.Entries()
	if err != nil {
		return nil, fmt.Errorf("store: load index: %w", err)
	}

	report := &Report{}
	referenced := make(map[string]bool, len(entries))
	for _, e := range entries {
		referenced[e.Hash] = true
		ok, err := s.files.Has(e.Hash)
		if errors.Is(err, storage.ErrInvalidHash) {
			// A malformed hash cannot name a content file.
			report.Missing = append(report.Missing, e.Key)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store: check %q: %w", e.Key, err)
		}
		if !ok {
			report.Missing = append(report.Missing, e.Key)
		}
	}

	hashes, err := s.files.List()
	if err != nil {
		return nil, fmt.Errorf("store: list content: %w", err)
	}
	for _, h := range hashes {
		if !referenced[h] {
			report.Orphaned = append(report.Orphaned, h)
		}
	}

	s.logger.Debug("check complete", "keys", len(entries), "files", len(hashes),
		"missing", len(report.Missing), "orphaned", len(report.Orphaned))

	return report, nil
}
