package index

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

// BoltFileName is the name of the bbolt index database inside the storage root.
const BoltFileName = "index.db"

var bucketIndex = []byte("index")

// Bolt persists the index in a bbolt database. Iteration order is the
// byte order of the keys. A Flush rewrites the bucket in one transaction.
type Bolt struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Backend = (*Bolt)(nil)

// OpenBolt opens or creates the bbolt database at {root}/index.db.
// The root directory is created if it does not exist.
func OpenBolt(root string) (*Bolt, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("index: create root directory: %w", err)
	}
	db, err := bbolt.Open(filepath.Join(root, BoltFileName), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("index: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketIndex)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("index: create bucket %q: %w", bucketIndex, err)
	}

	return &Bolt{db: db}, nil
}

// Load reads every entry in key order.
func (b *Bolt) Load() ([]Entry, error) {
	var entries []Entry
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketIndex)
		if bucket == nil {
			return nil
		}
		// Keys and values are only valid inside the transaction; string() copies.
		return bucket.ForEach(func(k, v []byte) error {
			entries = append(entries, Entry{Key: string(k), Hash: string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("index: load bolt entries: %w", err)
	}
	return entries, nil
}

// Save replaces the bucket contents with entries in a single transaction.
func (b *Bolt) Save(entries []Entry) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketIndex) != nil {
			if err := tx.DeleteBucket(bucketIndex); err != nil {
				return fmt.Errorf("drop bucket: %w", err)
			}
		}
		bucket, err := tx.CreateBucket(bucketIndex)
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		for _, e := range entries {
			if err := bucket.Put([]byte(e.Key), []byte(e.Hash)); err != nil {
				return fmt.Errorf("put %q: %w", e.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("index: save bolt entries: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (b *Bolt) Close() error { return b.db.Close() }
