package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CacheDirName is the subdirectory of the storage root holding value files.
const CacheDirName = "cache"

// FileStore implements Store using the local filesystem.
// Files are stored flat at: {root}/cache/{hash}
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-based content store rooted at root.
// Nothing is created on disk until the first Write.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, ErrInvalidBaseDir
	}
	return &FileStore{
		dir: filepath.Join(root, CacheDirName),
	}, nil
}

// Dir returns the directory holding the value files.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// filePath returns the path of the value file for hash.
func (fs *FileStore) filePath(hash string) string {
	return filepath.Join(fs.dir, hash)
}

// Write stores contents under hash, fully overwriting any previous file.
// The cache directory is created on demand.
func (fs *FileStore) Write(hash string, contents []byte) error {
	if err := ValidateHash(hash); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(fs.dir, 0700); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	if err := os.WriteFile(fs.filePath(hash), contents, 0600); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	return nil
}

// Read retrieves the contents stored under hash.
func (fs *FileStore) Read(hash string) ([]byte, error) {
	if err := ValidateHash(hash); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.filePath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	return data, nil
}

// Delete removes the file for hash. A missing file counts as removed.
func (fs *FileStore) Delete(hash string) error {
	if err := ValidateHash(hash); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.filePath(hash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	return nil
}

// Has checks if content exists for hash.
func (fs *FileStore) Has(hash string) (bool, error) {
	if err := ValidateHash(hash); err != nil {
		return false, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err := os.Stat(fs.filePath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	return true, nil
}

// List returns all stored hashes in filename order. Files whose names are
// not valid hashes are skipped. A missing cache directory yields no hashes.
func (fs *FileStore) List() ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	var result []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ValidateHash(name) != nil {
			continue
		}
		result = append(result, name)
	}

	return result, nil
}
