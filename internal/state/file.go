package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists state entries as one JSON file per key.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", dir, err)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key)+".json")
}

// Get reads the value from file.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read state file for %s: %w", key, err)
	}
	return data, nil
}

// Put persists the value to file atomically via temp file + rename.
func (s *FileStore) Put(ctx context.Context, key string, value []byte) error {
	path := s.path(key)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create state directory for %s: %w", key, err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, value, 0600); err != nil {
		return fmt.Errorf("write state temp file for %s: %w", key, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename state file for %s: %w", key, err)
	}

	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}

var _ Store = (*FileStore)(nil)
