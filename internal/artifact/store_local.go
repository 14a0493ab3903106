package artifact

import (
	"context"
	"os"
	"path/filepath"
)

// Store persists rendered artifacts under a per-job relative path.
type Store interface {
	// Put writes data at relPath, replacing any stale artifact there.
	Put(ctx context.Context, relPath string, data []byte) error
	// Remove deletes the artifact at relPath. Removing a missing artifact
	// is not an error.
	Remove(ctx context.Context, relPath string) error
}

// LocalStore writes artifacts to a directory tree rooted at rootDir.
type LocalStore struct {
	rootDir string
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(rootDir string) *LocalStore {
	return &LocalStore{rootDir: rootDir}
}

// PathFor returns the absolute path for relPath, useful for callers that
// hand paths to external tools.
func (s *LocalStore) PathFor(relPath string) string {
	return filepath.Join(s.rootDir, relPath)
}

func (s *LocalStore) Put(_ context.Context, relPath string, data []byte) error {
	fullPath := s.PathFor(relPath)

	// stale artifact at the same path, if any, goes first
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

func (s *LocalStore) Remove(_ context.Context, relPath string) error {
	if err := os.Remove(s.PathFor(relPath)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
