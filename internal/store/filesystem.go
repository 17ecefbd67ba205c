package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mfs "mantis/internal/fs"
	"mantis/internal/mantis"
)

// FileSystemStore keeps blobs as files under a root directory. Keys map to
// relative paths under the root.
type FileSystemStore struct {
	root string
}

var _ mantis.ObjectStore = (*FileSystemStore)(nil)

// NewFileSystemStore creates a store rooted at the given directory,
// creating it if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating store root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// ListKeys returns all keys with the given prefix, sorted.
func (s *FileSystemStore) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, mantis.Tag(mantis.ErrTransient, fmt.Errorf("listing store: %w", err))
	}
	sort.Strings(keys)
	return keys, nil
}

// GetObject copies the blob at key into destDir and returns the local path.
func (s *FileSystemStore) GetObject(_ context.Context, key, destDir string) (string, error) {
	src := filepath.Join(s.root, filepath.FromSlash(key))
	if !mfs.IsFile(src) {
		return "", mantis.Tag(mantis.ErrTransient, fmt.Errorf("key not found: %s", key))
	}
	localPath := filepath.Join(destDir, filepath.Base(key))
	if err := mfs.CopyFile(src, localPath); err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("fetching %s: %w", key, err))
	}
	return localPath, nil
}

// PutObject copies the local file into the store under key.
func (s *FileSystemStore) PutObject(_ context.Context, localPath, key string) error {
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := mfs.CopyFile(localPath, dst); err != nil {
		return mantis.Tag(mantis.ErrResource, fmt.Errorf("storing %s: %w", key, err))
	}
	return nil
}
