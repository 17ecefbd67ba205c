// Package store provides object store backends for packed bundles: S3 for
// real use, filesystem for local testing and air-gapped setups, memory for
// unit tests.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"mantis/internal/mantis"
)

// MemoryStore keeps blobs in a map. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ mantis.ObjectStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// ListKeys returns all keys with the given prefix, sorted.
func (s *MemoryStore) ListKeys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// GetObject writes the blob at key into destDir and returns the local path.
func (s *MemoryStore) GetObject(_ context.Context, key, destDir string) (string, error) {
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", mantis.Tag(mantis.ErrTransient, fmt.Errorf("key not found: %s", key))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("creating destination directory: %w", err))
	}
	localPath := filepath.Join(destDir, filepath.Base(key))
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return "", mantis.Tag(mantis.ErrResource, fmt.Errorf("writing %s: %w", localPath, err))
	}
	return localPath, nil
}

// PutObject stores the local file's content under key.
func (s *MemoryStore) PutObject(_ context.Context, localPath, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return mantis.Tag(mantis.ErrResource, fmt.Errorf("reading %s: %w", localPath, err))
	}

	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

// Has reports whether key is present. Test helper.
func (s *MemoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}
