// Package ledger persists what has already been processed: flat-text key
// sets, the per-run import manifest, and the remote-sync ledger. Ledgers
// are advisory caches; on-disk existence at the destination is always the
// authoritative idempotency check.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mantis/internal/mantis"
)

// KeySet is a flat text file holding one processed key per line. It is
// append-only on disk; loading reads the whole file into memory.
type KeySet struct {
	path string
	keys map[string]bool
}

var _ mantis.KeySet = (*KeySet)(nil)

// LoadKeySet reads the key set at path. A missing file yields an empty set.
func LoadKeySet(path string) (*KeySet, error) {
	s := &KeySet{path: path, keys: make(map[string]bool)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, mantis.Tag(mantis.ErrState, fmt.Errorf("opening key set %s: %w", path, err))
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key := strings.TrimSpace(scanner.Text())
		if key != "" {
			s.keys[key] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, mantis.Tag(mantis.ErrState, fmt.Errorf("reading key set %s: %w", path, err))
	}
	return s, nil
}

// Contains reports whether key is in the set.
func (s *KeySet) Contains(key string) bool { return s.keys[key] }

// Len returns the number of keys in the set.
func (s *KeySet) Len() int { return len(s.keys) }

// Keys returns the keys in the set, in no particular order.
func (s *KeySet) Keys() []string {
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	return out
}

// Append adds key to the file and the in-memory set. Re-appending a key
// already present is a no-op.
func (s *KeySet) Append(key string) error {
	if s.keys[key] {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return mantis.Tag(mantis.ErrResource, fmt.Errorf("creating ledger directory: %w", err))
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return mantis.Tag(mantis.ErrResource, fmt.Errorf("opening key set %s: %w", s.path, err))
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, key); err != nil {
		return mantis.Tag(mantis.ErrResource, fmt.Errorf("appending to key set %s: %w", s.path, err))
	}
	s.keys[key] = true
	return nil
}
