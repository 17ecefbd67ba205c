package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"mantis/internal/mantis"
)

// SyncLedger records the remote paths confirmed present on the sync target.
// It is rewritten after every single confirmed upload so a crash loses at
// most one in-flight transfer's worth of progress.
type SyncLedger struct {
	path string
	set  map[string]bool

	UpdateTime       time.Time `json:"update_time"`
	CompletedUploads []string  `json:"completed_uploads"`
}

// LoadSyncLedger reads the ledger at path. A missing file yields an empty
// ledger bound to that path.
func LoadSyncLedger(path string) (*SyncLedger, error) {
	l := &SyncLedger{path: path, set: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, mantis.Tag(mantis.ErrState, fmt.Errorf("reading sync ledger %s: %w", path, err))
	}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, mantis.Tag(mantis.ErrState, fmt.Errorf("parsing sync ledger %s: %w", path, err))
	}
	for _, p := range l.CompletedUploads {
		l.set[p] = true
	}
	return l, nil
}

// Contains reports whether remotePath is already confirmed present.
func (l *SyncLedger) Contains(remotePath string) bool { return l.set[remotePath] }

// Len returns the number of confirmed remote paths.
func (l *SyncLedger) Len() int { return len(l.set) }

// Add records remotePath and persists the ledger immediately.
func (l *SyncLedger) Add(remotePath string, now time.Time) error {
	if !l.set[remotePath] {
		l.set[remotePath] = true
		l.CompletedUploads = append(l.CompletedUploads, remotePath)
	}
	l.UpdateTime = now
	return l.persist()
}

func (l *SyncLedger) persist() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return mantis.Tag(mantis.ErrResource, fmt.Errorf("creating ledger directory: %w", err))
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling sync ledger: %w", err)
	}
	if err := renameio.WriteFile(l.path, data, 0644); err != nil {
		return mantis.Tag(mantis.ErrResource, fmt.Errorf("writing sync ledger %s: %w", l.path, err))
	}
	return nil
}
