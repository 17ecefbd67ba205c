package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSyncLedgerMissingFileIsEmpty(t *testing.T) {
	l, err := LoadSyncLedger(filepath.Join(t.TempDir(), "mega_sync.json"))
	if err != nil {
		t.Fatalf("LoadSyncLedger() unexpected error: %v", err)
	}
	if l.Len() != 0 || l.Contains("/media/a.jpg") {
		t.Error("new ledger is not empty")
	}
}

func TestSyncLedgerAddPersistsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mega_sync.json")
	now := time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC)

	l, err := LoadSyncLedger(path)
	if err != nil {
		t.Fatalf("LoadSyncLedger() unexpected error: %v", err)
	}
	if err := l.Add("/media/Pictures/a.jpg", now); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if err := l.Add("/media/Pictures/b.jpg", now.Add(time.Minute)); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	// Re-adding a path updates the timestamp without duplicating it.
	if err := l.Add("/media/Pictures/a.jpg", now.Add(2*time.Minute)); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ledger file not persisted: %v", err)
	}
	for _, want := range []string{`"update_time"`, `"completed_uploads"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("ledger JSON missing %s", want)
		}
	}

	reloaded, err := LoadSyncLedger(path)
	if err != nil {
		t.Fatalf("LoadSyncLedger() reload unexpected error: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Errorf("reloaded Len() = %d, want 2", reloaded.Len())
	}
	if !reloaded.Contains("/media/Pictures/a.jpg") || !reloaded.Contains("/media/Pictures/b.jpg") {
		t.Error("reloaded ledger missing recorded paths")
	}
	if !reloaded.UpdateTime.Equal(now.Add(2 * time.Minute)) {
		t.Errorf("UpdateTime = %v, want %v", reloaded.UpdateTime, now.Add(2*time.Minute))
	}
}

func TestSyncLedgerCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mega_sync.json")
	if err := os.WriteFile(path, []byte("{bad"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSyncLedger(path); err == nil {
		t.Error("LoadSyncLedger() expected error for corrupt ledger, got nil")
	}
}
