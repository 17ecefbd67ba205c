package ledger

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestKeySetMissingFileIsEmpty(t *testing.T) {
	s, err := LoadKeySet(filepath.Join(t.TempDir(), "absent.txt"))
	if err != nil {
		t.Fatalf("LoadKeySet() unexpected error: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestKeySetAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "completed.txt")

	s, err := LoadKeySet(path)
	if err != nil {
		t.Fatalf("LoadKeySet() unexpected error: %v", err)
	}
	for _, key := range []string{"a.zip", "b.zip", "a.zip"} {
		if err := s.Append(key); err != nil {
			t.Fatalf("Append(%q) unexpected error: %v", key, err)
		}
	}

	if !s.Contains("a.zip") || !s.Contains("b.zip") {
		t.Error("Contains() missing appended keys")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (re-append is a no-op)", s.Len())
	}

	// Keys survive a reload from disk.
	reloaded, err := LoadKeySet(path)
	if err != nil {
		t.Fatalf("LoadKeySet() reload unexpected error: %v", err)
	}
	keys := reloaded.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a.zip" || keys[1] != "b.zip" {
		t.Errorf("reloaded Keys() = %v, want [a.zip b.zip]", keys)
	}
}

func TestKeySetIgnoresBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	if err := os.WriteFile(path, []byte("a.zip\n\n  \nb.zip\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadKeySet(path)
	if err != nil {
		t.Fatalf("LoadKeySet() unexpected error: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}
