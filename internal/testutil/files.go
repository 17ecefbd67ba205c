package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile creates a file with the given content, making parent
// directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// WriteFileAt creates a file and pins its modification time, which doubles
// as the creation time on non-darwin platforms.
func WriteFileAt(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	WriteFile(t, path, content)
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("setting times on %s: %v", path, err)
	}
}

// WriteFileSized creates a file of exactly size bytes with a pinned
// modification time.
func WriteFileSized(t *testing.T, path string, size int64, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("setting times on %s: %v", path, err)
	}
}
