package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestCopyFilePreservesTimestamps(t *testing.T) {
	dir := t.TempDir()
	mod := time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC)
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "deep", "nested", "dst.jpg")
	writeFile(t, src, "content", mod)

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile() unexpected error: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "content" {
		t.Errorf("copied content = %q, want %q", got, "content")
	}
	fi, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !fi.ModTime().Equal(mod) {
		t.Errorf("ModTime = %v, want %v", fi.ModTime(), mod)
	}
}

func TestCopyFileRejectsMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "absent"), filepath.Join(dir, "dst")); err == nil {
		t.Error("CopyFile() expected error for missing source, got nil")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	destDir := filepath.Join(dir, "staging")
	writeFile(t, src, "content", time.Now())

	dst, err := MoveFile(src, destDir)
	if err != nil {
		t.Fatalf("MoveFile() unexpected error: %v", err)
	}
	if dst != filepath.Join(destDir, "src.jpg") {
		t.Errorf("MoveFile() = %q, want base name kept under destDir", dst)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still present after move")
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("destination missing after move: %v", err)
	}
}

func TestIsDirIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	writeFile(t, file, "x", time.Now())

	if !IsDir(dir) || IsDir(file) {
		t.Error("IsDir misclassified")
	}
	if !IsFile(file) || IsFile(dir) || IsFile(filepath.Join(dir, "absent")) {
		t.Error("IsFile misclassified")
	}
}

func TestFreeBytes(t *testing.T) {
	free, err := FreeBytes(t.TempDir())
	if err != nil {
		t.Fatalf("FreeBytes() unexpected error: %v", err)
	}
	if free == 0 {
		t.Error("FreeBytes() = 0, want non-zero on a writable temp dir")
	}
}
