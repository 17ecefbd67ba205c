package mantis

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestProvenanceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	created := time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC)

	err := WriteProvenance(dir, Provenance{
		Version:     "1.2.0",
		CreatedOn:   created,
		CreatedFrom: "/home/u/Media_Inbox",
		Keyword:     "spruce",
		Library:     "family",
	})
	if err != nil {
		t.Fatalf("WriteProvenance() unexpected error: %v", err)
	}

	got, err := ReadProvenance(dir)
	if err != nil {
		t.Fatalf("ReadProvenance() unexpected error: %v", err)
	}
	if got.Version != "1.2.0" || got.Keyword != "spruce" || got.Library != "family" {
		t.Errorf("ReadProvenance() = %+v, fields did not round-trip", got)
	}
	if !got.CreatedOn.Equal(created) {
		t.Errorf("CreatedOn = %v, want %v", got.CreatedOn, created)
	}
}

func TestProvenanceDefaultsLibrary(t *testing.T) {
	dir := t.TempDir()
	err := WriteProvenance(dir, Provenance{
		Version:     "1.0.0",
		CreatedOn:   time.Now(),
		CreatedFrom: "/in",
		Keyword:     "oak",
	})
	if err != nil {
		t.Fatalf("WriteProvenance() unexpected error: %v", err)
	}

	got, err := ReadProvenance(dir)
	if err != nil {
		t.Fatalf("ReadProvenance() unexpected error: %v", err)
	}
	if got.Library != DefaultLibrary {
		t.Errorf("Library = %q, want %q", got.Library, DefaultLibrary)
	}
}

func TestProvenanceMissingFields(t *testing.T) {
	dir := t.TempDir()
	content := "version: 1.0.0\nkeyword: oak\n"
	if err := os.WriteFile(filepath.Join(dir, ProvenanceFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadProvenance(dir)
	if err == nil {
		t.Fatal("ReadProvenance() expected error for missing fields, got nil")
	}
	if !errors.Is(err, ErrState) {
		t.Errorf("ReadProvenance() error = %v, want ErrState", err)
	}
	for _, field := range []string{"created_from", "created_on"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not name missing field %s", err, field)
		}
	}
}

func TestProvenanceMissingFile(t *testing.T) {
	_, err := ReadProvenance(t.TempDir())
	if !errors.Is(err, ErrState) {
		t.Errorf("ReadProvenance() error = %v, want ErrState", err)
	}
}
