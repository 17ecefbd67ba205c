package mantis_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mantis/internal/mantis"
	"mantis/internal/store"
	"mantis/internal/testutil"
	"mantis/internal/words"
	"mantis/internal/zip"
)

func testArchiver(t *testing.T, archiveDir string, maxBytes int64) *mantis.Archiver {
	t.Helper()
	rules := mantis.ClassifierRules{
		PictureExtensions: []string{"jpg"},
		MovieExtensions:   []string{"mov"},
		SkipPrefixes:      []string{"._"},
	}
	logger := testutil.NewTestLogger(t)
	return &mantis.Archiver{
		Scanner:         mantis.NewScanner(mantis.NewClassifier(rules), logger),
		Codec:           zip.New([]string{"._"}),
		Words:           &words.FixedPicker{Word: "spruce"},
		Logger:          logger,
		Clock:           testutil.FixedClock(),
		Version:         "test",
		ArchiveFilesDir: archiveDir,
		MaxBundleBytes:  maxBytes,
	}
}

func TestArchiverSingleOvershootBundle(t *testing.T) {
	source := t.TempDir()
	archiveDir := t.TempDir()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	// Three members just under the cap each: the bundle only closes once
	// its running size already exceeds the cap, so all three land in one
	// bundle that overshoots it.
	testutil.WriteFileSized(t, filepath.Join(source, "a.jpg"), 900, base)
	testutil.WriteFileSized(t, filepath.Join(source, "b.jpg"), 900, base.AddDate(0, 0, 1))
	testutil.WriteFileSized(t, filepath.Join(source, "c.jpg"), 900, base.AddDate(0, 0, 2))

	result, err := testArchiver(t, archiveDir, 2000).Process(source)
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}

	if len(result.BundleDirs) != 1 {
		t.Fatalf("Process() produced %d bundles, want 1", len(result.BundleDirs))
	}
	day := func(n int) string { return time.Unix(base.AddDate(0, 0, n).Unix(), 0).Format("20060102") }
	wantName := day(0) + "-" + day(2) + "_spruce"
	if got := filepath.Base(result.BundleDirs[0]); got != wantName {
		t.Errorf("bundle dir = %q, want %q", got, wantName)
	}
	if len(result.Artifacts) != 1 || !strings.HasSuffix(result.Artifacts[0], wantName+".zip") {
		t.Errorf("Artifacts = %v, want one %s.zip", result.Artifacts, wantName)
	}

	// Members are moved, not copied.
	if _, err := os.Stat(filepath.Join(source, "a.jpg")); !os.IsNotExist(err) {
		t.Error("a.jpg still present in source after archiving")
	}
	// Every closed bundle carries its provenance record.
	prov, err := mantis.ReadProvenance(result.BundleDirs[0])
	if err != nil {
		t.Fatalf("ReadProvenance() unexpected error: %v", err)
	}
	if prov.Keyword != "spruce" || prov.CreatedFrom != source {
		t.Errorf("provenance = %+v, want keyword spruce from %s", prov, source)
	}
}

func TestArchiverSplitsWhenCapExceeded(t *testing.T) {
	source := t.TempDir()
	archiveDir := t.TempDir()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	testutil.WriteFileSized(t, filepath.Join(source, "a.jpg"), 1500, base)
	testutil.WriteFileSized(t, filepath.Join(source, "b.jpg"), 1500, base.AddDate(0, 0, 1))
	testutil.WriteFileSized(t, filepath.Join(source, "c.jpg"), 100, base.AddDate(0, 0, 2))

	result, err := testArchiver(t, archiveDir, 1000).Process(source)
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}

	// Each oversized member closes the running bundle before the next is
	// added: [a], [b], [c].
	if len(result.BundleDirs) != 3 {
		t.Fatalf("Process() produced %d bundles, want 3", len(result.BundleDirs))
	}
	day := func(n int) string { return time.Unix(base.AddDate(0, 0, n).Unix(), 0).Format("20060102") }
	wantNames := []string{
		day(0) + "-" + day(0) + "_spruce",
		day(1) + "-" + day(1) + "_spruce",
		day(2) + "-" + day(2) + "_spruce",
	}
	for i, want := range wantNames {
		if got := filepath.Base(result.BundleDirs[i]); got != want {
			t.Errorf("bundle[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestArchiverIgnoresOldProvenanceFile(t *testing.T) {
	source := t.TempDir()
	archiveDir := t.TempDir()
	base := time.Date(2021, 5, 1, 8, 0, 0, 0, time.UTC)

	// Re-archiving an unpacked bundle: the tree holds media plus the
	// previous bundle's metadata file, whose mtime is the old archive date.
	testutil.WriteFileSized(t, filepath.Join(source, "a.jpg"), 100, base)
	testutil.WriteFileSized(t, filepath.Join(source, "mantis_info.txt"), 50,
		time.Date(2023, 12, 24, 12, 0, 0, 0, time.UTC))

	result, err := testArchiver(t, archiveDir, 1000).Process(source)
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}

	if len(result.BundleDirs) != 1 {
		t.Fatalf("Process() produced %d bundles, want 1", len(result.BundleDirs))
	}
	day := time.Unix(base.Unix(), 0).Format("20060102")
	wantName := day + "-" + day + "_spruce"
	if got := filepath.Base(result.BundleDirs[0]); got != wantName {
		t.Errorf("bundle dir = %q, want %q (old metadata must not stretch the date range)", got, wantName)
	}
	// The old metadata file stays behind in the source tree.
	if _, err := os.Stat(filepath.Join(source, "mantis_info.txt")); err != nil {
		t.Errorf("old metadata file missing from source: %v", err)
	}
	// The fresh bundle carries exactly one provenance record, the new one.
	prov, err := mantis.ReadProvenance(result.BundleDirs[0])
	if err != nil {
		t.Fatalf("ReadProvenance() unexpected error: %v", err)
	}
	if prov.CreatedFrom != source {
		t.Errorf("provenance CreatedFrom = %q, want %q", prov.CreatedFrom, source)
	}
}

func TestArchiverProvenanceOnlySource(t *testing.T) {
	source := t.TempDir()
	archiveDir := t.TempDir()
	testutil.WriteFileSized(t, filepath.Join(source, "mantis_info.txt"), 50,
		time.Date(2023, 12, 24, 12, 0, 0, 0, time.UTC))

	result, err := testArchiver(t, archiveDir, 1000).Process(source)
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if len(result.BundleDirs) != 0 {
		t.Errorf("BundleDirs = %v, want none for a metadata-only tree", result.BundleDirs)
	}
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("archive dir entries = %v, want none", entries)
	}
}

func TestArchiverEmptySource(t *testing.T) {
	result, err := testArchiver(t, t.TempDir(), 1000).Process(t.TempDir())
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if len(result.Artifacts) != 0 {
		t.Errorf("Artifacts = %v, want none", result.Artifacts)
	}
}

func TestArchiverInsufficientSpaceLeavesNoStaging(t *testing.T) {
	source := t.TempDir()
	archiveDir := t.TempDir()
	testutil.WriteFileSized(t, filepath.Join(source, "a.jpg"), 1000,
		time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))

	arch := testArchiver(t, archiveDir, 2000)
	arch.FreeBytes = func(string) (int64, error) { return 2500, nil }

	_, err := arch.Process(source)
	if !errors.Is(err, mantis.ErrResource) {
		t.Fatalf("Process() error = %v, want ErrResource", err)
	}
	// The precondition runs before any staging directory is created.
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("archive dir entries = %v, want none after fail-fast", entries)
	}
	// The source is untouched.
	if _, err := os.Stat(filepath.Join(source, "a.jpg")); err != nil {
		t.Errorf("source file missing after fail-fast: %v", err)
	}
}

func TestArchiverUpload(t *testing.T) {
	source := t.TempDir()
	archiveDir := t.TempDir()
	testutil.WriteFileSized(t, filepath.Join(source, "a.jpg"), 10,
		time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))

	arch := testArchiver(t, archiveDir, 1000)
	mem := store.NewMemoryStore()
	arch.Store = mem

	result, err := arch.Process(source)
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if err := arch.Upload(context.Background(), result); err != nil {
		t.Fatalf("Upload() unexpected error: %v", err)
	}

	if len(result.UploadedKeys) != 1 {
		t.Fatalf("UploadedKeys = %v, want one key", result.UploadedKeys)
	}
	key := result.UploadedKeys[0]
	if key != filepath.Base(result.Artifacts[0]) {
		t.Errorf("key = %q, want artifact base name %q", key, filepath.Base(result.Artifacts[0]))
	}
	if !mem.Has(key) {
		t.Errorf("store does not hold uploaded key %q", key)
	}
}
