package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mantis/internal/mantis"
	"mantis/internal/testutil"
)

// writeRunManifest persists a manifest whose single record completed at
// importPath.
func writeRunManifest(t *testing.T, root, runID, importPath string, status mantis.ImportStatus) {
	t.Helper()
	rec := mantis.NewMediaRecord("/in/a.jpg", "a.jpg",
		mustTime("2024-03-10T09:15:00Z"), 3, mantis.KindPicture)
	rec.ImportStatus = status
	rec.ImportPath = importPath

	m := &mantis.RunManifest{
		RunID:           runID,
		ImportTimestamp: "20240310_091500",
		SourceDirectory: "/in",
		MediaImportRoot: root,
		Imports:         []*mantis.MediaRecord{rec},
	}
	w, err := Manifests{}.NewRun(root, m)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(); err != nil {
		t.Fatal(err)
	}
}

func TestReadCompletedImports(t *testing.T) {
	root := t.TempDir()
	logger := testutil.NewTestLogger(t)

	present := filepath.Join(root, "Pictures", "2024", "2024-03", "a.jpg")
	testutil.WriteFile(t, present, "x")
	missing := filepath.Join(root, "Pictures", "2024", "2024-03", "gone.jpg")

	writeRunManifest(t, root, "run-1", present, mantis.ImportCompleted)
	writeRunManifest(t, root, "run-2", missing, mantis.ImportCompleted)
	// Duplicate completion of the same path must not double-count.
	writeRunManifest(t, root, "run-3", present, mantis.ImportCompleted)
	// Non-completed statuses never contribute paths.
	writeRunManifest(t, root, "run-4", present, mantis.ImportAlreadyExists)

	view, err := ReadCompletedImports(root, logger)
	if err != nil {
		t.Fatalf("ReadCompletedImports() unexpected error: %v", err)
	}

	if view.ManifestsOK != 4 {
		t.Errorf("ManifestsOK = %d, want 4", view.ManifestsOK)
	}
	if len(view.Paths) != 1 || view.Paths[0] != present {
		t.Errorf("Paths = %v, want [%s]", view.Paths, present)
	}
	if len(view.NotFound) != 1 || view.NotFound[0] != missing {
		t.Errorf("NotFound = %v, want [%s]", view.NotFound, missing)
	}
}

func TestReadCompletedImportsSkipsCorrupt(t *testing.T) {
	root := t.TempDir()
	logger := testutil.NewTestLogger(t)

	present := filepath.Join(root, "Pictures", "a.jpg")
	testutil.WriteFile(t, present, "x")
	writeRunManifest(t, root, "run-1", present, mantis.ImportCompleted)

	corrupt := filepath.Join(root, MantisDirName, "import_broken.json")
	if err := os.WriteFile(corrupt, []byte("{oops"), 0644); err != nil {
		t.Fatal(err)
	}

	view, err := ReadCompletedImports(root, logger)
	if err != nil {
		t.Fatalf("ReadCompletedImports() unexpected error: %v", err)
	}
	if view.ManifestsOK != 1 || view.ManifestsBad != 1 {
		t.Errorf("manifests ok=%d bad=%d, want 1 and 1", view.ManifestsOK, view.ManifestsBad)
	}
	if len(view.Paths) != 1 {
		t.Errorf("Paths = %v, want the one good manifest's path", view.Paths)
	}
}

func TestReadCompletedImportsNoMantisDir(t *testing.T) {
	view, err := ReadCompletedImports(t.TempDir(), testutil.NewTestLogger(t))
	if err != nil {
		t.Fatalf("ReadCompletedImports() unexpected error: %v", err)
	}
	if len(view.Paths) != 0 || view.ManifestsOK != 0 {
		t.Errorf("view = %+v, want empty", view)
	}
}

func TestReadCompletedImportsMissingRoot(t *testing.T) {
	_, err := ReadCompletedImports(filepath.Join(t.TempDir(), "absent"), testutil.NewTestLogger(t))
	if !errors.Is(err, mantis.ErrInput) {
		t.Errorf("error = %v, want ErrInput", err)
	}
}
