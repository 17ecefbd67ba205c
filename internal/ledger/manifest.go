package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"mantis/internal/mantis"
)

// MantisDirName is the directory under the media import root holding one
// manifest per import run.
const MantisDirName = ".mantis"

// Manifests persists run manifests under {root}/.mantis. It implements
// mantis.ManifestStore.
type Manifests struct{}

var _ mantis.ManifestStore = Manifests{}

// NewRun creates a writer for the given manifest. The file name carries
// the run timestamp and ID so concurrent runs never collide.
func (Manifests) NewRun(mediaImportRoot string, m *mantis.RunManifest) (mantis.RunWriter, error) {
	dir := filepath.Join(mediaImportRoot, MantisDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, mantis.Tag(mantis.ErrResource, fmt.Errorf("creating mantis directory: %w", err))
	}
	name := fmt.Sprintf("import_%s_%s.json", m.ImportTimestamp, m.RunID)
	return &manifestWriter{path: filepath.Join(dir, name), manifest: m}, nil
}

// manifestWriter persists a RunManifest. Each Write replaces the file in
// full via an atomic rename, so a crash mid-run leaves the last complete
// snapshot, never a torn file.
type manifestWriter struct {
	path     string
	manifest *mantis.RunManifest
}

// Path returns the manifest's file path.
func (w *manifestWriter) Path() string { return w.path }

// Write persists the current manifest state.
func (w *manifestWriter) Write() error {
	data, err := json.MarshalIndent(w.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := renameio.WriteFile(w.path, data, 0644); err != nil {
		return mantis.Tag(mantis.ErrResource, fmt.Errorf("writing manifest %s: %w", w.path, err))
	}
	return nil
}

// ReadManifest loads a RunManifest from path.
func ReadManifest(path string) (*mantis.RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mantis.Tag(mantis.ErrState, fmt.Errorf("reading manifest %s: %w", path, err))
	}
	var m mantis.RunManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, mantis.Tag(mantis.ErrState, fmt.Errorf("parsing manifest %s: %w", path, err))
	}
	return &m, nil
}
