package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mantis/internal/fs"
	"mantis/internal/mantis"
)

// CompletedImportsView is what a scan of the .mantis manifests yields:
// completed import paths that exist locally, plus the ones recorded as
// completed whose files are gone (usually imported on another machine).
type CompletedImportsView struct {
	Paths        []string // completed and present locally, deduplicated
	NotFound     []string // completed in a manifest but absent on disk
	ManifestsOK  int
	ManifestsBad int
}

// ReadCompletedImports scans mediaImportRoot/.mantis for import manifests
// and compiles the completed-imports view. Corrupt manifests are logged and
// skipped; they never abort the scan.
func ReadCompletedImports(mediaImportRoot string, logger mantis.Logger) (*CompletedImportsView, error) {
	if !fs.IsDir(mediaImportRoot) {
		return nil, mantis.Tag(mantis.ErrInput, fmt.Errorf("media import root not found: %s", mediaImportRoot))
	}

	view := &CompletedImportsView{}
	mantisDir := filepath.Join(mediaImportRoot, MantisDirName)
	entries, err := os.ReadDir(mantisDir)
	if err != nil {
		if os.IsNotExist(err) {
			// No imports have been made onto this root yet.
			return view, nil
		}
		return nil, mantis.Tag(mantis.ErrState, fmt.Errorf("reading mantis directory: %w", err))
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "import_") || !strings.HasSuffix(name, ".json") {
			continue
		}

		m, err := ReadManifest(filepath.Join(mantisDir, name))
		if err != nil {
			logger.Warn("skipping unreadable manifest", "file", name, "error", err)
			view.ManifestsBad++
			continue
		}
		view.ManifestsOK++

		for _, record := range m.Imports {
			if record.ImportStatus != mantis.ImportCompleted || record.ImportPath == "" {
				continue
			}
			if seen[record.ImportPath] {
				continue
			}
			seen[record.ImportPath] = true

			if fs.IsFile(record.ImportPath) {
				view.Paths = append(view.Paths, record.ImportPath)
			} else {
				view.NotFound = append(view.NotFound, record.ImportPath)
			}
		}
	}

	sort.Strings(view.Paths)
	logger.Info("completed-imports scan",
		"manifests", view.ManifestsOK,
		"unreadable", view.ManifestsBad,
		"present", len(view.Paths),
		"missing_locally", len(view.NotFound),
	)
	return view, nil
}
