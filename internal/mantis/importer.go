package mantis

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	mfs "mantis/internal/fs"
)

// Importer copies a directory of media files into the date-partitioned
// library tree, or deletes previously imported copies in unimport mode.
// Each run writes its own manifest under the import root's .mantis
// directory; the manifest is rewritten after every file so progress
// survives a crash.
type Importer struct {
	Scanner   *Scanner
	Logger    Logger
	Clock     Clock
	IDGen     IDGenerator
	Manifests ManifestStore

	ImportDir       string
	MediaImportRoot string
	MediaInbox      string
	Library         string // empty means auto-detect from provenance
	Unimport        bool

	// Recorded in the manifest header when the source came from a bucket.
	S3Bucket string
	S3Key    string
}

// ImportResult reports one run's outcome.
type ImportResult struct {
	ManifestPath string
	Library      string
	Results      RunResults
}

// Run processes the import (or unimport) of every media file in ImportDir.
// A copy failure is fatal to the run; the manifest keeps everything
// processed up to the failure.
func (i *Importer) Run() (*ImportResult, error) {
	if !mfs.IsDir(i.ImportDir) {
		return nil, Tag(ErrInput, fmt.Errorf("import directory not found: %s", i.ImportDir))
	}
	if i.MediaImportRoot == "" {
		return nil, Tag(ErrInput, fmt.Errorf("media import root not set"))
	}

	library := i.resolveLibrary()
	destRoot := i.MediaImportRoot
	if library != "" && library != DefaultLibrary {
		destRoot = filepath.Join(i.MediaImportRoot, library)
	}

	manifest, err := i.Scanner.Scan(i.ImportDir)
	if err != nil {
		return nil, fmt.Errorf("scanning import directory: %w", err)
	}

	run := &RunManifest{
		RunID:           i.IDGen.New(),
		ImportTimestamp: i.Clock.Now().Format("20060102_150405"),
		SourceDirectory: i.ImportDir,
		SourceDirName:   filepath.Base(i.ImportDir),
		S3Bucket:        i.S3Bucket,
		S3Key:           i.S3Key,
		MediaInbox:      i.MediaInbox,
		Library:         library,
		MediaImportRoot: i.MediaImportRoot,
		Unimport:        i.Unimport,
		Imports:         manifest.Records,
	}
	writer, err := i.Manifests.NewRun(i.MediaImportRoot, run)
	if err != nil {
		return nil, err
	}
	// Header goes down before the first file is touched.
	if err := writer.Write(); err != nil {
		return nil, err
	}

	for _, rec := range manifest.Records {
		if err := i.processRecord(rec, destRoot); err != nil {
			run.Results = tallyResults(manifest.Records)
			if werr := writer.Write(); werr != nil {
				i.Logger.Error("persisting manifest after failure", "error", werr)
			}
			return nil, err
		}
		run.Results = tallyResults(manifest.Records)
		if err := writer.Write(); err != nil {
			return nil, err
		}
	}

	i.Logger.Info("import run complete",
		"source", i.ImportDir,
		"unimport", i.Unimport,
		"imported", run.Results.TotalImportCount,
		"already_present", run.Results.AlreadyImportedCount,
		"not_imported", run.Results.NotImportedCount,
		"unimported", run.Results.UnimportedCount,
	)
	return &ImportResult{
		ManifestPath: writer.Path(),
		Library:      library,
		Results:      run.Results,
	}, nil
}

// resolveLibrary returns the pinned library, or the one recorded in the
// source directory's provenance file when none was pinned.
func (i *Importer) resolveLibrary() string {
	if i.Library != "" {
		return i.Library
	}
	if !mfs.IsFile(filepath.Join(i.ImportDir, ProvenanceFileName)) {
		return ""
	}
	prov, err := ReadProvenance(i.ImportDir)
	if err != nil {
		i.Logger.Warn("unreadable provenance file, using default library", "error", err)
		return ""
	}
	if prov.Library != DefaultLibrary {
		i.Logger.Info("library detected from provenance", "library", prov.Library)
		return prov.Library
	}
	return ""
}

// processRecord runs one record through the import state machine. The
// sequence per record is strict: classify, compute target, check
// existence, copy or delete.
func (i *Importer) processRecord(rec *MediaRecord, destRoot string) error {
	// The provenance file is bundle metadata, never media.
	if rec.Name == ProvenanceFileName {
		return nil
	}

	var subtree string
	switch rec.Kind {
	case KindPicture:
		subtree = "Pictures"
	case KindMovie:
		subtree = "Movies"
		if runtime.GOOS == "windows" {
			subtree = "Videos"
		}
	case KindAudio:
		subtree = "Music"
	case KindUnknown:
		rec.ImportStatus = ImportDoNotImport
		return nil
	}

	creation := rec.Creation()
	prefix := creation.Format(ImportPrefixLayout) + "_"
	name := rec.Name
	// Guard against prefix accumulation on re-imports of already renamed
	// files.
	if !strings.HasPrefix(name, prefix) {
		name = prefix + name
	}
	target := filepath.Join(destRoot, subtree,
		creation.Format("2006"), creation.Format("2006-01"), name)

	if i.Unimport {
		if !mfs.IsFile(target) {
			// Already absent; nothing to record.
			return nil
		}
		if err := os.Remove(target); err != nil {
			return Tag(ErrResource, fmt.Errorf("un-importing %s: %w", rec.Name, err))
		}
		rec.ImportStatus = ImportUnimported
		rec.ImportPath = target
		i.Logger.Debug("un-imported", "target", target)
		return nil
	}

	if mfs.IsFile(target) {
		rec.ImportStatus = ImportAlreadyExists
		rec.ImportPath = target
		return nil
	}
	if err := mfs.CopyFile(rec.Path, target); err != nil {
		return Tag(ErrResource, fmt.Errorf("importing %s: %w", rec.Name, err))
	}
	rec.ImportStatus = ImportCompleted
	rec.ImportPath = target
	i.Logger.Debug("imported", "target", target)
	return nil
}

// tallyResults recomputes the aggregate counters from record statuses.
func tallyResults(records []*MediaRecord) RunResults {
	var r RunResults
	for _, rec := range records {
		switch rec.ImportStatus {
		case ImportCompleted:
			r.TotalImportCount++
			switch rec.Kind {
			case KindPicture:
				r.PictureImportCount++
			case KindMovie:
				r.MovieImportCount++
			case KindAudio:
				r.AudioImportCount++
			case KindUnknown:
			}
		case ImportAlreadyExists:
			r.AlreadyImportedCount++
		case ImportDoNotImport:
			r.NotImportedCount++
		case ImportUnimported:
			r.UnimportedCount++
		case ImportPending:
		}
	}
	return r
}
