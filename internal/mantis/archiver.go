package mantis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	mfs "mantis/internal/fs"
)

// Archiver scans a source tree and bundles its media files into
// size-bounded, time-ranged zip archives, optionally uploading each packed
// bundle to the object store.
type Archiver struct {
	Scanner   *Scanner
	Codec     Codec
	Store     ObjectStore // nil disables upload
	Encryptor Encryptor   // nil disables bundle encryption
	Words     WordPicker
	Logger    Logger
	Clock     Clock
	Version   string

	ArchiveFilesDir string
	MaxBundleBytes  int64
	Library         string

	// FreeBytes overrides the free-space probe. nil means fs.FreeBytes.
	FreeBytes func(path string) (int64, error)
}

// ArchiveResult reports what one archive run produced.
type ArchiveResult struct {
	Manifest     *Manifest
	Word         string
	BundleDirs   []string // final renamed bundle directories
	Artifacts    []string // packed (and possibly sealed) bundle files
	UploadedKeys []string
}

// Process scans sourceDir and executes the bundling plan. Bundles are built
// in a single greedy pass over the time-sorted manifest: the close check
// fires when the running size already exceeds the cap, before the next
// record is added, so a bundle may overshoot the cap by its last member.
// Changing the close check would rename bundles produced from the same
// input.
func (a *Archiver) Process(sourceDir string) (*ArchiveResult, error) {
	manifest, err := a.Scanner.Scan(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("scanning archive source: %w", err)
	}

	result := &ArchiveResult{Manifest: manifest}

	// Provenance files from earlier bundles are metadata, not media: they
	// must not be staged, counted, or allowed to stretch the name's date
	// range when a bundle is re-archived.
	var records []*MediaRecord
	for _, rec := range manifest.Records {
		if rec.Name == ProvenanceFileName {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		a.Logger.Info("no media files found to archive", "dir", sourceDir)
		return result, nil
	}

	word, err := a.Words.Pick()
	if err != nil {
		return nil, fmt.Errorf("picking identity word: %w", err)
	}
	result.Word = word

	// Staged files plus their packed copies need up to 3x the manifest
	// size on disk at once; verify before any staging state is created.
	free, err := a.freeBytes(a.ArchiveFilesDir)
	if err != nil {
		return nil, Tag(ErrResource, fmt.Errorf("checking free space: %w", err))
	}
	if manifest.TotalBytes*3 >= free {
		return nil, Tag(ErrResource, fmt.Errorf(
			"insufficient disk space: need %d bytes free at %s, have %d",
			manifest.TotalBytes*3, a.ArchiveFilesDir, free))
	}

	seq := 1
	staging := a.stagingPath(word, seq)
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, Tag(ErrResource, fmt.Errorf("creating staging directory: %w", err))
	}

	var (
		currentSize int64
		firstStamp  = records[0].CreationStamp
		lastStamp   string
	)
	for _, rec := range records {
		if rec.ArchiveStatus == ArchiveCompleted {
			continue
		}
		if currentSize > a.MaxBundleBytes {
			a.Logger.Info("bundle size cap reached", "dir", staging, "bytes", currentSize)
			if lastStamp == "" {
				return nil, Tag(ErrInput, fmt.Errorf("cannot close bundle before any member was added"))
			}
			finalDir, err := a.closeBundle(staging, firstStamp, lastStamp, word, sourceDir)
			if err != nil {
				return nil, err
			}
			result.BundleDirs = append(result.BundleDirs, finalDir)

			firstStamp = rec.CreationStamp
			seq++
			staging = a.stagingPath(word, seq)
			if err := os.MkdirAll(staging, 0755); err != nil {
				return nil, Tag(ErrResource, fmt.Errorf("creating staging directory: %w", err))
			}
			currentSize = 0
		}

		dst, err := mfs.MoveFile(rec.Path, staging)
		if err != nil {
			return nil, Tag(ErrResource, fmt.Errorf("archiving %s: %w", rec.Name, err))
		}
		rec.ArchiveStatus = ArchiveCompleted
		rec.DestinationPath = dst
		currentSize += rec.SizeBytes
		lastStamp = rec.CreationStamp
	}

	// The final bundle closes unconditionally, even with a single member.
	finalDir, err := a.closeBundle(staging, firstStamp, lastStamp, word, sourceDir)
	if err != nil {
		return nil, err
	}
	result.BundleDirs = append(result.BundleDirs, finalDir)

	for _, dir := range result.BundleDirs {
		artifact, err := a.packBundle(dir)
		if err != nil {
			return nil, err
		}
		result.Artifacts = append(result.Artifacts, artifact)
	}

	a.Logger.Info("archive run complete",
		"source", sourceDir,
		"bundles", len(result.BundleDirs),
		"word", word,
	)
	return result, nil
}

// Upload pushes every packed artifact to the object store, keyed by file
// name. Any upload failure aborts: archiving is only complete once the
// artifacts are durably off-box.
func (a *Archiver) Upload(ctx context.Context, result *ArchiveResult) error {
	if a.Store == nil {
		return fmt.Errorf("no object store configured")
	}
	for _, artifact := range result.Artifacts {
		key := filepath.Base(artifact)
		a.Logger.Info("uploading bundle", "key", key)
		if err := a.Store.PutObject(ctx, artifact, key); err != nil {
			return Tag(ErrTransient, fmt.Errorf("uploading bundle %s: %w", key, err))
		}
		result.UploadedKeys = append(result.UploadedKeys, key)
	}
	return nil
}

func (a *Archiver) freeBytes(path string) (int64, error) {
	if a.FreeBytes != nil {
		return a.FreeBytes(path)
	}
	return mfs.FreeBytes(path)
}

func (a *Archiver) stagingPath(word string, seq int) string {
	name := word + "_staging"
	if seq > 1 {
		name = fmt.Sprintf("%s_staging%d", word, seq)
	}
	return filepath.Join(a.ArchiveFilesDir, name)
}

// closeBundle renames the staging directory to its final
// {first:yyyymmdd}-{last:yyyymmdd}_{word} name and writes the provenance
// record into it.
func (a *Archiver) closeBundle(staging, firstStamp, lastStamp, word, sourceDir string) (string, error) {
	name := bundleDirName(firstStamp, lastStamp, word)
	finalDir := filepath.Join(a.ArchiveFilesDir, name)

	if err := os.Rename(staging, finalDir); err != nil {
		return "", Tag(ErrResource, fmt.Errorf("renaming bundle directory to %s: %w", name, err))
	}
	err := WriteProvenance(finalDir, Provenance{
		Version:     a.Version,
		CreatedOn:   a.Clock.Now(),
		CreatedFrom: sourceDir,
		Keyword:     word,
		Library:     a.Library,
	})
	if err != nil {
		return "", err
	}
	a.Logger.Info("bundle closed", "dir", finalDir)
	return finalDir, nil
}

// packBundle zips a closed bundle directory and, when an encryptor is
// configured, seals the zip and discards the plaintext artifact.
func (a *Archiver) packBundle(dir string) (string, error) {
	zipPath, err := a.Codec.Pack(dir)
	if err != nil {
		return "", fmt.Errorf("packing bundle %s: %w", filepath.Base(dir), err)
	}
	if a.Encryptor == nil {
		return zipPath, nil
	}

	sealed, err := a.Encryptor.EncryptFile(zipPath)
	if err != nil {
		return "", fmt.Errorf("sealing bundle %s: %w", filepath.Base(zipPath), err)
	}
	if err := os.Remove(zipPath); err != nil {
		return "", Tag(ErrResource, fmt.Errorf("removing plaintext bundle: %w", err))
	}
	return sealed, nil
}

// bundleDirName derives the final directory name from the bundle's time
// range and identity word: yyyymmdd-yyyymmdd_word.
func bundleDirName(firstStamp, lastStamp, word string) string {
	return firstStamp[:8] + "-" + lastStamp[:8] + "_" + word
}
