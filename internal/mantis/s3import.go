package mantis

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"mantis/internal/batch"
)

// sealedSuffix marks encrypted bundle artifacts in the object store.
const sealedSuffix = ".age"

// S3Importer pulls packed bundles out of the object store and imports each
// one into the media library: download, optionally decrypt, unpack, then a
// regular directory import. Bundles are processed in bounded-concurrency
// chunks; one failed bundle never aborts the rest of the batch.
type S3Importer struct {
	Store     ObjectStore
	Codec     Codec
	Encryptor Encryptor // nil unless sealed bundles are expected
	Manifests ManifestStore
	Scanner   *Scanner
	Logger    Logger
	Clock     Clock
	IDGen     IDGenerator

	Bucket          string
	AutoImportDir   string
	MediaImportRoot string
	MediaInbox      string
	Library         string // empty means auto-detect per bundle
	Unimport        bool
	MaxConcurrent   int

	// Advisory ledgers. Completed keys are skipped up front on import;
	// on-disk existence at the destination stays the real idempotency check.
	Completed KeySet
	Failed    KeySet
}

// BatchSummary reports a batch run over store keys.
type BatchSummary struct {
	Pending   []string
	Succeeded []string
	Failed    []batch.Result
}

// ListPending returns the store keys that would be processed: packed
// bundles whose key contains at least one of the filters (all bundles when
// filters is empty), minus keys already in the completed ledger. Unimport
// runs keep completed keys in the list, since those are exactly the
// bundles with copies to remove.
func (s *S3Importer) ListPending(ctx context.Context, filters []string) ([]string, error) {
	keys, err := s.Store.ListKeys(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing bundle keys: %w", err)
	}

	var pending []string
	for _, key := range keys {
		if !strings.HasSuffix(key, ".zip") && !strings.HasSuffix(key, ".zip"+sealedSuffix) {
			continue
		}
		if !matchesAny(key, filters) {
			continue
		}
		if !s.Unimport && s.Completed != nil && s.Completed.Contains(key) {
			s.Logger.Debug("skipping completed bundle", "key", key)
			continue
		}
		pending = append(pending, key)
	}
	sort.Strings(pending)
	return pending, nil
}

// ProcessImports runs the batch: every pending key is downloaded,
// unpacked, and imported (or unimported). Ledgers are appended after the
// batch finishes so concurrent units never write the same file.
func (s *S3Importer) ProcessImports(ctx context.Context, filters []string) (*BatchSummary, error) {
	pending, err := s.ListPending(ctx, filters)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{Pending: pending}
	if len(pending) == 0 {
		s.Logger.Info("no pending bundles", "bucket", s.Bucket)
		return summary, nil
	}
	if err := os.MkdirAll(s.AutoImportDir, 0755); err != nil {
		return nil, Tag(ErrResource, fmt.Errorf("creating auto-import directory: %w", err))
	}
	s.Logger.Info("processing bundles", "count", len(pending), "bucket", s.Bucket, "unimport", s.Unimport)

	units := make([]batch.Unit, len(pending))
	for n, key := range pending {
		key := key
		units[n] = batch.Unit{Key: key, Run: func() error {
			return s.importOne(ctx, key)
		}}
	}
	results := batch.Run(units, s.MaxConcurrent)

	for _, res := range results {
		if res.Err != nil {
			s.Logger.Error("bundle import failed", "key", res.Key, "error", res.Err)
			summary.Failed = append(summary.Failed, res)
			if s.Failed != nil {
				if err := s.Failed.Append(res.Key); err != nil {
					s.Logger.Warn("recording failed key", "key", res.Key, "error", err)
				}
			}
			continue
		}
		summary.Succeeded = append(summary.Succeeded, res.Key)
		if !s.Unimport && s.Completed != nil {
			if err := s.Completed.Append(res.Key); err != nil {
				s.Logger.Warn("recording completed key", "key", res.Key, "error", err)
			}
		}
	}
	s.Logger.Info("batch finished", "succeeded", len(summary.Succeeded), "failed", len(summary.Failed))
	return summary, nil
}

// importOne handles a single bundle end to end inside its own working
// files, so units can run concurrently.
func (s *S3Importer) importOne(ctx context.Context, key string) error {
	localPath, err := s.Store.GetObject(ctx, key, s.AutoImportDir)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", key, err)
	}

	if strings.HasSuffix(localPath, sealedSuffix) {
		if s.Encryptor == nil {
			return Tag(ErrInput, fmt.Errorf("sealed bundle %s but encryption is not configured", key))
		}
		opened, err := s.Encryptor.DecryptFile(localPath)
		if err != nil {
			return fmt.Errorf("opening %s: %w", key, err)
		}
		if err := os.Remove(localPath); err != nil {
			s.Logger.Warn("removing sealed artifact", "path", localPath, "error", err)
		}
		localPath = opened
	}

	extracted, err := s.Codec.Unpack(localPath, s.AutoImportDir)
	if err != nil {
		return fmt.Errorf("unpacking %s: %w", key, err)
	}
	if err := os.Remove(localPath); err != nil {
		s.Logger.Warn("removing downloaded archive", "path", localPath, "error", err)
	}

	imp := &Importer{
		Scanner:         s.Scanner,
		Logger:          s.Logger,
		Clock:           s.Clock,
		IDGen:           s.IDGen,
		Manifests:       s.Manifests,
		ImportDir:       extracted,
		MediaImportRoot: s.MediaImportRoot,
		MediaInbox:      s.MediaInbox,
		Library:         s.Library,
		Unimport:        s.Unimport,
		S3Bucket:        s.Bucket,
		S3Key:           key,
	}
	res, err := imp.Run()
	if err != nil {
		return fmt.Errorf("importing %s: %w", key, err)
	}
	s.Logger.Info("bundle imported", "key", key,
		"library", res.Library,
		"imported", res.Results.PictureImportCount+res.Results.MovieImportCount+res.Results.AudioImportCount,
		"already_imported", res.Results.AlreadyImportedCount)

	if err := os.RemoveAll(extracted); err != nil {
		s.Logger.Warn("removing extracted bundle", "path", extracted, "error", err)
	}
	return nil
}

func matchesAny(key string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f != "" && strings.Contains(key, f) {
			return true
		}
	}
	return false
}
