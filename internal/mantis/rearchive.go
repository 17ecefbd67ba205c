package mantis

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"mantis/internal/batch"
)

// ReArchiver re-bundles archives already in the object store: each
// requested key is downloaded, unpacked, and run back through the archiver
// under a fresh identity word and the current size cap, then the new
// bundles are uploaded. The request and completion ledgers are flat key
// sets; keys present in both are skipped.
type ReArchiver struct {
	Store     ObjectStore
	Codec     Codec
	Encryptor Encryptor // nil unless sealed bundles are expected
	Scanner   *Scanner
	Words     WordPicker
	Logger    Logger
	Clock     Clock
	Version   string

	ArchiveFilesDir string
	MaxBundleBytes  int64
	Library         string // empty means keep the bundle's recorded library
	MaxConcurrent   int

	Requested KeySet
	Completed KeySet
}

// Pending returns the requested keys not yet re-archived, sorted.
func (r *ReArchiver) Pending() []string {
	var pending []string
	for _, key := range r.Requested.Keys() {
		if r.Completed.Contains(key) {
			continue
		}
		pending = append(pending, key)
	}
	sort.Strings(pending)
	return pending
}

// Process re-archives every pending key. Completion keys are appended
// after the batch finishes so concurrent units never write the same file.
func (r *ReArchiver) Process(ctx context.Context) (*BatchSummary, error) {
	pending := r.Pending()

	summary := &BatchSummary{Pending: pending}
	if len(pending) == 0 {
		r.Logger.Info("no bundles queued for re-archive")
		return summary, nil
	}
	if err := os.MkdirAll(r.ArchiveFilesDir, 0755); err != nil {
		return nil, Tag(ErrResource, fmt.Errorf("creating archive files directory: %w", err))
	}
	r.Logger.Info("re-archiving bundles", "count", len(pending))

	units := make([]batch.Unit, len(pending))
	for n, key := range pending {
		key := key
		units[n] = batch.Unit{Key: key, Run: func() error {
			return r.rearchiveOne(ctx, key)
		}}
	}
	results := batch.Run(units, r.MaxConcurrent)

	for _, res := range results {
		if res.Err != nil {
			r.Logger.Error("re-archive failed", "key", res.Key, "error", res.Err)
			summary.Failed = append(summary.Failed, res)
			continue
		}
		summary.Succeeded = append(summary.Succeeded, res.Key)
		if err := r.Completed.Append(res.Key); err != nil {
			r.Logger.Warn("recording re-archived key", "key", res.Key, "error", err)
		}
	}
	r.Logger.Info("re-archive finished", "succeeded", len(summary.Succeeded), "failed", len(summary.Failed))
	return summary, nil
}

func (r *ReArchiver) rearchiveOne(ctx context.Context, key string) error {
	localPath, err := r.Store.GetObject(ctx, key, r.ArchiveFilesDir)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", key, err)
	}

	if strings.HasSuffix(localPath, sealedSuffix) {
		if r.Encryptor == nil {
			return Tag(ErrInput, fmt.Errorf("sealed bundle %s but encryption is not configured", key))
		}
		opened, err := r.Encryptor.DecryptFile(localPath)
		if err != nil {
			return fmt.Errorf("opening %s: %w", key, err)
		}
		if err := os.Remove(localPath); err != nil {
			r.Logger.Warn("removing sealed artifact", "path", localPath, "error", err)
		}
		localPath = opened
	}

	extracted, err := r.Codec.Unpack(localPath, r.ArchiveFilesDir)
	if err != nil {
		return fmt.Errorf("unpacking %s: %w", key, err)
	}
	if err := os.Remove(localPath); err != nil {
		r.Logger.Warn("removing downloaded archive", "path", localPath, "error", err)
	}

	library := r.Library
	if library == "" {
		if prov, err := ReadProvenance(extracted); err == nil {
			library = prov.Library
		} else {
			r.Logger.Debug("no readable provenance, using default library", "key", key)
			library = DefaultLibrary
		}
	}

	arch := &Archiver{
		Scanner:         r.Scanner,
		Codec:           r.Codec,
		Store:           r.Store,
		Encryptor:       r.Encryptor,
		Words:           r.Words,
		Logger:          r.Logger,
		Clock:           r.Clock,
		Version:         r.Version,
		ArchiveFilesDir: r.ArchiveFilesDir,
		MaxBundleBytes:  r.MaxBundleBytes,
		Library:         library,
	}
	result, err := arch.Process(extracted)
	if err != nil {
		return fmt.Errorf("re-bundling %s: %w", key, err)
	}
	if err := arch.Upload(ctx, result); err != nil {
		return fmt.Errorf("uploading re-bundled %s: %w", key, err)
	}
	r.Logger.Info("bundle re-archived", "key", key, "word", result.Word, "bundles", len(result.Artifacts))

	// Media files were moved into the new bundles; whatever is left in the
	// extracted tree is provenance and skip files.
	if err := os.RemoveAll(extracted); err != nil {
		r.Logger.Warn("removing extracted bundle", "path", extracted, "error", err)
	}
	return nil
}
