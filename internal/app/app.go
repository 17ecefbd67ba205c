// Package app is the application layer between the CLI and the mantis
// engines. It constructs every dependency from config, exposes one method
// per CLI command, and records runs in history on Close.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"mantis/internal/config"
	"mantis/internal/encryption"
	"mantis/internal/fs"
	"mantis/internal/history"
	"mantis/internal/ledger"
	"mantis/internal/mantis"
	"mantis/internal/mega"
	"mantis/internal/store"
	"mantis/internal/words"
	"mantis/internal/zip"
)

// App wires config, logging, ledgers, and the object store into the
// archive/import/sync engines. The caller must call Close when done.
type App struct {
	cfg  *config.Config
	dirs config.Directories

	logger  mantis.Logger
	logFile *os.File

	clock mantis.Clock
	idgen mantis.IDGenerator

	scanner   *mantis.Scanner
	codec     mantis.Codec
	encryptor mantis.Encryptor
	words     mantis.WordPicker
	notifier  mantis.Notifier

	history mantis.RunHistory // nil when disabled
	op      *Operation
	version string
}

// New creates a fully wired App for one CLI invocation. operation and
// parameters identify the command for run history.
func New(cfg *config.Config, operation, parameters, version string) (*App, error) {
	if cfg.MediaRoot == "" {
		return nil, mantis.Tag(mantis.ErrInput, fmt.Errorf("media_root not configured"))
	}
	dirs := config.ResolveDirectories(cfg, fs.IsDir)

	defaults, err := GetDefaults()
	if err != nil {
		return nil, err
	}

	clock := mantis.RealClock{}
	idgen := mantis.UUIDGenerator{}
	runID := idgen.New()

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = defaults["log_dir"]
	}
	slogger, logFile, err := newLogger(logDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	classifier := mantis.NewClassifier(mantis.ClassifierRules{
		PictureExtensions: cfg.Scan.PictureExtensions,
		MovieExtensions:   cfg.Scan.MovieExtensions,
		AudioExtensions:   cfg.Scan.AudioExtensions,
		SkipFiles:         cfg.Scan.SkipFiles,
		SkipPrefixes:      cfg.Scan.SkipPrefixes,
		SkipExtensions:    cfg.Scan.SkipExtensions,
	})

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	histCfg := cfg.History
	if histCfg.Type == "sqlite" && histCfg.DataDir == "" {
		histCfg.DataDir = defaults["data_dir"]
		if err := os.MkdirAll(histCfg.DataDir, 0755); err != nil {
			logFile.Close()
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	hist, err := history.NewFromConfig(histCfg, cfg.HostID)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening run history: %w", err)
	}

	return &App{
		cfg:       cfg,
		dirs:      dirs,
		logger:    logger,
		logFile:   logFile,
		clock:     clock,
		idgen:     idgen,
		scanner:   mantis.NewScanner(classifier, logger),
		codec:     zip.New(cfg.Scan.SkipPrefixes),
		encryptor: enc,
		words:     &words.DictionaryPicker{FilePath: cfg.Archive.WordFile, URL: cfg.Archive.WordURL},
		notifier:  &mantis.LogNotifier{Logger: logger},
		history:   hist,
		op:        NewOperation(runID, operation, parameters),
		version:   version,
	}, nil
}

// Dirs returns the resolved directory layout.
func (a *App) Dirs() config.Directories { return a.dirs }

// Fail marks the current operation failed in run history.
func (a *App) Fail(err error) { a.op.Fail(err) }

// persistOperation opens the run record in history. Only state-mutating
// commands call it.
func (a *App) persistOperation() error {
	if a.history == nil || a.op.Persisted() {
		return nil
	}
	err := a.history.RecordStart(&mantis.RunRecord{
		ID:         a.op.RunID,
		HostID:     a.cfg.HostID,
		Operation:  a.op.Name,
		Parameters: a.op.Parameters,
		Status:     mantis.RunStatusRunning,
		StartedAt:  a.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	a.op.persisted = true
	return nil
}

// mediaImportRoot is where imported media lands; it defaults to the media
// root itself.
func (a *App) mediaImportRoot() string {
	if a.cfg.Import.MediaImportRoot != "" {
		return a.cfg.Import.MediaImportRoot
	}
	return a.dirs.MediaRoot
}

// objectStore connects to the configured S3 bucket.
func (a *App) objectStore(ctx context.Context) (mantis.ObjectStore, error) {
	if a.cfg.S3.Bucket == "" {
		return nil, mantis.Tag(mantis.ErrInput, fmt.Errorf("s3 bucket not configured"))
	}
	return store.NewS3StoreFromConfig(ctx, a.cfg.S3, a.cfg.S3.Bucket)
}

// Archive bundles sourceDir into zip archives under the archive staging
// directory, uploading them when upload is true.
func (a *App) Archive(ctx context.Context, sourceDir, library, keyword string, upload bool) (*mantis.ArchiveResult, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}

	var st mantis.ObjectStore
	if upload {
		var err error
		if st, err = a.objectStore(ctx); err != nil {
			return nil, err
		}
	}

	picker := a.words
	if keyword != "" {
		picker = &words.FixedPicker{Word: keyword}
	}

	arch := &mantis.Archiver{
		Scanner:         a.scanner,
		Codec:           a.codec,
		Store:           st,
		Encryptor:       a.encryptor,
		Words:           picker,
		Logger:          a.logger,
		Clock:           a.clock,
		Version:         a.version,
		ArchiveFilesDir: a.dirs.ArchiveFilesDir,
		MaxBundleBytes:  a.cfg.Archive.MaxBundleBytes,
		Library:         library,
	}
	result, err := arch.Process(sourceDir)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := arch.Upload(ctx, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Import imports (or, with unimport, removes) the media files of one local
// directory.
func (a *App) Import(dir, library string, unimport bool) (*mantis.ImportResult, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	imp := &mantis.Importer{
		Scanner:         a.scanner,
		Logger:          a.logger,
		Clock:           a.clock,
		IDGen:           a.idgen,
		Manifests:       ledger.Manifests{},
		ImportDir:       dir,
		MediaImportRoot: a.mediaImportRoot(),
		MediaInbox:      a.dirs.MediaInbox,
		Library:         library,
		Unimport:        unimport,
	}
	return imp.Run()
}

// s3Importer builds the batch importer with its advisory ledgers.
func (a *App) s3Importer(ctx context.Context, library string, unimport bool) (*mantis.S3Importer, error) {
	st, err := a.objectStore(ctx)
	if err != nil {
		return nil, err
	}
	completed, err := ledger.LoadKeySet(a.dirs.CompletedImportsFile)
	if err != nil {
		return nil, err
	}
	failed, err := ledger.LoadKeySet(a.dirs.FailedImportsFile)
	if err != nil {
		return nil, err
	}

	return &mantis.S3Importer{
		Store:           st,
		Codec:           a.codec,
		Encryptor:       a.encryptor,
		Manifests:       ledger.Manifests{},
		Scanner:         a.scanner,
		Logger:          a.logger,
		Clock:           a.clock,
		IDGen:           a.idgen,
		Bucket:          a.cfg.S3.Bucket,
		AutoImportDir:   a.dirs.AutoImportDir,
		MediaImportRoot: a.mediaImportRoot(),
		MediaInbox:      a.dirs.MediaInbox,
		Library:         library,
		Unimport:        unimport,
		MaxConcurrent:   a.cfg.Import.MaxConcurrent,
		Completed:       completed,
		Failed:          failed,
	}, nil
}

// ListPendingImports lists the bundle keys an import run would process.
func (a *App) ListPendingImports(ctx context.Context, filters []string) ([]string, error) {
	imp, err := a.s3Importer(ctx, "", false)
	if err != nil {
		return nil, err
	}
	return imp.ListPending(ctx, filters)
}

// ProcessS3Imports imports (or unimports) every pending bundle in the
// bucket.
func (a *App) ProcessS3Imports(ctx context.Context, filters []string, library string, unimport bool) (*mantis.BatchSummary, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	imp, err := a.s3Importer(ctx, library, unimport)
	if err != nil {
		return nil, err
	}
	return imp.ProcessImports(ctx, filters)
}

// ReArchive re-bundles every key queued in the re-archive ledger.
func (a *App) ReArchive(ctx context.Context, library string) (*mantis.BatchSummary, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	st, err := a.objectStore(ctx)
	if err != nil {
		return nil, err
	}
	requested, err := ledger.LoadKeySet(a.dirs.ReArchiveFile)
	if err != nil {
		return nil, err
	}
	completed, err := ledger.LoadKeySet(a.dirs.ReArchiveCompleteFile)
	if err != nil {
		return nil, err
	}

	re := &mantis.ReArchiver{
		Store:           st,
		Codec:           a.codec,
		Encryptor:       a.encryptor,
		Scanner:         a.scanner,
		Words:           a.words,
		Logger:          a.logger,
		Clock:           a.clock,
		Version:         a.version,
		ArchiveFilesDir: a.dirs.ArchiveFilesDir,
		MaxBundleBytes:  a.cfg.Archive.MaxBundleBytes,
		Library:         library,
		MaxConcurrent:   a.cfg.Import.MaxConcurrent,
		Requested:       requested,
		Completed:       completed,
	}
	return re.Process(ctx)
}

// syncTool builds the MEGAcmd wrapper with the configured per-command
// timeout.
func (a *App) syncTool() *mega.MegaCmd {
	timeout := time.Duration(a.cfg.Mega.TimeoutSeconds) * time.Second
	return &mega.MegaCmd{
		Runner: mega.ExecRunner{Timeout: timeout},
		Logger: a.logger,
	}
}

// MegaSync reconciles completed local imports with the MEGA remote.
func (a *App) MegaSync(ctx context.Context) (*mega.Report, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	view, err := ledger.ReadCompletedImports(a.mediaImportRoot(), a.logger)
	if err != nil {
		return nil, err
	}
	if len(view.NotFound) > 0 {
		a.logger.Info("manifests mention files absent locally", "count", len(view.NotFound))
	}
	syncLedger, err := ledger.LoadSyncLedger(a.dirs.SyncLedgerFile)
	if err != nil {
		return nil, err
	}

	rec := &mega.Reconciler{
		Tool:            a.syncTool(),
		Ledger:          syncLedger,
		Logger:          a.logger,
		Clock:           a.clock,
		MediaImportRoot: a.mediaImportRoot(),
		MegaRoot:        a.cfg.Mega.Root,
		MaxAttempts:     a.cfg.Mega.MaxAttempts,
		RetryDelay:      time.Duration(a.cfg.Mega.RetrySeconds) * time.Second,
	}
	return rec.Reconcile(ctx, view.Paths)
}

// MegaKill terminates the MEGAcmd session server.
func (a *App) MegaKill(ctx context.Context) error {
	return a.syncTool().RestartServer(ctx)
}

// History returns the most recent runs, newest first.
func (a *App) History(limit int) ([]*mantis.RunRecord, error) {
	if a.history == nil {
		return nil, mantis.Tag(mantis.ErrState, fmt.Errorf("run history is disabled"))
	}
	return a.history.ListRuns(limit)
}

// Close finalizes the run record and releases resources.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		subject := fmt.Sprintf("mantis %s %s", a.op.Name, a.op.Status)
		if err := a.notifier.Notify(subject, a.op.Error); err != nil {
			a.logger.Warn("sending notification", "error", err)
		}
		if err := a.history.RecordFinish(a.op.RunID, a.op.Status, a.op.Error, a.clock.Now()); err != nil {
			firstErr = fmt.Errorf("finishing run record: %w", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing run history: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
