package mega

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"mantis/internal/ledger"
	"mantis/internal/mantis"
)

// Reconciler drives completed local imports toward the MEGA remote: for
// each path under the media import root it checks the sync ledger, then
// the remote, then uploads, retrying with a server restart in between.
// One stubborn file never aborts the rest of the run.
type Reconciler struct {
	Tool   SyncTool
	Ledger *ledger.SyncLedger
	Logger mantis.Logger
	Clock  mantis.Clock
	Sleep  func(time.Duration) // nil means time.Sleep

	MediaImportRoot string
	MegaRoot        string
	MaxAttempts     int
	RetryDelay      time.Duration
}

// Report summarizes one reconciliation run.
type Report struct {
	Uploaded       []string // uploaded this run
	AlreadyPresent []string // confirmed on the remote before uploading
	Foreign        []string // outside the media import root, ignored
	Failed         []string // all attempts exhausted
}

// Reconcile processes every local path. Ledger writes happen after each
// confirmed upload, so a crash repeats at most one transfer.
func (r *Reconciler) Reconcile(ctx context.Context, localPaths []string) (*Report, error) {
	if r.MediaImportRoot == "" || r.MegaRoot == "" {
		return nil, mantis.Tag(mantis.ErrInput, fmt.Errorf("media import root and mega root must be set"))
	}

	report := &Report{}
	prefix := strings.TrimRight(r.MediaImportRoot, string(filepath.Separator)) + string(filepath.Separator)

	for _, localPath := range localPaths {
		if !strings.HasPrefix(localPath, prefix) {
			r.Logger.Debug("skipping path outside import root", "path", localPath)
			report.Foreign = append(report.Foreign, localPath)
			continue
		}

		remotePath := r.remotePath(localPath, prefix)
		if r.Ledger.Contains(remotePath) {
			report.AlreadyPresent = append(report.AlreadyPresent, localPath)
			continue
		}

		uploaded, present, err := r.reconcileOne(ctx, localPath, remotePath)
		if err != nil {
			r.Logger.Error("giving up on upload", "path", localPath, "error", err)
			report.Failed = append(report.Failed, localPath)
			continue
		}
		if err := r.Ledger.Add(remotePath, r.Clock.Now()); err != nil {
			return report, fmt.Errorf("persisting sync ledger: %w", err)
		}
		if uploaded {
			report.Uploaded = append(report.Uploaded, localPath)
		} else if present {
			report.AlreadyPresent = append(report.AlreadyPresent, localPath)
		}
	}

	r.Logger.Info("reconciliation finished",
		"uploaded", len(report.Uploaded),
		"already_present", len(report.AlreadyPresent),
		"foreign", len(report.Foreign),
		"failed", len(report.Failed))
	return report, nil
}

// reconcileOne checks and, if needed, uploads one file, retrying
// transient failures with a server restart and a delay between attempts.
func (r *Reconciler) reconcileOne(ctx context.Context, localPath, remotePath string) (uploaded, present bool, err error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	remoteDir := path.Dir(remotePath)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := r.Tool.RestartServer(ctx); err != nil {
				r.Logger.Warn("restarting sync server", "error", err)
			}
			r.sleep(r.RetryDelay)
		}

		exists, err := r.Tool.Exists(ctx, remotePath)
		if err != nil {
			lastErr = err
			r.Logger.Warn("remote check failed", "path", remotePath, "attempt", attempt, "error", err)
			continue
		}
		if exists {
			r.Logger.Debug("already on remote", "path", remotePath)
			return false, true, nil
		}

		if err := r.Tool.Put(ctx, localPath, remoteDir); err != nil {
			lastErr = err
			r.Logger.Warn("upload failed", "path", localPath, "attempt", attempt, "error", err)
			continue
		}
		r.Logger.Info("uploaded", "path", localPath, "remote", remotePath)
		return true, false, nil
	}
	return false, false, mantis.Tag(mantis.ErrTransient,
		fmt.Errorf("upload of %s failed after %d attempts: %w", localPath, attempts, lastErr))
}

// remotePath maps a local path under the import root to its MEGA path,
// normalizing separators for the remote.
func (r *Reconciler) remotePath(localPath, prefix string) string {
	rel := strings.TrimPrefix(localPath, prefix)
	rel = strings.ReplaceAll(rel, string(filepath.Separator), "/")
	return path.Join(r.MegaRoot, rel)
}

func (r *Reconciler) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}
