// Package mega drives the MEGAcmd suite to reconcile locally imported
// media with a MEGA remote. All interaction goes through the mega-* CLI
// binaries; the session server they share is occasionally wedged and is
// restarted between retries.
package mega

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"
	"time"

	"mantis/internal/mantis"
)

// ExitNotFound is the MEGAcmd exit code for a remote path that does not
// exist. It is an answer, not a failure.
const ExitNotFound = 53

// CommandRunner executes one external command and returns its exit code
// and combined output. err is non-nil only when the command could not be
// run at all.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (int, string, error)
}

// ExecRunner runs commands through os/exec with a per-command timeout.
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (int, string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err == nil {
		return 0, output, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), output, nil
	}
	return -1, output, mantis.Tag(mantis.ErrResource, fmt.Errorf("running %s: %w", name, err))
}

// SyncTool is the remote-side surface the reconciler needs.
type SyncTool interface {
	// Exists reports whether remotePath is present on the remote.
	Exists(ctx context.Context, remotePath string) (bool, error)

	// Put uploads localPath into the remote directory, creating it as
	// needed.
	Put(ctx context.Context, localPath, remoteDir string) error

	// RestartServer kills the MEGAcmd session server so the next command
	// starts a fresh one.
	RestartServer(ctx context.Context) error
}

// MegaCmd is the MEGAcmd-backed SyncTool.
type MegaCmd struct {
	Runner CommandRunner
	Logger mantis.Logger

	// KillWait is the grace period between SIGTERM and SIGKILL when
	// restarting the session server. Zero means one second.
	KillWait time.Duration
	Sleep    func(time.Duration) // nil means time.Sleep
}

var _ SyncTool = (*MegaCmd)(nil)

// Exists asks mega-ls about remotePath. Exit code 53 means the path is
// absent; any other non-zero exit is a transient tool failure.
func (m *MegaCmd) Exists(ctx context.Context, remotePath string) (bool, error) {
	code, output, err := m.Runner.Run(ctx, "mega-ls", remotePath)
	if err != nil {
		return false, err
	}
	switch code {
	case 0:
		return true, nil
	case ExitNotFound:
		return false, nil
	default:
		return false, mantis.Tag(mantis.ErrTransient,
			fmt.Errorf("mega-ls %s exited %d: %s", remotePath, code, output))
	}
}

// Put uploads localPath into remoteDir. -c creates missing remote
// directories on the way.
func (m *MegaCmd) Put(ctx context.Context, localPath, remoteDir string) error {
	code, output, err := m.Runner.Run(ctx, "mega-put", "-c", "--ignore-quota-warn", localPath, remoteDir)
	if err != nil {
		return err
	}
	if code != 0 {
		return mantis.Tag(mantis.ErrTransient,
			fmt.Errorf("mega-put %s exited %d: %s", localPath, code, output))
	}
	return nil
}

// RestartServer terminates every mega-cmd-server process, escalating from
// SIGTERM to SIGKILL after a grace period for servers too wedged to honor
// TERM. The next MEGAcmd invocation spawns a fresh server.
func (m *MegaCmd) RestartServer(ctx context.Context) error {
	code, output, err := m.Runner.Run(ctx, "pkill", "-f", "mega-cmd-server")
	if err != nil {
		return err
	}
	// pkill exits 1 when nothing matched, which is fine here.
	if code > 1 {
		return mantis.Tag(mantis.ErrResource,
			fmt.Errorf("pkill mega-cmd-server exited %d: %s", code, output))
	}
	if code == 1 {
		m.Logger.Debug("no mega-cmd-server running")
		return nil
	}

	wait := m.KillWait
	if wait == 0 {
		wait = time.Second
	}
	m.sleep(wait)

	code, output, err = m.Runner.Run(ctx, "pkill", "-9", "-f", "mega-cmd-server")
	if err != nil {
		return err
	}
	if code > 1 {
		return mantis.Tag(mantis.ErrResource,
			fmt.Errorf("pkill -9 mega-cmd-server exited %d: %s", code, output))
	}
	m.Logger.Debug("mega-cmd-server terminated", "forced", code == 0)
	return nil
}

func (m *MegaCmd) sleep(d time.Duration) {
	if m.Sleep != nil {
		m.Sleep(d)
		return
	}
	time.Sleep(d)
}

// RemoteJoin joins remote path segments with forward slashes regardless of
// the local OS.
func RemoteJoin(segments ...string) string {
	return path.Join(segments...)
}
