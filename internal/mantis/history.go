package mantis

import "time"

// Run statuses as stored in the history database.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunRecord is one row of run history: an operation invocation on a host,
// opened when the operation starts and closed when it finishes.
type RunRecord struct {
	ID         string
	HostID     string
	Operation  string
	Parameters string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// RunHistory persists run records.
type RunHistory interface {
	// RecordStart inserts rec with status running.
	RecordStart(rec *RunRecord) error

	// RecordFinish closes the run, setting its final status and, for
	// failures, the error text.
	RecordFinish(id, status, errText string, finishedAt time.Time) error

	// ListRuns returns the most recent runs, newest first. limit <= 0
	// means no limit.
	ListRuns(limit int) ([]*RunRecord, error)

	Close() error
}
