package mantis

import "errors"

// Failure categories. Callers classify an error with errors.Is against one
// of these sentinels; the CLI maps each category to its own exit code.
var (
	// ErrInput marks bad or missing user input (directories, filters).
	// Never retried.
	ErrInput = errors.New("invalid input")

	// ErrState marks a corrupt or unreadable ledger/manifest. The affected
	// record is skipped with a warning and the run continues.
	ErrState = errors.New("unreadable state")

	// ErrResource marks a filesystem or disk-space failure. Fatal to the
	// current run.
	ErrResource = errors.New("resource failure")

	// ErrTransient marks a failed remote call (object store or sync tool).
	// Retried up to a bounded attempt count, then demoted to a per-item
	// failure.
	ErrTransient = errors.New("transient remote failure")
)

// taggedError attaches a failure category to a cause without disturbing
// the cause's message or %w chain.
type taggedError struct {
	kind error
	err  error
}

func (e *taggedError) Error() string   { return e.err.Error() }
func (e *taggedError) Unwrap() []error { return []error{e.kind, e.err} }

// Tag wraps err so that errors.Is(result, kind) holds. A nil err returns nil.
func Tag(kind, err error) error {
	if err == nil {
		return nil
	}
	return &taggedError{kind: kind, err: err}
}
