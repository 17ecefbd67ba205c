package app

// Operation tracks one CLI invocation that may be recorded in run history.
// Operations start in memory; only history-recording commands persist
// them.
type Operation struct {
	RunID      string
	Name       string
	Parameters string
	Status     string // "completed" or "failed"
	Error      string
	persisted  bool
}

// NewOperation creates a new in-memory operation, assumed successful until
// Fail is called.
func NewOperation(runID, name, parameters string) *Operation {
	return &Operation{
		RunID:      runID,
		Name:       name,
		Parameters: parameters,
		Status:     "completed",
	}
}

// Fail marks the operation failed with the given error.
func (op *Operation) Fail(err error) {
	op.Status = "failed"
	if err != nil {
		op.Error = err.Error()
	}
}

// Persisted reports whether the operation has been written to run history.
func (op *Operation) Persisted() bool { return op.persisted }
