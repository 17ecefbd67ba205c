package testutil

import (
	"fmt"
	"sync"
	"testing"
)

// TestLogger satisfies mantis.Logger, forwarding to t.Logf so log lines
// show up only on failure. It also captures messages for assertions.
type TestLogger struct {
	t  *testing.T
	mu sync.Mutex

	Messages []string
}

// NewTestLogger creates a TestLogger bound to t.
func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t}
}

func (l *TestLogger) log(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s: %s %v", level, msg, args)
	l.Messages = append(l.Messages, line)
	if l.t != nil {
		l.t.Log(line)
	}
}

func (l *TestLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }
func (l *TestLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *TestLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *TestLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
