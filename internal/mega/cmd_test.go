package mega

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mantis/internal/mantis"
	"mantis/internal/testutil"
)

// stubRunner replays canned exit codes per command name.
type stubRunner struct {
	codes map[string]int
	calls []string
}

func (r *stubRunner) Run(_ context.Context, name string, args ...string) (int, string, error) {
	r.calls = append(r.calls, strings.Join(append([]string{name}, args...), " "))
	return r.codes[name], "", nil
}

func TestMegaCmdExists(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		want    bool
		wantErr bool
	}{
		{"present", 0, true, false},
		{"absent", ExitNotFound, false, false},
		{"wedged server", 1, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MegaCmd{
				Runner: &stubRunner{codes: map[string]int{"mega-ls": tt.code}},
				Logger: testutil.NopLogger{},
			}
			got, err := m.Exists(context.Background(), "/media/a.jpg")
			if tt.wantErr {
				if !errors.Is(err, mantis.ErrTransient) {
					t.Errorf("Exists() error = %v, want ErrTransient", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Exists() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMegaCmdPut(t *testing.T) {
	m := &MegaCmd{
		Runner: &stubRunner{codes: map[string]int{"mega-put": 0}},
		Logger: testutil.NopLogger{},
	}
	if err := m.Put(context.Background(), "/tmp/a.jpg", "/media"); err != nil {
		t.Errorf("Put() unexpected error: %v", err)
	}

	m.Runner = &stubRunner{codes: map[string]int{"mega-put": 2}}
	if err := m.Put(context.Background(), "/tmp/a.jpg", "/media"); !errors.Is(err, mantis.ErrTransient) {
		t.Errorf("Put() error = %v, want ErrTransient", err)
	}
}

func TestMegaCmdRestartServerEscalatesToKill(t *testing.T) {
	// A matched TERM is followed, after the grace period, by a KILL for
	// servers too wedged to honor it.
	runner := &stubRunner{codes: map[string]int{"pkill": 0}}
	var slept []time.Duration
	m := &MegaCmd{
		Runner:   runner,
		Logger:   testutil.NopLogger{},
		KillWait: 50 * time.Millisecond,
		Sleep:    func(d time.Duration) { slept = append(slept, d) },
	}
	if err := m.RestartServer(context.Background()); err != nil {
		t.Fatalf("RestartServer() unexpected error: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("calls = %v, want TERM then KILL", runner.calls)
	}
	if !strings.Contains(runner.calls[1], "-9") {
		t.Errorf("second call = %q, want pkill -9", runner.calls[1])
	}
	if len(slept) != 1 || slept[0] != 50*time.Millisecond {
		t.Errorf("sleeps = %v, want one grace period of 50ms", slept)
	}
}

func TestMegaCmdRestartServerNothingMatched(t *testing.T) {
	// pkill exit 1 means no process matched: not a failure, no escalation.
	runner := &stubRunner{codes: map[string]int{"pkill": 1}}
	m := &MegaCmd{
		Runner: runner,
		Logger: testutil.NopLogger{},
		Sleep:  func(time.Duration) { t.Error("slept with no server to kill") },
	}
	if err := m.RestartServer(context.Background()); err != nil {
		t.Errorf("RestartServer() unexpected error: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("calls = %v, want a single TERM attempt", runner.calls)
	}
}

func TestMegaCmdRestartServerFailure(t *testing.T) {
	m := &MegaCmd{
		Runner: &stubRunner{codes: map[string]int{"pkill": 2}},
		Logger: testutil.NopLogger{},
		Sleep:  func(time.Duration) {},
	}
	if err := m.RestartServer(context.Background()); !errors.Is(err, mantis.ErrResource) {
		t.Errorf("RestartServer() error = %v, want ErrResource", err)
	}
}
