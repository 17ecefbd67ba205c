package batch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunPreservesOrder(t *testing.T) {
	units := make([]Unit, 7)
	for i := range units {
		units[i] = Unit{Key: fmt.Sprintf("u%d", i), Run: func() error { return nil }}
	}

	results := Run(units, 3)
	if len(results) != len(units) {
		t.Fatalf("Run() returned %d results, want %d", len(results), len(units))
	}
	for i, r := range results {
		if r.Key != fmt.Sprintf("u%d", i) {
			t.Errorf("results[%d].Key = %q, want u%d", i, r.Key, i)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	var mu sync.Mutex

	units := make([]Unit, 10)
	for i := range units {
		units[i] = Unit{Key: fmt.Sprintf("u%d", i), Run: func() error {
			n := current.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			defer current.Add(-1)
			return nil
		}}
	}

	Run(units, 3)
	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want at most 3", p)
	}
}

func TestRunFailureDoesNotStopBatch(t *testing.T) {
	boom := errors.New("boom")
	var ran atomic.Int32

	units := []Unit{
		{Key: "a", Run: func() error { ran.Add(1); return nil }},
		{Key: "b", Run: func() error { ran.Add(1); return boom }},
		{Key: "c", Run: func() error { ran.Add(1); return nil }},
	}

	results := Run(units, 1)
	if ran.Load() != 3 {
		t.Errorf("ran %d units, want all 3 despite the failure", ran.Load())
	}

	failed := Failures(results)
	if len(failed) != 1 || failed[0].Key != "b" || !errors.Is(failed[0].Err, boom) {
		t.Errorf("Failures() = %v, want just b/boom", failed)
	}
}

func TestRunZeroConcurrency(t *testing.T) {
	results := Run([]Unit{{Key: "a", Run: func() error { return nil }}}, 0)
	if len(results) != 1 || results[0].Err != nil {
		t.Errorf("Run() with maxConcurrent 0 = %v, want one success", results)
	}
}

func TestRunEmpty(t *testing.T) {
	if results := Run(nil, 5); len(results) != 0 {
		t.Errorf("Run(nil) = %v, want empty", results)
	}
}
