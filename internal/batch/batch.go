// Package batch runs independent units of work with a bounded, predictable
// concurrency ceiling: consecutive chunks of N units, all units in a chunk
// concurrent, a join-all barrier between chunks. A failed unit never stops
// its siblings or the chunks after it.
package batch

import "sync"

// Unit is one independent piece of work, identified by its key.
type Unit struct {
	Key string
	Run func() error
}

// Result is the outcome of one unit. Err is nil on success.
type Result struct {
	Key string
	Err error
}

// Run executes units in chunks of maxConcurrent and returns one Result per
// unit, in input order. maxConcurrent values below 1 are treated as 1.
func Run(units []Unit, maxConcurrent int) []Result {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	results := make([]Result, len(units))
	for start := 0; start < len(units); start += maxConcurrent {
		end := min(start+maxConcurrent, len(units))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = Result{Key: units[i].Key, Err: units[i].Run()}
			}(i)
		}
		wg.Wait()
	}
	return results
}

// Failures filters results down to the failed units.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
