package dag

import "time"

// JobResult is the terminal outcome of one node.
type JobResult struct {
	ID       string
	Status   Status
	Err      error
	Duration time.Duration
}

// Result is the outcome of a whole run.
type Result struct {
	RunID string
	Jobs  map[string]*JobResult
}

// Failed reports whether the run as a whole failed: true iff any job is
// failed or timed out. Skipped jobs do not by themselves fail the run.
func (r *Result) Failed() bool {
	for _, jr := range r.Jobs {
		if jr.Status == Failed || jr.Status == TimedOut {
			return true
		}
	}
	return false
}

// Counts tallies the jobs per terminal status.
func (r *Result) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, jr := range r.Jobs {
		counts[jr.Status]++
	}
	return counts
}
