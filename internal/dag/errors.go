package dag

import (
	"fmt"
	"strings"
)

// ValidationError reports a structurally invalid workflow: a missing
// reference, a duplicate entry, or a cycle. The run never starts when one
// is returned.
type ValidationError struct {
	Detail string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid workflow: " + e.Detail
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

// StepError marks a job failure caused by one of its steps.
type StepError struct {
	Kind  string
	Index int
	Err   error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Kind, e.Err)
}

// Unwrap returns the underlying step failure.
func (e *StepError) Unwrap() error {
	return e.Err
}

// SkipError records why a job never executed: the ancestor whose failure
// propagated down to it. A skip is not itself a failure, but reporting
// must keep it distinguishable from both success and failure.
type SkipError struct {
	Ancestor string
}

// Error implements the error interface.
func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped: upstream job %q did not succeed", e.Ancestor)
}

// AggregationError is the terminal failure of an aggregator whose required
// source set contains a job that did not succeed or produced no fragment.
// Partial merges are never emitted.
type AggregationError struct {
	Aggregator string
	Missing    []string
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregator %q: missing dependency fragment from %s",
		e.Aggregator, strings.Join(e.Missing, ", "))
}
