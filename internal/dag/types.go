package dag

import (
	"sync/atomic"
	"time"

	"github.com/vk/pipeforge/internal/config"
)

// Status is the scheduling state of a node. Every node ends a run in
// exactly one of the terminal states: Succeeded, Failed, TimedOut, or
// Skipped.
type Status int32

const (
	Pending Status = iota
	Running
	Succeeded
	Failed
	TimedOut
	Skipped
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed-out"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == Succeeded || s == Failed || s == TimedOut || s == Skipped
}

// NodeKind distinguishes ordinary jobs from coverage aggregators. The
// scheduler treats both uniformly except at the dispatch gate: a job with
// a non-succeeded dependency is skipped, while an aggregator still runs
// and fails itself with a missing-fragment condition.
type NodeKind int

const (
	JobNode NodeKind = iota
	AggregatorNode
)

// Node is a single vertex of the run DAG.
type Node struct {
	ID         string
	Kind       NodeKind
	Job        *config.Job
	Aggregator *config.Aggregator

	// Deps holds the nodes this node requires; Dependents the reverse
	// edges. Both are fixed after Build.
	Deps       map[string]*Node
	Dependents map[string]*Node

	// depCount is the number of dependencies that have not yet reached a
	// terminal state.
	depCount atomic.Int32
	state    atomic.Int32

	// Err, StartedAt and FinishedAt are written only by the worker that
	// owns the node's single dispatch.
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Status returns the node's current scheduling state.
func (n *Node) Status() Status {
	return Status(n.state.Load())
}

func (n *Node) setStatus(s Status) {
	n.state.Store(int32(s))
}

// SetInitialCounters seeds the pending-dependency counter from the linked
// edges. Called once by Build before execution starts.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// Duration is the node's wall-clock execution time, zero for nodes that
// never ran.
func (n *Node) Duration() time.Duration {
	if n.StartedAt.IsZero() || n.FinishedAt.IsZero() {
		return 0
	}
	return n.FinishedAt.Sub(n.StartedAt)
}

// Graph is the validated DAG of one workflow instantiation.
type Graph struct {
	Nodes map[string]*Node
}
