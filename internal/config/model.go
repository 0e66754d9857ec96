package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of the entire
// pipeline definition: all declared jobs, aggregators, and the workflow
// that composes them into a DAG.
type Model struct {
	Jobs        map[string]*Job
	Aggregators map[string]*Aggregator
	Workflow    *Workflow
}

// Job is the format-agnostic representation of a `job` block.
type Job struct {
	Name       string
	Executor   string
	Image      string
	WorkingDir string
	Timeout    time.Duration
	Steps      []*Step
}

// Step is a single entry of a job's ordered step list. Arguments are kept
// as an undecoded body; the registered step handler decodes them against
// the run's evaluation context.
type Step struct {
	Kind      string
	Arguments hcl.Body
}

// Aggregator is the format-agnostic representation of an `aggregator`
// block: a terminal job that merges coverage fragments from an explicit
// set of upstream jobs.
type Aggregator struct {
	Name    string
	Sources []string
	Output  string
}

// Workflow is one instantiation of the DAG for a run: an ordered list of
// references to declared jobs or aggregators, each with its requires edges.
type Workflow struct {
	Name string
	Jobs []*WorkflowJob
}

// WorkflowJob is a single reference inside a workflow block.
type WorkflowJob struct {
	Name     string
	Requires []string
}
