// Package schema defines the HCL block structures of a pipeline definition
// file. These types are decode targets for gohcl only; the rest of the
// engine works with the format-agnostic model in internal/config.
package schema

import "github.com/hashicorp/hcl/v2"

// Step represents a `step` block inside a job. The single label selects the
// registered step kind; everything else in the body belongs to that kind's
// handler and is decoded later against the run's evaluation context.
type Step struct {
	Kind string   `hcl:"kind,label"`
	Body hcl.Body `hcl:",remain"`
}

// Job represents a `job` block: one schedulable unit of the pipeline.
type Job struct {
	Name             string  `hcl:"name,label"`
	Executor         string  `hcl:"executor,optional"`
	Image            string  `hcl:"image,optional"`
	WorkingDirectory string  `hcl:"working_directory,optional"`
	Timeout          string  `hcl:"timeout,optional"`
	Steps            []*Step `hcl:"step,block"`
}

// Aggregator represents an `aggregator` block: a terminal job that merges
// coverage fragments produced by the named source jobs.
type Aggregator struct {
	Name    string   `hcl:"name,label"`
	Sources []string `hcl:"sources"`
	Output  string   `hcl:"output,optional"`
}

// WorkflowJob is a job reference inside a `workflow` block, optionally
// annotated with the requires edges that form the DAG.
type WorkflowJob struct {
	Name     string   `hcl:"name,label"`
	Requires []string `hcl:"requires,optional"`
}

// Workflow represents a `workflow` block.
type Workflow struct {
	Name string         `hcl:"name,label"`
	Jobs []*WorkflowJob `hcl:"job,block"`
}

// PipelineConfig represents the top-level structure of a pipeline
// definition, possibly merged from several files.
type PipelineConfig struct {
	Jobs        []*Job        `hcl:"job,block"`
	Aggregators []*Aggregator `hcl:"aggregator,block"`
	Workflows   []*Workflow   `hcl:"workflow,block"`
	Body        hcl.Body      `hcl:",remain"`
}
