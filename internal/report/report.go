// Package report renders the run outcome surface: per-job terminal
// statuses, the aggregate run status, and the collected artifact listing.
package report

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vk/pipeforge/internal/artifact"
	"github.com/vk/pipeforge/internal/dag"
)

// Job is one row of the report.
type Job struct {
	ID       string        `yaml:"id"`
	Status   string        `yaml:"status"`
	Duration time.Duration `yaml:"duration,omitempty"`
	Error    string        `yaml:"error,omitempty"`
}

// Artifact is one entry of the collected artifact listing.
type Artifact struct {
	JobID string `yaml:"job"`
	Path  string `yaml:"path"`
	Size  int64  `yaml:"size"`
}

// Report is the complete outcome of one run.
type Report struct {
	RunID     string     `yaml:"run_id"`
	Workflow  string     `yaml:"workflow"`
	Status    string     `yaml:"status"`
	Jobs      []Job      `yaml:"jobs"`
	Artifacts []Artifact `yaml:"artifacts,omitempty"`
}

// Build assembles a report from the executor result. Jobs appear in the
// given order, which is expected to be a topological order of the graph.
func Build(workflow string, result *dag.Result, order []string, artifacts []artifact.Artifact) *Report {
	r := &Report{
		RunID:    result.RunID,
		Workflow: workflow,
		Status:   "succeeded",
	}
	if result.Failed() {
		r.Status = "failed"
	}

	for _, id := range order {
		jr, ok := result.Jobs[id]
		if !ok {
			continue
		}
		row := Job{
			ID:       id,
			Status:   jr.Status.String(),
			Duration: jr.Duration.Round(time.Millisecond),
		}
		if jr.Err != nil {
			row.Error = jr.Err.Error()
		}
		r.Jobs = append(r.Jobs, row)
	}

	for _, a := range artifacts {
		r.Artifacts = append(r.Artifacts, Artifact{JobID: a.JobID, Path: a.Path, Size: a.Size})
	}
	return r
}

// WriteText renders the human-readable summary table.
func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "\nWorkflow %s (run %s): %s\n", r.Workflow, r.RunID, r.Status)
	for _, j := range r.Jobs {
		if j.Error != "" {
			fmt.Fprintf(w, "  %-30s %-10s %8s  %s\n", j.ID, j.Status, j.Duration, j.Error)
			continue
		}
		fmt.Fprintf(w, "  %-30s %-10s %8s\n", j.ID, j.Status, j.Duration)
	}
	if len(r.Artifacts) > 0 {
		fmt.Fprintf(w, "Artifacts:\n")
		for _, a := range r.Artifacts {
			fmt.Fprintf(w, "  %s/%s (%d bytes)\n", a.JobID, a.Path, a.Size)
		}
	}
}

// WriteYAML renders the machine-readable report.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(r)
}
