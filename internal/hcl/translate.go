package hcl

import (
	"fmt"
	"time"

	"github.com/vk/pipeforge/internal/config"
	"github.com/vk/pipeforge/internal/schema"
)

// translate converts the decoded HCL schema into the format-agnostic model,
// rejecting duplicate declarations and malformed job attributes. DAG-level
// validation (missing references, cycles) belongs to the graph builder.
func translate(pc *schema.PipelineConfig) (*config.Model, error) {
	model := &config.Model{
		Jobs:        make(map[string]*config.Job),
		Aggregators: make(map[string]*config.Aggregator),
	}

	for _, j := range pc.Jobs {
		if _, exists := model.Jobs[j.Name]; exists {
			return nil, fmt.Errorf("duplicate job %q", j.Name)
		}
		job, err := translateJob(j)
		if err != nil {
			return nil, err
		}
		model.Jobs[j.Name] = job
	}

	for _, a := range pc.Aggregators {
		if _, exists := model.Jobs[a.Name]; exists {
			return nil, fmt.Errorf("aggregator %q collides with a job of the same name", a.Name)
		}
		if _, exists := model.Aggregators[a.Name]; exists {
			return nil, fmt.Errorf("duplicate aggregator %q", a.Name)
		}
		if len(a.Sources) == 0 {
			return nil, fmt.Errorf("aggregator %q declares no sources", a.Name)
		}
		output := a.Output
		if output == "" {
			output = "coverage-merged.json"
		}
		model.Aggregators[a.Name] = &config.Aggregator{
			Name:    a.Name,
			Sources: a.Sources,
			Output:  output,
		}
	}

	switch len(pc.Workflows) {
	case 0:
		return nil, fmt.Errorf("pipeline definition contains no workflow block")
	case 1:
		// exactly one workflow is executed per run
	default:
		return nil, fmt.Errorf("pipeline definition contains %d workflow blocks, expected exactly one", len(pc.Workflows))
	}

	wf := pc.Workflows[0]
	model.Workflow = &config.Workflow{Name: wf.Name}
	for _, wj := range wf.Jobs {
		model.Workflow.Jobs = append(model.Workflow.Jobs, &config.WorkflowJob{
			Name:     wj.Name,
			Requires: wj.Requires,
		})
	}

	return model, nil
}

func translateJob(j *schema.Job) (*config.Job, error) {
	executor := j.Executor
	if executor == "" {
		executor = "native"
	}

	var timeout time.Duration
	if j.Timeout != "" {
		var err error
		timeout, err = time.ParseDuration(j.Timeout)
		if err != nil {
			return nil, fmt.Errorf("job %q: invalid timeout %q: %w", j.Name, j.Timeout, err)
		}
		if timeout <= 0 {
			return nil, fmt.Errorf("job %q: timeout must be positive, got %q", j.Name, j.Timeout)
		}
	}

	job := &config.Job{
		Name:       j.Name,
		Executor:   executor,
		Image:      j.Image,
		WorkingDir: j.WorkingDirectory,
		Timeout:    timeout,
	}
	for _, s := range j.Steps {
		job.Steps = append(job.Steps, &config.Step{
			Kind:      s.Kind,
			Arguments: s.Body,
		})
	}
	return job, nil
}
