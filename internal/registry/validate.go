package registry

import (
	"context"
	"fmt"

	"github.com/vk/pipeforge/internal/config"
	"github.com/vk/pipeforge/internal/ctxlog"
)

// ValidateModel checks that every step kind and executor referenced by the
// pipeline model is registered. This runs at startup, before any job is
// scheduled.
func (r *Registry) ValidateModel(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)

	for _, job := range model.Jobs {
		if _, ok := r.Profiles[job.Executor]; !ok {
			return fmt.Errorf("job %q references unknown executor profile %q", job.Name, job.Executor)
		}
		for i, step := range job.Steps {
			if _, ok := r.Steps[step.Kind]; !ok {
				return fmt.Errorf("job %q step %d references unknown step kind %q", job.Name, i, step.Kind)
			}
		}
	}

	logger.Debug("Registry validation passed.",
		"steps", len(r.Steps), "profiles", len(r.Profiles))
	return nil
}
