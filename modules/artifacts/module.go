// Package artifacts implements the store_artifacts step. The job runner
// keeps these steps best-effort: they are attempted even after an earlier
// step failed, so diagnostics survive failures.
package artifacts

import (
	"context"

	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the store_artifacts step.
type Input struct {
	Path string `hcl:"path"`
}

// RunStore uploads the file or directory at the configured path.
func RunStore(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*Input)
	ctxlog.FromContext(ctx).Debug("Storing artifacts.", "path", in.Path)
	return sc.Services.Artifacts.StoreTree(ctx, sc.JobID, sc.WorkDir, in.Path)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("store_artifacts", &registry.StepHandler{
		NewInput: func() any { return new(Input) },
		Fn:       RunStore,
	})
}
