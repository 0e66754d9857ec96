// Package coveragestep implements the store_coverage step, which tags a
// job as coverage-producing by emitting its fragment into the run's
// fragment store for later aggregation.
package coveragestep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the store_coverage step.
type Input struct {
	Path string `hcl:"path"`
}

// RunStore reads the fragment file produced by the job's test commands
// and records it under the job's id.
func RunStore(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*Input)
	data, err := os.ReadFile(filepath.Join(sc.WorkDir, filepath.FromSlash(in.Path)))
	if err != nil {
		return fmt.Errorf("store_coverage: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("Storing coverage fragment.", "path", in.Path, "bytes", len(data))
	return sc.Services.Coverage.Put(sc.JobID, data)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("store_coverage", &registry.StepHandler{
		NewInput: func() any { return new(Input) },
		Fn:       RunStore,
	})
}
