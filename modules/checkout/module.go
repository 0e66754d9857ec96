// Package checkout implements the checkout-source step: it copies the
// run's source tree into the job's working directory.
package checkout

import (
	"context"
	"fmt"

	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/fsutil"
	"github.com/vk/pipeforge/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// RunCheckout copies the source tree into the job working directory.
func RunCheckout(ctx context.Context, sc *registry.StepContext, _ any) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Checking out source.", "from", sc.SourceDir, "to", sc.WorkDir)

	if err := fsutil.CopyTree(sc.SourceDir, sc.WorkDir); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("checkout", &registry.StepHandler{
		Fn: RunCheckout,
	})
}
