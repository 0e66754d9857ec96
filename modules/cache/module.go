// Package cache implements the restore_cache and save_cache steps on top
// of the engine's content-addressed cache store. Key templates are
// resolved by the engine at job start; handlers only move blobs.
package cache

import (
	"context"
	"fmt"

	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// RestoreInput defines the arguments for the restore_cache step.
type RestoreInput struct {
	Key string `hcl:"key"`
}

// SaveInput defines the arguments for the save_cache step.
type SaveInput struct {
	Key   string   `hcl:"key"`
	Paths []string `hcl:"paths"`
}

// RunRestore looks up the resolved key and, on a hit, materializes the
// cached subtree into the job working directory. A miss is not an error.
func RunRestore(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*RestoreInput)
	logger := ctxlog.FromContext(ctx)

	key, ok := sc.ResolvedKeys[in.Key]
	if !ok {
		return fmt.Errorf("restore_cache: key template %q was not resolved", in.Key)
	}

	blob, hit, err := sc.Services.Cache.Restore(ctx, key)
	if err != nil {
		return err
	}
	if !hit {
		logger.Info("Cache miss.", "key", key)
		return nil
	}

	logger.Info("Cache hit, restoring.", "key", key, "bytes", len(blob))
	return unpack(sc.WorkDir, blob)
}

// RunSave archives the configured paths and saves them under the resolved
// key. The scheduler never reaches this step for a job that already
// failed, so failed jobs cannot poison the cache.
func RunSave(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*SaveInput)
	logger := ctxlog.FromContext(ctx)

	key, ok := sc.ResolvedKeys[in.Key]
	if !ok {
		return fmt.Errorf("save_cache: key template %q was not resolved", in.Key)
	}

	blob, err := pack(sc.WorkDir, in.Paths)
	if err != nil {
		return fmt.Errorf("save_cache: %w", err)
	}
	logger.Info("Saving cache.", "key", key, "bytes", len(blob))
	return sc.Services.Cache.Save(ctx, key, blob)
}

// Register registers both handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("restore_cache", &registry.StepHandler{
		NewInput: func() any { return new(RestoreInput) },
		Fn:       RunRestore,
	})
	r.RegisterStep("save_cache", &registry.StepHandler{
		NewInput: func() any { return new(SaveInput) },
		Fn:       RunSave,
	})
}
