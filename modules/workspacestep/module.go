// Package workspacestep implements the persist_to_workspace and
// attach_workspace steps over the run-scoped workspace snapshot.
package workspacestep

import (
	"context"
	"path/filepath"

	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// PersistInput defines the arguments for the persist_to_workspace step.
type PersistInput struct {
	Root  string   `hcl:"root,optional"`
	Paths []string `hcl:"paths"`
}

// AttachInput defines the arguments for the attach_workspace step.
type AttachInput struct {
	At string `hcl:"at,optional"`
}

// RunPersist unions the configured subtree into the shared snapshot.
func RunPersist(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*PersistInput)
	root := sc.WorkDir
	if in.Root != "" {
		root = filepath.Join(sc.WorkDir, in.Root)
	}

	ctxlog.FromContext(ctx).Debug("Persisting to workspace.", "root", root, "paths", in.Paths)
	return sc.Services.Workspace.Persist(sc.JobID, root, in.Paths)
}

// RunAttach materializes the accumulated snapshot into the job working
// directory.
func RunAttach(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*AttachInput)
	dest := sc.WorkDir
	if in.At != "" {
		dest = filepath.Join(sc.WorkDir, in.At)
	}

	ctxlog.FromContext(ctx).Debug("Attaching workspace.", "dest", dest)
	return sc.Services.Workspace.Attach(sc.JobID, dest)
}

// Register registers both handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("persist_to_workspace", &registry.StepHandler{
		NewInput: func() any { return new(PersistInput) },
		Fn:       RunPersist,
	})
	r.RegisterStep("attach_workspace", &registry.StepHandler{
		NewInput: func() any { return new(AttachInput) },
		Fn:       RunAttach,
	})
}
