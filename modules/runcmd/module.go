// Package runcmd implements the run step: one opaque external command
// executed through the job's execution profile. The engine only observes
// the command's exit status.
package runcmd

import (
	"context"

	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/profile"
	"github.com/vk/pipeforge/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the run step.
type Input struct {
	Name    string   `hcl:"name,optional"`
	Command string   `hcl:"command"`
	Env     []string `hcl:"env,optional"`
}

// RunCommand executes the configured command line via the job's profile.
func RunCommand(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx)
	if in.Name != "" {
		logger.Info("▶️ " + in.Name)
	}

	return sc.Profile.Exec(ctx, profile.Command{
		Script: in.Command,
		Dir:    sc.WorkDir,
		Env:    in.Env,
		Image:  sc.Job.Image,
		Stdout: sc.Output,
		Stderr: sc.Output,
	})
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("run", &registry.StepHandler{
		NewInput: func() any { return new(Input) },
		Fn:       RunCommand,
	})
}
