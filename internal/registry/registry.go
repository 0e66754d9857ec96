package registry

import (
	"context"

	"github.com/vk/pipeforge/internal/profile"
)

// Module is the interface that all step modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// StepHandler binds a step kind to its Go implementation. NewInput returns
// a pointer to the kind's argument struct (decoded from the step body by
// the executor), or nil for kinds that take no arguments.
type StepHandler struct {
	NewInput func() any
	Fn       func(ctx context.Context, sc *StepContext, input any) error
}

// Registry holds all registered step handlers and execution profiles for a
// single application instance.
type Registry struct {
	Steps    map[string]*StepHandler
	Profiles map[string]profile.Profile
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		Steps:    make(map[string]*StepHandler),
		Profiles: make(map[string]profile.Profile),
	}
}

// RegisterStep registers a handler for the given step kind, replacing any
// previous registration.
func (r *Registry) RegisterStep(kind string, h *StepHandler) {
	r.Steps[kind] = h
}

// RegisterProfile registers an execution profile under its own name.
func (r *Registry) RegisterProfile(p profile.Profile) {
	r.Profiles[p.Name()] = p
}
