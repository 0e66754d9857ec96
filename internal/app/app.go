package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vk/pipeforge/internal/config"
	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/dag"
	"github.com/vk/pipeforge/internal/profile"
	"github.com/vk/pipeforge/internal/registry"
)

// App encapsulates the runner's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
	config   *Config

	mu    sync.RWMutex
	graph *dag.Graph
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		// A failure to load the pipeline definition is a fatal startup error.
		panic(fmt.Errorf("failed to load pipeline definition: %w", err))
	}
	logger.Debug("Pipeline definition loaded into unified model.")

	reg := registry.New()
	reg.RegisterProfile(profile.NewNative())
	reg.RegisterProfile(profile.NewDocker(""))

	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All step modules registered.", "count", len(modules))

	if err := reg.ValidateModel(ctx, model); err != nil {
		// A mismatch between the definition and the compiled-in step kinds
		// is a startup error.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    model,
		config:   appConfig,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded pipeline model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

func (a *App) setGraph(g *dag.Graph) {
	a.mu.Lock()
	a.graph = g
	a.mu.Unlock()
}

func (a *App) currentGraph() *dag.Graph {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.graph
}
