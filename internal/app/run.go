package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vk/pipeforge/internal/artifact"
	"github.com/vk/pipeforge/internal/cachestore"
	"github.com/vk/pipeforge/internal/coverage"
	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/dag"
	"github.com/vk/pipeforge/internal/registry"
	"github.com/vk/pipeforge/internal/report"
	"github.com/vk/pipeforge/internal/workspace"
)

// Run executes one instantiation of the pipeline's workflow.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	runID := a.config.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = ctxlog.With(ctx, "runID", runID)

	a.logger.Debug("Building dependency graph from workflow...")
	graph, err := dag.Build(ctx, a.model)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.setGraph(graph)
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	if a.config.HealthcheckPort > 0 {
		a.startStatusServer(a.config.HealthcheckPort)
	}

	order, err := graph.TopologicalOrder()
	if err != nil {
		return fmt.Errorf("failed to order dependency graph: %w", err)
	}

	if len(graph.Nodes) == 0 {
		a.logger.Warn("No jobs found in workflow, execution not required.")
		return nil
	}

	cacheStore, err := cachestore.Open(cachestore.Config{
		Path:      a.config.CacheDir,
		Namespace: "v1",
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	defer cacheStore.Close()

	artifactStore, err := artifact.New(filepath.Join(a.config.ArtifactsDir, runID))
	if err != nil {
		return err
	}

	workRoot := a.config.WorkDir
	if workRoot == "" {
		workRoot, err = os.MkdirTemp("", "pipeforge-run-*")
		if err != nil {
			return fmt.Errorf("creating scratch directory: %w", err)
		}
	} else {
		workRoot = filepath.Join(workRoot, runID)
		if err := os.MkdirAll(workRoot, 0o755); err != nil {
			return fmt.Errorf("creating scratch directory: %w", err)
		}
	}
	// The scratch tree and the workspace snapshot are scoped to this run.
	defer os.RemoveAll(workRoot)

	workspaceStore := workspace.New()
	fragmentStore := coverage.NewStore()
	services := registry.Services{
		Cache:     cacheStore,
		Workspace: workspaceStore,
		Artifacts: artifactStore,
		Coverage:  fragmentStore,
	}

	a.logger.Info("🚀 Starting concurrent execution...", "workers", a.config.WorkerCount)
	exec := dag.NewExecutor(graph, a.config.WorkerCount, a.registry, services, fragmentStore, dag.RunConfig{
		RunID:      runID,
		SourceDir:  a.config.SourceDir,
		WorkRoot:   workRoot,
		StepOutput: a.outW,
	})
	result := exec.Run(ctx)
	a.logger.Info("🏁 Execution finished.")

	rep := report.Build(a.model.Workflow.Name, result, order, artifactStore.List())
	rep.WriteText(a.outW)
	if err := a.writeReportFile(rep, artifactStore.Root()); err != nil {
		a.logger.Warn("Failed to write report file.", "error", err)
	}

	if result.Failed() {
		counts := result.Counts()
		return fmt.Errorf("run %s failed: %d failed, %d timed out, %d skipped",
			runID, counts[dag.Failed], counts[dag.TimedOut], counts[dag.Skipped])
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) writeReportFile(rep *report.Report, dir string) error {
	f, err := os.Create(filepath.Join(dir, "report.yaml"))
	if err != nil {
		return err
	}
	defer f.Close()
	return rep.WriteYAML(f)
}
