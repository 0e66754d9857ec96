package dag

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/vk/pipeforge/internal/coverage"
	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/registry"
)

// RunConfig carries the per-run parameters the executor needs beyond the
// graph itself.
type RunConfig struct {
	// RunID identifies this run in logs and scratch paths.
	RunID string
	// SourceDir is the checked-out source tree jobs start from. Cache key
	// checksums resolve against it.
	SourceDir string
	// WorkRoot is the scratch directory; each job gets an isolated
	// subdirectory beneath it.
	WorkRoot string
	// StepOutput receives the stdout/stderr of external step commands.
	StepOutput io.Writer
}

// Executor walks a validated graph with a bounded worker pool.
type Executor struct {
	Graph *Graph

	numWorkers int
	registry   *registry.Registry
	services   registry.Services
	fragments  *coverage.Store
	run        RunConfig

	wg sync.WaitGroup
}

// NewExecutor assembles an executor for one run.
func NewExecutor(graph *Graph, workers int, reg *registry.Registry, services registry.Services, fragments *coverage.Store, run RunConfig) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		Graph:      graph,
		numWorkers: workers,
		registry:   reg,
		services:   services,
		fragments:  fragments,
		run:        run,
	}
}

// Run executes the entire graph concurrently and returns the terminal
// state of every node. A failed job never aborts independent branches;
// its transitive dependents end up skipped.
func (e *Executor) Run(ctx context.Context) *Result {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *Node, len(e.Graph.Nodes))

	logger.Debug("Initializing executor, finding root nodes...")
	rootNodeCount := 0
	for _, node := range e.Graph.Nodes {
		if node.depCount.Load() == 0 {
			logger.Debug("Found root node.", "nodeID", node.ID)
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.Graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	logger.Info("Waiting for all jobs to complete...")
	e.wg.Wait()
	close(readyChan)
	logger.Info("All jobs completed.")

	return e.collectResult()
}

// worker is the processing loop of a single concurrent worker. Every node
// passes through the ready channel exactly once, after its last dependency
// reached a terminal state.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		e.dispatch(ctx, node, workerID)

		for _, dependent := range node.Dependents {
			if dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// dispatch decides a node's fate now that all its dependencies are
// terminal, and leaves the node in a terminal state itself.
func (e *Executor) dispatch(ctx context.Context, node *Node, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID, "nodeID", node.ID)

	if ctx.Err() != nil {
		logger.Warn("Run canceled, job not executed.")
		node.Err = ctx.Err()
		node.setStatus(Failed)
		return
	}

	// The dispatch gate: ordinary jobs skip when any dependency did not
	// succeed; aggregators run regardless and report their own
	// missing-fragment failure.
	if blocker := firstBlocker(node); blocker != nil && node.Kind == JobNode {
		ancestor := rootCause(blocker)
		logger.Warn("Skipping job due to upstream failure.", "ancestor", ancestor)
		node.Err = &SkipError{Ancestor: ancestor}
		node.setStatus(Skipped)
		return
	}

	logger.Debug("Worker picked up node for execution.")
	node.StartedAt = time.Now()
	node.setStatus(Running)

	var err error
	switch node.Kind {
	case JobNode:
		err = e.runWithTimeout(ctx, node)
	case AggregatorNode:
		err = e.executeAggregatorNode(ctx, node)
	}
	node.FinishedAt = time.Now()

	if err != nil {
		node.Err = err
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			logger.Error("Job exceeded its timeout.", "timeout", node.Job.Timeout)
			node.setStatus(TimedOut)
		} else {
			logger.Error("Job execution failed.", "error", err)
			node.setStatus(Failed)
		}
		return
	}

	logger.Debug("Job execution succeeded.")
	node.setStatus(Succeeded)
}

// runWithTimeout applies the job's wall-clock limit, if configured.
func (e *Executor) runWithTimeout(ctx context.Context, node *Node) error {
	if node.Job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, node.Job.Timeout)
		defer cancel()
	}
	return e.executeJobNode(ctx, node)
}

// firstBlocker returns a dependency that did not succeed, or nil.
func firstBlocker(node *Node) *Node {
	for _, dep := range sortedNodes(node.Deps) {
		if dep.Status() != Succeeded {
			return dep
		}
	}
	return nil
}

// rootCause walks a skip chain back to the job whose failure started it.
func rootCause(node *Node) string {
	for {
		var skip *SkipError
		if node.Status() == Skipped && errors.As(node.Err, &skip) {
			next, ok := node.Deps[skip.Ancestor]
			if !ok {
				return skip.Ancestor
			}
			node = next
			continue
		}
		return node.ID
	}
}

func (e *Executor) collectResult() *Result {
	result := &Result{
		RunID: e.run.RunID,
		Jobs:  make(map[string]*JobResult, len(e.Graph.Nodes)),
	}
	for id, node := range e.Graph.Nodes {
		result.Jobs[id] = &JobResult{
			ID:       id,
			Status:   node.Status(),
			Err:      node.Err,
			Duration: node.Duration(),
		}
	}
	return result
}
