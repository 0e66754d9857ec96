package dag

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipeforge/internal/artifact"
	"github.com/vk/pipeforge/internal/config"
	"github.com/vk/pipeforge/internal/coverage"
	"github.com/vk/pipeforge/internal/profile"
	"github.com/vk/pipeforge/internal/registry"
)

// newTestRegistry registers synthetic step kinds that exercise scheduler
// behavior without external commands.
func newTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterProfile(profile.NewNative())
	reg.RegisterStep("succeed", &registry.StepHandler{
		Fn: func(ctx context.Context, sc *registry.StepContext, _ any) error {
			return nil
		},
	})
	reg.RegisterStep("explode", &registry.StepHandler{
		Fn: func(ctx context.Context, sc *registry.StepContext, _ any) error {
			return errors.New("boom")
		},
	})
	reg.RegisterStep("block", &registry.StepHandler{
		Fn: func(ctx context.Context, sc *registry.StepContext, _ any) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Second):
				return errors.New("block step was never canceled")
			}
		},
	})
	reg.RegisterStep("emit_fragment", &registry.StepHandler{
		Fn: func(ctx context.Context, sc *registry.StepContext, _ any) error {
			return sc.Services.Coverage.Put(sc.JobID, []byte(`{"files": {"`+sc.JobID+`.go": [1, 2, 3]}}`))
		},
	})
	return reg
}

func withSteps(model *config.Model, kinds map[string][]string) *config.Model {
	for name, ks := range kinds {
		job := model.Jobs[name]
		for _, k := range ks {
			job.Steps = append(job.Steps, &config.Step{Kind: k})
		}
	}
	return model
}

func runTestGraph(t *testing.T, model *config.Model, workers int) *Result {
	t.Helper()
	graph, err := Build(context.Background(), model)
	require.NoError(t, err)

	fragments := coverage.NewStore()
	artifacts, err := artifact.New(t.TempDir())
	require.NoError(t, err)

	exec := NewExecutor(graph, workers, newTestRegistry(), registry.Services{
		Artifacts: artifacts,
		Coverage:  fragments,
	}, fragments, RunConfig{
		RunID:      "test-run",
		SourceDir:  t.TempDir(),
		WorkRoot:   t.TempDir(),
		StepOutput: io.Discard,
	})
	return exec.Run(context.Background())
}

func TestExecutor_AllSucceed(t *testing.T) {
	t.Parallel()
	model := withSteps(testModel(nil,
		wj("build"),
		wj("test-unit", "build"),
		wj("test-e2e", "build"),
		wj("package", "test-unit", "test-e2e"),
	), map[string][]string{
		"build":     {"succeed"},
		"test-unit": {"succeed"},
		"test-e2e":  {"succeed"},
		"package":   {"succeed"},
	})

	result := runTestGraph(t, model, 4)

	assert.False(t, result.Failed())
	for id, jr := range result.Jobs {
		assert.Equal(t, Succeeded, jr.Status, "job %s", id)
		assert.NoError(t, jr.Err, "job %s", id)
	}
}

func TestExecutor_FailureSkipsTransitively(t *testing.T) {
	t.Parallel()
	model := withSteps(testModel(nil,
		wj("ok"),
		wj("broken"),
		wj("child", "ok", "broken"),
		wj("grandchild", "child"),
	), map[string][]string{
		"ok":         {"succeed"},
		"broken":     {"explode"},
		"child":      {"succeed"},
		"grandchild": {"succeed"},
	})

	result := runTestGraph(t, model, 2)

	assert.True(t, result.Failed())
	assert.Equal(t, Succeeded, result.Jobs["ok"].Status)
	assert.Equal(t, Failed, result.Jobs["broken"].Status)
	assert.Equal(t, Skipped, result.Jobs["child"].Status)
	assert.Equal(t, Skipped, result.Jobs["grandchild"].Status)

	var stepErr *StepError
	require.ErrorAs(t, result.Jobs["broken"].Err, &stepErr)
	assert.Equal(t, "explode", stepErr.Kind)

	// Skip reasons always point back at the job whose failure started the
	// chain, not the intermediate skipped dependency.
	var skip *SkipError
	require.ErrorAs(t, result.Jobs["child"].Err, &skip)
	assert.Equal(t, "broken", skip.Ancestor)
	require.ErrorAs(t, result.Jobs["grandchild"].Err, &skip)
	assert.Equal(t, "broken", skip.Ancestor)

	counts := result.Counts()
	assert.Equal(t, 1, counts[Succeeded])
	assert.Equal(t, 1, counts[Failed])
	assert.Equal(t, 2, counts[Skipped])
}

func TestExecutor_IndependentBranchesContinue(t *testing.T) {
	t.Parallel()
	model := withSteps(testModel(nil,
		wj("broken"),
		wj("island"),
		wj("downstream", "island"),
	), map[string][]string{
		"broken":     {"explode"},
		"island":     {"succeed"},
		"downstream": {"succeed"},
	})

	result := runTestGraph(t, model, 1)

	assert.True(t, result.Failed())
	assert.Equal(t, Failed, result.Jobs["broken"].Status)
	assert.Equal(t, Succeeded, result.Jobs["island"].Status)
	assert.Equal(t, Succeeded, result.Jobs["downstream"].Status)
}

func TestExecutor_Timeout(t *testing.T) {
	t.Parallel()
	model := withSteps(testModel(nil,
		wj("slow"),
		wj("after", "slow"),
	), map[string][]string{
		"slow":  {"block"},
		"after": {"succeed"},
	})
	model.Jobs["slow"].Timeout = 50 * time.Millisecond

	result := runTestGraph(t, model, 2)

	assert.True(t, result.Failed())
	assert.Equal(t, TimedOut, result.Jobs["slow"].Status)
	assert.Equal(t, Skipped, result.Jobs["after"].Status)
	require.Error(t, result.Jobs["slow"].Err)
	assert.ErrorIs(t, result.Jobs["slow"].Err, context.DeadlineExceeded)
}

func TestExecutor_RunCancellation(t *testing.T) {
	t.Parallel()
	model := withSteps(testModel(nil, wj("only")), map[string][]string{
		"only": {"succeed"},
	})
	graph, err := Build(context.Background(), model)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fragments := coverage.NewStore()
	exec := NewExecutor(graph, 1, newTestRegistry(), registry.Services{Coverage: fragments}, fragments, RunConfig{
		RunID:      "test-run",
		SourceDir:  t.TempDir(),
		WorkRoot:   t.TempDir(),
		StepOutput: io.Discard,
	})
	result := exec.Run(ctx)

	assert.True(t, result.Failed())
	assert.Equal(t, Failed, result.Jobs["only"].Status)
	assert.ErrorIs(t, result.Jobs["only"].Err, context.Canceled)
}

func TestExecutor_AggregatorMerges(t *testing.T) {
	t.Parallel()
	aggs := map[string]*config.Aggregator{
		"coverage": {Name: "coverage", Sources: []string{"unit", "e2e"}, Output: "merged.json"},
	}
	model := withSteps(testModel(aggs,
		wj("unit"),
		wj("e2e"),
		wj("coverage", "unit", "e2e"),
	), map[string][]string{
		"unit": {"emit_fragment"},
		"e2e":  {"emit_fragment"},
	})

	graph, err := Build(context.Background(), model)
	require.NoError(t, err)

	fragments := coverage.NewStore()
	artifacts, err := artifact.New(t.TempDir())
	require.NoError(t, err)

	exec := NewExecutor(graph, 4, newTestRegistry(), registry.Services{
		Artifacts: artifacts,
		Coverage:  fragments,
	}, fragments, RunConfig{
		RunID:      "test-run",
		SourceDir:  t.TempDir(),
		WorkRoot:   t.TempDir(),
		StepOutput: io.Discard,
	})
	result := exec.Run(context.Background())

	assert.False(t, result.Failed())
	assert.Equal(t, Succeeded, result.Jobs["coverage"].Status)

	blob, err := artifacts.Get("coverage", "merged.json")
	require.NoError(t, err)
	merged, err := coverage.ParseFragment(blob)
	require.NoError(t, err)
	assert.Len(t, merged.Files, 2)
	assert.Equal(t, []int{1, 2, 3}, merged.Files["unit.go"])
}

func TestExecutor_AggregatorFailsOnSkippedSource(t *testing.T) {
	t.Parallel()
	aggs := map[string]*config.Aggregator{
		"coverage": {Name: "coverage", Sources: []string{"unit", "e2e"}, Output: "merged.json"},
	}
	model := withSteps(testModel(aggs,
		wj("broken"),
		wj("unit"),
		wj("e2e", "broken"),
		wj("coverage", "unit", "e2e"),
	), map[string][]string{
		"broken": {"explode"},
		"unit":   {"emit_fragment"},
		"e2e":    {"emit_fragment"},
	})

	result := runTestGraph(t, model, 4)

	assert.True(t, result.Failed())
	assert.Equal(t, Skipped, result.Jobs["e2e"].Status)
	// The aggregator runs rather than skipping, and fails itself.
	assert.Equal(t, Failed, result.Jobs["coverage"].Status)

	var aggErr *AggregationError
	require.ErrorAs(t, result.Jobs["coverage"].Err, &aggErr)
	assert.Equal(t, []string{"e2e"}, aggErr.Missing)
}

func TestExecutor_AggregatorFailsOnMissingFragment(t *testing.T) {
	t.Parallel()
	aggs := map[string]*config.Aggregator{
		"coverage": {Name: "coverage", Sources: []string{"silent"}, Output: "merged.json"},
	}
	model := withSteps(testModel(aggs,
		wj("silent"),
		wj("coverage", "silent"),
	), map[string][]string{
		"silent": {"succeed"},
	})

	result := runTestGraph(t, model, 2)

	assert.Equal(t, Succeeded, result.Jobs["silent"].Status)
	assert.Equal(t, Failed, result.Jobs["coverage"].Status)

	var aggErr *AggregationError
	require.ErrorAs(t, result.Jobs["coverage"].Err, &aggErr)
	assert.Equal(t, []string{"silent"}, aggErr.Missing)
}

func TestExecutor_UnknownStepKind(t *testing.T) {
	t.Parallel()
	model := withSteps(testModel(nil, wj("odd")), map[string][]string{
		"odd": {"no_such_kind"},
	})

	result := runTestGraph(t, model, 1)

	assert.Equal(t, Failed, result.Jobs["odd"].Status)
	var stepErr *StepError
	require.ErrorAs(t, result.Jobs["odd"].Err, &stepErr)
	assert.Contains(t, stepErr.Error(), "unknown step kind")
}
