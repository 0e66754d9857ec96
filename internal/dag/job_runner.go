package dag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/pipeforge/internal/cachestore"
	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/registry"
)

// cacheKeySchema extracts the engine-level `key` attribute from cache
// steps, so key templates resolve eagerly at job start.
var cacheKeySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{{Name: "key"}},
}

// executeJobNode runs one job: working directory setup, eager cache-key
// resolution, then the ordered step sequence. Steps after a failure are
// not executed, with the exception of store_artifacts steps, which stay
// best-effort so diagnostics survive.
func (e *Executor) executeJobNode(ctx context.Context, node *Node) error {
	job := node.Job
	logger := ctxlog.FromContext(ctx).With("job", node.ID)
	logger.Info("▶️ Starting job", "executor", job.Executor, "steps", len(job.Steps))

	prof, ok := e.registry.Profiles[job.Executor]
	if !ok {
		return fmt.Errorf("unknown executor profile %q", job.Executor)
	}

	workDir := filepath.Join(e.run.WorkRoot, node.ID)
	if job.WorkingDir != "" {
		workDir = filepath.Join(workDir, job.WorkingDir)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("creating working directory: %w", err)
	}

	evalCtx := e.buildEvalContext(node)

	resolvedKeys, err := e.resolveCacheKeys(ctx, node, evalCtx)
	if err != nil {
		// Key computation failure is a job-local error, never a silent
		// cache bypass.
		return err
	}

	sc := &registry.StepContext{
		Job:          job,
		JobID:        node.ID,
		WorkDir:      workDir,
		SourceDir:    e.run.SourceDir,
		ResolvedKeys: resolvedKeys,
		EvalCtx:      evalCtx,
		Profile:      prof,
		Services:     e.services,
		Output:       e.run.StepOutput,
	}

	var jobErr error
	for i, step := range job.Steps {
		if jobErr != nil && step.Kind != "store_artifacts" {
			continue
		}

		stepLogger := logger.With("step", i, "kind", step.Kind)
		handler, ok := e.registry.Steps[step.Kind]
		if !ok {
			jobErr = &StepError{Kind: step.Kind, Index: i, Err: fmt.Errorf("unknown step kind")}
			continue
		}

		var input any
		if handler.NewInput != nil {
			input = handler.NewInput()
			body := step.Arguments
			if body == nil {
				body = hcl.EmptyBody()
			}
			if diags := gohcl.DecodeBody(body, evalCtx, input); diags.HasErrors() {
				jobErr = &StepError{Kind: step.Kind, Index: i, Err: diags}
				continue
			}
		}

		stepLogger.Debug("Running step.")
		if err := handler.Fn(ctx, sc, input); err != nil {
			stepLogger.Error("Step failed.", "error", err)
			if jobErr == nil {
				jobErr = &StepError{Kind: step.Kind, Index: i, Err: err}
			}
			continue
		}
		stepLogger.Debug("Step finished.")
	}

	if jobErr != nil {
		return jobErr
	}
	logger.Info("✅ Finished job")
	return nil
}

// resolveCacheKeys expands every cache-key template the job declares,
// before any step runs. Checksums resolve against the source tree, which
// is stable for the whole run.
func (e *Executor) resolveCacheKeys(ctx context.Context, node *Node, evalCtx *hcl.EvalContext) (map[string]string, error) {
	logger := ctxlog.FromContext(ctx).With("job", node.ID)
	resolved := make(map[string]string)

	for i, step := range node.Job.Steps {
		if step.Kind != "restore_cache" && step.Kind != "save_cache" {
			continue
		}
		if step.Arguments == nil {
			return nil, &StepError{Kind: step.Kind, Index: i, Err: fmt.Errorf("missing required attribute key")}
		}
		content, _, diags := step.Arguments.PartialContent(cacheKeySchema)
		if diags.HasErrors() {
			return nil, &StepError{Kind: step.Kind, Index: i, Err: diags}
		}
		attr, ok := content.Attributes["key"]
		if !ok {
			return nil, &StepError{Kind: step.Kind, Index: i, Err: fmt.Errorf("missing required attribute key")}
		}
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, &StepError{Kind: step.Kind, Index: i, Err: diags}
		}
		if val.Type() != cty.String {
			return nil, &StepError{Kind: step.Kind, Index: i, Err: fmt.Errorf("key must be a string")}
		}

		template := val.AsString()
		if _, done := resolved[template]; done {
			continue
		}
		key, err := cachestore.ResolveKey(template, e.run.SourceDir)
		if err != nil {
			return nil, &StepError{Kind: step.Kind, Index: i, Err: err}
		}
		logger.Debug("Resolved cache key.", "template", template, "key", key)
		resolved[template] = key
	}
	return resolved, nil
}

// buildEvalContext exposes run and job metadata plus the process
// environment to step argument expressions.
func (e *Executor) buildEvalContext(node *Node) *hcl.EvalContext {
	env := os.Environ()
	sort.Strings(env)
	envVals := make(map[string]cty.Value, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				envVals[kv[:i]] = cty.StringVal(kv[i+1:])
				break
			}
		}
	}
	envMap := cty.MapValEmpty(cty.String)
	if len(envVals) > 0 {
		envMap = cty.MapVal(envVals)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"job": cty.ObjectVal(map[string]cty.Value{
				"name":  cty.StringVal(node.Job.Name),
				"image": cty.StringVal(node.Job.Image),
			}),
			"run": cty.ObjectVal(map[string]cty.Value{
				"id": cty.StringVal(e.run.RunID),
			}),
			"env": envMap,
		},
	}
}
