package registry

import (
	"context"
	"io"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/pipeforge/internal/config"
	"github.com/vk/pipeforge/internal/profile"
)

// CacheStore is the step-facing view of the cross-run setup cache.
type CacheStore interface {
	Restore(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, blob []byte) error
}

// WorkspaceStore is the step-facing view of the run-scoped shared
// workspace snapshot.
type WorkspaceStore interface {
	Persist(jobID, root string, paths []string) error
	Attach(jobID, dest string) error
}

// ArtifactStore is the step-facing view of the per-job artifact sink.
type ArtifactStore interface {
	Store(ctx context.Context, jobID, path string, blob []byte) error
	StoreTree(ctx context.Context, jobID, base, path string) error
}

// CoverageStore receives raw coverage fragments emitted by jobs.
type CoverageStore interface {
	Put(jobID string, data []byte) error
}

// Services bundles the engine stores a step handler may touch.
type Services struct {
	Cache     CacheStore
	Workspace WorkspaceStore
	Artifacts ArtifactStore
	Coverage  CoverageStore
}

// StepContext carries everything a step handler needs about the job it is
// running inside. One StepContext is shared by all steps of a job.
type StepContext struct {
	// Job is the immutable definition of the running job.
	Job *config.Job
	// JobID is the node id of the job within the workflow.
	JobID string
	// WorkDir is the job's isolated scratch directory.
	WorkDir string
	// SourceDir is the checked-out source tree the run was started from.
	SourceDir string
	// ResolvedKeys maps cache-key templates to their checksum-resolved
	// form. Populated eagerly at job start.
	ResolvedKeys map[string]string
	// EvalCtx is the HCL evaluation context for step arguments.
	EvalCtx *hcl.EvalContext
	// Profile executes external commands for this job.
	Profile profile.Profile
	// Services are the engine stores.
	Services Services
	// Output receives step stdout/stderr.
	Output io.Writer
}
