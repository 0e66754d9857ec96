package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipeforge/internal/config"
	"github.com/vk/pipeforge/internal/profile"
)

func modelWith(executor string, kinds ...string) *config.Model {
	job := &config.Job{Name: "build", Executor: executor}
	for _, k := range kinds {
		job.Steps = append(job.Steps, &config.Step{Kind: k})
	}
	return &config.Model{
		Jobs:     map[string]*config.Job{"build": job},
		Workflow: &config.Workflow{Name: "main"},
	}
}

func TestValidateModel(t *testing.T) {
	t.Parallel()
	reg := New()
	reg.RegisterProfile(profile.NewNative())
	reg.RegisterStep("run", &StepHandler{
		Fn: func(ctx context.Context, sc *StepContext, input any) error { return nil },
	})

	t.Run("valid model passes", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, reg.ValidateModel(context.Background(), modelWith("native", "run")))
	})

	t.Run("unknown executor profile", func(t *testing.T) {
		t.Parallel()
		err := reg.ValidateModel(context.Background(), modelWith("kubernetes", "run"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown executor profile "kubernetes"`)
	})

	t.Run("unknown step kind", func(t *testing.T) {
		t.Parallel()
		err := reg.ValidateModel(context.Background(), modelWith("native", "run", "teleport"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown step kind "teleport"`)
	})
}

func TestRegisterProfile(t *testing.T) {
	t.Parallel()
	reg := New()
	reg.RegisterProfile(profile.NewNative())
	reg.RegisterProfile(profile.NewDocker(""))

	assert.Contains(t, reg.Profiles, "native")
	assert.Contains(t, reg.Profiles, "docker")
}
