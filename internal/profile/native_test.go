package profile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNative_Exec(t *testing.T) {
	t.Parallel()
	p := NewNative()
	assert.Equal(t, "native", p.Name())

	t.Run("captures output", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		err := p.Exec(context.Background(), Command{
			Script: "echo hello",
			Dir:    t.TempDir(),
			Stdout: &out,
			Stderr: &out,
		})
		require.NoError(t, err)
		assert.Equal(t, "hello\n", out.String())
	})

	t.Run("runs in the working directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, p.Exec(context.Background(), Command{
			Script: "echo data > out.txt",
			Dir:    dir,
		}))
		data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
		require.NoError(t, err)
		assert.Equal(t, "data\n", string(data))
	})

	t.Run("passes extra environment", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		require.NoError(t, p.Exec(context.Background(), Command{
			Script: "echo $GREETING",
			Dir:    t.TempDir(),
			Env:    []string{"GREETING=hi"},
			Stdout: &out,
		}))
		assert.Equal(t, "hi\n", out.String())
	})

	t.Run("nonzero exit is an error", func(t *testing.T) {
		t.Parallel()
		err := p.Exec(context.Background(), Command{
			Script: "exit 3",
			Dir:    t.TempDir(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `command "exit 3"`)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := p.Exec(ctx, Command{
			Script: "sleep 10",
			Dir:    t.TempDir(),
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestDocker_RequiresImage(t *testing.T) {
	t.Parallel()
	p := NewDocker("")
	assert.Equal(t, "docker", p.Name())

	err := p.Exec(context.Background(), Command{Script: "true", Dir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an image")
}

func TestDocker_BuildsDefaultImage(t *testing.T) {
	t.Parallel()
	p := NewDocker("alpine:3.20")
	assert.Equal(t, "alpine:3.20", p.DefaultImage)
}
