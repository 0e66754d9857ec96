// Package testutil provides shared helpers for integration tests: a
// thread-safe log buffer and a harness that runs a full pipeline from an
// in-memory file map.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/pipeforge/internal/app"
	"github.com/vk/pipeforge/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput    string
	Err          error
	App          *app.App
	Config       *app.Config
	ArtifactsDir string
}

// RunPipelineTest provides a standardized harness for running integration
// tests using a default background context.
func RunPipelineTest(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()
	return RunPipelineTestWithContext(context.Background(), t, files)
}

// RunPipelineTestWithContext runs a full pipeline from the given file map.
// Paths under "pipeline/" become the definition; paths under "src/" become
// the source tree jobs check out from. Cache, artifacts, and scratch
// directories live in the test's temporary directory.
func RunPipelineTestWithContext(ctx context.Context, t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for _, sub := range []string{"pipeline", "src"} {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, sub), 0o755))
	}

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	appConfig, err := app.NewConfig(app.Config{
		PipelinePath: filepath.Join(tmpDir, "pipeline"),
		SourceDir:    filepath.Join(tmpDir, "src"),
		WorkDir:      filepath.Join(tmpDir, "work"),
		CacheDir:     filepath.Join(tmpDir, "cache"),
		ArtifactsDir: filepath.Join(tmpDir, "artifacts"),
		RunID:        "test-run",
		LogLevel:     "debug",
		LogFormat:    "text",
		WorkerCount:  4,
	})
	require.NoError(t, err)

	return RunWithConfig(ctx, t, appConfig)
}

// RunWithConfig runs the app against an existing configuration. Startup
// panics are recovered into the result's Err.
func RunWithConfig(ctx context.Context, t *testing.T, appConfig *app.Config) *HarnessResult {
	t.Helper()

	logBuffer := &SafeBuffer{}
	result := &HarnessResult{
		Config:       appConfig,
		ArtifactsDir: filepath.Join(appConfig.ArtifactsDir, appConfig.RunID),
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("startup panicked: %v", r)
			}
		}()
		result.App = app.NewApp(logBuffer, appConfig, hcl.NewLoader())
		result.Err = result.App.Run(ctx)
	}()

	result.LogOutput = logBuffer.String()
	return result
}
