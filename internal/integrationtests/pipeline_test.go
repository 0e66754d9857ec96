package integrationtests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vk/pipeforge/internal/coverage"
	"github.com/vk/pipeforge/internal/report"
	"github.com/vk/pipeforge/internal/testutil"
)

// readReport decodes the report.yaml a run leaves next to its artifacts.
func readReport(t *testing.T, result *testutil.HarnessResult) *report.Report {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(result.ArtifactsDir, "report.yaml"))
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, yaml.Unmarshal(data, &rep))
	return &rep
}

func jobStatus(t *testing.T, rep *report.Report, id string) string {
	t.Helper()
	for _, j := range rep.Jobs {
		if j.ID == id {
			return j.Status
		}
	}
	t.Fatalf("job %q not present in report", id)
	return ""
}

func TestFullPipeline(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"src/hello.txt": "hello world\n",
		"pipeline/main.hcl": `
job "build" {
  step "checkout" {}
  step "run" {
    name    = "package"
    command = "mkdir -p dist && cp hello.txt dist/app"
  }
  step "persist_to_workspace" {
    paths = ["dist"]
  }
}

job "test" {
  step "attach_workspace" {}
  step "run" {
    command = "test -f dist/app"
  }
  step "run" {
    command = "echo '{\"files\": {\"hello.go\": [1, 2, 5]}}' > coverage.json"
  }
  step "store_coverage" {
    path = "coverage.json"
  }
  step "store_artifacts" {
    path = "dist"
  }
}

aggregator "coverage" {
  sources = ["test"]
  output  = "merged.json"
}

workflow "main" {
  job "build" {}
  job "test" {
    requires = ["build"]
  }
  job "coverage" {
    requires = ["test"]
  }
}
`,
	}

	result := testutil.RunPipelineTest(t, files)
	require.NoError(t, result.Err, "logs:\n%s", result.LogOutput)

	rep := readReport(t, result)
	assert.Equal(t, "succeeded", rep.Status)
	assert.Equal(t, "test-run", rep.RunID)
	assert.Equal(t, "succeeded", jobStatus(t, rep, "build"))
	assert.Equal(t, "succeeded", jobStatus(t, rep, "test"))
	assert.Equal(t, "succeeded", jobStatus(t, rep, "coverage"))

	// The workspace handoff carried dist/ from build into test, and test
	// stored it as an artifact.
	blob, err := os.ReadFile(filepath.Join(result.ArtifactsDir, "test", "dist", "app"))
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(blob))

	// The aggregator merged the single fragment into the combined report.
	merged, err := os.ReadFile(filepath.Join(result.ArtifactsDir, "coverage", "merged.json"))
	require.NoError(t, err)
	frag, err := coverage.ParseFragment(merged)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 5}, frag.Files["hello.go"])
}

func TestFailureSkipsDownstream(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"pipeline/main.hcl": `
job "broken" {
  step "run" {
    command = "exit 1"
  }
}

job "child" {
  step "run" {
    command = "echo never"
  }
}

job "island" {
  step "run" {
    command = "echo fine"
  }
}

workflow "main" {
  job "broken" {}
  job "child" {
    requires = ["broken"]
  }
  job "island" {}
}
`,
	}

	result := testutil.RunPipelineTest(t, files)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "1 failed")
	assert.Contains(t, result.Err.Error(), "1 skipped")

	rep := readReport(t, result)
	assert.Equal(t, "failed", rep.Status)
	assert.Equal(t, "failed", jobStatus(t, rep, "broken"))
	assert.Equal(t, "skipped", jobStatus(t, rep, "child"))
	assert.Equal(t, "succeeded", jobStatus(t, rep, "island"))
}

func TestArtifactsSurviveFailure(t *testing.T) {
	t.Parallel()

	// store_artifacts stays best-effort after a failed step, so the log
	// written before the failure is still collected.
	files := map[string]string{
		"pipeline/main.hcl": `
job "flaky" {
  step "run" {
    command = "echo some diagnostics > build.log"
  }
  step "run" {
    command = "exit 7"
  }
  step "store_artifacts" {
    path = "build.log"
  }
}

workflow "main" {
  job "flaky" {}
}
`,
	}

	result := testutil.RunPipelineTest(t, files)
	require.Error(t, result.Err)

	blob, err := os.ReadFile(filepath.Join(result.ArtifactsDir, "flaky", "build.log"))
	require.NoError(t, err)
	assert.Equal(t, "some diagnostics\n", string(blob))
}

func TestTimedOutJob(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"pipeline/main.hcl": `
job "slow" {
  timeout = "300ms"

  step "run" {
    command = "sleep 10"
  }
}

job "after" {
  step "run" {
    command = "echo never"
  }
}

workflow "main" {
  job "slow" {}
  job "after" {
    requires = ["slow"]
  }
}
`,
	}

	result := testutil.RunPipelineTest(t, files)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "1 timed out")

	rep := readReport(t, result)
	assert.Equal(t, "timed-out", jobStatus(t, rep, "slow"))
	assert.Equal(t, "skipped", jobStatus(t, rep, "after"))
}

func TestSkippedSourceFailsAggregator(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"pipeline/main.hcl": `
job "broken" {
  step "run" {
    command = "exit 1"
  }
}

job "test" {
  step "run" {
    command = "echo '{\"files\": {\"a.go\": [1]}}' > coverage.json"
  }
  step "store_coverage" {
    path = "coverage.json"
  }
}

aggregator "coverage" {
  sources = ["test"]
}

workflow "main" {
  job "broken" {}
  job "test" {
    requires = ["broken"]
  }
  job "coverage" {
    requires = ["test"]
  }
}
`,
	}

	result := testutil.RunPipelineTest(t, files)
	require.Error(t, result.Err)

	rep := readReport(t, result)
	assert.Equal(t, "skipped", jobStatus(t, rep, "test"))
	// The aggregator runs and fails itself instead of silently skipping.
	assert.Equal(t, "failed", jobStatus(t, rep, "coverage"))

	_, err := os.Stat(filepath.Join(result.ArtifactsDir, "coverage", "coverage-merged.json"))
	assert.True(t, os.IsNotExist(err), "no partial merge may be emitted")
}

func TestInvalidPipelineRejectedAtStartup(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"pipeline/main.hcl": `
job "build" {
  step "run" {
    command = "echo hi"
  }
}
`,
	}

	result := testutil.RunPipelineTest(t, files)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "startup panicked")
	assert.Contains(t, result.Err.Error(), "no workflow block")
}

func TestCycleRejectedBeforeExecution(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"pipeline/main.hcl": `
job "a" {
  step "run" { command = "echo a" }
}
job "b" {
  step "run" { command = "echo b" }
}

workflow "main" {
  job "a" {
    requires = ["b"]
  }
  job "b" {
    requires = ["a"]
  }
}
`,
	}

	result := testutil.RunPipelineTest(t, files)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "cycle detected")
	assert.NotContains(t, result.LogOutput, "Starting job", "no job may start on an invalid graph")
}
