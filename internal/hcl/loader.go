package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/pipeforge/internal/config"
	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/fsutil"
	"github.com/vk/pipeforge/internal/schema"
)

// Loader loads pipeline definitions written in HCL.
type Loader struct{}

// NewLoader returns a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load implements config.Loader. The path may be a single .hcl file or a
// directory that is searched recursively.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline path %q: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("searching %q for pipeline files: %w", path, err)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl pipeline files found under %q", path)
	}
	logger.Debug("Parsing pipeline definition files.", "count", len(files))

	parser := hclparse.NewParser()
	var bodies []*hcl.File
	for _, f := range files {
		file, diags := parser.ParseHCLFile(f)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", f, diags)
		}
		bodies = append(bodies, file)
	}

	var pc schema.PipelineConfig
	if diags := gohcl.DecodeBody(hcl.MergeFiles(bodies), nil, &pc); diags.HasErrors() {
		return nil, fmt.Errorf("decoding pipeline definition: %w", diags)
	}

	model, err := translate(&pc)
	if err != nil {
		return nil, err
	}
	logger.Debug("Pipeline definition loaded.",
		"jobs", len(model.Jobs), "aggregators", len(model.Aggregators), "workflow", model.Workflow.Name)
	return model, nil
}
