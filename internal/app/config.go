package app

import (
	"errors"
	"path/filepath"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// PipelinePath is a .hcl file or a directory of .hcl files.
	PipelinePath string
	// SourceDir is the source tree checkout steps copy from and cache key
	// checksums resolve against.
	SourceDir string
	// WorkDir is the scratch root; each run gets its own subdirectory,
	// removed when the run ends.
	WorkDir string
	// CacheDir is the persistent, cross-run cache store location.
	CacheDir string
	// ArtifactsDir is where per-run artifacts and the report are kept.
	ArtifactsDir string
	// RunID overrides the generated run identifier. Used by tests.
	RunID string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.SourceDir == "" {
		cfg.SourceDir = "."
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(".pipeforge", "cache")
	}
	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = filepath.Join(".pipeforge", "artifacts")
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return &cfg, nil
}
