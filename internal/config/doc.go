// Package config defines the format-agnostic model of a pipeline definition.
//
// The model is produced by a format-specific loader (see internal/hcl) and
// consumed by the graph builder and the executor. Once a run has started the
// model is treated as immutable.
package config
