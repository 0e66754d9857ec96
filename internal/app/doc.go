// Package app wires the pipeline runner together: configuration, logging,
// the step registry, the engine stores, and the run lifecycle.
package app
