// Package profile defines the execution-profile contract: the pluggable
// mechanism that actually runs a job's external commands. Profiles differ
// only in how a command is launched (directly on the host, inside a
// container); scheduling semantics never branch on profile identity.
package profile

import (
	"context"
	"io"
)

// Command describes one external command to execute on behalf of a step.
type Command struct {
	// Script is a shell command line, run via `sh -c`.
	Script string
	// Dir is the working directory for the command.
	Dir string
	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
	// Image is the container image descriptor. Ignored by host profiles;
	// container profiles treat it as opaque.
	Image string
	// Stdout and Stderr receive the command's output.
	Stdout io.Writer
	Stderr io.Writer
}

// Profile executes commands for jobs that selected it. Implementations must
// be safe for concurrent use, honor context cancellation, and return a
// non-nil error for any nonzero exit.
type Profile interface {
	Name() string
	Exec(ctx context.Context, cmd Command) error
}
