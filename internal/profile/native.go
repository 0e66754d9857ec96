package profile

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Native runs commands directly on the host, without any containerization.
type Native struct{}

// NewNative returns the host execution profile.
func NewNative() *Native {
	return &Native{}
}

// Name implements Profile.
func (p *Native) Name() string { return "native" }

// Exec implements Profile.
func (p *Native) Exec(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, "sh", "-c", cmd.Script)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	if err := c.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("command %q: %w", cmd.Script, err)
	}
	return nil
}
