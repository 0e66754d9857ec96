package profile

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// containerWorkDir is where the job working directory is mounted inside the
// container.
const containerWorkDir = "/workspace"

// Docker runs commands inside a disposable container via the docker CLI.
// The image descriptor is passed through verbatim; the engine never
// interprets it.
type Docker struct {
	// Binary is the docker CLI to invoke. Defaults to "docker".
	Binary string
	// DefaultImage is used when a job declares no image of its own.
	DefaultImage string
}

// NewDocker returns the containerized execution profile.
func NewDocker(defaultImage string) *Docker {
	return &Docker{Binary: "docker", DefaultImage: defaultImage}
}

// Name implements Profile.
func (p *Docker) Name() string { return "docker" }

// Exec implements Profile.
func (p *Docker) Exec(ctx context.Context, cmd Command) error {
	image := cmd.Image
	if image == "" {
		image = p.DefaultImage
	}
	if image == "" {
		return fmt.Errorf("docker profile requires an image for command %q", cmd.Script)
	}

	args := []string{
		"run", "--rm",
		"-v", fmt.Sprintf("%s:%s", cmd.Dir, containerWorkDir),
		"-w", containerWorkDir,
	}
	for _, kv := range cmd.Env {
		args = append(args, "-e", kv)
	}
	args = append(args, image, "sh", "-c", cmd.Script)

	c := exec.CommandContext(ctx, p.Binary, args...)
	c.Env = os.Environ()
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	if err := c.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("command %q in image %q: %w", cmd.Script, image, err)
	}
	return nil
}
