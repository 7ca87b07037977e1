// Package toolkit drives the NVIDIA container toolkit's runtime
// integration (nvidia-ctk) for the engine and containerd.
package toolkit

import (
	"context"
	"fmt"

	"github.com/imamik/dockshift/internal/runner"
)

// Runtimes configured after a toolkit transition, engine first.
const (
	RuntimeDocker     = "docker"
	RuntimeContainerd = "containerd"
)

// CLI runs nvidia-ctk.
type CLI struct {
	Runner runner.Runner
	Binary string
}

// New creates a CLI for the given binary, defaulting to nvidia-ctk.
func New(r runner.Runner, binary string) *CLI {
	if binary == "" {
		binary = "nvidia-ctk"
	}
	return &CLI{Runner: r, Binary: binary}
}

// Configure registers the nvidia runtime with the named container runtime.
// For containerd the runtime is written to configPath when set.
func (c *CLI) Configure(ctx context.Context, rt, configPath string) error {
	args := []string{"runtime", "configure", "--runtime=" + rt}
	if configPath != "" {
		args = append(args, "--config="+configPath)
	}
	if _, err := c.Runner.Run(ctx, runner.Cmd(c.Binary, args...)); err != nil {
		return fmt.Errorf("nvidia-ctk runtime configure for %s failed: %w", rt, err)
	}
	return nil
}
