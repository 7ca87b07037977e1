package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/dockshift/internal/runner"
)

// Engine runs docker engine commands.
type Engine struct {
	Runner runner.Runner
}

// NewEngine creates an Engine on r.
func NewEngine(r runner.Runner) *Engine {
	return &Engine{Runner: r}
}

// ServerVersion returns the daemon version.
func (e *Engine) ServerVersion(ctx context.Context) (string, error) {
	out, err := runner.Output(ctx, e.Runner, runner.Cmd("docker", "version", "--format", "{{.Server.Version}}"))
	if err != nil {
		return "", fmt.Errorf("failed to query docker version: %w", err)
	}
	return out, nil
}

// VersionReport returns the full `docker version` text.
func (e *Engine) VersionReport(ctx context.Context) (string, error) {
	return e.listing(ctx, "version")
}

// Containers returns the `docker ps -a` listing.
func (e *Engine) Containers(ctx context.Context) (string, error) {
	return e.listing(ctx, "ps", "-a")
}

// Images returns the `docker images` listing.
func (e *Engine) Images(ctx context.Context) (string, error) {
	return e.listing(ctx, "images")
}

// Networks returns the `docker network ls` listing.
func (e *Engine) Networks(ctx context.Context) (string, error) {
	return e.listing(ctx, "network", "ls")
}

func (e *Engine) listing(ctx context.Context, args ...string) (string, error) {
	res, err := e.Runner.Run(ctx, runner.Cmd("docker", args...))
	if err != nil {
		return "", fmt.Errorf("docker %s failed: %w", strings.Join(args, " "), err)
	}
	return res.Stdout, nil
}

// CreateNetwork creates a bridge network.
func (e *Engine) CreateNetwork(ctx context.Context, name string) error {
	if _, err := e.Runner.Run(ctx, runner.Cmd("docker", "network", "create", name)); err != nil {
		return fmt.Errorf("failed to create network %s: %w", name, err)
	}
	return nil
}

// RemoveNetwork removes a network; a missing network is not an error.
func (e *Engine) RemoveNetwork(ctx context.Context, name string) error {
	res, err := e.Runner.Run(ctx, runner.Cmd("docker", "network", "rm", name))
	if err != nil && !isNotFound(res) {
		return fmt.Errorf("failed to remove network %s: %w", name, err)
	}
	return nil
}

// RunOptions describe a throwaway container.
type RunOptions struct {
	Name    string
	Image   string
	Network string
	// GPUs is passed to --gpus when set.
	GPUs    string
	Command []string
}

// RunContainer runs a container to completion without pulling and returns
// its output. The container is removed on exit.
func (e *Engine) RunContainer(ctx context.Context, opts RunOptions) (string, error) {
	args := []string{"run", "--rm", "--pull", "never"}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	if opts.Network != "" {
		args = append(args, "--network", opts.Network)
	}
	if opts.GPUs != "" {
		args = append(args, "--gpus", opts.GPUs)
	}
	args = append(args, opts.Image)
	args = append(args, opts.Command...)

	res, err := e.Runner.Run(ctx, runner.Cmd("docker", args...))
	if err != nil {
		return res.Combined(), fmt.Errorf("container %s failed: %w", opts.Image, err)
	}
	return res.Combined(), nil
}

// RemoveContainer force-removes a container; a missing one is not an error.
func (e *Engine) RemoveContainer(ctx context.Context, name string) error {
	res, err := e.Runner.Run(ctx, runner.Cmd("docker", "rm", "-f", name))
	if err != nil && !isNotFound(res) {
		return fmt.Errorf("failed to remove container %s: %w", name, err)
	}
	return nil
}

func isNotFound(res runner.Result) bool {
	s := strings.ToLower(res.Stderr + res.Stdout)
	return strings.Contains(s, "no such") || strings.Contains(s, "not found")
}
