// Package containerd wraps the containerd binary (version, default and
// migrated configuration) and probes a running daemon over its socket.
package containerd

import (
	"context"
	"fmt"
	"strings"
	"time"

	containerdclient "github.com/containerd/containerd"

	"github.com/imamik/dockshift/internal/runner"
)

// CLI runs the containerd binary.
type CLI struct {
	Runner runner.Runner
	Binary string
}

// NewCLI creates a CLI using the containerd binary on PATH.
func NewCLI(r runner.Runner) *CLI {
	return &CLI{Runner: r, Binary: "containerd"}
}

// Version returns the installed containerd version without a leading "v".
func (c *CLI) Version(ctx context.Context) (string, error) {
	out, err := runner.Output(ctx, c.Runner, runner.Cmd(c.Binary, "--version"))
	if err != nil {
		return "", fmt.Errorf("failed to query containerd version: %w", err)
	}
	return ParseVersion(out)
}

// DefaultConfig returns the built-in configuration of the installed containerd.
func (c *CLI) DefaultConfig(ctx context.Context) ([]byte, error) {
	res, err := c.Runner.Run(ctx, runner.Cmd(c.Binary, "config", "default"))
	if err != nil {
		return nil, fmt.Errorf("failed to generate default containerd config: %w", err)
	}
	return []byte(res.Stdout), nil
}

// MigrateConfig converts the configuration at path to the schema of the
// installed containerd and returns the result. The file is not modified.
func (c *CLI) MigrateConfig(ctx context.Context, path string) ([]byte, error) {
	res, err := c.Runner.Run(ctx, runner.Cmd(c.Binary, "--config", path, "config", "migrate"))
	if err != nil {
		return nil, fmt.Errorf("failed to migrate containerd config %s: %w", path, err)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return nil, fmt.Errorf("containerd config migrate produced no output")
	}
	return []byte(res.Stdout), nil
}

// ParseVersion extracts the version from `containerd --version` output,
// e.g. "containerd containerd.io 2.2.1 a1b2c3d".
func ParseVersion(out string) (string, error) {
	fields := strings.Fields(out)
	for _, f := range fields[min(1, len(fields)):] {
		v := strings.TrimPrefix(f, "v")
		if v != "" && v[0] >= '0' && v[0] <= '9' && strings.Contains(v, ".") {
			return v, nil
		}
	}
	return "", fmt.Errorf("unrecognized containerd version output %q", out)
}

// ProbeResult is what a running daemon reports about itself.
type ProbeResult struct {
	Version  string
	Revision string
	Serving  bool
}

// Probe connects to the containerd socket.
type Probe struct {
	Socket  string
	Timeout time.Duration
}

// NewProbe creates a probe for socket.
func NewProbe(socket string) *Probe {
	return &Probe{Socket: socket, Timeout: 10 * time.Second}
}

// Check dials the daemon and asks for its version and serving status.
func (p *Probe) Check(ctx context.Context) (ProbeResult, error) {
	client, err := containerdclient.New(p.Socket, containerdclient.WithTimeout(p.Timeout))
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to connect to containerd at %s: %w", p.Socket, err)
	}
	defer client.Close()

	serving, err := client.IsServing(ctx)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("containerd health check failed: %w", err)
	}
	v, err := client.Version(ctx)
	if err != nil {
		return ProbeResult{Serving: serving}, fmt.Errorf("failed to query containerd version: %w", err)
	}
	return ProbeResult{
		Version:  strings.TrimPrefix(v.Version, "v"),
		Revision: v.Revision,
		Serving:  serving,
	}, nil
}
