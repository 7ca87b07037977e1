package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// LocalRunner runs commands on this machine.
type LocalRunner struct {
	// Timeout bounds each command. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// NewLocal creates a runner for the local host.
func NewLocal(timeout time.Duration) *LocalRunner {
	return &LocalRunner{Timeout: timeout}
}

// Run implements Runner.
func (l *LocalRunner) Run(ctx context.Context, c Command) (Result, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	// #nosec G204 - command names come from fixed collaborator definitions
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s: %w", c, ctx.Err())
		}
		return res, &ExitError{Command: c, Result: res}
	}
	return res, fmt.Errorf("failed to run %s: %w", c, err)
}

// Local implements Runner.
func (l *LocalRunner) Local() bool { return true }

// Target implements Runner.
func (l *LocalRunner) Target() string {
	name, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return name
}
