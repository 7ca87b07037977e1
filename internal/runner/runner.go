package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Command is a single external program invocation.
type Command struct {
	Name  string
	Args  []string
	Stdin []byte
}

// Cmd is shorthand for building a Command.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// String renders the command as a shell-quoted line.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}

// Result is the captured outcome of a command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout followed by stderr, trimmed.
func (r Result) Combined() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// Runner executes commands on a target host.
type Runner interface {
	// Run executes cmd and returns its captured output. A non-zero exit
	// status is returned as *ExitError together with the Result.
	Run(ctx context.Context, cmd Command) (Result, error)

	// Local reports whether commands run on this machine, which allows
	// host-local probes (D-Bus, mount table, statfs, runtime socket).
	Local() bool

	// Target names the host for log lines.
	Target() string
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command Command
	Result  Result
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Result.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(e.Result.Stdout)
	}
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.Result.ExitCode)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Result.ExitCode, msg)
}

// ExitCode returns the exit status carried by err, or -1 when err is not
// an *ExitError (the command could not be started at all).
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Result.ExitCode
	}
	return -1
}

// Output runs cmd and returns trimmed stdout.
func Output(ctx context.Context, r Runner, cmd Command) (string, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}
