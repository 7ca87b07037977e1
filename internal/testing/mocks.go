package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/dockshift/internal/prompt"
	"github.com/imamik/dockshift/internal/runner"
)

// MockRunner is a testify mock of runner.Runner.
type MockRunner struct {
	mock.Mock
	IsLocal bool
}

// Run records the call and returns the configured result.
func (m *MockRunner) Run(ctx context.Context, cmd runner.Command) (runner.Result, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(runner.Result), args.Error(1)
}

// Local reports the configured locality.
func (m *MockRunner) Local() bool { return m.IsLocal }

// Target returns a fixed host name.
func (m *MockRunner) Target() string { return "mock-host" }

// FakeResponse is a scripted command outcome.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// FakeRunner answers commands from a script keyed by the shell-quoted
// command line. Unscripted commands fail with exit status 127.
type FakeRunner struct {
	Responses map[string]FakeResponse

	// Handler, when set, is consulted before Responses. Returning
	// handled=false falls through to the script.
	Handler func(cmd runner.Command) (res FakeResponse, handled bool)

	// Calls lists every command in execution order.
	Calls []runner.Command

	IsLocal bool

	mu sync.Mutex
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Responses: make(map[string]FakeResponse)}
}

// On scripts a successful command.
func (f *FakeRunner) On(line, stdout string) *FakeRunner {
	f.Responses[line] = FakeResponse{Stdout: stdout}
	return f
}

// Fail scripts a command that exits non-zero.
func (f *FakeRunner) Fail(line string, code int, stderr string) *FakeRunner {
	f.Responses[line] = FakeResponse{Stderr: stderr, ExitCode: code}
	return f
}

// Run implements runner.Runner.
func (f *FakeRunner) Run(_ context.Context, cmd runner.Command) (runner.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, cmd)

	var resp FakeResponse
	handled := false
	if f.Handler != nil {
		resp, handled = f.Handler(cmd)
	}
	if !handled {
		var ok bool
		resp, ok = f.Responses[cmd.String()]
		if !ok {
			resp = FakeResponse{ExitCode: 127, Stderr: fmt.Sprintf("unscripted command: %s", cmd)}
		}
	}

	res := runner.Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	if resp.ExitCode != 0 {
		return res, &runner.ExitError{Command: cmd, Result: res}
	}
	return res, nil
}

// Local implements runner.Runner.
func (f *FakeRunner) Local() bool { return f.IsLocal }

// Target implements runner.Runner.
func (f *FakeRunner) Target() string { return "fake-host" }

// Lines returns the executed commands as shell-quoted lines.
func (f *FakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c.String())
	}
	return out
}

// ScriptedOperator answers prompts from queues. Once a queue runs dry the
// question's default is used (Input without a default fails).
type ScriptedOperator struct {
	Confirms []bool
	Inputs   []string

	// Questions lists every question asked, in order.
	Questions []string
}

// Confirm implements prompt.Operator.
func (s *ScriptedOperator) Confirm(_ context.Context, question string, def bool) (bool, error) {
	s.Questions = append(s.Questions, question)
	if len(s.Confirms) == 0 {
		return def, nil
	}
	answer := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return answer, nil
}

// Input implements prompt.Operator.
func (s *ScriptedOperator) Input(_ context.Context, question, def string) (string, error) {
	s.Questions = append(s.Questions, question)
	if len(s.Inputs) == 0 {
		if def == "" {
			return "", prompt.ErrNoAnswer
		}
		return def, nil
	}
	answer := s.Inputs[0]
	s.Inputs = s.Inputs[1:]
	if answer == "" {
		return def, nil
	}
	return answer, nil
}
