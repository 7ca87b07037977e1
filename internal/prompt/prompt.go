package prompt

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrNoAnswer is returned when a question needs an answer that no default
// can supply, such as a replacement path in an unattended run.
var ErrNoAnswer = errors.New("no answer available for interactive question")

// ErrInterrupted is returned when the operator cancels a prompt.
var ErrInterrupted = errors.New("prompt interrupted by operator")

// Operator answers the questions a run asks.
type Operator interface {
	// Confirm asks a yes/no question; def is used on empty input.
	Confirm(ctx context.Context, question string, def bool) (bool, error)
	// Input asks for free text; def is used on empty input.
	Input(ctx context.Context, question, def string) (string, error)
}

// HuhOperator prompts on the terminal with huh forms.
type HuhOperator struct {
	In  io.Reader
	Out io.Writer

	// Accessible renders plain line-based prompts, used when stdin is
	// not a terminal (piped answers, serial consoles).
	Accessible bool
}

// NewHuhOperator creates an operator on stdin/stdout, switching to
// accessible mode when stdin is not a terminal.
func NewHuhOperator() *HuhOperator {
	fd := os.Stdin.Fd()
	return &HuhOperator{
		In:         os.Stdin,
		Out:        os.Stdout,
		Accessible: !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd),
	}
}

// Confirm implements Operator.
func (h *HuhOperator) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	answer := def
	err := h.form(huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative("Yes").
			Negative("No").
			Value(&answer),
	)).RunWithContext(ctx)
	if err != nil {
		return false, mapErr(err)
	}
	return answer, nil
}

// Input implements Operator.
func (h *HuhOperator) Input(ctx context.Context, question, def string) (string, error) {
	var answer string
	input := huh.NewInput().
		Title(question).
		Value(&answer)
	if def != "" {
		input = input.Placeholder(def).Description("Leave empty for " + def)
	}

	if err := h.form(huh.NewGroup(input)).RunWithContext(ctx); err != nil {
		return "", mapErr(err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (h *HuhOperator) form(group *huh.Group) *huh.Form {
	f := huh.NewForm(group).WithAccessible(h.Accessible)
	if h.In != nil {
		f = f.WithInput(h.In)
	}
	if h.Out != nil {
		f = f.WithOutput(h.Out)
	}
	return f
}

func mapErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrInterrupted
	}
	return err
}

// DefaultsOperator answers every yes/no question with its default.
// Free-text questions without a default fail with ErrNoAnswer.
type DefaultsOperator struct{}

// Confirm implements Operator.
func (DefaultsOperator) Confirm(_ context.Context, _ string, def bool) (bool, error) {
	return def, nil
}

// Input implements Operator.
func (DefaultsOperator) Input(_ context.Context, question, def string) (string, error) {
	if def == "" {
		return "", ErrNoAnswer
	}
	return def, nil
}
