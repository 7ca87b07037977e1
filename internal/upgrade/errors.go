package upgrade

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted matches every *AbortError.
	ErrAborted = errors.New("upgrade aborted")

	// ErrOperatorAbort is wrapped when the operator chose not to continue.
	ErrOperatorAbort = errors.New("operator chose to abort")
)

// AbortError is a fatal condition that stops the pipeline.
type AbortError struct {
	Phase  string
	Reason string
	// Hint is a remediation suggestion shown to the operator.
	Hint string
	Err  error
}

func (e *AbortError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Phase, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AbortError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrAborted) true for any AbortError.
func (e *AbortError) Is(target error) bool { return target == ErrAborted }

func abort(phase, reason, hint string, err error) *AbortError {
	return &AbortError{Phase: phase, Reason: reason, Hint: hint, Err: err}
}

func operatorAbort(phase, reason string) *AbortError {
	return abort(phase, reason, "", ErrOperatorAbort)
}

// HintOf returns the remediation hint carried by err, if any.
func HintOf(err error) string {
	var ae *AbortError
	if errors.As(err, &ae) {
		return ae.Hint
	}
	return ""
}
