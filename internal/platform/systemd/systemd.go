package systemd

import (
	"context"
	"strings"

	"github.com/imamik/dockshift/internal/runner"
)

// State is a unit's ActiveState.
type State string

const (
	StateActive       State = "active"
	StateInactive     State = "inactive"
	StateFailed       State = "failed"
	StateActivating   State = "activating"
	StateDeactivating State = "deactivating"
	StateUnknown      State = "unknown"
)

// ParseState maps systemd's ActiveState text to a State.
func ParseState(s string) State {
	switch st := State(strings.TrimSpace(s)); st {
	case StateActive, StateInactive, StateFailed, StateActivating, StateDeactivating:
		return st
	case "reloading":
		return StateActive
	default:
		return StateUnknown
	}
}

// Manager controls systemd units.
type Manager interface {
	// Stop stops a unit. A unit that is already stopped or not loaded
	// counts as stopped.
	Stop(ctx context.Context, unit string) error
	Start(ctx context.Context, unit string) error
	Enable(ctx context.Context, units ...string) error
	State(ctx context.Context, unit string) (State, error)
	// RecentLogs returns the last journal lines of a unit.
	RecentLogs(ctx context.Context, unit string, lines int) (string, error)
}

// New returns a D-Bus manager for the local host and a systemctl manager
// otherwise.
func New(r runner.Runner) Manager {
	ctl := &CtlManager{Runner: r}
	if !r.Local() {
		return ctl
	}
	return NewDBus(ctl)
}
