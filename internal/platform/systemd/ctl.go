package systemd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/imamik/dockshift/internal/runner"
)

// systemctl exits 5 when the unit is not loaded.
const exitUnitNotLoaded = 5

// CtlManager implements Manager with systemctl and journalctl.
type CtlManager struct {
	Runner runner.Runner
}

// Stop implements Manager.
func (m *CtlManager) Stop(ctx context.Context, unit string) error {
	_, err := m.Runner.Run(ctx, runner.Cmd("systemctl", "stop", unit))
	if err != nil && runner.ExitCode(err) != exitUnitNotLoaded {
		return fmt.Errorf("failed to stop %s: %w", unit, err)
	}
	return nil
}

// Start implements Manager.
func (m *CtlManager) Start(ctx context.Context, unit string) error {
	if _, err := m.Runner.Run(ctx, runner.Cmd("systemctl", "start", unit)); err != nil {
		return fmt.Errorf("failed to start %s: %w", unit, err)
	}
	return nil
}

// Enable implements Manager.
func (m *CtlManager) Enable(ctx context.Context, units ...string) error {
	args := append([]string{"enable"}, units...)
	if _, err := m.Runner.Run(ctx, runner.Cmd("systemctl", args...)); err != nil {
		return fmt.Errorf("failed to enable %v: %w", units, err)
	}
	return nil
}

// State implements Manager. is-active exits non-zero for every state but
// active, so the printed state is read regardless of the exit status.
func (m *CtlManager) State(ctx context.Context, unit string) (State, error) {
	res, err := m.Runner.Run(ctx, runner.Cmd("systemctl", "is-active", unit))
	if err != nil && runner.ExitCode(err) < 0 {
		return StateUnknown, fmt.Errorf("failed to query %s: %w", unit, err)
	}
	return ParseState(res.Stdout), nil
}

// RecentLogs implements Manager.
func (m *CtlManager) RecentLogs(ctx context.Context, unit string, lines int) (string, error) {
	return runner.Output(ctx, m.Runner, runner.Cmd("journalctl", "-u", unit, "-n", strconv.Itoa(lines), "--no-pager"))
}
