package systemd

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
)

// conn is the part of *dbus.Conn the manager uses.
type conn interface {
	StartUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	EnableUnitFilesContext(ctx context.Context, files []string, runtime, force bool) (bool, []dbus.EnableUnitFileChange, error)
	GetUnitPropertyContext(ctx context.Context, unit, propertyName string) (*dbus.Property, error)
	ReloadContext(ctx context.Context) error
	Close()
}

// DBusManager implements Manager over the systemd D-Bus API. When the bus
// cannot be reached every call is delegated to Fallback.
type DBusManager struct {
	Fallback Manager

	dial func(ctx context.Context) (conn, error)
}

// NewDBus creates a D-Bus manager on the system bus.
func NewDBus(fallback Manager) *DBusManager {
	return &DBusManager{
		Fallback: fallback,
		dial: func(ctx context.Context) (conn, error) {
			return dbus.NewWithContext(ctx)
		},
	}
}

// Stop implements Manager.
func (m *DBusManager) Stop(ctx context.Context, unit string) error {
	c, err := m.dial(ctx)
	if err != nil {
		return m.Fallback.Stop(ctx, unit)
	}
	defer c.Close()

	ch := make(chan string, 1)
	if _, err := c.StopUnitContext(ctx, unit, "replace", ch); err != nil {
		if isNoSuchUnit(err) {
			return nil
		}
		return fmt.Errorf("failed to stop %s: %w", unit, err)
	}
	return wait(ctx, "stop", unit, ch)
}

// Start implements Manager.
func (m *DBusManager) Start(ctx context.Context, unit string) error {
	c, err := m.dial(ctx)
	if err != nil {
		return m.Fallback.Start(ctx, unit)
	}
	defer c.Close()

	ch := make(chan string, 1)
	if _, err := c.StartUnitContext(ctx, unit, "replace", ch); err != nil {
		return fmt.Errorf("failed to start %s: %w", unit, err)
	}
	return wait(ctx, "start", unit, ch)
}

// Enable implements Manager.
func (m *DBusManager) Enable(ctx context.Context, units ...string) error {
	c, err := m.dial(ctx)
	if err != nil {
		return m.Fallback.Enable(ctx, units...)
	}
	defer c.Close()

	if _, _, err := c.EnableUnitFilesContext(ctx, units, false, true); err != nil {
		return fmt.Errorf("failed to enable %v: %w", units, err)
	}
	if err := c.ReloadContext(ctx); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	return nil
}

// State implements Manager.
func (m *DBusManager) State(ctx context.Context, unit string) (State, error) {
	c, err := m.dial(ctx)
	if err != nil {
		return m.Fallback.State(ctx, unit)
	}
	defer c.Close()

	prop, err := c.GetUnitPropertyContext(ctx, unit, "ActiveState")
	if err != nil {
		return StateUnknown, fmt.Errorf("failed to query %s: %w", unit, err)
	}
	s, ok := prop.Value.Value().(string)
	if !ok {
		return StateUnknown, nil
	}
	return ParseState(s), nil
}

// RecentLogs implements Manager.
func (m *DBusManager) RecentLogs(ctx context.Context, unit string, lines int) (string, error) {
	return m.Fallback.RecentLogs(ctx, unit, lines)
}

// wait blocks until systemd reports the job result.
// See https://pkg.go.dev/github.com/coreos/go-systemd/v22/dbus#Conn.StartUnit
func wait(ctx context.Context, op, unit string, ch <-chan string) error {
	select {
	case status := <-ch:
		if status != "done" {
			return fmt.Errorf("failed to %s %s (job result %q)", op, unit, status)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s of %s: %w", op, unit, ctx.Err())
	}
}

func isNoSuchUnit(err error) bool {
	return strings.Contains(err.Error(), "NoSuchUnit") || strings.Contains(err.Error(), "not loaded")
}
