package upgrade

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imamik/dockshift/internal/backup"
	"github.com/imamik/dockshift/internal/config"
	"github.com/imamik/dockshift/internal/hostfs"
	"github.com/imamik/dockshift/internal/platform/containerd"
	"github.com/imamik/dockshift/internal/platform/docker"
	"github.com/imamik/dockshift/internal/platform/fsinfo"
	"github.com/imamik/dockshift/internal/platform/rpm"
	"github.com/imamik/dockshift/internal/platform/systemd"
	"github.com/imamik/dockshift/internal/platform/toolkit"
	"github.com/imamik/dockshift/internal/prompt"
	"github.com/imamik/dockshift/internal/runner"
	"github.com/imamik/dockshift/internal/util/retry"
)

// Mode selects which package source and target version a pipeline uses.
type Mode string

const (
	ModeUpgrade  Mode = "upgrade"
	ModeRollback Mode = "rollback"
)

// Context wraps all dependencies and state needed for a pipeline phase.
type Context struct {
	context.Context
	Config   *config.Config
	Timeouts *config.Timeouts
	State    *State
	Mode     Mode
	RunID    string

	Runner       runner.Runner
	FS           hostfs.FS
	Packages     PackageManager
	Services     ServiceManager
	Runtime      Runtime
	RuntimeProbe RuntimeProbe // nil when the host is remote
	Engine       Engine
	Cluster      Cluster
	Toolkit      ToolkitIntegrator
	Inspector    fsinfo.Inspector
	Mirror       backup.Uploader // nil unless backup_mirror is enabled
	Operator     prompt.Operator
	Observer     Observer

	Sleep retry.SleepFunc
	Now   func() time.Time
	Euid  func() int
}

// NewContext creates a Context whose collaborators drive the host behind r.
func NewContext(
	ctx context.Context,
	cfg *config.Config,
	r runner.Runner,
	op prompt.Operator,
	observer Observer,
) *Context {
	fsys := hostfs.For(r)
	c := &Context{
		Context:   ctx,
		Config:    cfg,
		Timeouts:  config.LoadTimeouts(),
		State:     NewState(),
		Mode:      ModeUpgrade,
		RunID:     uuid.NewString(),
		Runner:    r,
		FS:        fsys,
		Packages:  rpm.New(r),
		Services:  systemd.New(r),
		Runtime:   containerd.NewCLI(r),
		Engine:    docker.NewEngine(r),
		Cluster:   docker.NewCluster(r),
		Toolkit:   toolkit.New(r, cfg.Toolkit.Command),
		Inspector: fsinfo.New(r, fsys),
		Operator:  op,
		Observer:  observer,
		Sleep:     retry.Sleep,
		Now:       time.Now,
		Euid:      os.Geteuid,
	}
	if r.Local() {
		c.RuntimeProbe = containerd.NewProbe(cfg.Runtime.Socket)
	}
	return c
}

func (c *Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// sleep waits d using the injected SleepFunc.
func (c *Context) sleep(d time.Duration) error {
	if c.Sleep == nil {
		return retry.Sleep(c, d)
	}
	return c.Sleep(c, d)
}

// warnf records a recoverable condition.
func (c *Context) warnf(phase, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	c.State.Warnings = append(c.State.Warnings, fmt.Sprintf("%s: %s", phase, msg))
	c.Observer.Event(Event{
		Type:      EventWarning,
		Phase:     phase,
		Message:   msg,
		Timestamp: c.now(),
	})
}

// packageSource returns the package directory for the current mode.
func (c *Context) packageSource(major int) string {
	if c.Mode == ModeRollback {
		return c.Config.RollbackPackageDir(major)
	}
	return c.Config.PackageDir(major)
}

// targetEngine is the engine version the run transitions to.
func (c *Context) targetEngine() string {
	if c.Mode == ModeRollback {
		return c.Config.Rollback.EngineVersion
	}
	return c.Config.Target.EngineVersion
}

// strategy returns the package transition strategy for this run.
func (c *Context) strategy() Strategy {
	return StrategyFor(c.Config.Strategy, c.Mode == ModeRollback)
}

// stopUnit stops a unit and records the call. Failures are warnings.
func (c *Context) stopUnit(phase, unit string) {
	c.State.ServiceLog = append(c.State.ServiceLog, ServiceAction{Op: "stop", Unit: unit})
	if err := c.Services.Stop(c, unit); err != nil {
		c.warnf(phase, "stopping %s failed: %v", unit, err)
		return
	}
	c.Observer.Event(Event{Type: EventServiceStopped, Phase: phase, Resource: unit, Message: unit + " stopped"})
}

// startUnit starts a unit and records the call.
func (c *Context) startUnit(phase, unit string) error {
	c.State.ServiceLog = append(c.State.ServiceLog, ServiceAction{Op: "start", Unit: unit})
	if err := c.Services.Start(c, unit); err != nil {
		return err
	}
	c.Observer.Event(Event{Type: EventServiceStarted, Phase: phase, Resource: unit, Message: unit + " started"})
	return nil
}

// enableUnits enables units for boot and records the call.
func (c *Context) enableUnits(units ...string) error {
	c.State.ServiceLog = append(c.State.ServiceLog, ServiceAction{Op: "enable", Unit: strings.Join(units, " ")})
	return c.Services.Enable(c, units...)
}

// confirm asks a yes/no question. Interruptions and prompt failures abort.
func (c *Context) confirm(phase, question string, def bool) (bool, error) {
	ok, err := c.Operator.Confirm(c, question, def)
	if err != nil {
		return false, abort(phase, "prompt failed", "", err)
	}
	return ok, nil
}
