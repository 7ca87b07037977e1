package upgrade

import "github.com/imamik/dockshift/internal/platform/systemd"

// Startup starts the runtime, waits for it to settle, then starts the
// engine. Either failing to report active is fatal.
type Startup struct{}

func (Startup) Name() string { return "startup" }

func (s Startup) Run(ctx *Context) error {
	name := s.Name()
	svc := ctx.Config.Services

	if ctx.State.DataRootBlocked {
		return abort(name, "runtime data root is on an incompatible filesystem",
			"relocate the data root to an xfs filesystem with ftype=1, or another filesystem", nil)
	}

	if err := ctx.startUnit(name, svc.Runtime); err != nil {
		return abort(name, "failed to start "+svc.Runtime, logsHint(svc.Runtime), err)
	}
	ctx.Observer.Printf("[%s] waiting %v for %s to settle", name, ctx.Timeouts.SettleStart, svc.Runtime)
	if err := ctx.sleep(ctx.Timeouts.SettleStart); err != nil {
		return abort(name, "interrupted while waiting for the runtime", "", err)
	}
	if err := s.requireActive(ctx, svc.Runtime); err != nil {
		return err
	}
	s.probe(ctx)

	if err := ctx.startUnit(name, svc.Engine); err != nil {
		return abort(name, "failed to start "+svc.Engine, logsHint(svc.Engine), err)
	}
	if err := s.requireActive(ctx, svc.Engine); err != nil {
		return err
	}

	if err := ctx.enableUnits(svc.Runtime, svc.Engine); err != nil {
		ctx.warnf(name, "could not enable services at boot: %v", err)
	}
	return nil
}

func (s Startup) requireActive(ctx *Context, unit string) error {
	state, err := ctx.Services.State(ctx, unit)
	if err == nil && state == systemd.StateActive {
		ctx.Observer.Printf("[%s] %s is active", s.Name(), unit)
		return nil
	}
	if logs, lerr := ctx.Services.RecentLogs(ctx, unit, 20); lerr == nil && logs != "" {
		ctx.Observer.Printf("[%s] recent %s logs:\n%s", s.Name(), unit, logs)
	}
	if err != nil {
		return abort(s.Name(), "could not read the state of "+unit, logsHint(unit), err)
	}
	return abort(s.Name(), unit+" is "+string(state)+" after start", logsHint(unit), nil)
}

// probe asks the runtime over its socket whether it serves requests.
func (s Startup) probe(ctx *Context) {
	if ctx.RuntimeProbe == nil {
		return
	}
	res, err := ctx.RuntimeProbe.Check(ctx)
	if err != nil {
		ctx.warnf(s.Name(), "runtime socket probe failed: %v", err)
		return
	}
	if !res.Serving {
		ctx.warnf(s.Name(), "containerd %s answers but does not report serving", res.Version)
		return
	}
	ctx.Observer.Printf("[%s] containerd %s (%s) serving", s.Name(), res.Version, res.Revision)
}

func logsHint(unit string) string {
	return "inspect the service logs: journalctl -u " + unit + " -n 100 --no-pager"
}
