package upgrade

import (
	"github.com/imamik/dockshift/internal/platform/toolkit"
)

// Toolkit transitions the accelerator toolkit packages and re-registers
// its runtime with the engine and containerd. It runs only when Preflight
// found the toolkit installed, and never fails the run.
type Toolkit struct{}

func (Toolkit) Name() string { return "toolkit" }

func (t Toolkit) Run(ctx *Context) error {
	name := t.Name()
	if !ctx.State.ToolkitInstalled {
		LogPhaseSkipped(ctx.Observer, name, "accelerator toolkit not installed")
		return nil
	}

	dir := ctx.Config.ToolkitDir(ctx.State.Host.MajorVersion)
	ok, err := ctx.FS.IsDir(ctx, dir)
	switch {
	case err != nil || !ok:
		ctx.warnf(name, "toolkit package directory %s not found; toolkit packages left unchanged", dir)
	default:
		if err := ctx.strategy().Transition(ctx, dir, ctx.Config.Toolkit.Packages); err != nil {
			ctx.warnf(name, "toolkit package transition failed: %v", err)
		} else {
			ctx.Observer.Printf("[%s] toolkit packages installed from %s", name, dir)
		}
	}

	// The runtime configuration was regenerated, so the nvidia runtime
	// entries have to be written again even if the packages did not change.
	if err := ctx.Toolkit.Configure(ctx, toolkit.RuntimeDocker, ""); err != nil {
		ctx.warnf(name, "GPU integration for the engine failed: %v", err)
	}
	if err := ctx.Toolkit.Configure(ctx, toolkit.RuntimeContainerd, ctx.Config.Runtime.ConfigPath); err != nil {
		ctx.warnf(name, "GPU integration for containerd failed: %v", err)
	}
	return nil
}
