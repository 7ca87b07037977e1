package upgrade

import (
	"strings"

	"github.com/imamik/dockshift/internal/platform/docker"
)

// Check results recorded in State.
const (
	CheckPassed  = "passed"
	CheckFailed  = "failed"
	CheckSkipped = "skipped"
)

// Verify reports versions and service states and runs best-effort
// functional checks. Nothing here changes the run's outcome.
type Verify struct{}

func (Verify) Name() string { return "verify" }

func (v Verify) Run(ctx *Context) error {
	v.versions(ctx)
	v.services(ctx)
	ctx.State.FunctionalCheck = v.network(ctx)
	ctx.State.GPUCheck = CheckSkipped
	if ctx.State.ToolkitInstalled {
		ctx.State.GPUCheck = v.gpu(ctx)
	}
	return nil
}

func (v Verify) versions(ctx *Context) {
	name := v.Name()
	want := map[string]string{ctx.Config.Target.EnginePackage: ctx.targetEngine()}
	if ctx.Mode == ModeUpgrade {
		want[ctx.Config.Target.RuntimePackage] = ctx.Config.Target.RuntimeVersion
	}

	for _, pkgName := range []string{ctx.Config.Target.EnginePackage, ctx.Config.Target.RuntimePackage} {
		pkg, ok, err := ctx.Packages.Installed(ctx, pkgName)
		switch {
		case err != nil:
			ctx.warnf(name, "could not query %s: %v", pkgName, err)
		case !ok:
			ctx.warnf(name, "%s is not installed", pkgName)
		case want[pkgName] != "" && !pkg.Is(want[pkgName]):
			ctx.warnf(name, "%s is at %s, expected %s", pkgName, pkg.Version, want[pkgName])
		default:
			ctx.Observer.Printf("[%s] %s", name, pkg)
		}
	}

	if server, err := ctx.Engine.ServerVersion(ctx); err != nil {
		ctx.warnf(name, "engine did not report a server version: %v", err)
	} else {
		ctx.Observer.Printf("[%s] engine server version %s", name, server)
	}
	if rt, err := ctx.Runtime.Version(ctx); err != nil {
		ctx.warnf(name, "runtime did not report a version: %v", err)
	} else {
		ctx.Observer.Printf("[%s] runtime version %s", name, rt)
	}
}

func (v Verify) services(ctx *Context) {
	svc := ctx.Config.Services
	for _, unit := range []string{svc.Runtime, svc.Engine} {
		state, err := ctx.Services.State(ctx, unit)
		if err != nil {
			ctx.warnf(v.Name(), "could not read the state of %s: %v", unit, err)
			continue
		}
		ctx.Observer.Printf("[%s] %s: %s", v.Name(), unit, state)
	}
}

// network runs a container on a fresh network that resolves its own name
// through the engine's embedded DNS. The test image must already be
// present; nothing is pulled.
func (v Verify) network(ctx *Context) string {
	name := v.Name()
	network := ctx.Config.Verify.NetworkName
	container := network + "-probe"

	_ = ctx.Engine.RemoveContainer(ctx, container)
	if err := ctx.Engine.CreateNetwork(ctx, network); err != nil {
		ctx.warnf(name, "functional check skipped, could not create network %s: %v", network, err)
		return CheckFailed
	}
	defer func() {
		if err := ctx.Engine.RemoveContainer(ctx, container); err != nil {
			ctx.warnf(name, "could not remove %s: %v", container, err)
		}
		if err := ctx.Engine.RemoveNetwork(ctx, network); err != nil {
			ctx.warnf(name, "could not remove network %s: %v", network, err)
		}
	}()

	out, err := ctx.Engine.RunContainer(ctx, docker.RunOptions{
		Name:    container,
		Image:   ctx.Config.Verify.TestImage,
		Network: network,
		Command: []string{"nslookup", container},
	})
	if err != nil {
		ctx.warnf(name, "functional network check failed (expected without %s on an air-gapped host): %v", ctx.Config.Verify.TestImage, err)
		return CheckFailed
	}
	ctx.Observer.Printf("[%s] functional network check passed: %s", name, firstLine(out))
	return CheckPassed
}

// gpu runs nvidia-smi in a container with all GPUs attached.
func (v Verify) gpu(ctx *Context) string {
	out, err := ctx.Engine.RunContainer(ctx, docker.RunOptions{
		Name:    ctx.Config.Verify.NetworkName + "-gpu",
		Image:   ctx.Config.Verify.GPUImage,
		GPUs:    "all",
		Command: []string{"nvidia-smi", "-L"},
	})
	if err != nil {
		ctx.warnf(v.Name(), "GPU check failed: %v", err)
		return CheckFailed
	}
	ctx.Observer.Printf("[%s] GPU check passed: %s", v.Name(), firstLine(out))
	return CheckPassed
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
