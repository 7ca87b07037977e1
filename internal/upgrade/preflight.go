package upgrade

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/imamik/dockshift/internal/config"
	"github.com/imamik/dockshift/internal/platform/osinfo"
	"github.com/imamik/dockshift/internal/util/prerequisites"
)

// minBackupSpace is the free space below which Preflight warns.
const minBackupSpace = 2 << 30

// Preflight detects the host, selects the package source and records
// what is installed. It only reads.
type Preflight struct{}

func (Preflight) Name() string { return "preflight" }

func (p Preflight) Run(ctx *Context) error {
	name := p.Name()

	if ctx.Runner.Local() && ctx.Euid != nil && ctx.Euid() != 0 {
		return abort(name, "must run as root", "re-run with sudo", nil)
	}

	tools, err := prerequisites.Check(ctx, ctx.Runner, requiredTools(ctx.Config.Strategy))
	if err != nil {
		return abort(name, "could not look up host tools", "", err)
	}
	if err := tools.Error(); err != nil {
		return abort(name, "required tools are missing", "install them from the RHEL installation media", err)
	}
	for _, t := range tools.Missing {
		ctx.warnf(name, "%s not found on the host: %s", t.Name, t.Description)
	}

	host, err := osinfo.Detect(ctx, ctx.FS)
	if err != nil {
		return abort(name, "could not determine the OS version", "check that "+osinfo.ReleaseFile+" is readable", err)
	}
	ctx.State.Host = host
	if !host.RedHatFamily() {
		ctx.warnf(name, "%s is not a Red Hat family distribution", host)
	}
	if !slices.Contains(config.SupportedMajors, host.MajorVersion) {
		return abort(name, fmt.Sprintf("unsupported OS major version %d (%s)", host.MajorVersion, host),
			"only RHEL 8 and 9 package bundles exist", nil)
	}

	dir := ctx.packageSource(host.MajorVersion)
	ok, err := ctx.FS.IsDir(ctx, dir)
	if err != nil || !ok {
		return abort(name, fmt.Sprintf("package source directory %s not found", dir),
			fmt.Sprintf("copy the rhel%d package bundle to %s", host.MajorVersion, dir), err)
	}
	strategy := ctx.strategy()
	count, err := strategy.Check(ctx, dir)
	if err != nil {
		return abort(name, fmt.Sprintf("package source %s is unusable with the %s strategy", dir, strategy.Name()), "", err)
	}
	ctx.State.PackageDir = dir
	ctx.Observer.Printf("[%s] %s, package source %s (%d packages, %s strategy)", name, host, dir, count, strategy.Name())

	ctx.State.ToolkitInstalled = p.toolkitInstalled(ctx)
	p.recordVersions(ctx)
	p.checkSpace(ctx)
	return nil
}

func requiredTools(s config.Strategy) []prerequisites.Tool {
	tools := prerequisites.DefaultTools()
	if s == config.StrategyRepo {
		tools = append(tools, prerequisites.RepoTools()...)
	}
	return append(tools, prerequisites.OptionalTools()...)
}

func (p Preflight) toolkitInstalled(ctx *Context) bool {
	pkg, ok, err := ctx.Packages.Installed(ctx, ctx.Config.Toolkit.DetectPackage)
	switch {
	case err != nil:
		ctx.warnf(p.Name(), "could not query %s, treating the toolkit as absent: %v", ctx.Config.Toolkit.DetectPackage, err)
		return false
	case ok:
		ctx.Observer.Printf("[%s] accelerator toolkit detected: %s", p.Name(), pkg)
		return true
	default:
		return false
	}
}

func (p Preflight) recordVersions(ctx *Context) {
	engine, ok, err := ctx.Packages.Installed(ctx, ctx.Config.Target.EnginePackage)
	switch {
	case err != nil:
		ctx.warnf(p.Name(), "could not query %s: %v", ctx.Config.Target.EnginePackage, err)
	case !ok:
		ctx.Observer.Printf("[%s] %s is not installed", p.Name(), ctx.Config.Target.EnginePackage)
	default:
		ctx.State.PriorEngineVersion = engine.Version
		ctx.Observer.Printf("[%s] current engine: %s", p.Name(), engine)
		if engine.Is(ctx.targetEngine()) {
			ctx.warnf(p.Name(), "engine is already at %s; packages will be reinstalled", ctx.targetEngine())
		}
	}

	runtime, ok, err := ctx.Packages.Installed(ctx, ctx.Config.Target.RuntimePackage)
	if err == nil && ok {
		ctx.State.PriorRuntimeVersion = runtime.Version
		ctx.Observer.Printf("[%s] current runtime: %s", p.Name(), runtime)
	}
}

func (p Preflight) checkSpace(ctx *Context) {
	free, err := ctx.Inspector.Available(ctx, ctx.Config.BackupRoot)
	if err != nil {
		ctx.warnf(p.Name(), "could not determine free space under %s: %v", ctx.Config.BackupRoot, err)
		return
	}
	if free < minBackupSpace {
		ctx.warnf(p.Name(), "only %s free under %s", humanize.IBytes(free), ctx.Config.BackupRoot)
	}
}
