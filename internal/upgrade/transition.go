package upgrade

import "fmt"

// Transition swaps the installed engine packages for the set in the
// package source. It is the one phase with no fallback.
type Transition struct{}

func (Transition) Name() string { return "transition" }

func (t Transition) Run(ctx *Context) error {
	name := t.Name()
	strategy := ctx.strategy()
	dir := ctx.State.PackageDir

	ctx.Observer.Printf("[%s] installing from %s with the %s strategy", name, dir, strategy.Name())
	if err := strategy.Transition(ctx, dir, ctx.Config.Packages); err != nil {
		return abort(name, "package transition failed",
			fmt.Sprintf("the engine is stopped; fix the package source and re-run, or restore with `dockshift rollback` (backup: %s)", backupDir(ctx)), err)
	}
	ctx.State.PackagesTransitioned = true

	pkg, ok, err := ctx.Packages.Installed(ctx, ctx.Config.Target.EnginePackage)
	switch {
	case err != nil:
		ctx.warnf(name, "could not query %s after the transition: %v", ctx.Config.Target.EnginePackage, err)
	case !ok:
		ctx.warnf(name, "%s is not installed after the transition", ctx.Config.Target.EnginePackage)
	case !pkg.Is(ctx.targetEngine()):
		ctx.warnf(name, "%s is at %s, expected %s", pkg.Name, pkg.Version, ctx.targetEngine())
	default:
		ctx.Observer.Printf("[%s] %s installed", name, pkg)
	}
	return nil
}

func backupDir(ctx *Context) string {
	if ctx.State.Backup == nil {
		return "none"
	}
	return ctx.State.Backup.Dir
}
