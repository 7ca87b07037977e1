package upgrade

import (
	"fmt"
	"path/filepath"

	"github.com/imamik/dockshift/internal/config"
	"github.com/imamik/dockshift/internal/hostfs"
	"github.com/imamik/dockshift/internal/platform/rpm"
)

// Strategy replaces the installed packages with the set in a local
// package directory. Implementations never reach a remote repository.
type Strategy interface {
	Name() string

	// Check reports whether dir can serve this strategy, without side effects.
	Check(ctx *Context, dir string) (int, error)

	Transition(ctx *Context, dir string, packages []string) error
}

// StrategyFor returns the named strategy. downgrade allows older
// packages to replace newer ones.
func StrategyFor(name config.Strategy, downgrade bool) Strategy {
	if name == config.StrategyRepo {
		return RepoStrategy{}
	}
	return DirectStrategy{Downgrade: downgrade}
}

// DirectStrategy installs every *.rpm file of the directory with a forced,
// dependency-overriding rpm upgrade. It needs no repository metadata and
// so no certificates.
type DirectStrategy struct {
	Downgrade bool
}

func (DirectStrategy) Name() string { return string(config.StrategyDirect) }

// Check counts the package files in dir.
func (DirectStrategy) Check(ctx *Context, dir string) (int, error) {
	files, err := hostfs.Glob(ctx, ctx.FS, dir, "*.rpm")
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no *.rpm files in %s", dir)
	}
	return len(files), nil
}

// Transition installs all package files in dir. packages is ignored: the
// directory is the package set.
func (s DirectStrategy) Transition(ctx *Context, dir string, _ []string) error {
	files, err := hostfs.Glob(ctx, ctx.FS, dir, "*.rpm")
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no *.rpm files in %s", dir)
	}
	return ctx.Packages.InstallFiles(ctx, files, rpm.InstallOptions{Downgrade: s.Downgrade})
}

// RepoStrategy uses the directory as a dnf repository: a plain install
// first, then a distro-sync that resolves what the install left behind.
// The sync also performs downgrades, so rollback needs no extra option.
type RepoStrategy struct{}

func (RepoStrategy) Name() string { return string(config.StrategyRepo) }

// Check requires repository metadata in dir.
func (RepoStrategy) Check(ctx *Context, dir string) (int, error) {
	ok, err := ctx.FS.IsDir(ctx, filepath.Join(dir, "repodata"))
	if err != nil {
		return 0, fmt.Errorf("failed to inspect %s: %w", dir, err)
	}
	if !ok {
		return 0, fmt.Errorf("%s has no repodata/ (run createrepo_c, or use the direct strategy)", dir)
	}
	files, err := hostfs.Glob(ctx, ctx.FS, dir, "*.rpm")
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return len(files), nil
}

// Transition installs then synchronizes packages from dir.
func (RepoStrategy) Transition(ctx *Context, dir string, packages []string) error {
	if err := ctx.Packages.Install(ctx, dir, packages); err != nil {
		return fmt.Errorf("install step failed: %w", err)
	}
	if err := ctx.Packages.Sync(ctx, dir, packages); err != nil {
		return fmt.Errorf("synchronize step failed: %w", err)
	}
	return nil
}
