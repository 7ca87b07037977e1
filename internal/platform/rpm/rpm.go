// Package rpm queries and installs packages with rpm and dnf, restricted
// to local package files and local repositories.
package rpm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/imamik/dockshift/internal/runner"
)

// queryFormat yields one tab separated line per package.
const queryFormat = `%{NAME}\t%{EPOCHNUM}\t%{VERSION}\t%{RELEASE}\t%{ARCH}\n`

// localRepoID names the transient repository built from a package directory.
const localRepoID = "dockshift-local"

// Package is an installed package.
type Package struct {
	Name    string
	Epoch   string
	Version string
	Release string
	Arch    string
}

func (p Package) String() string {
	return fmt.Sprintf("%s-%s-%s.%s", p.Name, p.Version, p.Release, p.Arch)
}

// Is reports whether the package version equals v, compared as semver so
// that "29.1.5" and "29.1.5.0" style differences do not matter.
func (p Package) Is(v string) bool {
	have, err := semver.NewVersion(p.Version)
	if err != nil {
		return p.Version == v
	}
	want, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	return have.Equal(want)
}

// InstallOptions tune InstallFiles.
type InstallOptions struct {
	// Downgrade allows older versions to replace newer ones.
	Downgrade bool
}

// Manager wraps rpm and dnf.
type Manager struct {
	Runner runner.Runner
}

// New creates a package manager on r.
func New(r runner.Runner) *Manager {
	return &Manager{Runner: r}
}

// Installed looks up a single package.
func (m *Manager) Installed(ctx context.Context, name string) (Package, bool, error) {
	res, err := m.Runner.Run(ctx, runner.Cmd("rpm", "-q", "--qf", queryFormat, name))
	if err != nil {
		if runner.ExitCode(err) == 1 && strings.Contains(res.Stdout+res.Stderr, "not installed") {
			return Package{}, false, nil
		}
		return Package{}, false, fmt.Errorf("failed to query package %s: %w", name, err)
	}
	pkgs := parse(res.Stdout)
	if len(pkgs) == 0 {
		return Package{}, false, nil
	}
	return pkgs[0], true, nil
}

// ListInstalled returns every installed package sorted by name.
func (m *Manager) ListInstalled(ctx context.Context) ([]Package, error) {
	out, err := runner.Output(ctx, m.Runner, runner.Cmd("rpm", "-qa", "--qf", queryFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	pkgs := parse(out)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

// InstallFiles installs package files with rpm, forcing replacement and
// ignoring dependencies.
func (m *Manager) InstallFiles(ctx context.Context, files []string, opts InstallOptions) error {
	if len(files) == 0 {
		return fmt.Errorf("no package files to install")
	}
	args := []string{"-Uvh", "--force", "--nodeps"}
	if opts.Downgrade {
		args = append(args, "--oldpackage")
	}
	args = append(args, files...)
	if _, err := m.Runner.Run(ctx, runner.Cmd("rpm", args...)); err != nil {
		return fmt.Errorf("rpm install failed: %w", err)
	}
	return nil
}

// Install installs names from the local repository at repoDir.
// Already satisfied requests are not an error.
func (m *Manager) Install(ctx context.Context, repoDir string, names []string) error {
	return m.dnf(ctx, "install", repoDir, names)
}

// Sync runs distro-sync against repoDir, allowing packages to be replaced
// or erased to resolve conflicts a plain install left behind.
func (m *Manager) Sync(ctx context.Context, repoDir string, names []string) error {
	return m.dnf(ctx, "distro-sync", repoDir, names, "--allowerasing")
}

func (m *Manager) dnf(ctx context.Context, verb, repoDir string, names []string, extra ...string) error {
	args := []string{verb, "-y",
		"--disablerepo=*",
		"--repofrompath=" + localRepoID + "," + repoDir,
		"--enablerepo=" + localRepoID,
		"--nogpgcheck",
		"--setopt=" + localRepoID + ".sslverify=0",
	}
	args = append(args, extra...)
	args = append(args, names...)

	res, err := m.Runner.Run(ctx, runner.Cmd("dnf", args...))
	if err != nil {
		if strings.Contains(res.Stdout+res.Stderr, "Nothing to do") {
			return nil
		}
		return fmt.Errorf("dnf %s failed: %w", verb, err)
	}
	return nil
}

func parse(out string) []Package {
	var pkgs []Package
	for _, line := range strings.Split(out, "\n") {
		f := strings.Split(strings.TrimSpace(line), "\t")
		if len(f) != 5 {
			continue
		}
		pkgs = append(pkgs, Package{Name: f[0], Epoch: f[1], Version: f[2], Release: f[3], Arch: f[4]})
	}
	return pkgs
}
