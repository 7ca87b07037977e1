package upgrade

import (
	"fmt"
	"slices"

	"github.com/imamik/dockshift/internal/backup"
	"github.com/imamik/dockshift/internal/config"
	"github.com/imamik/dockshift/internal/platform/docker"
	"github.com/imamik/dockshift/internal/platform/fsinfo"
	"github.com/imamik/dockshift/internal/platform/osinfo"
	"github.com/imamik/dockshift/internal/util/prerequisites"
)

// Diagnosis is the read-only view of a host produced by Diagnose.
type Diagnosis struct {
	Host       osinfo.Host
	Supported  bool
	PackageDir string
	Packages   int // package files (direct) or files next to repodata (repo)

	Tools *prerequisites.CheckResults

	EngineVersion    string
	RuntimeVersion   string
	ToolkitInstalled bool

	Membership docker.Membership

	DataRoot       fsinfo.Report
	EngineDataRoot fsinfo.Report

	Backups      int
	LatestBackup string

	// Problems would abort an upgrade; Notes would only warn.
	Problems []string
	Notes    []string
}

// Ready reports whether an upgrade would pass its preconditions.
func (d *Diagnosis) Ready() bool { return len(d.Problems) == 0 }

// Diagnose inspects the host the way the upgrade would, without changing
// anything and without prompting.
func Diagnose(ctx *Context) (*Diagnosis, error) {
	d := &Diagnosis{}
	problem := func(format string, v ...any) { d.Problems = append(d.Problems, fmt.Sprintf(format, v...)) }
	note := func(format string, v ...any) { d.Notes = append(d.Notes, fmt.Sprintf(format, v...)) }

	tools, err := prerequisites.Check(ctx, ctx.Runner, requiredTools(ctx.Config.Strategy))
	if err != nil {
		return nil, fmt.Errorf("failed to look up host tools: %w", err)
	}
	d.Tools = tools
	if err := tools.Error(); err != nil {
		problem("%v", err)
	}
	for _, t := range tools.Missing {
		if !t.Required {
			note("%s not found: %s", t.Name, t.Description)
		}
	}

	host, err := osinfo.Detect(ctx, ctx.FS)
	if err != nil {
		problem("OS detection failed: %v", err)
	} else {
		d.Host = host
		d.Supported = slices.Contains(config.SupportedMajors, host.MajorVersion)
		if !d.Supported {
			problem("unsupported OS major version %d", host.MajorVersion)
		}
	}

	if d.Supported {
		d.PackageDir = ctx.packageSource(host.MajorVersion)
		n, err := ctx.strategy().Check(ctx, d.PackageDir)
		if err != nil {
			problem("package source: %v", err)
		}
		d.Packages = n
	}

	if pkg, ok, err := ctx.Packages.Installed(ctx, ctx.Config.Target.EnginePackage); err == nil && ok {
		d.EngineVersion = pkg.Version
	}
	if pkg, ok, err := ctx.Packages.Installed(ctx, ctx.Config.Target.RuntimePackage); err == nil && ok {
		d.RuntimeVersion = pkg.Version
	}
	if _, ok, err := ctx.Packages.Installed(ctx, ctx.Config.Toolkit.DetectPackage); err == nil {
		d.ToolkitInstalled = ok
	}

	if m, err := ctx.Cluster.Info(ctx); err != nil {
		note("swarm membership unknown: %v", err)
	} else {
		d.Membership = m
		if m.State == docker.Active {
			note("node %s is an active swarm %s and will be offered a drain", m.NodeID, m.Role)
		}
	}

	if root, err := runtimeDataRoot(ctx); err != nil {
		note("runtime data root unknown: %v", err)
	} else {
		d.DataRoot = fsinfo.Check(ctx, ctx.Inspector, root)
		if d.DataRoot.Status == fsinfo.CompatBad {
			note("runtime data root %s needs relocation: %s", root, d.DataRoot.Detail)
		}
	}
	if root, err := engineDataRoot(ctx); err == nil {
		d.EngineDataRoot = fsinfo.Check(ctx, ctx.Inspector, root)
		if d.EngineDataRoot.Status == fsinfo.CompatBad {
			note("engine data root %s: %s", root, d.EngineDataRoot.Detail)
		}
	}

	records, err := backup.List(ctx, ctx.FS, ctx.Config.BackupRoot)
	if err != nil {
		note("backups unreadable: %v", err)
	} else if len(records) > 0 {
		d.Backups = len(records)
		d.LatestBackup = records[0].Dir
	}

	return d, nil
}
