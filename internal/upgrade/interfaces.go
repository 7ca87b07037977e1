package upgrade

import (
	"context"

	"github.com/imamik/dockshift/internal/platform/containerd"
	"github.com/imamik/dockshift/internal/platform/docker"
	"github.com/imamik/dockshift/internal/platform/rpm"
	"github.com/imamik/dockshift/internal/platform/systemd"
)

// Phase defines one step of a pipeline.
type Phase interface {
	// Name returns the short name used in logs and metrics.
	Name() string

	// Run executes the phase. A non-nil error aborts the pipeline.
	Run(ctx *Context) error
}

// PackageManager queries and transitions packages.
// Implemented by internal/platform/rpm.Manager.
type PackageManager interface {
	Installed(ctx context.Context, name string) (rpm.Package, bool, error)
	ListInstalled(ctx context.Context) ([]rpm.Package, error)
	InstallFiles(ctx context.Context, files []string, opts rpm.InstallOptions) error
	Install(ctx context.Context, repoDir string, names []string) error
	Sync(ctx context.Context, repoDir string, names []string) error
}

// ServiceManager controls systemd units.
// Implemented by internal/platform/systemd.CtlManager and DBusManager.
type ServiceManager interface {
	Stop(ctx context.Context, unit string) error
	Start(ctx context.Context, unit string) error
	Enable(ctx context.Context, units ...string) error
	State(ctx context.Context, unit string) (systemd.State, error)
	RecentLogs(ctx context.Context, unit string, lines int) (string, error)
}

// Runtime is the containerd binary.
type Runtime interface {
	Version(ctx context.Context) (string, error)
	DefaultConfig(ctx context.Context) ([]byte, error)
	MigrateConfig(ctx context.Context, path string) ([]byte, error)
}

// RuntimeProbe talks to a running containerd over its socket.
type RuntimeProbe interface {
	Check(ctx context.Context) (containerd.ProbeResult, error)
}

// Engine is the docker CLI surface used for backups and verification.
type Engine interface {
	ServerVersion(ctx context.Context) (string, error)
	VersionReport(ctx context.Context) (string, error)
	Containers(ctx context.Context) (string, error)
	Images(ctx context.Context) (string, error)
	Networks(ctx context.Context) (string, error)
	CreateNetwork(ctx context.Context, name string) error
	RemoveNetwork(ctx context.Context, name string) error
	RunContainer(ctx context.Context, opts docker.RunOptions) (string, error)
	RemoveContainer(ctx context.Context, name string) error
}

// Cluster reads and changes the node's swarm membership.
type Cluster interface {
	Info(ctx context.Context) (docker.Membership, error)
	SetAvailability(ctx context.Context, nodeID string, a docker.Availability) error
	NodeTasks(ctx context.Context, nodeID string) ([]docker.Task, error)
	PendingServiceTasks(ctx context.Context) ([]docker.ServiceStatus, error)
}

// ToolkitIntegrator re-runs the accelerator toolkit's runtime integration.
type ToolkitIntegrator interface {
	Configure(ctx context.Context, runtime, configPath string) error
}
