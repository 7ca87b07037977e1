package upgrade

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/imamik/dockshift/internal/config"
	"github.com/imamik/dockshift/internal/hostfs"
	"github.com/imamik/dockshift/internal/platform/docker"
	"github.com/imamik/dockshift/internal/platform/fsinfo"
	"github.com/imamik/dockshift/internal/platform/osinfo"
	"github.com/imamik/dockshift/internal/platform/rpm"
	"github.com/imamik/dockshift/internal/platform/systemd"
	"github.com/imamik/dockshift/internal/prompt"
	"github.com/imamik/dockshift/internal/runner"
	dstest "github.com/imamik/dockshift/internal/testing"
)

const (
	priorRuntimeConfig = "version = 2\n\n[plugins]\n  [plugins.\"io.containerd.grpc.v1.cri\"]\n    sandbox_image = \"registry.local/pause:3.9\"\n"
	migratedConfig     = "version = 3\n\n[plugins]\n  [plugins.\"io.containerd.cri.v1.images\"]\n"
	defaultConfigTOML  = "version = 3\nroot = \"/var/lib/containerd\"\nstate = \"/run/containerd\"\n"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// fakeHost is an in-memory RHEL host. It implements every collaborator
// interface of the upgrade package and journals each mutating call.
type fakeHost struct {
	journal []string

	installed     map[string]rpm.Package
	bundle        []rpm.Package
	transitionErr error

	units     map[string]systemd.State
	failStart map[string]bool

	runtimeVersion string
	migrated       []byte
	migrateErr     error
	defaultConfig  []byte

	runErr     error
	networkErr error

	membership docker.Membership
	tasks      [][]docker.Task
	pending    [][]docker.ServiceStatus
	infoErr    error

	configureErr error

	mounts map[string]fsinfo.Mount
	ftype  map[string]bool
	free   uint64
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		installed: map[string]rpm.Package{
			"docker-ce":     {Name: "docker-ce", Version: "28.5.1", Release: "1.el8", Arch: "x86_64"},
			"docker-ce-cli": {Name: "docker-ce-cli", Version: "28.5.1", Release: "1.el8", Arch: "x86_64"},
			"containerd.io": {Name: "containerd.io", Version: "1.7.28", Release: "1.el8", Arch: "x86_64"},
		},
		bundle: []rpm.Package{
			{Name: "docker-ce", Version: "29.1.5", Release: "1.el8", Arch: "x86_64"},
			{Name: "docker-ce-cli", Version: "29.1.5", Release: "1.el8", Arch: "x86_64"},
			{Name: "containerd.io", Version: "2.2.1", Release: "1.el8", Arch: "x86_64"},
		},
		units: map[string]systemd.State{
			"docker.socket":      systemd.StateActive,
			"docker.service":     systemd.StateActive,
			"containerd.service": systemd.StateActive,
		},
		failStart:      map[string]bool{},
		runtimeVersion: "2.2.1",
		migrated:       []byte(migratedConfig),
		defaultConfig:  []byte(defaultConfigTOML),
		membership:     docker.Membership{State: docker.NotMember},
		mounts:         map[string]fsinfo.Mount{"/": {Point: "/", FSType: "ext4", Source: "/dev/sda1"}},
		ftype:          map[string]bool{},
		free:           20 << 30,
	}
}

func (h *fakeHost) record(format string, v ...any) {
	h.journal = append(h.journal, fmt.Sprintf(format, v...))
}

// journalWith returns the journal entries starting with prefix.
func (h *fakeHost) journalWith(prefix string) []string {
	var out []string
	for _, e := range h.journal {
		if strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return out
}

func (h *fakeHost) applyBundle() {
	for _, p := range h.bundle {
		h.installed[p.Name] = p
	}
}

// PackageManager

func (h *fakeHost) Installed(_ context.Context, name string) (rpm.Package, bool, error) {
	p, ok := h.installed[name]
	return p, ok, nil
}

func (h *fakeHost) ListInstalled(context.Context) ([]rpm.Package, error) {
	out := make([]rpm.Package, 0, len(h.installed))
	for _, p := range h.installed {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (h *fakeHost) InstallFiles(_ context.Context, files []string, opts rpm.InstallOptions) error {
	h.record("rpm install %d files downgrade=%t", len(files), opts.Downgrade)
	if h.transitionErr != nil {
		return h.transitionErr
	}
	h.applyBundle()
	return nil
}

func (h *fakeHost) Install(_ context.Context, dir string, names []string) error {
	h.record("dnf install %s", filepath.Base(dir))
	return h.transitionErr
}

func (h *fakeHost) Sync(_ context.Context, dir string, names []string) error {
	h.record("dnf sync %s", filepath.Base(dir))
	if h.transitionErr != nil {
		return h.transitionErr
	}
	h.applyBundle()
	return nil
}

// ServiceManager

func (h *fakeHost) Stop(_ context.Context, unit string) error {
	h.record("stop %s", unit)
	h.units[unit] = systemd.StateInactive
	return nil
}

func (h *fakeHost) Start(_ context.Context, unit string) error {
	h.record("start %s", unit)
	if h.failStart[unit] {
		h.units[unit] = systemd.StateFailed
		return nil
	}
	h.units[unit] = systemd.StateActive
	return nil
}

func (h *fakeHost) Enable(_ context.Context, units ...string) error {
	h.record("enable %s", strings.Join(units, " "))
	return nil
}

func (h *fakeHost) State(_ context.Context, unit string) (systemd.State, error) {
	if s, ok := h.units[unit]; ok {
		return s, nil
	}
	return systemd.StateInactive, nil
}

func (h *fakeHost) RecentLogs(_ context.Context, unit string, _ int) (string, error) {
	return unit + ": failed to load config", nil
}

// Runtime

func (h *fakeHost) Version(context.Context) (string, error) { return h.runtimeVersion, nil }

func (h *fakeHost) DefaultConfig(context.Context) ([]byte, error) {
	if h.defaultConfig == nil {
		return nil, errors.New("containerd: command not found")
	}
	return h.defaultConfig, nil
}

func (h *fakeHost) MigrateConfig(_ context.Context, path string) ([]byte, error) {
	h.record("migrate %s", filepath.Base(path))
	return h.migrated, h.migrateErr
}

// Engine

func (h *fakeHost) ServerVersion(context.Context) (string, error) {
	if h.units["docker.service"] != systemd.StateActive {
		return "", errors.New("Cannot connect to the Docker daemon")
	}
	return h.installed["docker-ce"].Version, nil
}

func (h *fakeHost) VersionReport(context.Context) (string, error) {
	return "Client: Docker Engine - Community\n Version: " + h.installed["docker-ce"].Version + "\n", nil
}

func (h *fakeHost) Containers(context.Context) (string, error) {
	return "CONTAINER ID   IMAGE   NAMES\n3f1c0e2a   nginx   web\n", nil
}

func (h *fakeHost) Images(context.Context) (string, error) {
	return "REPOSITORY   TAG   IMAGE ID\nnginx   1.27   5ef79149e0ec\n", nil
}

func (h *fakeHost) Networks(context.Context) (string, error) {
	return "NETWORK ID   NAME   DRIVER\n1a2b3c   bridge   bridge\n", nil
}

func (h *fakeHost) CreateNetwork(_ context.Context, name string) error {
	h.record("network create %s", name)
	return h.networkErr
}

func (h *fakeHost) RemoveNetwork(_ context.Context, name string) error {
	h.record("network rm %s", name)
	return nil
}

func (h *fakeHost) RunContainer(_ context.Context, opts docker.RunOptions) (string, error) {
	h.record("run %s", opts.Image)
	if h.runErr != nil {
		return "Unable to find image '" + opts.Image + "' locally", h.runErr
	}
	return "Server: 127.0.0.11\nName: " + opts.Name + "\nAddress: 172.20.0.2\n", nil
}

func (h *fakeHost) RemoveContainer(_ context.Context, name string) error {
	h.record("container rm %s", name)
	return nil
}

// Cluster

func (h *fakeHost) Info(context.Context) (docker.Membership, error) {
	return h.membership, h.infoErr
}

func (h *fakeHost) SetAvailability(_ context.Context, nodeID string, a docker.Availability) error {
	h.record("availability %s %s", a, nodeID)
	h.membership.Availability = a
	if a == docker.AvailabilityDrain {
		h.membership.State = docker.Drained
	} else {
		h.membership.State = docker.Active
	}
	return nil
}

func (h *fakeHost) NodeTasks(context.Context, string) ([]docker.Task, error) {
	if len(h.tasks) == 0 {
		return nil, nil
	}
	t := h.tasks[0]
	if len(h.tasks) > 1 {
		h.tasks = h.tasks[1:]
	}
	return t, nil
}

func (h *fakeHost) PendingServiceTasks(context.Context) ([]docker.ServiceStatus, error) {
	if len(h.pending) == 0 {
		return nil, nil
	}
	p := h.pending[0]
	if len(h.pending) > 1 {
		h.pending = h.pending[1:]
	}
	return p, nil
}

// Toolkit

func (h *fakeHost) Configure(_ context.Context, rt, _ string) error {
	h.record("toolkit configure %s", rt)
	return h.configureErr
}

// fsinfo.Inspector

func (h *fakeHost) Mount(_ context.Context, path string) (fsinfo.Mount, error) {
	best := ""
	for point := range h.mounts {
		if (path == point || strings.HasPrefix(path, strings.TrimSuffix(point, "/")+"/")) && len(point) > len(best) {
			best = point
		}
	}
	if best == "" {
		return fsinfo.Mount{}, fmt.Errorf("no mount for %s", path)
	}
	return h.mounts[best], nil
}

func (h *fakeHost) XFSFtype(_ context.Context, mountPoint string) (bool, error) {
	v, ok := h.ftype[mountPoint]
	if !ok {
		return false, errors.New("xfs_info: command not found")
	}
	return v, nil
}

func (h *fakeHost) Available(context.Context, string) (uint64, error) { return h.free, nil }

// addXFS registers an xfs mount with the given ftype flag.
func (h *fakeHost) addXFS(point string, ftype bool) {
	h.mounts[point] = fsinfo.Mount{Point: point, FSType: "xfs", Source: "/dev/mapper/" + filepath.Base(point)}
	h.ftype[point] = ftype
}

// fakeFS is the local filesystem with an in-memory os-release.
type fakeFS struct {
	hostfs.Local
	release string
}

func (f *fakeFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if path == osinfo.ReleaseFile {
		if f.release == "" {
			return nil, os.ErrNotExist
		}
		return []byte(f.release), nil
	}
	return f.Local.ReadFile(ctx, path)
}

func osRelease(major int) string {
	return fmt.Sprintf("NAME=\"Red Hat Enterprise Linux\"\nID=\"rhel\"\nID_LIKE=\"fedora\"\nVERSION_ID=\"%d.10\"\nPRETTY_NAME=\"Red Hat Enterprise Linux %d.10\"\n", major, major)
}

// toolRunner answers tool lookups as present and fails everything else.
func toolRunner() *dstest.FakeRunner {
	r := dstest.NewFakeRunner()
	r.Handler = func(cmd runner.Command) (dstest.FakeResponse, bool) {
		if cmd.Name == "sh" && len(cmd.Args) == 2 {
			if tool, ok := strings.CutPrefix(cmd.Args[1], "command -v "); ok {
				return dstest.FakeResponse{Stdout: "/usr/bin/" + tool + "\n"}, true
			}
		}
		return dstest.FakeResponse{}, false
	}
	return r
}

// testEnv bundles a Context with the fakes behind it.
type testEnv struct {
	ctx      *Context
	host     *fakeHost
	fs       *fakeFS
	operator *dstest.ScriptedOperator
	observer *MockObserver
	root     string
}

// newTestEnv prepares a RHEL 8 host under a temp root with the engine
// bundle in place, a prior runtime configuration, and default answers.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	cfg := dstest.NewConfigBuilder().WithRoot(root).Build()

	for _, f := range []string{"docker-ce-29.1.5-1.el8.x86_64.rpm", "docker-ce-cli-29.1.5-1.el8.x86_64.rpm", "containerd.io-2.2.1-1.el8.x86_64.rpm"} {
		dstest.WriteFile(t, cfg.PackageDir(8), f, "rpm")
		dstest.WriteFile(t, cfg.PackageDir(9), f, "rpm")
	}
	dstest.WriteFile(t, filepath.Dir(cfg.Runtime.ConfigPath), filepath.Base(cfg.Runtime.ConfigPath), priorRuntimeConfig)

	host := newFakeHost()
	fsys := &fakeFS{release: osRelease(8)}
	op := &dstest.ScriptedOperator{}
	obs := NewMockObserver()

	ctx := &Context{
		Context: dstest.TestContext(t),
		Config:  cfg,
		Timeouts: &config.Timeouts{
			SettleStop:             5 * time.Second,
			SettleStart:            5 * time.Second,
			DrainPollInterval:      time.Second,
			DrainPollAttempts:      3,
			ReactivatePollInterval: time.Second,
			ReactivatePollAttempts: 3,
			Command:                time.Minute,
		},
		State:     NewState(),
		Mode:      ModeUpgrade,
		RunID:     "9b2d7c1e-test",
		Runner:    toolRunner(),
		FS:        fsys,
		Packages:  host,
		Services:  host,
		Runtime:   host,
		Engine:    host,
		Cluster:   host,
		Toolkit:   host,
		Inspector: host,
		Operator:  op,
		Observer:  obs,
		Sleep:     dstest.NoSleep,
		Now:       func() time.Time { return testNow },
		Euid:      func() int { return 0 },
	}
	return &testEnv{ctx: ctx, host: host, fs: fsys, operator: op, observer: obs, root: root}
}

// runtimeConfig returns the runtime configuration currently on disk.
func (e *testEnv) runtimeConfig(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(e.ctx.Config.Runtime.ConfigPath)
	if err != nil {
		t.Fatalf("read runtime config: %v", err)
	}
	return string(data)
}

// interruptedOperator behaves like an operator pressing Ctrl-C.
type interruptedOperator struct{}

func (interruptedOperator) Confirm(context.Context, string, bool) (bool, error) {
	return false, prompt.ErrInterrupted
}

func (interruptedOperator) Input(context.Context, string, string) (string, error) {
	return "", prompt.ErrInterrupted
}
