package upgrade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/dockshift/internal/config"
	"github.com/imamik/dockshift/internal/platform/rpm"
	"github.com/imamik/dockshift/internal/runner"
	dstest "github.com/imamik/dockshift/internal/testing"
)

func TestPreflight_SelectsPackageDirByMajor(t *testing.T) {
	t.Parallel()

	for _, major := range []int{8, 9} {
		t.Run(filepath.Base(config.Default().PackageDir(major)), func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			env.fs.release = osRelease(major)

			require.NoError(t, Preflight{}.Run(env.ctx))

			assert.Equal(t, major, env.ctx.State.Host.MajorVersion)
			assert.Equal(t, env.ctx.Config.PackageDir(major), env.ctx.State.PackageDir)
			assert.Equal(t, "28.5.1", env.ctx.State.PriorEngineVersion)
			assert.Equal(t, "1.7.28", env.ctx.State.PriorRuntimeVersion)
			assert.False(t, env.ctx.State.ToolkitInstalled)
		})
	}
}

func TestPreflight_MissingPackageDirAborts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	require.NoError(t, os.RemoveAll(env.ctx.Config.PackageDir(8)))

	err := Preflight{}.Run(env.ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, err.Error(), "package source directory")
	assert.Contains(t, HintOf(err), "rhel8")
	assert.Empty(t, env.host.journal, "no host changes before the package source is confirmed")
}

func TestPreflight_EmptyPackageDirAborts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	dir := env.ctx.Config.PackageDir(8)
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.MkdirAll(dir, 0o755))

	err := Preflight{}.Run(env.ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no *.rpm files")
}

func TestPreflight_RepoStrategyNeedsRepodata(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.ctx.Config.Strategy = config.StrategyRepo

	err := Preflight{}.Run(env.ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repodata")

	require.NoError(t, os.MkdirAll(filepath.Join(env.ctx.Config.PackageDir(8), "repodata"), 0o755))
	require.NoError(t, Preflight{}.Run(env.ctx))
}

func TestPreflight_UnsupportedMajor(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.fs.release = osRelease(10)

	err := Preflight{}.Run(env.ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported OS major version 10")
}

func TestPreflight_MissingOSRelease(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.fs.release = ""

	err := Preflight{}.Run(env.ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not determine the OS version")
}

func TestPreflight_RequiresRootLocally(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r := toolRunner()
	r.IsLocal = true
	env.ctx.Runner = r
	env.ctx.Euid = func() int { return 1000 }

	err := Preflight{}.Run(env.ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must run as root")
	assert.Empty(t, r.Calls)
}

func TestPreflight_MissingRequiredTool(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r := toolRunner()
	inner := r.Handler
	r.Handler = func(cmd runner.Command) (dstest.FakeResponse, bool) {
		if cmd.String() == runner.Cmd("sh", "-c", "command -v systemctl").String() {
			return dstest.FakeResponse{ExitCode: 1}, true
		}
		return inner(cmd)
	}
	env.ctx.Runner = r

	err := Preflight{}.Run(env.ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "systemctl")
}

func TestPreflight_ToolkitAndWarnings(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.host.installed["nvidia-container-toolkit"] = rpm.Package{Name: "nvidia-container-toolkit", Version: "1.17.8"}
	env.host.installed["docker-ce"] = rpm.Package{Name: "docker-ce", Version: "29.1.5"}
	env.host.free = 512 << 20

	require.NoError(t, Preflight{}.Run(env.ctx))

	assert.True(t, env.ctx.State.ToolkitInstalled)
	assert.Contains(t, env.ctx.State.Warnings, "preflight: engine is already at 29.1.5; packages will be reinstalled")
	assert.Contains(t, env.ctx.State.Warnings, "preflight: only 512 MiB free under "+env.ctx.Config.BackupRoot)
}

func TestPreflight_RollbackUsesRollbackSource(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.ctx.Mode = ModeRollback
	dstest.WriteFile(t, env.ctx.Config.RollbackPackageDir(8), "docker-ce-28.5.1-1.el8.x86_64.rpm", "rpm")

	require.NoError(t, Preflight{}.Run(env.ctx))
	assert.Equal(t, env.ctx.Config.RollbackPackageDir(8), env.ctx.State.PackageDir)
}
