package upgrade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/dockshift/internal/platform/docker"
	"github.com/imamik/dockshift/internal/platform/fsinfo"
)

func TestDiagnose_ReadyHost(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	d, err := Diagnose(env.ctx)
	require.NoError(t, err)

	assert.True(t, d.Ready(), "problems: %v", d.Problems)
	assert.True(t, d.Supported)
	assert.Equal(t, 8, d.Host.MajorVersion)
	assert.Equal(t, env.ctx.Config.PackageDir(8), d.PackageDir)
	assert.Equal(t, 3, d.Packages)
	assert.Equal(t, "28.5.1", d.EngineVersion)
	assert.Equal(t, "1.7.28", d.RuntimeVersion)
	assert.False(t, d.ToolkitInstalled)
	assert.Equal(t, fsinfo.CompatOK, d.DataRoot.Status)
	assert.Zero(t, d.Backups)
	assert.False(t, d.Tools.HasErrors())

	// Diagnose never touches the host.
	assert.Empty(t, env.host.journal)
	assert.Empty(t, env.operator.Questions)
	assert.Empty(t, env.ctx.State.Warnings)
}

func TestDiagnose_Problems(t *testing.T) {
	t.Parallel()

	t.Run("unsupported OS", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.fs.release = osRelease(7)

		d, err := Diagnose(env.ctx)
		require.NoError(t, err)

		assert.False(t, d.Ready())
		assert.False(t, d.Supported)
		assert.Contains(t, d.Problems, "unsupported OS major version 7")
	})

	t.Run("missing package source", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		require.NoError(t, os.RemoveAll(env.ctx.Config.PackageDir(8)))

		d, err := Diagnose(env.ctx)
		require.NoError(t, err)

		assert.False(t, d.Ready())
		require.Len(t, d.Problems, 1)
		assert.Contains(t, d.Problems[0], "package source")
	})
}

func TestDiagnose_Notes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.host.membership = docker.Membership{State: docker.Active, NodeID: "n1", Role: docker.RoleManager}
	env.host.addXFS(filepath.Join(env.root, "var"), false)
	require.NoError(t, Snapshot{}.Run(env.ctx))
	env.host.journal = nil

	d, err := Diagnose(env.ctx)
	require.NoError(t, err)

	assert.True(t, d.Ready())
	assert.Equal(t, fsinfo.CompatBad, d.DataRoot.Status)
	assert.Equal(t, 1, d.Backups)
	assert.Equal(t, env.ctx.State.Backup.Dir, d.LatestBackup)
	assert.Contains(t, d.Notes, "node n1 is an active swarm manager and will be offered a drain")
	assert.Len(t, d.Notes, 3)
	assert.Empty(t, env.host.journal)
}
