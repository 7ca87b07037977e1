package hostfs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dstest "github.com/imamik/dockshift/internal/testing"
)

func TestFor(t *testing.T) {
	t.Parallel()

	local := dstest.NewFakeRunner()
	local.IsLocal = true
	assert.IsType(t, Local{}, For(local))

	remote := dstest.NewFakeRunner()
	assert.IsType(t, &Remote{}, For(remote))
}

func TestLocal_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	fsys := Local{}

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, fsys.MkdirAll(ctx, sub, 0o755))
	ok, err := fsys.IsDir(ctx, sub)
	require.NoError(t, err)
	assert.True(t, ok)

	path := filepath.Join(sub, "config.toml")
	require.NoError(t, fsys.WriteFile(ctx, path, []byte("version = 3\n"), 0o644))
	data, err := fsys.ReadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "version = 3\n", string(data))

	exists, err := fsys.Exists(ctx, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)

	err = fsys.Mkdir(ctx, sub, 0o700)
	assert.ErrorIs(t, err, fs.ErrExist)
}

func TestLocal_WriteFileReplacesAtomically(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 2\nroot = \"/var/lib/containerd\"\n"), 0o600))

	require.NoError(t, Local{}.WriteFile(ctx, path, []byte("version = 3\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version = 3\n", string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	names, err := Local{}.ReadDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"config.toml"}, names, "no temporary files left behind")
}

func TestLocal_WriteFileFailureKeepsTarget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")
	require.NoError(t, os.Mkdir(target, 0o755))
	dstest.WriteFile(t, target, "keep", "x")

	err := Local{}.WriteFile(ctx, target, []byte("version = 3\n"), 0o644)

	require.Error(t, err)
	ok, err := Local{}.IsDir(ctx, target)
	require.NoError(t, err)
	assert.True(t, ok)
	exists, err := Local{}.Exists(ctx, filepath.Join(target, "keep"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGlob(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, n := range []string{"docker-ce-29.1.5-1.el9.x86_64.rpm", "containerd.io-2.2.1-1.el9.x86_64.rpm", "README"} {
		dstest.WriteFile(t, dir, n, "x")
	}

	got, err := Glob(context.Background(), Local{}, dir, "*.rpm")

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "containerd.io-2.2.1-1.el9.x86_64.rpm"),
		filepath.Join(dir, "docker-ce-29.1.5-1.el9.x86_64.rpm"),
	}, got)
}

func TestRemote_ReadFile(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().
		On("test -e /etc/containerd/config.toml", "").
		On("cat -- /etc/containerd/config.toml", "version = 2\n").
		Fail("test -e /etc/docker/daemon.json", 1, "")
	fsys := &Remote{Runner: r}
	ctx := context.Background()

	data, err := fsys.ReadFile(ctx, "/etc/containerd/config.toml")
	require.NoError(t, err)
	assert.Equal(t, "version = 2\n", string(data))

	_, err = fsys.ReadFile(ctx, "/etc/docker/daemon.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRemote_WriteFile(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().
		On("tee -- /etc/containerd/config.toml.dockshift-tmp", "").
		On("chmod 644 -- /etc/containerd/config.toml.dockshift-tmp", "").
		On("mv -f -- /etc/containerd/config.toml.dockshift-tmp /etc/containerd/config.toml", "")
	fsys := &Remote{Runner: r}

	err := fsys.WriteFile(context.Background(), "/etc/containerd/config.toml", []byte("root = \"/data\"\n"), 0o644)

	require.NoError(t, err)
	require.Len(t, r.Calls, 3)
	assert.Equal(t, []byte("root = \"/data\"\n"), r.Calls[0].Stdin)
	assert.Equal(t, "mv -f -- /etc/containerd/config.toml.dockshift-tmp /etc/containerd/config.toml", r.Lines()[2])
}

func TestRemote_WriteFileFailureKeepsTarget(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().
		Fail("tee -- /etc/containerd/config.toml.dockshift-tmp", 1, "tee: No space left on device").
		On("rm -f -- /etc/containerd/config.toml.dockshift-tmp", "")
	fsys := &Remote{Runner: r}

	err := fsys.WriteFile(context.Background(), "/etc/containerd/config.toml", []byte("version = 3\n"), 0o644)

	require.Error(t, err)
	assert.Equal(t, []string{
		"tee -- /etc/containerd/config.toml.dockshift-tmp",
		"rm -f -- /etc/containerd/config.toml.dockshift-tmp",
	}, r.Lines())
}

func TestRemote_MkdirExisting(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().On("test -e /var/backups/x", "")
	fsys := &Remote{Runner: r}

	err := fsys.Mkdir(context.Background(), "/var/backups/x", 0o700)

	assert.ErrorIs(t, err, fs.ErrExist)
}

func TestRemote_ReadDir(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().On("ls -1A -- /opt/pkgs", "b.rpm\na.rpm\n\n")
	fsys := &Remote{Runner: r}

	names, err := fsys.ReadDir(context.Background(), "/opt/pkgs")

	require.NoError(t, err)
	assert.Equal(t, []string{"a.rpm", "b.rpm"}, names)
}

func TestRemote_TestErrorPropagates(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().Fail("test -d /opt/pkgs", 2, "test: bad")
	fsys := &Remote{Runner: r}

	_, err := fsys.IsDir(context.Background(), "/opt/pkgs")

	require.Error(t, err)
}
