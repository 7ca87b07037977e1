package rpm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/dockshift/internal/runner"
	dstest "github.com/imamik/dockshift/internal/testing"
)

func query(name string) string {
	return runner.Cmd("rpm", "-q", "--qf", queryFormat, name).String()
}

func TestInstalled(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().
		On(query("docker-ce"), "docker-ce\t3\t28.5.1\t1.el9\tx86_64\n")
	r.Responses[query("nvidia-container-toolkit")] = dstest.FakeResponse{
		Stdout: "package nvidia-container-toolkit is not installed\n", ExitCode: 1,
	}
	m := New(r)
	ctx := context.Background()

	pkg, ok, err := m.Installed(ctx, "docker-ce")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "28.5.1", pkg.Version)
	assert.Equal(t, "docker-ce-28.5.1-1.el9.x86_64", pkg.String())
	assert.True(t, pkg.Is("28.5.1"))
	assert.False(t, pkg.Is("29.1.5"))

	_, ok, err = m.Installed(ctx, "nvidia-container-toolkit")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstalled_QueryError(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().Fail(query("docker-ce"), 1, "error: rpmdb open failed")

	_, _, err := New(r).Installed(context.Background(), "docker-ce")

	assert.ErrorContains(t, err, "rpmdb open failed")
}

func TestListInstalled_Sorted(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().
		On(runner.Cmd("rpm", "-qa", "--qf", queryFormat).String(),
			"docker-ce\t3\t29.1.5\t1.el9\tx86_64\ncontainerd.io\t0\t2.2.1\t1.el9\tx86_64\n")

	pkgs, err := New(r).ListInstalled(context.Background())

	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "containerd.io", pkgs[0].Name)
	assert.True(t, pkgs[0].Is("2.2.1"))
}

func TestInstallFiles(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().
		On("rpm -Uvh --force --nodeps /p/a.rpm /p/b.rpm", "").
		On("rpm -Uvh --force --nodeps --oldpackage /r/a.rpm", "")
	m := New(r)
	ctx := context.Background()

	require.NoError(t, m.InstallFiles(ctx, []string{"/p/a.rpm", "/p/b.rpm"}, InstallOptions{}))
	require.NoError(t, m.InstallFiles(ctx, []string{"/r/a.rpm"}, InstallOptions{Downgrade: true}))
	assert.Error(t, m.InstallFiles(ctx, nil, InstallOptions{}))
}

func TestInstallAndSync_LocalRepoOnly(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner()
	r.Handler = func(cmd runner.Command) (dstest.FakeResponse, bool) {
		if cmd.Args[0] == "install" {
			return dstest.FakeResponse{Stdout: "Package docker-ce is already installed.\nError: Nothing to do.\n", ExitCode: 1}, true
		}
		return dstest.FakeResponse{}, true
	}
	m := New(r)
	ctx := context.Background()

	require.NoError(t, m.Install(ctx, "/opt/pkgs/rhel8", []string{"docker-ce"}))
	require.NoError(t, m.Sync(ctx, "/opt/pkgs/rhel8", []string{"docker-ce"}))

	require.Len(t, r.Calls, 2)
	for _, c := range r.Calls {
		assert.Equal(t, "dnf", c.Name)
		assert.Contains(t, c.Args, "--disablerepo=*")
		assert.Contains(t, c.Args, "--repofrompath=dockshift-local,/opt/pkgs/rhel8")
		assert.Equal(t, "docker-ce", c.Args[len(c.Args)-1])
	}
	assert.Equal(t, "distro-sync", r.Calls[1].Args[0])
	assert.Contains(t, r.Calls[1].Args, "--allowerasing")
}

func TestDnfFailure(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner()
	r.Handler = func(runner.Command) (dstest.FakeResponse, bool) {
		return dstest.FakeResponse{Stderr: "Error: Unable to find a match: docker-ce", ExitCode: 1}, true
	}

	err := New(r).Install(context.Background(), "/opt/pkgs/rhel9", []string{"docker-ce"})

	assert.ErrorContains(t, err, "dnf install failed")
}
