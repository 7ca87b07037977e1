package runtimeconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const v3Config = `# managed by ops
version = 3
root = "/var/lib/containerd"
state = "/run/containerd"

[grpc]
  address = "/run/containerd/containerd.sock"

[plugins."io.containerd.cri.v1.runtime".containerd]
  default_runtime_name = "runc"
  root = "/not/the/top/level"
`

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate([]byte(v3Config)))
	assert.ErrorContains(t, Validate(nil), "empty")
	assert.ErrorContains(t, Validate([]byte("version = [")), "invalid runtime config")
	assert.ErrorContains(t, Validate([]byte(`version = "three"`)), "positive integer")
}

func TestRootAndVersion(t *testing.T) {
	t.Parallel()

	root, err := Root([]byte(v3Config))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/containerd", root)

	v, err := Version([]byte(v3Config))
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = Version([]byte("[grpc]\naddress = \"/x\"\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSetRoot_ReplacesTopLevelOnly(t *testing.T) {
	t.Parallel()

	out, err := SetRoot([]byte(v3Config), "/data/containerd")
	require.NoError(t, err)

	root, err := Root(out)
	require.NoError(t, err)
	assert.Equal(t, "/data/containerd", root)
	assert.Contains(t, string(out), "# managed by ops")
	assert.Contains(t, string(out), `root = "/not/the/top/level"`)
	assert.NotContains(t, string(out), `root = "/var/lib/containerd"`)
}

func TestSetRoot_InsertsAfterVersion(t *testing.T) {
	t.Parallel()
	in := "version = 3\n\n[grpc]\n  address = \"/run/containerd/containerd.sock\"\n"

	out, err := SetRoot([]byte(in), "/srv/containerd")

	require.NoError(t, err)
	assert.Equal(t, "version = 3\nroot = \"/srv/containerd\"\n\n[grpc]\n  address = \"/run/containerd/containerd.sock\"\n", string(out))
}

func TestSetRoot_InsertsAtTopWithoutVersion(t *testing.T) {
	t.Parallel()

	out, err := SetRoot([]byte("[grpc]\n  uid = 0\n"), "/srv/containerd")

	require.NoError(t, err)
	assert.Equal(t, "root = \"/srv/containerd\"\n[grpc]\n  uid = 0\n", string(out))
}

func TestSetRoot_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := SetRoot([]byte("root = "), "/srv")

	assert.Error(t, err)
}
