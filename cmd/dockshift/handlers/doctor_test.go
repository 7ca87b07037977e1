package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/dockshift/internal/config"
	"github.com/imamik/dockshift/internal/platform/docker"
	"github.com/imamik/dockshift/internal/platform/fsinfo"
	"github.com/imamik/dockshift/internal/platform/osinfo"
	"github.com/imamik/dockshift/internal/upgrade"
	"github.com/imamik/dockshift/internal/util/prerequisites"
)

func diagnosis() *upgrade.Diagnosis {
	return &upgrade.Diagnosis{
		Host:          osinfo.Host{PrettyName: "Red Hat Enterprise Linux 8.10", MajorVersion: 8},
		Supported:     true,
		PackageDir:    "/opt/dockshift/packages/rhel8",
		Packages:      6,
		Tools:         &prerequisites.CheckResults{},
		EngineVersion: "28.5.1",
		Membership:    docker.Membership{State: docker.Active, NodeID: "qk1x", Role: docker.RoleManager},
		DataRoot:      fsinfo.Report{Path: "/var/lib/containerd", Status: fsinfo.CompatBad, Detail: "xfs on /var with ftype=0 (d_type unsupported)"},
		Notes:         []string{"runtime data root /var/lib/containerd needs relocation"},
	}
}

func TestDoctorStatus(t *testing.T) {
	st := doctorStatus("rhel8-node", config.Default(), diagnosis())

	assert.Equal(t, "rhel8-node", st.Host)
	assert.Equal(t, "Red Hat Enterprise Linux 8.10", st.OS)
	assert.Equal(t, "direct", st.Strategy)
	assert.Equal(t, "29.1.5", st.TargetEngine)
	assert.Equal(t, "active manager", st.Swarm)
	assert.Equal(t, "bad", st.DataRootStatus)
	assert.True(t, st.Ready)
}

func TestSwarmLabel(t *testing.T) {
	assert.Equal(t, "not a member", swarmLabel(docker.Membership{State: docker.NotMember}))
	assert.Equal(t, "drained worker", swarmLabel(docker.Membership{State: docker.Drained, Role: docker.RoleWorker}))
}

func TestPrintDoctor(t *testing.T) {
	buf := captureStdout(t)
	d := diagnosis()

	printDoctor(doctorStatus("rhel8-node", config.Default(), d), d)

	out := buf.String()
	assert.Contains(t, out, "dockshift doctor: rhel8-node")
	assert.Contains(t, out, "28.5.1 -> 29.1.5")
	assert.Contains(t, out, "ftype=0")
	assert.Contains(t, out, "needs relocation")
	assert.Contains(t, out, "Ready.")
}

func TestPrintDoctorJSON(t *testing.T) {
	buf := captureStdout(t)
	d := diagnosis()
	d.Problems = []string{"package source: no *.rpm files in /opt/dockshift/packages/rhel8"}

	require.NoError(t, printDoctorJSON(doctorStatus("rhel8-node", config.Default(), d)))

	var got DoctorStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.False(t, got.Ready)
	assert.Len(t, got.Problems, 1)
	assert.Equal(t, 6, got.Packages)
}
