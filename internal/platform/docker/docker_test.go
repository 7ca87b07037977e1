package docker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/dockshift/internal/runner"
	dstest "github.com/imamik/dockshift/internal/testing"
)

var (
	swarmInfoCmd = runner.Cmd("docker", "info", "--format", "{{json .Swarm}}").String()
	nodeAvailCmd = runner.Cmd("docker", "node", "inspect", "self", "--format", "{{.Spec.Availability}}").String()
)

func TestClusterInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		swarm  string
		avail  string
		want   Membership
		member bool
	}{
		{
			name:  "not in a swarm",
			swarm: `{"NodeID":"","LocalNodeState":"inactive","ControlAvailable":false}`,
			want:  Membership{State: NotMember},
		},
		{
			name:   "active manager",
			swarm:  `{"NodeID":"n1","LocalNodeState":"active","ControlAvailable":true}`,
			avail:  "active",
			want:   Membership{State: Active, NodeID: "n1", Role: RoleManager, Availability: AvailabilityActive},
			member: true,
		},
		{
			name:   "drained manager",
			swarm:  `{"NodeID":"n1","LocalNodeState":"active","ControlAvailable":true}`,
			avail:  "drain",
			want:   Membership{State: Drained, NodeID: "n1", Role: RoleManager, Availability: AvailabilityDrain},
			member: true,
		},
		{
			name:   "worker",
			swarm:  `{"NodeID":"w1","LocalNodeState":"active","ControlAvailable":false}`,
			want:   Membership{State: Active, NodeID: "w1", Role: RoleWorker},
			member: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := dstest.NewFakeRunner().On(swarmInfoCmd, tt.swarm+"\n").On(nodeAvailCmd, tt.avail+"\n")

			got, err := NewCluster(r).Info(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.member, got.Member())
		})
	}
}

func TestClusterInfo_EngineDown(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().Fail(swarmInfoCmd, 1, "Cannot connect to the Docker daemon")

	_, err := NewCluster(r).Info(context.Background())

	assert.ErrorIs(t, err, ErrEngineUnavailable)
	assert.ErrorContains(t, err, "Cannot connect")
}

func TestClusterInfo_ManagerWithoutLeader(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().
		On(swarmInfoCmd, `{"NodeID":"n1","LocalNodeState":"active","ControlAvailable":true}`+"\n").
		Fail(nodeAvailCmd, 1, "Error response from daemon: rpc error: code = Unknown desc = The swarm does not have a leader.")

	got, err := NewCluster(r).Info(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Membership{State: Active, NodeID: "n1", Role: RoleManager}, got)
	assert.True(t, got.CanManage())
}

func TestClusterInfo_UnsettledState(t *testing.T) {
	t.Parallel()
	for _, state := range []string{"locked", "pending", "error"} {
		t.Run(state, func(t *testing.T) {
			t.Parallel()
			r := dstest.NewFakeRunner().On(swarmInfoCmd, `{"NodeID":"n1","LocalNodeState":"`+state+`","ControlAvailable":false}`)

			_, err := NewCluster(r).Info(context.Background())

			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrEngineUnavailable)
			assert.Contains(t, err.Error(), state)
		})
	}
}

func TestNodeTasks_OnlyRunning(t *testing.T) {
	t.Parallel()
	cmd := runner.Cmd("docker", "node", "ps", "n1", "--filter", "desired-state=running", "--format", "{{json .}}").String()
	r := dstest.NewFakeRunner().On(cmd, `{"ID":"t1","Name":"web.1","Image":"nginx","DesiredState":"Running","CurrentState":"Running 3 minutes ago"}
{"ID":"t2","Name":"web.2","Image":"nginx","DesiredState":"Running","CurrentState":"Shutdown 2 seconds ago"}
`)

	tasks, err := NewCluster(r).NodeTasks(context.Background(), "n1")

	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "web.1", tasks[0].Name)
}

func TestPendingServiceTasks(t *testing.T) {
	t.Parallel()
	cmd := runner.Cmd("docker", "service", "ls", "--format", "{{json .}}").String()
	r := dstest.NewFakeRunner().On(cmd, `{"ID":"s1","Name":"web","Mode":"replicated","Replicas":"2/3"}
{"ID":"s2","Name":"agent","Mode":"global","Replicas":"4/4"}
{"ID":"s3","Name":"db","Mode":"replicated","Replicas":"1/1 (max 1 per node)"}
`)

	pending, err := NewCluster(r).PendingServiceTasks(context.Background())

	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "web", pending[0].Name)
}

func TestSetAvailability(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().On("docker node update --availability drain n1", "n1\n")

	require.NoError(t, NewCluster(r).SetAvailability(context.Background(), "n1", AvailabilityDrain))
}

func TestEngine_RunContainer(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().
		On("docker run --rm --pull never --name probe --network dockshift-verify busybox:latest nslookup probe", "Name: probe\nAddress: 172.18.0.2\n")
	r.Responses["docker run --rm --pull never --gpus all nvidia/cuda:12.4.1-base-ubi9 nvidia-smi"] = dstest.FakeResponse{
		Stderr: "Unable to find image 'nvidia/cuda:12.4.1-base-ubi9' locally", ExitCode: 125,
	}
	e := NewEngine(r)
	ctx := context.Background()

	out, err := e.RunContainer(ctx, RunOptions{
		Name: "probe", Image: "busybox:latest", Network: "dockshift-verify",
		Command: []string{"nslookup", "probe"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "172.18.0.2")

	out, err = e.RunContainer(ctx, RunOptions{Image: "nvidia/cuda:12.4.1-base-ubi9", GPUs: "all", Command: []string{"nvidia-smi"}})
	assert.Error(t, err)
	assert.Contains(t, out, "Unable to find image")
}

func TestEngine_RemoveIgnoresMissing(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().
		Fail("docker network rm dockshift-verify", 1, "Error response from daemon: network dockshift-verify not found").
		Fail("docker rm -f probe", 1, "Error: No such container: probe")
	e := NewEngine(r)
	ctx := context.Background()

	assert.NoError(t, e.RemoveNetwork(ctx, "dockshift-verify"))
	assert.NoError(t, e.RemoveContainer(ctx, "probe"))
}

func TestEngine_Listings(t *testing.T) {
	t.Parallel()
	r := dstest.NewFakeRunner().
		On(runner.Cmd("docker", "version", "--format", "{{.Server.Version}}").String(), "28.5.1\n").
		On("docker ps -a", "CONTAINER ID   IMAGE\n").
		Fail("docker images", 1, "Cannot connect to the Docker daemon")
	e := NewEngine(r)
	ctx := context.Background()

	v, err := e.ServerVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "28.5.1", v)

	ps, err := e.Containers(ctx)
	require.NoError(t, err)
	assert.Contains(t, ps, "CONTAINER ID")

	_, err = e.Images(ctx)
	assert.ErrorContains(t, err, "docker images failed")
}
