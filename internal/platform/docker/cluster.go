package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/imamik/dockshift/internal/runner"
)

// MembershipState is a node's participation in a swarm.
type MembershipState string

const (
	NotMember MembershipState = "none"
	Active    MembershipState = "active"
	Drained   MembershipState = "drained"
)

// Role is a swarm node role.
type Role string

const (
	RoleManager Role = "manager"
	RoleWorker  Role = "worker"
)

// Availability is a swarm node availability.
type Availability string

const (
	AvailabilityActive Availability = "active"
	AvailabilityPause  Availability = "pause"
	AvailabilityDrain  Availability = "drain"
)

// Membership describes the local node's place in a swarm.
type Membership struct {
	State  MembershipState
	NodeID string
	Role   Role
	// Availability is empty when it cannot be read (workers cannot
	// inspect nodes).
	Availability Availability
}

// Member reports whether the node is in a swarm.
func (m Membership) Member() bool { return m.State != NotMember && m.State != "" }

// CanManage reports whether node operations can run on this host.
func (m Membership) CanManage() bool { return m.Role == RoleManager }

// Task is a swarm task scheduled on a node.
type Task struct {
	ID           string `json:"ID"`
	Name         string `json:"Name"`
	Image        string `json:"Image"`
	DesiredState string `json:"DesiredState"`
	CurrentState string `json:"CurrentState"`
}

// ServiceStatus is a service whose replicas have not converged.
type ServiceStatus struct {
	ID       string `json:"ID"`
	Name     string `json:"Name"`
	Mode     string `json:"Mode"`
	Replicas string `json:"Replicas"`
}

// ErrEngineUnavailable reports that the engine did not answer at all, so
// nothing is known about the node's membership.
var ErrEngineUnavailable = errors.New("engine not reachable")

// Cluster runs swarm commands through the docker CLI.
type Cluster struct {
	Runner runner.Runner
}

// NewCluster creates a Cluster on r.
func NewCluster(r runner.Runner) *Cluster {
	return &Cluster{Runner: r}
}

type swarmInfo struct {
	NodeID           string `json:"NodeID"`
	LocalNodeState   string `json:"LocalNodeState"`
	ControlAvailable bool   `json:"ControlAvailable"`
}

// Info reads the local node's membership. A manager whose availability
// cannot be inspected (no quorum, no leader) is still reported as an
// active manager with an empty Availability.
func (c *Cluster) Info(ctx context.Context) (Membership, error) {
	out, err := runner.Output(ctx, c.Runner, runner.Cmd("docker", "info", "--format", "{{json .Swarm}}"))
	if err != nil {
		return Membership{}, fmt.Errorf("failed to query swarm state: %w: %w", ErrEngineUnavailable, err)
	}
	var info swarmInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return Membership{}, fmt.Errorf("failed to parse swarm state: %w", err)
	}
	switch info.LocalNodeState {
	case "", "inactive":
		return Membership{State: NotMember}, nil
	case "active":
	default:
		return Membership{}, fmt.Errorf("node %s is in swarm state %q", info.NodeID, info.LocalNodeState)
	}

	m := Membership{State: Active, NodeID: info.NodeID, Role: RoleWorker}
	if !info.ControlAvailable {
		return m, nil
	}
	m.Role = RoleManager

	avail, err := runner.Output(ctx, c.Runner, runner.Cmd("docker", "node", "inspect", "self", "--format", "{{.Spec.Availability}}"))
	if err != nil {
		return m, nil
	}
	m.Availability = Availability(avail)
	if m.Availability == AvailabilityDrain {
		m.State = Drained
	}
	return m, nil
}

// SetAvailability updates a node's availability.
func (c *Cluster) SetAvailability(ctx context.Context, nodeID string, a Availability) error {
	if _, err := c.Runner.Run(ctx, runner.Cmd("docker", "node", "update", "--availability", string(a), nodeID)); err != nil {
		return fmt.Errorf("failed to set node %s to %s: %w", nodeID, a, err)
	}
	return nil
}

// NodeTasks returns tasks still running on a node.
func (c *Cluster) NodeTasks(ctx context.Context, nodeID string) ([]Task, error) {
	out, err := runner.Output(ctx, c.Runner, runner.Cmd("docker", "node", "ps", nodeID,
		"--filter", "desired-state=running", "--format", "{{json .}}"))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks on node %s: %w", nodeID, err)
	}
	var tasks []Task
	err = decodeLines(out, func(line []byte) error {
		var t Task
		if err := json.Unmarshal(line, &t); err != nil {
			return err
		}
		if strings.HasPrefix(strings.ToLower(t.CurrentState), "running") ||
			strings.HasPrefix(strings.ToLower(t.CurrentState), "starting") {
			tasks = append(tasks, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse tasks on node %s: %w", nodeID, err)
	}
	return tasks, nil
}

// PendingServiceTasks returns services whose running replicas differ from
// the desired count.
func (c *Cluster) PendingServiceTasks(ctx context.Context) ([]ServiceStatus, error) {
	out, err := runner.Output(ctx, c.Runner, runner.Cmd("docker", "service", "ls", "--format", "{{json .}}"))
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	var pending []ServiceStatus
	err = decodeLines(out, func(line []byte) error {
		var s ServiceStatus
		if err := json.Unmarshal(line, &s); err != nil {
			return err
		}
		if !converged(s.Replicas) {
			pending = append(pending, s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse services: %w", err)
	}
	return pending, nil
}

// converged parses "running/desired", ignoring any suffix such as
// "(max 1 per node)". Unparseable values count as converged.
func converged(replicas string) bool {
	fields := strings.Fields(replicas)
	if len(fields) == 0 {
		return true
	}
	running, desired, ok := strings.Cut(fields[0], "/")
	if !ok {
		return true
	}
	r, err1 := strconv.Atoi(running)
	d, err2 := strconv.Atoi(desired)
	if err1 != nil || err2 != nil {
		return true
	}
	return r == d
}

func decodeLines(out string, fn func([]byte) error) error {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := fn([]byte(line)); err != nil {
			return err
		}
	}
	return nil
}
