package upgrade

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/dockshift/internal/platform/docker"
	"github.com/imamik/dockshift/internal/util/retry"
)

// ClusterDrain takes an active swarm node out of scheduling before its
// engine is stopped.
type ClusterDrain struct{}

func (ClusterDrain) Name() string { return "cluster-drain" }

func (c ClusterDrain) Run(ctx *Context) error {
	name := c.Name()

	m, err := ctx.Cluster.Info(ctx)
	switch {
	case errors.Is(err, docker.ErrEngineUnavailable):
		ctx.warnf(name, "engine not reachable, no running swarm tasks to drain: %v", err)
		return nil
	case err != nil:
		ctx.warnf(name, "could not read swarm membership: %v", err)
		return c.proceedAnyway(ctx, "The swarm membership of this node could not be read. Proceed with the upgrade anyway?")
	}
	ctx.State.PriorMembership = m

	switch m.State {
	case docker.NotMember:
		LogPhaseSkipped(ctx.Observer, name, "node is not part of a swarm")
		return nil
	case docker.Drained:
		ctx.Observer.Printf("[%s] node %s is already drained", name, m.NodeID)
		return nil
	}

	if !m.CanManage() {
		return c.worker(ctx, m)
	}

	drain, err := ctx.confirm(name, fmt.Sprintf("Node %s is an active swarm %s. Drain it before upgrading?", m.NodeID, m.Role), true)
	if err != nil {
		return err
	}
	if !drain {
		ctx.State.DrainOverridden = true
		ctx.warnf(name, "continuing without draining node %s; services on it will be disrupted", m.NodeID)
		return nil
	}

	if err := ctx.Cluster.SetAvailability(ctx, m.NodeID, docker.AvailabilityDrain); err != nil {
		ctx.warnf(name, "drain request failed: %v", err)
		return c.proceedAnyway(ctx, "The drain request failed. Proceed with the upgrade anyway?")
	}
	ctx.State.DrainedByRun = true
	ctx.Observer.Event(Event{Type: EventNodeAvailability, Phase: name, Resource: m.NodeID, Message: "drain requested"})

	var remaining []docker.Task
	outcome, err := retry.Poll(ctx, retry.PollConfig{
		Interval:    ctx.Timeouts.DrainPollInterval,
		MaxAttempts: ctx.Timeouts.DrainPollAttempts,
		Sleep:       ctx.Sleep,
	}, func(attempt int) (bool, error) {
		tasks, err := ctx.Cluster.NodeTasks(ctx, m.NodeID)
		if err != nil {
			return false, err
		}
		remaining = tasks
		if len(tasks) > 0 {
			ctx.Observer.Printf("[%s] %d task(s) still on node (check %d/%d)", name, len(tasks), attempt, ctx.Timeouts.DrainPollAttempts)
		}
		return len(tasks) == 0, nil
	})

	switch outcome {
	case retry.Converged:
		ctx.Observer.Printf("[%s] node %s drained, no tasks remain", name, m.NodeID)
		return nil
	case retry.TimedOut:
		ctx.Observer.Printf("[%s] tasks still scheduled on this node: %s", name, taskNames(remaining))
		return c.proceedAnyway(ctx, fmt.Sprintf("%d task(s) are still running on this node. Proceed with the upgrade anyway?", len(remaining)))
	default:
		ctx.warnf(name, "could not confirm the drain: %v", err)
		return c.proceedAnyway(ctx, "Drain progress could not be confirmed. Proceed with the upgrade anyway?")
	}
}

// worker handles nodes that cannot change their own availability.
func (c ClusterDrain) worker(ctx *Context, m docker.Membership) error {
	ctx.warnf(c.Name(), "worker node %s cannot drain itself; run `docker node update --availability drain %s` on a manager", m.NodeID, m.NodeID)
	return c.proceedAnyway(ctx, "Has this node been drained from a manager (or do you accept the disruption)?")
}

// proceedAnyway asks for an explicit override, defaulting to abort.
func (c ClusterDrain) proceedAnyway(ctx *Context, question string) error {
	ok, err := ctx.confirm(c.Name(), question, false)
	if err != nil {
		return err
	}
	if !ok {
		return operatorAbort(c.Name(), "node not drained")
	}
	ctx.State.DrainOverridden = true
	ctx.warnf(c.Name(), "proceeding with workloads possibly still on this node (operator override)")
	return nil
}

func taskNames(tasks []docker.Task) string {
	names := make([]string, 0, len(tasks))
	for _, t := range tasks {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

// Reactivate returns a node drained earlier in the run to active
// availability and waits for services to converge.
type Reactivate struct{}

func (Reactivate) Name() string { return "reactivate" }

func (r Reactivate) Run(ctx *Context) error {
	name := r.Name()

	prior := ctx.State.PriorMembership
	if prior.State != docker.Active {
		LogPhaseSkipped(ctx.Observer, name, "node was not an active swarm member")
		return nil
	}

	m, err := ctx.Cluster.Info(ctx)
	if err != nil {
		ctx.warnf(name, "could not read swarm membership: %v", err)
		if ctx.State.DrainedByRun {
			ctx.warnf(name, "node %s was drained by this run; run `docker node update --availability active %s` when ready", prior.NodeID, prior.NodeID)
		}
		return nil
	}
	// An empty availability means the node could not be inspected.
	unknown := ctx.State.DrainedByRun && m.Availability == ""
	if m.State != docker.Drained && !unknown {
		LogPhaseSkipped(ctx.Observer, name, fmt.Sprintf("node is %s", m.State))
		return nil
	}

	ok, err := ctx.confirm(name, fmt.Sprintf("Restore node %s to active availability?", m.NodeID), true)
	if err != nil {
		return err
	}
	if !ok {
		ctx.warnf(name, "node %s left drained; run `docker node update --availability active %s` when ready", m.NodeID, m.NodeID)
		return nil
	}

	if err := ctx.Cluster.SetAvailability(ctx, m.NodeID, docker.AvailabilityActive); err != nil {
		ctx.warnf(name, "activation request failed: %v", err)
		return nil
	}
	ctx.Observer.Event(Event{Type: EventNodeAvailability, Phase: name, Resource: m.NodeID, Message: "activation requested"})

	var pending []docker.ServiceStatus
	outcome, err := retry.Poll(ctx, retry.PollConfig{
		Interval:    ctx.Timeouts.ReactivatePollInterval,
		MaxAttempts: ctx.Timeouts.ReactivatePollAttempts,
		Sleep:       ctx.Sleep,
	}, func(int) (bool, error) {
		services, err := ctx.Cluster.PendingServiceTasks(ctx)
		if err != nil {
			return false, err
		}
		pending = services
		return len(services) == 0, nil
	})

	switch outcome {
	case retry.Converged:
		ctx.Observer.Printf("[%s] node %s active, all services converged", name, m.NodeID)
	case retry.TimedOut:
		ctx.warnf(name, "services still settling after %d checks: %s", ctx.Timeouts.ReactivatePollAttempts, serviceNames(pending))
	default:
		ctx.warnf(name, "could not confirm service convergence: %v", err)
	}
	return nil
}

func serviceNames(services []docker.ServiceStatus) string {
	names := make([]string, 0, len(services))
	for _, s := range services {
		names = append(names, fmt.Sprintf("%s (%s)", s.Name, s.Replicas))
	}
	return strings.Join(names, ", ")
}
