package upgrade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/imamik/dockshift/internal/backup"
	"github.com/imamik/dockshift/internal/util/async"
)

// Snapshot creates the Backup Record and captures the pre-upgrade state
// into it. Only creating the record is fatal.
type Snapshot struct{}

func (Snapshot) Name() string { return "snapshot" }

func (s Snapshot) Run(ctx *Context) error {
	name := s.Name()

	rec, err := backup.Create(ctx, ctx.FS, ctx.Config.BackupRoot, ctx.now())
	if err != nil {
		return abort(name, "could not create the backup directory",
			fmt.Sprintf("check permissions and free space under %s", ctx.Config.BackupRoot), err)
	}
	ctx.State.Backup = rec
	ctx.Observer.Event(Event{Type: EventBackupCreated, Phase: name, Resource: rec.Dir, Message: "backup record " + rec.Name() + " created"})

	c := &capture{ctx: ctx, phase: name, rec: rec}
	c.listings(
		listing{backup.FileEngineVersion, ctx.Engine.VersionReport},
		listing{backup.FileContainers, ctx.Engine.Containers},
		listing{backup.FileImages, ctx.Engine.Images},
		listing{backup.FileNetworks, ctx.Engine.Networks},
	)
	c.item(backup.FilePackages, func() ([]byte, error) { return packageList(ctx) })
	c.item(backup.FileServices, func() ([]byte, error) { return serviceStates(ctx), nil })
	ctx.State.RuntimeConfigCaptured = c.copy(ctx.Config.Runtime.ConfigPath, backup.FileRuntimeConfig)
	c.copy(ctx.Config.Engine.ConfigPath, backup.FileEngineConfig)

	if err := rec.WriteManifest(ctx, s.manifest(ctx, c)); err != nil {
		ctx.warnf(name, "could not write the backup manifest: %v", err)
	}

	size, err := rec.Size(ctx)
	if err == nil {
		ctx.Observer.Printf("[%s] captured %d item(s), %s in %s", name, len(c.captured), humanize.IBytes(size), rec.Dir)
	}

	s.mirror(ctx, rec)
	return nil
}

func (s Snapshot) manifest(ctx *Context, c *capture) backup.Manifest {
	m := ctx.State.PriorMembership
	return backup.Manifest{
		RunID:          ctx.RunID,
		CreatedAt:      ctx.State.Backup.Created,
		Host:           ctx.Runner.Target(),
		OS:             ctx.State.Host.String(),
		OSMajor:        ctx.State.Host.MajorVersion,
		Strategy:       string(ctx.Config.Strategy),
		EngineVersion:  ctx.State.PriorEngineVersion,
		RuntimeVersion: ctx.State.PriorRuntimeVersion,
		TargetEngine:   ctx.Config.Target.EngineVersion,
		TargetRuntime:  ctx.Config.Target.RuntimeVersion,
		Cluster: backup.ClusterState{
			State:  string(m.State),
			NodeID: m.NodeID,
			Role:   string(m.Role),
		},
		RuntimeConfigPath: ctx.Config.Runtime.ConfigPath,
		EngineConfigPath:  ctx.Config.Engine.ConfigPath,
		Captured:          c.captured,
		Missing:           c.missing,
	}
}

func (s Snapshot) mirror(ctx *Context, rec *backup.Record) {
	if ctx.Mirror == nil {
		return
	}
	mc := ctx.Config.BackupMirror
	n, err := backup.Mirror(ctx, rec, ctx.Mirror, mc.Bucket, mc.Prefix, ctx.Runner.Target())
	if err != nil {
		ctx.warnf(s.Name(), "backup mirror incomplete (%d file(s) uploaded): %v", n, err)
		return
	}
	ctx.Observer.Printf("[%s] mirrored %d file(s) to s3://%s/%s", s.Name(), n, mc.Bucket, mc.Prefix)
}

// capture writes items into a record, collecting what succeeded.
type capture struct {
	ctx      *Context
	phase    string
	rec      *backup.Record
	captured []string
	missing  []string
}

func (c *capture) item(name string, fn func() ([]byte, error)) {
	data, err := fn()
	if err == nil {
		err = c.rec.WriteFile(c.ctx, name, data)
	}
	if err != nil {
		c.missing = append(c.missing, name)
		c.ctx.warnf(c.phase, "could not capture %s: %v", name, err)
		return
	}
	c.captured = append(c.captured, name)
}

// listing is engine command output captured into a record item.
type listing struct {
	name  string
	fetch func(context.Context) (string, error)
}

// listings queries the engine concurrently, then writes the items in order.
func (c *capture) listings(ls ...listing) {
	outs := make([]string, len(ls))
	tasks := make([]async.Task, 0, len(ls))
	for i, l := range ls {
		tasks = append(tasks, async.Task{Name: l.name, Func: func(ctx context.Context) error {
			out, err := l.fetch(ctx)
			outs[i] = out
			return err
		}})
	}
	errs := async.Run(c.ctx, tasks)

	for i, l := range ls {
		c.item(l.name, func() ([]byte, error) { return []byte(outs[i]), errs[l.name] })
	}
}

// copy captures a host file. A missing source is reported, not failed.
func (c *capture) copy(src, name string) bool {
	err := c.rec.CopyFile(c.ctx, src, name)
	switch {
	case err == nil:
		c.captured = append(c.captured, name)
		return true
	case errors.Is(err, backup.ErrNotCaptured):
		c.missing = append(c.missing, name)
		c.ctx.warnf(c.phase, "%s not present, nothing to capture", src)
	default:
		c.missing = append(c.missing, name)
		c.ctx.warnf(c.phase, "could not capture %s: %v", src, err)
	}
	return false
}

func packageList(ctx *Context) ([]byte, error) {
	pkgs, err := ctx.Packages.ListInstalled(ctx)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, p := range pkgs {
		b.WriteString(p.String())
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

func serviceStates(ctx *Context) []byte {
	var b strings.Builder
	svc := ctx.Config.Services
	for _, unit := range []string{svc.Runtime, svc.EngineSocket, svc.Engine} {
		state, err := ctx.Services.State(ctx, unit)
		if err != nil {
			fmt.Fprintf(&b, "%s\tunknown (%v)\n", unit, err)
			continue
		}
		fmt.Fprintf(&b, "%s\t%s\n", unit, state)
	}
	return []byte(b.String())
}
