package upgrade

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/imamik/dockshift/internal/backup"
	"github.com/imamik/dockshift/internal/platform/runtimeconfig"
)

// LocateBackup selects the Backup Record a rollback restores from: the
// given directory, or the most recent record under the backup root.
type LocateBackup struct {
	Dir string
}

func (LocateBackup) Name() string { return "locate-backup" }

func (l LocateBackup) Run(ctx *Context) error {
	name := l.Name()

	var (
		rec *backup.Record
		err error
	)
	if l.Dir != "" {
		rec, err = backup.Open(ctx, ctx.FS, l.Dir)
	} else {
		rec, err = backup.Latest(ctx, ctx.FS, ctx.Config.BackupRoot)
	}
	if errors.Is(err, backup.ErrNoBackups) {
		return abort(name, "no backup record under "+ctx.Config.BackupRoot,
			"pass --backup <dir> or restore the backup directory first", err)
	}
	if err != nil {
		return abort(name, "could not open the backup record", "", err)
	}
	ctx.State.Backup = rec

	has, err := rec.Has(ctx, backup.FileRuntimeConfig)
	if err != nil {
		ctx.warnf(name, "could not inspect %s: %v", rec.Dir, err)
	}
	ctx.State.RuntimeConfigCaptured = has

	m, err := rec.Manifest(ctx)
	if err != nil {
		ctx.warnf(name, "backup %s has no readable manifest: %v", rec.Name(), err)
		return nil
	}
	ctx.Observer.Printf("[%s] using %s taken %s on %s (engine %s)",
		name, rec.Name(), m.CreatedAt.Format("2006-01-02 15:04:05"), m.Host, m.EngineVersion)
	if m.EngineVersion != "" && m.EngineVersion != ctx.Config.Rollback.EngineVersion {
		ctx.warnf(name, "backup was taken from engine %s but the rollback target is %s", m.EngineVersion, ctx.Config.Rollback.EngineVersion)
	}
	return nil
}

// RestoreConfig puts the configurations captured in the backup back in
// place. The runtime ends with a valid file either way; the engine file is
// only restored when it was captured.
type RestoreConfig struct{}

func (RestoreConfig) Name() string { return "restore-config" }

func (r RestoreConfig) Run(ctx *Context) error {
	name := r.Name()
	rec := ctx.State.Backup

	var data []byte
	source := ConfigDefault
	if ctx.State.RuntimeConfigCaptured {
		captured, err := rec.ReadFile(ctx, backup.FileRuntimeConfig)
		if err == nil {
			err = runtimeconfig.Validate(captured)
		}
		if err != nil {
			ctx.warnf(name, "captured runtime configuration unusable, generating a default: %v", err)
		} else {
			data, source = captured, ConfigRestored
		}
	} else {
		ctx.warnf(name, "backup holds no runtime configuration, generating a default")
	}

	if data == nil {
		def, err := defaultConfig(ctx)
		if err != nil {
			return abort(name, "could not produce a valid runtime configuration",
				"run `containerd config default` on the host to diagnose", err)
		}
		data = def
	}
	if err := writeRuntimeConfig(ctx, data); err != nil {
		return abort(name, "runtime configuration not written", "", err)
	}
	ctx.State.ConfigSource = source
	ctx.Observer.Event(Event{
		Type:     EventConfigWritten,
		Phase:    name,
		Resource: ctx.Config.Runtime.ConfigPath,
		Message:  fmt.Sprintf("wrote %s runtime configuration", source),
	})

	r.restoreEngine(ctx, rec)
	return nil
}

func (r RestoreConfig) restoreEngine(ctx *Context, rec *backup.Record) {
	ok, err := rec.Has(ctx, backup.FileEngineConfig)
	if err != nil || !ok {
		return
	}
	data, err := rec.ReadFile(ctx, backup.FileEngineConfig)
	if err != nil {
		ctx.warnf(r.Name(), "could not read the captured engine configuration: %v", err)
		return
	}
	path := ctx.Config.Engine.ConfigPath
	if err := ctx.FS.MkdirAll(ctx, filepath.Dir(path), 0o755); err != nil {
		ctx.warnf(r.Name(), "could not create %s: %v", filepath.Dir(path), err)
		return
	}
	if err := ctx.FS.WriteFile(ctx, path, data, 0o644); err != nil {
		ctx.warnf(r.Name(), "could not restore %s: %v", path, err)
		return
	}
	ctx.Observer.Printf("[%s] restored %s", r.Name(), path)
}
