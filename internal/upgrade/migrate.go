package upgrade

import (
	"fmt"
	"path/filepath"

	"github.com/imamik/dockshift/internal/backup"
	"github.com/imamik/dockshift/internal/platform/runtimeconfig"
)

// Config sources recorded in State.ConfigSource.
const (
	ConfigMigrated = "migrated"
	ConfigDefault  = "default"
	ConfigRestored = "restored"
)

// MigrateConfig brings the runtime configuration to the installed
// runtime's schema: the captured file is migrated when possible, else a
// default is generated. The phase ends with a valid file or aborts.
type MigrateConfig struct{}

func (MigrateConfig) Name() string { return "migrate-config" }

func (m MigrateConfig) Run(ctx *Context) error {
	name := m.Name()

	var prior []byte
	if ctx.State.RuntimeConfigCaptured && ctx.State.Backup != nil {
		data, err := ctx.State.Backup.ReadFile(ctx, backup.FileRuntimeConfig)
		if err != nil {
			ctx.warnf(name, "captured runtime configuration unreadable: %v", err)
		} else {
			prior = data
		}
	}

	var data []byte
	source := ConfigDefault
	if prior != nil {
		migrated, err := ctx.Runtime.MigrateConfig(ctx, ctx.State.Backup.Path(backup.FileRuntimeConfig))
		if err == nil {
			err = runtimeconfig.Validate(migrated)
		}
		if err != nil {
			ctx.warnf(name, "migration of the prior configuration failed, generating a default: %v", err)
		} else {
			data, source = migrated, ConfigMigrated
		}
	}

	if data == nil {
		def, err := defaultConfig(ctx)
		if err != nil {
			return abort(name, "could not produce a valid runtime configuration",
				"run `containerd config default` on the host to diagnose", err)
		}
		data = m.keepRoot(ctx, prior, def)
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
	return nil
}

// keepRoot carries a customised data root from the prior configuration
// into a generated default, so the runtime does not silently move its state.
func (m MigrateConfig) keepRoot(ctx *Context, prior, def []byte) []byte {
	if prior == nil {
		return def
	}
	root, err := runtimeconfig.Root(prior)
	if err != nil || root == "" {
		return def
	}
	out, err := runtimeconfig.SetRoot(def, root)
	if err != nil {
		ctx.warnf(m.Name(), "could not carry data root %s into the default configuration: %v", root, err)
		return def
	}
	return out
}

func defaultConfig(ctx *Context) ([]byte, error) {
	def, err := ctx.Runtime.DefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := runtimeconfig.Validate(def); err != nil {
		return nil, fmt.Errorf("default configuration invalid: %w", err)
	}
	return def, nil
}

// writeRuntimeConfig writes data to the runtime config path and reads it
// back to confirm the file on disk is valid.
func writeRuntimeConfig(ctx *Context, data []byte) error {
	path := ctx.Config.Runtime.ConfigPath
	if err := ctx.FS.MkdirAll(ctx, filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := ctx.FS.WriteFile(ctx, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	written, err := ctx.FS.ReadFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to read back %s: %w", path, err)
	}
	if err := runtimeconfig.Validate(written); err != nil {
		return fmt.Errorf("%s invalid after write: %w", path, err)
	}
	return nil
}
