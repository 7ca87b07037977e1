package testing

import (
	"path/filepath"

	"github.com/imamik/dockshift/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a new ConfigBuilder starting from the defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: *config.Default()}
}

// WithRoot relocates every host path below root, so a test can point the
// config at a t.TempDir().
func (b *ConfigBuilder) WithRoot(root string) *ConfigBuilder {
	newBuilder := b.clone()
	c := &newBuilder.cfg
	c.PackageRoot = filepath.Join(root, "packages")
	c.RollbackPackageRoot = filepath.Join(root, "rollback")
	c.BackupRoot = filepath.Join(root, "backups")
	c.LogFile = filepath.Join(root, "dockshift.log")
	c.Runtime.ConfigPath = filepath.Join(root, "etc/containerd/config.toml")
	c.Runtime.DefaultRoot = filepath.Join(root, "var/lib/containerd")
	c.Engine.ConfigPath = filepath.Join(root, "etc/docker/daemon.json")
	c.Engine.DefaultDataRoot = filepath.Join(root, "var/lib/docker")
	return newBuilder
}

// WithStrategy sets the package transition strategy.
func (b *ConfigBuilder) WithStrategy(s config.Strategy) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Strategy = s
	return newBuilder
}

// WithTarget sets the target engine and runtime versions.
func (b *ConfigBuilder) WithTarget(engine, runtime string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Target.EngineVersion = engine
	newBuilder.cfg.Target.RuntimeVersion = runtime
	return newBuilder
}

// WithPackages replaces the engine package set.
func (b *ConfigBuilder) WithPackages(names ...string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Packages = cloneStringSlice(names)
	return newBuilder
}

// WithMetricsTextfile enables the metrics textfile.
func (b *ConfigBuilder) WithMetricsTextfile(path string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Metrics.Textfile = path
	return newBuilder
}

// Build returns the constructed config.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.clone().cfg
	return &cfg
}

// clone creates a deep copy of the builder.
func (b *ConfigBuilder) clone() *ConfigBuilder {
	newCfg := b.cfg
	newCfg.Packages = cloneStringSlice(b.cfg.Packages)
	newCfg.Toolkit.Packages = cloneStringSlice(b.cfg.Toolkit.Packages)
	return &ConfigBuilder{cfg: newCfg}
}

// cloneStringSlice creates a copy of a string slice.
func cloneStringSlice(s []string) []string {
	if s == nil {
		return nil
	}
	cloned := make([]string, len(s))
	copy(cloned, s)
	return cloned
}

// MinimalConfig returns the default config for simple tests.
func MinimalConfig() *config.Config {
	return NewConfigBuilder().Build()
}
