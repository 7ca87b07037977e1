package config

import (
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
)

// ValidStrategies contains the package transition strategies.
var ValidStrategies = map[Strategy]bool{
	StrategyDirect: true,
	StrategyRepo:   true,
}

// Validate checks the configuration for common errors and returns a detailed error if validation fails.
func (c *Config) Validate() error {
	if err := c.validateVersions(); err != nil {
		return fmt.Errorf("version validation failed: %w", err)
	}

	if !ValidStrategies[c.Strategy] {
		return fmt.Errorf("invalid strategy %q: must be %q or %q", c.Strategy, StrategyDirect, StrategyRepo)
	}

	if err := c.validatePaths(); err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	if len(c.Packages) == 0 {
		return fmt.Errorf("packages must not be empty")
	}
	if c.Target.EnginePackage == "" || c.Target.RuntimePackage == "" {
		return fmt.Errorf("target.engine_package and target.runtime_package are required")
	}

	if c.Services.Engine == "" || c.Services.Runtime == "" {
		return fmt.Errorf("services.engine and services.runtime are required")
	}

	if err := c.validateMirror(); err != nil {
		return fmt.Errorf("backup mirror validation failed: %w", err)
	}

	return nil
}

func (c *Config) validateVersions() error {
	versions := map[string]string{
		"target.engine_version":   c.Target.EngineVersion,
		"target.runtime_version":  c.Target.RuntimeVersion,
		"rollback.engine_version": c.Rollback.EngineVersion,
	}
	for _, key := range []string{"target.engine_version", "target.runtime_version", "rollback.engine_version"} {
		v := versions[key]
		if v == "" {
			return fmt.Errorf("%s is required", key)
		}
		if _, err := semver.NewVersion(v); err != nil {
			return fmt.Errorf("%s %q is not a valid version: %w", key, v, err)
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	paths := []struct {
		key, value string
		required   bool
	}{
		{"package_root", c.PackageRoot, true},
		{"rollback_package_root", c.RollbackPackageRoot, true},
		{"backup_root", c.BackupRoot, true},
		{"log_file", c.LogFile, false},
		{"runtime.config_path", c.Runtime.ConfigPath, true},
		{"runtime.default_root", c.Runtime.DefaultRoot, true},
		{"engine.config_path", c.Engine.ConfigPath, true},
		{"toolkit.package_dir", c.Toolkit.PackageDir, false},
		{"metrics.textfile", c.Metrics.Textfile, false},
	}
	for _, p := range paths {
		if p.value == "" {
			if p.required {
				return fmt.Errorf("%s is required", p.key)
			}
			continue
		}
		if !filepath.IsAbs(p.value) {
			return fmt.Errorf("%s must be an absolute path, got %q", p.key, p.value)
		}
	}
	return nil
}

func (c *Config) validateMirror() error {
	m := c.BackupMirror
	if !m.Enabled {
		return nil
	}
	if m.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if m.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if m.AccessKey == "" || m.SecretKey == "" {
		return fmt.Errorf("access_key and secret_key are required (or set %s and %s)", EnvMirrorAccessKey, EnvMirrorSecretKey)
	}
	return nil
}
