package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Mirror credentials may be supplied through the environment instead of
// the config file.
const (
	EnvMirrorAccessKey = "DOCKSHIFT_MIRROR_ACCESS_KEY"
	EnvMirrorSecretKey = "DOCKSHIFT_MIRROR_SECRET_KEY"
)

// Load returns the defaults when path is empty, otherwise LoadFile(path).
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		applyEnv(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads a YAML file over the defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if cfg.BackupMirror.AccessKey == "" {
		cfg.BackupMirror.AccessKey = os.Getenv(EnvMirrorAccessKey)
	}
	if cfg.BackupMirror.SecretKey == "" {
		cfg.BackupMirror.SecretKey = os.Getenv(EnvMirrorSecretKey)
	}
}
