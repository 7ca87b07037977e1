package config

import (
	"fmt"
	"path/filepath"
)

// Strategy names a package transition strategy.
type Strategy string

const (
	// StrategyDirect installs every package file with rpm, bypassing
	// dependency resolution and any repository index.
	StrategyDirect Strategy = "direct"
	// StrategyRepo installs through dnf against a local repository,
	// then synchronizes with replacement allowed.
	StrategyRepo Strategy = "repo"
)

// SupportedMajors lists the RHEL major versions bundles are built for.
var SupportedMajors = []int{8, 9}

// Config is the full dockshift configuration.
type Config struct {
	Target   TargetConfig   `yaml:"target"`
	Rollback RollbackConfig `yaml:"rollback"`

	// PackageRoot holds one subdirectory per OS major version (rhel8, rhel9)
	// with the target-version package files.
	PackageRoot string `yaml:"package_root"`

	// RollbackPackageRoot has the same layout, holding the previous versions.
	RollbackPackageRoot string `yaml:"rollback_package_root"`

	BackupRoot string   `yaml:"backup_root"`
	LogFile    string   `yaml:"log_file"`
	Strategy   Strategy `yaml:"strategy"`

	// Packages is the engine package set replaced by a transition.
	Packages []string `yaml:"packages"`

	Toolkit      ToolkitConfig  `yaml:"toolkit"`
	Runtime      RuntimeConfig  `yaml:"runtime"`
	Engine       EngineConfig   `yaml:"engine"`
	Services     ServicesConfig `yaml:"services"`
	Verify       VerifyConfig   `yaml:"verify"`
	Metrics      MetricsConfig  `yaml:"metrics"`
	BackupMirror MirrorConfig   `yaml:"backup_mirror"`
}

// TargetConfig pins the versions an upgrade installs.
type TargetConfig struct {
	EngineVersion  string `yaml:"engine_version"`
	RuntimeVersion string `yaml:"runtime_version"`
	EnginePackage  string `yaml:"engine_package"`
	RuntimePackage string `yaml:"runtime_package"`
}

// RollbackConfig pins the version a rollback restores.
type RollbackConfig struct {
	EngineVersion string `yaml:"engine_version"`
}

// ToolkitConfig describes the optional NVIDIA container toolkit.
type ToolkitConfig struct {
	// DetectPackage marks the toolkit as installed when present.
	DetectPackage string   `yaml:"detect_package"`
	Packages      []string `yaml:"packages"`
	// PackageDir overrides <package dir>/nvidia.
	PackageDir string `yaml:"package_dir"`
	// Command is the toolkit CLI that wires it into engine and runtime.
	Command string `yaml:"command"`
}

// RuntimeConfig locates the containerd configuration and socket.
type RuntimeConfig struct {
	ConfigPath string `yaml:"config_path"`
	Socket     string `yaml:"socket"`
	// DefaultRoot is the data root used when the config sets none.
	DefaultRoot string `yaml:"default_root"`
}

// EngineConfig locates the Docker daemon configuration.
type EngineConfig struct {
	ConfigPath string `yaml:"config_path"`
	// DefaultDataRoot is used when daemon.json sets no data-root.
	DefaultDataRoot string `yaml:"default_data_root"`
}

// ServicesConfig names the systemd units.
type ServicesConfig struct {
	Engine       string `yaml:"engine"`
	EngineSocket string `yaml:"engine_socket"`
	Runtime      string `yaml:"runtime"`
}

// VerifyConfig controls the post-transition functional checks.
type VerifyConfig struct {
	TestImage   string `yaml:"test_image"`
	GPUImage    string `yaml:"gpu_image"`
	NetworkName string `yaml:"network_name"`
}

// MetricsConfig enables the node_exporter textfile output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// MirrorConfig configures the optional S3-compatible backup mirror.
type MirrorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Target: TargetConfig{
			EngineVersion:  "29.1.5",
			RuntimeVersion: "2.2.1",
			EnginePackage:  "docker-ce",
			RuntimePackage: "containerd.io",
		},
		Rollback: RollbackConfig{
			EngineVersion: "28.5.1",
		},
		PackageRoot:         "/opt/dockshift/packages",
		RollbackPackageRoot: "/opt/dockshift/rollback",
		BackupRoot:          "/var/backups/dockshift",
		LogFile:             "/var/log/dockshift.log",
		Strategy:            StrategyDirect,
		Packages: []string{
			"docker-ce",
			"docker-ce-cli",
			"containerd.io",
			"docker-buildx-plugin",
			"docker-compose-plugin",
			"docker-ce-rootless-extras",
		},
		Toolkit: ToolkitConfig{
			DetectPackage: "nvidia-container-toolkit",
			Packages: []string{
				"nvidia-container-toolkit",
				"nvidia-container-toolkit-base",
				"libnvidia-container-tools",
				"libnvidia-container1",
			},
			Command: "nvidia-ctk",
		},
		Runtime: RuntimeConfig{
			ConfigPath:  "/etc/containerd/config.toml",
			Socket:      "/run/containerd/containerd.sock",
			DefaultRoot: "/var/lib/containerd",
		},
		Engine: EngineConfig{
			ConfigPath:      "/etc/docker/daemon.json",
			DefaultDataRoot: "/var/lib/docker",
		},
		Services: ServicesConfig{
			Engine:       "docker.service",
			EngineSocket: "docker.socket",
			Runtime:      "containerd.service",
		},
		Verify: VerifyConfig{
			TestImage:   "busybox:latest",
			GPUImage:    "nvidia/cuda:12.4.1-base-ubi9",
			NetworkName: "dockshift-verify",
		},
	}
}

// PackageDir returns the target package directory for an OS major version.
func (c *Config) PackageDir(major int) string {
	return filepath.Join(c.PackageRoot, osDir(major))
}

// RollbackPackageDir returns the rollback package directory for an OS major version.
func (c *Config) RollbackPackageDir(major int) string {
	return filepath.Join(c.RollbackPackageRoot, osDir(major))
}

// ToolkitDir returns the toolkit package directory for an OS major version.
func (c *Config) ToolkitDir(major int) string {
	if c.Toolkit.PackageDir != "" {
		return c.Toolkit.PackageDir
	}
	return filepath.Join(c.PackageDir(major), "nvidia")
}

func osDir(major int) string {
	return fmt.Sprintf("rhel%d", major)
}
