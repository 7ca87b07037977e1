package backup

import "time"

// Manifest summarises what a record holds and the host it came from.
type Manifest struct {
	RunID     string    `yaml:"run_id"`
	CreatedAt time.Time `yaml:"created_at"`
	Host      string    `yaml:"host"`
	OS        string    `yaml:"os"`
	OSMajor   int       `yaml:"os_major"`
	Strategy  string    `yaml:"strategy"`

	EngineVersion  string `yaml:"engine_version,omitempty"`
	RuntimeVersion string `yaml:"runtime_version,omitempty"`
	TargetEngine   string `yaml:"target_engine_version"`
	TargetRuntime  string `yaml:"target_runtime_version"`

	Cluster ClusterState `yaml:"cluster"`

	RuntimeConfigPath string `yaml:"runtime_config_path"`
	EngineConfigPath  string `yaml:"engine_config_path"`

	// Captured lists the items written; Missing the ones skipped.
	Captured []string `yaml:"captured"`
	Missing  []string `yaml:"missing,omitempty"`
}

// ClusterState records swarm membership at backup time.
type ClusterState struct {
	State  string `yaml:"state"`
	NodeID string `yaml:"node_id,omitempty"`
	Role   string `yaml:"role,omitempty"`
}
