package upgrade

import (
	"strings"

	"github.com/imamik/dockshift/internal/backup"
	"github.com/imamik/dockshift/internal/platform/docker"
	"github.com/imamik/dockshift/internal/platform/fsinfo"
	"github.com/imamik/dockshift/internal/platform/osinfo"
)

// ServiceAction is one call made to the service manager.
type ServiceAction struct {
	Op   string // stop, start or enable
	Unit string
}

func (a ServiceAction) String() string {
	return a.Op + " " + a.Unit
}

// State holds the shared results of pipeline phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	// Preflight results
	Host                osinfo.Host
	PackageDir          string
	ToolkitInstalled    bool
	PriorEngineVersion  string
	PriorRuntimeVersion string

	// Cluster handling results, read again by Reactivate
	PriorMembership docker.Membership
	DrainedByRun    bool
	DrainOverridden bool

	// Snapshot results
	Backup                *backup.Record
	RuntimeConfigCaptured bool

	// Transition and configuration results
	PackagesTransitioned bool
	ConfigSource         string // migrated, default or restored

	// Filesystem gate results
	DataRoot        string
	DataRootReport  fsinfo.Report
	DataRootBlocked bool
	ConfigRewritten bool

	// Verification results
	FunctionalCheck string // passed, failed or skipped
	GPUCheck        string

	Warnings   []string
	ServiceLog []ServiceAction
}

// NewState creates an empty pipeline state.
func NewState() *State {
	return &State{}
}

// ServiceLogLines renders ServiceLog as "op unit" lines.
func (s *State) ServiceLogLines() []string {
	out := make([]string, 0, len(s.ServiceLog))
	for _, a := range s.ServiceLog {
		out = append(out, a.String())
	}
	return out
}

// Summary is a one-line description of the state for the final log line.
func (s *State) Summary() string {
	parts := []string{s.Host.String()}
	if s.Backup != nil {
		parts = append(parts, "backup "+s.Backup.Dir)
	}
	if s.DataRoot != "" {
		parts = append(parts, "data root "+s.DataRoot)
	}
	return strings.Join(parts, ", ")
}
