// Package upgrade orchestrates the offline Docker Engine and containerd
// transition on a single host.
//
// A run is a Pipeline of Phases sharing one *Context. The Context carries
// the loaded configuration, the collaborators that talk to the host
// (packages, services, runtime, engine, cluster, filesystems, operator) and
// the State that phases fill in for the phases after them:
//
//	Preflight → ClusterDrain → Snapshot → Shutdown → Transition →
//	MigrateConfig → FilesystemGate → Toolkit → Startup → Verify → Reactivate
//
// A phase returning an error ends the run in the aborted terminal state.
// Fatal conditions are reported as *AbortError; recoverable ones are
// recorded as warnings and never change the outcome.
//
// The rollback pipeline reuses the same phases around LocateBackup and
// RestoreConfig, and Diagnose runs the read-only checks behind `doctor`.
package upgrade
