package handlers

// GlobalOptions are the flags shared by every command that touches a host.
type GlobalOptions struct {
	ConfigPath string
	Strategy   string
	Yes        bool

	// Remote is user@host[:port]; empty drives the local machine.
	Remote string
	SSHKey string

	LogFile  string
	LogLevel string
	JSONLog  bool
}

// UpgradeOptions contains options for the upgrade command.
type UpgradeOptions struct {
	GlobalOptions
}

// RollbackOptions contains options for the rollback command.
type RollbackOptions struct {
	GlobalOptions

	// Backup selects a backup record directory; empty uses the latest.
	Backup string
}

// BackupsOptions contains options for the backups command.
type BackupsOptions struct {
	GlobalOptions
	JSON bool
}

// DoctorOptions contains options for the doctor command.
type DoctorOptions struct {
	GlobalOptions
	JSON bool
}
