// Package config defines the dockshift configuration model.
//
// A [Config] describes the target and rollback versions, where the offline
// package bundles live on the host, where Backup Records are written, and
// the unit and file names of the engine and runtime. Every field has a
// default so a run without a config file is fully specified.
//
// Timing values (settle delays, poll intervals) are not part of the file;
// they come from [LoadTimeouts] and can be tuned through environment
// variables.
package config
