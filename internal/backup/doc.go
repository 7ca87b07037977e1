// Package backup manages Backup Records: timestamped directories holding
// the state captured before an upgrade, used as the anchor for rollback.
//
// A record is created once per run under the backup root as
// docker-upgrade-YYYYMMDD-HHMMSS (with a -N suffix if that name is taken)
// and is only read after the run that created it.
package backup
