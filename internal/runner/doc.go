// Package runner executes external commands on the host being upgraded.
//
// Every collaborator (rpm, dnf, systemctl, docker, containerd, xfs_info)
// is driven through a [Runner]. [Local] runs commands with os/exec on the
// machine dockshift itself runs on; [SSH] runs them on a remote host over
// golang.org/x/crypto/ssh. A command that exits non-zero is reported as an
// [*ExitError] that still carries the captured output, so callers can tell
// "nothing to do" apart from a real failure.
package runner
