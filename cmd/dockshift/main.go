// Package main is the entry point for the dockshift CLI.
//
// dockshift upgrades Docker Engine and containerd on air-gapped RHEL 8/9
// hosts from local package bundles, and rolls them back from the backup
// each upgrade leaves behind.
//
// Commands: upgrade, rollback, backups, doctor, version, completion.
//
// For detailed usage information, run:
//
//	dockshift --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/dockshift/cmd/dockshift/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
