package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/dockshift/cmd/dockshift/handlers"
)

// Upgrade returns the command that upgrades the engine on a host.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file
//	--strategy: direct (rpm files) or repo (local dnf repository)
//	--yes, -y: Accept prompt defaults (non-interactive)
//	--remote, --ssh-key: Upgrade a remote host over SSH
func Upgrade() *cobra.Command {
	var opts handlers.UpgradeOptions

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade Docker Engine and containerd from the local package bundle",
		Long: `Upgrade Docker Engine and containerd from a local package bundle.

The upgrade process:
1. Detects the OS release and the package bundle for it
2. Drains the node if it is an active swarm member (with confirmation)
3. Backs up versions, listings and configuration files
4. Stops docker, then containerd
5. Installs the new packages (no network access)
6. Migrates the containerd configuration to the new schema
7. Checks the containerd data root filesystem (xfs needs ftype=1)
8. Updates the NVIDIA container toolkit when it is installed
9. Starts containerd, then docker, and verifies both
10. Offers to reactivate a node drained by this run

A failed run can be reverted with 'dockshift rollback'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Upgrade(cmd.Context(), opts)
		},
	}

	addRunFlags(cmd, &opts.GlobalOptions)

	return cmd
}
