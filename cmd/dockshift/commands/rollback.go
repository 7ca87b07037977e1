package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/dockshift/cmd/dockshift/handlers"
)

// Rollback returns the command that restores the previous engine version.
func Rollback() *cobra.Command {
	var opts handlers.RollbackOptions

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Restore the previous engine version and configuration from a backup",
		Long: `Restore the previous Docker Engine version and configuration.

Packages are downgraded from the rollback bundle, and the containerd and
docker configuration files are restored from a backup record: the most
recent one, or the directory given with --backup.

Examples:
  # Roll back to the state captured by the last upgrade
  dockshift rollback

  # Roll back using a specific backup
  dockshift rollback --backup /var/backups/dockshift/docker-upgrade-20260314-093000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Rollback(cmd.Context(), opts)
		},
	}

	addRunFlags(cmd, &opts.GlobalOptions)
	cmd.Flags().StringVar(&opts.Backup, "backup", "", "Backup record directory (default: most recent)")

	return cmd
}
