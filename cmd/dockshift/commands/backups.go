package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/dockshift/cmd/dockshift/handlers"
)

// Backups returns the command that lists backup records.
func Backups() *cobra.Command {
	var opts handlers.BackupsOptions

	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List backup records, newest first",
		Long:  "List backup records under the backup root, newest first. When the backup mirror is enabled, records already mirrored for this host are listed too.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Backups(cmd.Context(), opts)
		},
	}

	addHostFlags(cmd, &opts.GlobalOptions)
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")

	return cmd
}
