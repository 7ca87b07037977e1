package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/dockshift/cmd/dockshift/handlers"
)

// Doctor returns the command for diagnosing a host before an upgrade.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file
//	--json: Output in JSON format
func Doctor() *cobra.Command {
	var opts handlers.DoctorOptions

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check whether a host is ready for an upgrade",
		Long: `Check whether a host is ready for an upgrade, without changing it.

Reports:
  - OS release and the matching package bundle
  - Required tools
  - Installed engine, containerd and toolkit versions
  - Swarm membership
  - Filesystem compatibility of the containerd and docker data roots
  - Existing backups

Exits non-zero when an upgrade would abort in preflight.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), opts)
		},
	}

	addHostFlags(cmd, &opts.GlobalOptions)
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "Package transition strategy to check: direct or repo")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")

	return cmd
}
