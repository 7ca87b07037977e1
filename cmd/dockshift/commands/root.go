// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the dockshift CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dockshift",
		Short:         "Upgrade Docker Engine and containerd on air-gapped RHEL hosts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Host operations
	cmd.AddCommand(Upgrade())
	cmd.AddCommand(Rollback())
	cmd.AddCommand(Backups())
	cmd.AddCommand(Doctor())

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
