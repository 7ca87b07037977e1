package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/dockshift/cmd/dockshift/handlers"
)

// addHostFlags binds the flags that select and configure the target host.
func addHostFlags(cmd *cobra.Command, opts *handlers.GlobalOptions) {
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: built-in defaults)")
	cmd.Flags().StringVar(&opts.Remote, "remote", "", "Drive a remote host over SSH (user@host[:port])")
	cmd.Flags().StringVar(&opts.SSHKey, "ssh-key", "", "Private key for --remote")
}

// addRunFlags binds the flags of commands that run a pipeline.
func addRunFlags(cmd *cobra.Command, opts *handlers.GlobalOptions) {
	addHostFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "Package transition strategy: direct or repo (overrides config)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Answer every yes/no prompt with its default; free-text prompts abort")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "Log file (overrides config)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "Console log level: debug, info, warn or error")
	cmd.Flags().BoolVar(&opts.JSONLog, "json-log", false, "Write log lines as JSON")
}
