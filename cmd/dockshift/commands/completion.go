package commands

import (
	"github.com/spf13/cobra"
)

// Completion returns the completion command for shell autocompletion.
func Completion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for dockshift.

To load completions:

Bash:
  $ source <(dockshift completion bash)
  # To load completions for each session, execute once:
  $ dockshift completion bash > /etc/bash_completion.d/dockshift

Zsh:
  $ dockshift completion zsh > "${fpath[1]}/_dockshift"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ dockshift completion fish > ~/.config/fish/completions/dockshift.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			}
			return nil
		},
	}
	return cmd
}
