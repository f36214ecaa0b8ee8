package cli

import (
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// completionCommand generates shell completion scripts on stdout.
func (c *CLI) completionCommand() *cobra.Command {
	generators := map[string]func(*cobra.Command) error{
		"bash": func(root *cobra.Command) error { return root.GenBashCompletion(os.Stdout) },
		"zsh":  func(root *cobra.Command) error { return root.GenZshCompletion(os.Stdout) },
		"fish": func(root *cobra.Command) error { return root.GenFishCompletion(os.Stdout, true) },
		"powershell": func(root *cobra.Command) error {
			return root.GenPowerShellCompletionWithDesc(os.Stdout)
		},
	}

	shells := make([]string, 0, len(generators))
	for shell := range generators {
		shells = append(shells, shell)
	}
	slices.Sort(shells)

	return &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate a shell completion script",
		Long: `Write a completion script for the given shell to stdout.

Load it into the current session, or install it permanently, e.g.:

  source <(jam completion bash)
  jam completion zsh > "${fpath[1]}/_jam"
  jam completion fish | source`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return generators[args[0]](cmd.Root())
		},
	}
}
