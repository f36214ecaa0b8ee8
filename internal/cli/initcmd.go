package cli

import (
	"github.com/spf13/cobra"

	"github.com/jamhq/jam/pkg/install"
)

// initCommand creates the init command, which writes a fresh package.json
// into the current directory.
func (c *CLI) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a package.json manifest in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := install.InitManifest(".")
			if err != nil {
				return err
			}
			printSuccess("Wrote %s", install.ManifestFile)
			printDetail("name: %s", m.Name)
			printDetail("version: %s", m.Version)
			return nil
		},
	}
}
