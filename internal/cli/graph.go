package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamhq/jam/pkg/render"
	"github.com/jamhq/jam/pkg/resolve"
)

// graphCommand creates the graph command, which resolves a package without
// installing anything and exports its dependency graph.
func (c *CLI) graphCommand() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "graph <package[@version]>",
		Short: "Export a package's dependency graph as DOT or SVG",
		Long: `Graph resolves the full transitive dependency closure of a package and
writes it as a Graphviz digraph without installing anything.

Examples:
  jam graph express
  jam graph express --format svg -o express.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			comps, err := c.buildComponents(ctx)
			if err != nil {
				return err
			}
			defer comps.cache.Close()

			spec := resolve.ParseSpec(args[0])

			sp := startSpinner(ctx, fmt.Sprintf("Resolving %s...", spec))
			result := comps.resolver.Resolve(ctx, spec)
			sp.halt()

			if !result.Success {
				return fmt.Errorf("resolution failed for %s: %s", spec, result.ErrorMessage)
			}
			logger.Debug("resolved", "spec", spec.String(), "packages", len(result.PackagesToInstall))

			dot := render.ToDOT(result.PackagesToInstall)

			var data []byte
			switch format {
			case "dot":
				data = []byte(dot)
			case "svg":
				if data, err = render.RenderSVG(dot); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (supported: dot, svg)", format)
			}

			if output == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return err
			}
			printSuccess("Exported dependency graph for %s", spec)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "dot", "output format (dot, svg)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}
