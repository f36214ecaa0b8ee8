package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jamhq/jam/pkg/install"
	"github.com/jamhq/jam/pkg/resolve"
)

// installCommand creates the install command.
//
// With arguments, each is resolved and installed independently; a failing
// argument is reported and the loop continues with the next one. Without
// arguments, the dependencies of ./package.json are installed.
func (c *CLI) installCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:     "install [package[@version]...]",
		Aliases: []string{"i"},
		Short:   "Install packages and their dependencies into node_modules",
		Long: `Install resolves each package's full transitive dependency closure against
the registry and extracts every resolved tarball into node_modules.

Version requirements containing range operators (^ ~ x * > <) are resolved
to the registry's current latest version.

Examples:
  jam install left-pad
  jam install left-pad@1.3.0 express
  jam install @scope/pkg
  jam install            # install dependencies from package.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInstall(cmd.Context(), args, save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", true, "record installed packages in package.json (if present)")

	return cmd
}

func (c *CLI) runInstall(ctx context.Context, args []string, save bool) error {
	logger := loggerFromContext(ctx)

	comps, err := c.buildComponents(ctx)
	if err != nil {
		return err
	}
	defer comps.cache.Close()

	fromManifest := len(args) == 0
	if fromManifest {
		if args, err = manifestArgs(); err != nil {
			return err
		}
		if len(args) == 0 {
			printInfo("Nothing to install")
			return nil
		}
	}

	if err := comps.installer.EnsureDir(); err != nil {
		return err
	}

	// Installed packages are recorded back into the manifest only for
	// explicitly named arguments, never when installing from the manifest.
	var manifest *install.Manifest
	if save && !fromManifest {
		manifest, _ = install.LoadManifest(install.ManifestFile)
	}

	manifestDirty := false
	for _, arg := range args {
		spec := resolve.ParseSpec(arg)
		if c.installOne(ctx, comps.installer, spec, manifest) {
			manifestDirty = true
		}
	}

	if manifestDirty {
		if err := manifest.Save(install.ManifestFile); err != nil {
			logger.Warnf("update %s: %v", install.ManifestFile, err)
		}
	}

	// Per-argument outcomes were already reported; a partial failure does
	// not fail the process.
	return nil
}

// installOne drives one install request end to end and prints its summary
// line. Returns true if it recorded a dependency entry in manifest.
func (c *CLI) installOne(ctx context.Context, installer *install.Installer, spec resolve.PackageSpec, manifest *install.Manifest) bool {
	logger := loggerFromContext(ctx)
	p := newProgress(logger)

	sp := startSpinner(ctx, fmt.Sprintf("Installing %s...", spec))

	outcome, err := installer.Install(ctx, spec)
	switch {
	case errors.Is(err, install.ErrResolution):
		sp.fail("Resolution failed for %s", spec)
		logger.Error("resolution failed", "spec", spec.String(), "err", err)
		return false
	case err != nil:
		sp.fail("Installation failed for %s", spec)
		return false
	case outcome.UpToDate:
		sp.halt()
		printInfo("Already up-to-date: %s", spec)
		return false
	}

	sp.succeed("Installed %s", spec)
	printDetail("%d packages", len(outcome.Packages))
	p.doneDebug(fmt.Sprintf("Resolved and installed %d packages for %s", len(outcome.Packages), spec))

	if manifest != nil {
		if version, ok := outcome.ResolvedVersionOf(spec.Name); ok {
			manifest.AddDependency(spec.Name, version)
			return true
		}
	}
	return false
}

// manifestArgs converts ./package.json dependencies into install arguments,
// sorted for stable processing order.
func manifestArgs() ([]string, error) {
	m, err := install.LoadManifest(install.ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("no packages given and no %s: %w", install.ManifestFile, err)
	}

	args := make([]string, 0, len(m.Dependencies))
	for _, name := range slices.Sorted(maps.Keys(m.Dependencies)) {
		args = append(args, name+"@"+m.Dependencies[name])
	}
	return args, nil
}
