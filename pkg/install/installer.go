// Package install orchestrates resolution and extraction of npm packages
// into a node_modules tree, and maintains the project's package.json
// manifest.
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/jamhq/jam/pkg/resolve"
)

// DefaultDir is the conventional install destination.
const DefaultDir = "node_modules"

var (
	// ErrResolution marks a failure to resolve the dependency closure.
	ErrResolution = errors.New("resolution failed")

	// ErrInstall marks a failure to download or extract resolved packages.
	ErrInstall = errors.New("installation failed")
)

// Resolver produces the set of packages to install for one request.
// *resolve.Resolver satisfies this.
type Resolver interface {
	Resolve(ctx context.Context, spec resolve.PackageSpec) resolve.Result
}

// Extractor materializes one resolved package on disk. *tarball.Handler
// satisfies this.
type Extractor interface {
	DownloadAndExtract(ctx context.Context, tarballURL, packageName, packageVersion, baseDest string) error
}

// Outcome summarizes one install request.
type Outcome struct {
	Spec     resolve.PackageSpec
	Packages []resolve.PackageInfo // every package placed on disk
	UpToDate bool                  // resolution produced nothing to do
}

// Installer drives resolve-then-extract for individual package requests.
type Installer struct {
	resolver Resolver
	handler  Extractor
	dir      string
	logger   *log.Logger
}

// New creates an Installer placing packages under dir (DefaultDir if empty).
// A nil logger falls back to log.Default().
func New(resolver Resolver, handler Extractor, dir string, logger *log.Logger) *Installer {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{resolver: resolver, handler: handler, dir: dir, logger: logger}
}

// Dir returns the install destination directory.
func (i *Installer) Dir() string { return i.dir }

// EnsureDir creates the install destination, including parents.
// Failure here aborts the whole command; nothing can be installed without it.
func (i *Installer) EnsureDir() error {
	if err := os.MkdirAll(i.dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", i.dir, err)
	}
	return nil
}

// Install resolves spec and downloads/extracts every package in the closure
// concurrently. Errors are classified: errors.Is(err, ErrResolution) when
// the closure could not be computed, errors.Is(err, ErrInstall) when one or
// more downloads failed. A failing package does not cancel its siblings;
// they run to completion before the aggregate is reported.
func (i *Installer) Install(ctx context.Context, spec resolve.PackageSpec) (*Outcome, error) {
	result := i.resolver.Resolve(ctx, spec)
	if !result.Success {
		return nil, fmt.Errorf("%w for %s: %s", ErrResolution, spec, result.ErrorMessage)
	}

	if len(result.PackagesToInstall) == 0 {
		return &Outcome{Spec: spec, UpToDate: true}, nil
	}

	i.logger.Debug("installing packages", "spec", spec.String(), "count", len(result.PackagesToInstall))

	var wg sync.WaitGroup
	var failed atomic.Bool
	for _, pkg := range result.PackagesToInstall {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := i.handler.DownloadAndExtract(ctx, pkg.TarballURL, pkg.Name, pkg.ResolvedVersion, i.dir); err != nil {
				i.logger.Error("download failed", "package", pkg.Key(), "err", err)
				failed.Store(true)
				return
			}
			i.logger.Debug("installed", "package", pkg.Key())
		}()
	}
	wg.Wait()

	if failed.Load() {
		return nil, fmt.Errorf("%w for %s", ErrInstall, spec)
	}
	return &Outcome{Spec: spec, Packages: result.PackagesToInstall}, nil
}

// ResolvedVersionOf returns the concrete version the outcome installed for
// the requested package name, if present.
func (o *Outcome) ResolvedVersionOf(name string) (string, bool) {
	for _, p := range o.Packages {
		if p.Name == name {
			return p.ResolvedVersion, true
		}
	}
	return "", false
}
