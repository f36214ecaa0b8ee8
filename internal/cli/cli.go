// Package cli implements the jam command-line interface.
//
// This package provides commands for installing npm packages and their
// transitive dependencies, initializing a project manifest, exporting
// dependency graphs, and managing the registry response cache. The CLI is
// built using cobra and supports verbose logging via the charmbracelet/log
// library.
//
// # Commands
//
// The main commands are:
//   - install: Resolve and install packages into node_modules
//   - init: Create a package.json manifest
//   - graph: Export a package's dependency graph as DOT or SVG
//   - cache: Manage the registry response cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jamhq/jam/pkg/buildinfo"
	"github.com/jamhq/jam/pkg/cache"
	"github.com/jamhq/jam/pkg/config"
	"github.com/jamhq/jam/pkg/install"
	"github.com/jamhq/jam/pkg/registry"
	"github.com/jamhq/jam/pkg/resolve"
	"github.com/jamhq/jam/pkg/tarball"
)

// appName is the application name used for directories and display.
const appName = "jam"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// metadata is the process-wide resolved-metadata cache shared by every
	// resolution this process performs.
	metadata *resolve.MetadataCache
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		metadata: resolve.NewMetadataCache(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// WithLogger returns ctx with the CLI's logger attached, for retrieval by
// commands via loggerFromContext.
func (c *CLI) WithLogger(ctx context.Context) context.Context {
	return withLogger(ctx, c.Logger)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "jam is a minimal npm-style package manager",
		Long:         `Jam installs npm packages and their transitive dependencies into node_modules, resolving the dependency graph concurrently against the public registry.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.installCommand())
	root.AddCommand(c.initCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// components bundles everything a resolving command needs, wired from the
// user configuration.
type components struct {
	cfg       config.Config
	cache     cache.Cache
	client    *registry.Client
	resolver  *resolve.Resolver
	installer *install.Installer
}

// buildComponents loads the configuration and constructs the registry
// client, resolver, and installer stack. The returned cache must be closed
// by the caller.
func (c *CLI) buildComponents(ctx context.Context) (*components, error) {
	logger := loggerFromContext(ctx)

	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	responseCache, err := openCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := registry.NewClient(responseCache, cfg.CacheTTL(), cfg.Registry)

	resolver := resolve.New(client, c.metadata)
	resolver.Logger = logger.Debugf

	handler := tarball.NewHandler(client)
	handler.Logger = logger.Warnf

	return &components{
		cfg:       cfg,
		cache:     responseCache,
		client:    client,
		resolver:  resolver,
		installer: install.New(resolver, handler, cfg.Dir, logger),
	}, nil
}

// openCache constructs the response cache backend selected by the config.
func openCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cfg.Cache.Redis)
	default:
		dir := cfg.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return nil, err
			}
		}
		return cache.NewFileCache(dir)
	}
}
