// Package cli implements the patchc command-line interface.
//
// This package provides commands for compiling patch documents to C source,
// validating patch graphs, browsing the node kind library, rendering patch
// graphs as DOT or SVG, and running the HTTP API server. The CLI is built
// using cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - compile: Compile a patch document to a C99 source unit
//   - validate: Check a patch graph and report issues
//   - kinds: List or browse the registered node kinds
//   - graph: Render a patch graph to DOT or SVG
//   - serve: Run the HTTP API server
//   - cache: Manage the compiled-source cache
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/soundpatch/patchc/pkg/buildinfo"
	"github.com/soundpatch/patchc/pkg/cache"
	"github.com/soundpatch/patchc/pkg/config"
	"github.com/soundpatch/patchc/pkg/nodelib/kinds"
	"github.com/soundpatch/patchc/pkg/pipeline"
	"github.com/soundpatch/patchc/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the config file to load. Empty means the default
	// location.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "patchc",
		Short:        "Patchc compiles audio patch graphs to C source",
		Long:         `Patchc is a compiler for modular audio patch graphs. It validates a patch document, plans parameter and state memory, and emits a self-contained C99 source unit ready for any C toolchain.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default: $XDG_CONFIG_HOME/patchc/config.toml)")

	// Register all subcommands
	root.AddCommand(c.compileCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.kindsCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads the configuration file named by --config, falling back
// to defaults when no file exists.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.ConfigPath)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, noCache bool) (*pipeline.Runner, error) {
	ch, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, kinds.Library(), c.Logger), nil
}

// newCache builds the cache backend selected by the config.
func newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Cache.Backend == "none" {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return cache.NewFileCache(cfg.CacheDir())
}

// newStore builds the patch store backend selected by the config.
func newStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Store.Backend == "mongo" {
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:      cfg.Store.Mongo.URI,
			Database: cfg.Store.Mongo.Database,
		})
	}
	return store.NewMemoryStore(), nil
}
