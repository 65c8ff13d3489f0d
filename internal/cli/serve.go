package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundpatch/patchc/internal/server"
	"github.com/soundpatch/patchc/pkg/nodelib/kinds"
	"github.com/soundpatch/patchc/pkg/pipeline"
)

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the patchc HTTP API server",
		Long: `Run the patchc HTTP API server.

The server exposes the compilation pipeline over HTTP: compile and validate
endpoints, the node kind library, graph rendering, and patch storage. The
cache and store backends are selected by the config file.

The server shuts down gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}

// runServe wires the runner and store from config and serves until the
// context is cancelled.
func (c *CLI) runServe(ctx context.Context, addr string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ch, err := newCache(ctx, cfg, false)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	runner := pipeline.NewRunner(ch, nil, kinds.Library(), c.Logger)
	defer runner.Close()

	st, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close(context.Background())

	srv := server.New(runner, st, cfg.Settings(), c.Logger)

	c.Logger.Infof("Listening on %s", addr)
	return srv.Serve(ctx, addr)
}
