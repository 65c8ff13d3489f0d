package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soundpatch/patchc/pkg/pipeline"
)

// graphCommand creates the graph command for rendering patch topology.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format  string
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "graph [patch.json]",
		Short: "Render a patch graph to DOT or SVG",
		Long: `Render a patch graph to DOT or SVG.

The graph command draws the patch as a node-link diagram with one record
per node showing its input and output ports. DOT output can be piped into
any graphviz tool; SVG output is rendered directly.

Rendered graphs are cached by patch content hash.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateRenderFormat(format); err != nil {
				return err
			}
			return c.runGraph(cmd.Context(), args[0], format, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatDOT, "output format: dot (default), svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runGraph loads the document, renders it, and writes the output file.
func (c *CLI) runGraph(ctx context.Context, input, format, output string, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	doc, err := loadDocument(input, cfg.Settings())
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", format))
	spinner.Start()

	data, cacheHit, err := runner.RenderGraph(ctx, doc, format)
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render graph: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	loggerFromContext(ctx).Debugf("Rendered %s: %d bytes", format, len(data))

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + "." + format
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Graph rendered")
	printFile(outputPath)
	printStats(doc.Patch.NodeCount(), doc.Patch.ConnectionCount(), cacheHit)

	return nil
}
