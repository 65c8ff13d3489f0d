package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soundpatch/patchc/pkg/compile"
	"github.com/soundpatch/patchc/pkg/patch"
	"github.com/soundpatch/patchc/pkg/pipeline"
)

// compileCommand creates the compile command for turning a patch document
// into C source.
func (c *CLI) compileCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "compile [patch.json]",
		Short: "Compile a patch document to a C99 source unit",
		Long: `Compile a patch document to a C99 source unit.

The compile command validates the patch graph, plans parameter and state
memory, and emits a self-contained C file exporting process(), param_buffer(),
and state_buffer(). Pass "-" to read the document from stdin.

Compiled source is cached by patch content hash; recompiling an unchanged
patch is a cache lookup. Use --refresh to force recompilation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCompile(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.c)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass the source cache and recompile")
	cmd.Flags().Float64Var(&opts.SampleRate, "sample-rate", 0, "override the patch sample rate")
	cmd.Flags().IntVar(&opts.BlockSize, "block-size", 0, "override the patch block size")
	cmd.Flags().IntVar(&opts.Oversample, "oversample", 0, "override the patch oversample factor")

	return cmd
}

// runCompile loads the document, runs the pipeline, and writes the source.
func (c *CLI) runCompile(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
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

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, "Compiling patch...")
	spinner.Start()

	result, err := runner.Execute(ctx, doc, opts)
	if err != nil {
		spinner.StopWithError("Compilation failed")
		return fmt.Errorf("compile: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	logger := loggerFromContext(ctx)
	logger.Debugf("Pipeline timing: validate=%s plan=%s emit=%s",
		result.Stats.ValidateTime, result.Stats.PlanTime, result.Stats.EmitTime)

	if !result.Validation.Valid {
		printError("Patch is invalid (%d issues)", len(result.Validation.Issues))
		printIssues(result.Validation.Issues)
		return fmt.Errorf("patch did not validate")
	}

	outputPath := output
	if outputPath == "" {
		outputPath = sourcePath(input)
	}
	if err := os.WriteFile(outputPath, []byte(result.Source), 0644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Compilation complete")
	printFile(outputPath)
	printStats(result.Stats.NodeCount, result.Stats.ConnectionCount, result.CacheInfo.SourceHit)
	printNewline()
	printNextStep("Build", "cc -c "+outputPath)

	return nil
}

// printIssues prints each validation issue with its code and location.
func printIssues(issues []compile.Issue) {
	for _, issue := range issues {
		if loc := issueLocation(issue); loc != "" {
			printWarning("[%s] %s (%s)", issue.Code, issue.Message, loc)
		} else {
			printWarning("[%s] %s", issue.Code, issue.Message)
		}
	}
}

// issueLocation formats the part of the patch an issue points at: the node
// (and port) when named, otherwise the full connection.
func issueLocation(issue compile.Issue) string {
	loc := issue.NodeID
	if issue.PortID != "" {
		loc = loc + ":" + issue.PortID
	}
	if conn := issue.Connection; conn != nil && loc == "" {
		loc = fmt.Sprintf("%s:%s -> %s:%s", conn.FromNode, conn.FromPort, conn.ToNode, conn.ToPort)
	}
	return loc
}

// sourcePath derives the output .c path from the input path. Stdin input
// falls back to patch.c in the working directory.
func sourcePath(input string) string {
	if input == "-" {
		return "patch.c"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".c"
}

// loadDocument reads and decodes a patch document from a file or stdin.
// Engine settings the document omits are filled from defaults, so the
// config file's [engine] section applies to documents that do not set
// their own.
func loadDocument(path string, defaults patch.Settings) (patch.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return patch.Document{}, fmt.Errorf("read patch %s: %w", path, err)
	}
	doc, err := patch.DecodeDocumentWith(data, defaults)
	if err != nil {
		return patch.Document{}, fmt.Errorf("decode patch %s: %w", path, err)
	}
	return doc, nil
}
