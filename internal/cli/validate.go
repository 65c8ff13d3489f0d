package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundpatch/patchc/pkg/pipeline"
)

// validateCommand creates the validate command for checking patch graphs
// without emitting source.
func (c *CLI) validateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [patch.json]",
		Short: "Validate a patch document and report issues",
		Long: `Validate a patch document and report issues.

The validate command checks the patch graph for cycles and dangling
connections and reports every issue found. Pass "-" to read the document
from stdin. The command exits non-zero when the patch is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0])
		},
	}

	return cmd
}

// runValidate loads the document and prints the validation outcome.
func (c *CLI) runValidate(ctx context.Context, input string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	doc, err := loadDocument(input, cfg.Settings())
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	doc, result, err := runner.Validate(ctx, doc, pipeline.Options{Logger: c.Logger})
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	prog.done(fmt.Sprintf("Validated %d nodes", doc.Patch.NodeCount()))

	if !result.Valid {
		printError("Patch is invalid (%d issues)", len(result.Issues))
		printIssues(result.Issues)
		return fmt.Errorf("patch did not validate")
	}

	printSuccess("Patch is valid")
	printStats(doc.Patch.NodeCount(), doc.Patch.ConnectionCount(), false)
	printNewline()
	printNextStep("Compile", "patchc compile "+input)

	return nil
}
