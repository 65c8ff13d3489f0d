package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/soundpatch/patchc/pkg/nodelib"
	"github.com/soundpatch/patchc/pkg/nodelib/kinds"
)

// kindsCommand creates the kinds command for browsing the node library.
func (c *CLI) kindsCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "kinds [kind]",
		Short: "List or inspect the registered node kinds",
		Long: `List or inspect the registered node kinds.

Without arguments the command lists every registered kind with its category
and ports. Pass a kind name to print its full manifest, or use --interactive
to browse the library with the arrow keys.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := kinds.Library()
			if len(args) == 1 {
				return printKindDetail(lib, args[0])
			}
			if interactive {
				return browseKinds(lib)
			}
			listKinds(lib)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse kinds interactively")

	return cmd
}

// listKinds prints a one-line summary per registered kind.
func listKinds(lib *nodelib.Library) {
	for _, kind := range lib.Kinds() {
		entry, ok := lib.Lookup(kind)
		if !ok {
			continue
		}
		m := entry.Manifest
		fmt.Println(StyleHighlight.Render(fmt.Sprintf("%-14s", m.Kind)) +
			" " + StyleDim.Render(fmt.Sprintf("%-12s", m.Category)) +
			" " + StyleValue.Render(m.Label))
	}
}

// browseKinds runs the interactive kind browser and prints the manifest of
// the selected kind.
func browseKinds(lib *nodelib.Library) error {
	model := newKindListModel(lib)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("run kind browser: %w", err)
	}

	m, ok := final.(kindListModel)
	if !ok || m.Selected == "" {
		return nil
	}
	return printKindDetail(lib, m.Selected)
}

// printKindDetail prints the full manifest of one kind.
func printKindDetail(lib *nodelib.Library, kind string) error {
	entry, ok := lib.Lookup(kind)
	if !ok {
		return fmt.Errorf("unknown kind: %s", kind)
	}
	m := entry.Manifest

	fmt.Println(StyleTitle.Render(m.Kind))
	printKeyValue("Label", m.Label)
	printKeyValue("Category", m.Category)
	printKeyValue("Inputs", portList(m.Inputs))
	printKeyValue("Outputs", portList(m.Outputs))
	printKeyValue("State", fmt.Sprintf("%d words", m.StateWords))
	if m.Terminal {
		printKeyValue("Terminal", "yes")
	}

	if len(m.Controls) > 0 {
		printNewline()
		fmt.Println(StyleTitle.Render("Controls"))
		for _, ctl := range m.Controls {
			printDetail("%-10s %g .. %g (default %g)", ctl.ID, ctl.Min, ctl.Max, ctl.Default)
		}
	}
	return nil
}

// portList formats port specs as a comma-separated list.
func portList(ports []nodelib.PortSpec) string {
	if len(ports) == 0 {
		return "none"
	}
	ids := make([]string, len(ports))
	for i, p := range ports {
		ids[i] = p.ID
	}
	return strings.Join(ids, ", ")
}
