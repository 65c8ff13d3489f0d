package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/soundpatch/patchc/pkg/nodelib"
	"github.com/soundpatch/patchc/pkg/patch"
)

// ToDOT converts a patch to Graphviz DOT format. Each node is a record with
// one field per port, so connections attach to the exact port they use.
//
// Terminal nodes are filled to stand out; nodes whose kind is missing from
// the library are drawn dashed. A nil library renders every node plainly.
func ToDOT(p patch.Patch, lib *nodelib.Library) string {
	var buf bytes.Buffer
	buf.WriteString("digraph patch {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=record, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("  ranksep=0.7;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	for _, n := range p.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, lib), ", "))
	}

	buf.WriteString("\n")
	for _, c := range p.Connections {
		fmt.Fprintf(&buf, "  %q:%q -> %q:%q;\n",
			c.FromNode, portField("o", c.FromPort),
			c.ToNode, portField("i", c.ToPort))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n patch.Node, lib *nodelib.Library) []string {
	// The label is already record-escaped; fmt's %q would double the
	// backslashes, so quote it verbatim.
	attrs := []string{`label="` + recordLabel(n) + `"`}

	if lib == nil {
		return attrs
	}
	entry, known := lib.Lookup(n.Kind)
	switch {
	case !known:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	case entry.Manifest.Terminal:
		attrs = append(attrs, "fillcolor=lightblue")
	}
	return attrs
}

// recordLabel builds a three-column record: input ports, title, output
// ports. Port fields are named so edges can target them.
func recordLabel(n patch.Node) string {
	title := escapeRecord(n.DisplayLabel()) + "\\n" + escapeRecord(n.Kind)

	var cols []string
	if len(n.Inputs) > 0 {
		cols = append(cols, "{"+strings.Join(portFields("i", n.Inputs), "|")+"}")
	}
	cols = append(cols, title)
	if len(n.Outputs) > 0 {
		cols = append(cols, "{"+strings.Join(portFields("o", n.Outputs), "|")+"}")
	}
	return strings.Join(cols, "|")
}

func portFields(side string, ports []patch.Port) []string {
	fields := make([]string, len(ports))
	for i, p := range ports {
		label := p.Label
		if label == "" {
			label = p.ID
		}
		fields[i] = "<" + portField(side, p.ID) + ">" + escapeRecord(label)
	}
	return fields
}

// portField names a record field for a port. Sides are prefixed so a port
// ID used on both sides of a node stays unambiguous.
func portField(side, portID string) string {
	var b strings.Builder
	b.WriteString(side)
	b.WriteByte('_')
	for _, r := range portID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// escapeRecord escapes the characters Graphviz record labels treat as
// structure.
var recordEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	"<", "\\<",
	">", "\\>",
	"\"", "\\\"",
)

func escapeRecord(s string) string {
	return recordEscaper.Replace(s)
}
