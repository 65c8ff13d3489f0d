package compile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soundpatch/patchc/pkg/errors"
	"github.com/soundpatch/patchc/pkg/nodelib"
)

// Emit assembles the final source unit for a plan: shared declarations
// (deduplicated by content), the packed parameter buffer and state arena,
// and a process() body that runs every node's per-sample code inside the
// oversampling loop.
//
// The emitted unit targets the fixed export contract: static storage as the
// linear memory region, a compile-time BLOCK_SIZE constant, and
// process(left, right) filling exactly one block of 32-bit float samples
// per call.
//
// Individual malformed nodes degrade to inert comments; calling Emit
// without a plan is a contract violation and fails loudly.
func Emit(plan *Plan, lib *nodelib.Library) (string, error) {
	if plan == nil {
		return "", errors.New(errors.ErrCodeInvalidPlan, "emit called without a plan")
	}
	if lib == nil {
		return "", errors.New(errors.ErrCodeInvalidPlan, "emit called without a node library")
	}

	s := plan.Settings
	var b strings.Builder

	fmt.Fprintf(&b, "/* generated by patchc; do not edit. */\n\n")

	// Engine constants. Derived rates are computed here, once, from the
	// patch settings; node bodies reference the shared names instead of
	// recomputing them.
	fmt.Fprintf(&b, "#define BLOCK_SIZE %d\n", s.BlockSize)
	fmt.Fprintf(&b, "#define OVERSAMPLE %d\n", s.Oversample)
	fmt.Fprintf(&b, "#define SAMPLE_RATE %s\n", formatLit(s.SampleRate))
	fmt.Fprintf(&b, "#define OSR %s\n", formatLit(s.SampleRate*float64(s.Oversample)))
	fmt.Fprintf(&b, "#define INV_OSR %s\n", formatLit(1.0/(s.SampleRate*float64(s.Oversample))))
	b.WriteString("\n")

	// Linear memory: one packed parameter buffer and one contiguous state
	// arena. Each node instance owns a non-aliased range of the arena.
	if plan.ParamCount > 0 {
		vals := plan.ParamValues()
		lits := make([]string, len(vals))
		for i, v := range vals {
			lits[i] = formatLit(v)
		}
		fmt.Fprintf(&b, "static float params[%d] = {%s};\n", plan.ParamCount, strings.Join(lits, ", "))
	} else {
		b.WriteString("static float params[1] = {0.0f};\n")
	}
	if plan.StateWords > 0 {
		fmt.Fprintf(&b, "static float state[%d];\n", plan.StateWords)
	} else {
		b.WriteString("static float state[1];\n")
	}
	b.WriteString("\n")

	// Shared declarations, deduplicated by content identity: a helper used
	// by many instances appears exactly once.
	seen := make(map[string]bool)
	for i := range plan.Nodes {
		pn := &plan.Nodes[i]
		entry, ok := lib.Lookup(pn.Node.Kind)
		if !ok || entry.Assembly == nil {
			continue
		}
		for _, decl := range entry.Assembly.Declarations {
			if seen[decl] {
				continue
			}
			seen[decl] = true
			b.WriteString(strings.TrimRight(decl, "\n"))
			b.WriteString("\n\n")
		}
	}

	b.WriteString("float *param_buffer(void) { return params; }\n")
	b.WriteString("float *state_buffer(void) { return state; }\n\n")

	b.WriteString("void process(float *left, float *right) {\n")
	b.WriteString("    int i, os;\n")
	b.WriteString("    for (i = 0; i < BLOCK_SIZE; i++) {\n")
	b.WriteString("        float mix_l = 0.0f;\n")
	b.WriteString("        float mix_r = 0.0f;\n")
	b.WriteString("        for (os = 0; os < OVERSAMPLE; os++) {\n")

	for _, v := range plan.WireVars {
		fmt.Fprintf(&b, "            float %s = 0.0f;\n", v)
	}
	if len(plan.WireVars) > 0 {
		b.WriteString("\n")
	}

	for i := range plan.Nodes {
		pn := &plan.Nodes[i]
		emitNode(&b, plan, pn, lib)
	}

	b.WriteString("        }\n")
	// Down-sampling keeps the last oversampled pair.
	b.WriteString("        left[i] = mix_l;\n")
	b.WriteString("        right[i] = mix_r;\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")

	return b.String(), nil
}

const bodyIndent = "            "

func emitNode(b *strings.Builder, plan *Plan, pn *PlanNode, lib *nodelib.Library) {
	header := pn.StateID + " (" + pn.Node.Kind + ")"

	if pn.Degraded {
		fmt.Fprintf(b, "%s/* %s: skipped: %s */\n", bodyIndent, header, pn.DegradedReason)
		return
	}

	entry, ok := lib.Lookup(pn.Node.Kind)
	if !ok || entry.Assembly == nil || entry.Assembly.Emit == nil {
		fmt.Fprintf(b, "%s/* %s: skipped: no assembly registered */\n", bodyIndent, header)
		return
	}

	ctx := &emitContext{plan: plan, pn: pn}
	body := strings.TrimSpace(entry.Assembly.Emit(ctx))
	if body == "" {
		fmt.Fprintf(b, "%s/* %s: empty body */\n", bodyIndent, header)
		return
	}

	fmt.Fprintf(b, "%s/* %s */\n", bodyIndent, header)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(bodyIndent)
		b.WriteString(line)
		b.WriteString("\n")
	}
}

// emitContext implements [nodelib.EmitContext] over one plan node.
type emitContext struct {
	plan *Plan
	pn   *PlanNode
}

func (c *emitContext) NodeID() string { return c.pn.Node.ID }
func (c *emitContext) Kind() string   { return c.pn.Node.Kind }

func (c *emitContext) Input(portID string) (string, bool) {
	in, ok := c.pn.Input(portID)
	if !ok || len(in.Wires) == 0 {
		return "", false
	}
	if len(in.Wires) == 1 {
		return in.Wires[0].Var, true
	}
	vars := make([]string, len(in.Wires))
	for i, w := range in.Wires {
		vars[i] = w.Var
	}
	return "(" + strings.Join(vars, " + ") + ")", true
}

func (c *emitContext) InputOr(portID string, fallback float64) string {
	if expr, ok := c.Input(portID); ok {
		return expr
	}
	return c.Lit(fallback)
}

func (c *emitContext) Store(portID string, expr string) string {
	out, ok := c.pn.Output(portID)
	if !ok {
		return ""
	}

	auto := ""
	if c.pn.AutoSource && len(c.pn.Outputs) > 0 && c.pn.Outputs[0].Port.ID == portID {
		auto = c.pn.AutoVar
	}

	if len(out.Wires) == 0 {
		if auto == "" {
			return ""
		}
		return auto + " = " + expr + ";"
	}

	// One assignment statement per wire; fan-out reuses the first wire's
	// value verbatim instead of re-computing the expression.
	var lines []string
	first := out.Wires[0].Var
	lines = append(lines, first+" = "+expr+";")
	for _, w := range out.Wires[1:] {
		lines = append(lines, w.Var+" = "+first+";")
	}
	if auto != "" {
		lines = append(lines, auto+" = "+first+";")
	}
	return strings.Join(lines, "\n")
}

func (c *emitContext) Param(controlID string) string {
	ctl, ok := c.pn.Control(controlID)
	if !ok {
		return "0.0f"
	}
	return "params[" + strconv.Itoa(ctl.Slot) + "]"
}

func (c *emitContext) State(word int) string {
	return "state[" + strconv.Itoa(c.pn.StateOffset+word) + "]"
}

func (c *emitContext) Lit(v float64) string { return formatLit(v) }

func (c *emitContext) SampleRate() float64 {
	return c.plan.Settings.SampleRate * float64(c.plan.Settings.Oversample)
}

func (c *emitContext) InvSampleRate() string { return "INV_OSR" }

func (c *emitContext) Oversample() int { return c.plan.Settings.Oversample }

func (c *emitContext) AutoSource() bool { return c.pn.AutoSource }

func (c *emitContext) AutoInput(channel string) (string, bool) {
	if c.plan.AutoVar == "" {
		return "", false
	}
	switch channel {
	case MixLeft:
		if c.pn.AutoLeft {
			return c.plan.AutoVar, true
		}
	case MixRight:
		if c.pn.AutoRight {
			return c.plan.AutoVar, true
		}
	}
	return "", false
}

func (c *emitContext) MixOut(channel string) string {
	if channel == MixRight {
		return "mix_r"
	}
	return "mix_l"
}

// formatLit renders a numeric literal with float32 semantics: the value is
// rounded to float32 first so emitted constants match what the runtime
// computes, and formatting is locale-independent and deterministic.
func formatLit(v float64) string {
	f := float64(float32(v))
	s := strconv.FormatFloat(f, 'g', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s + "f"
}

var _ nodelib.EmitContext = (*emitContext)(nil)
