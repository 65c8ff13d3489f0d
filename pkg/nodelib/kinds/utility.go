package kinds

import (
	"fmt"

	"github.com/soundpatch/patchc/pkg/nodelib"
)

func addNode() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "math.add",
			Category: CategoryUtility,
			Label:    "Add",
			Inputs: []nodelib.PortSpec{
				{ID: "a", Label: "A"},
				{ID: "b", Label: "B"},
			},
			Outputs: []nodelib.PortSpec{{ID: "out", Label: "Out"}},
			Controls: []nodelib.Control{
				{ID: "offset", Label: "Offset", Min: -10, Max: 10, Default: 0, Hint: "knob"},
			},
		},
		Assembly: &nodelib.Assembly{
			Emit: func(ctx nodelib.EmitContext) string {
				return ctx.Store("out", fmt.Sprintf("%s + %s + %s",
					ctx.InputOr("a", 0), ctx.InputOr("b", 0), ctx.Param("offset")))
			},
		},
	}
}

func mulNode() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "math.mul",
			Category: CategoryUtility,
			Label:    "Multiply",
			Inputs: []nodelib.PortSpec{
				{ID: "a", Label: "A"},
				{ID: "b", Label: "B"},
			},
			Outputs: []nodelib.PortSpec{{ID: "out", Label: "Out"}},
			Controls: []nodelib.Control{
				{ID: "gain", Label: "Gain", Min: 0, Max: 10, Default: 1, Hint: "knob"},
			},
		},
		Assembly: &nodelib.Assembly{
			Emit: func(ctx nodelib.EmitContext) string {
				// An unconnected factor reads as unity so the node passes the
				// other input through instead of silencing it.
				return ctx.Store("out", fmt.Sprintf("%s * %s * %s",
					ctx.InputOr("a", 1), ctx.InputOr("b", 1), ctx.Param("gain")))
			},
		},
	}
}

func clipNode() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "math.clip",
			Category: CategoryUtility,
			Label:    "Soft Clip",
			Inputs:   []nodelib.PortSpec{{ID: "in", Label: "In"}},
			Outputs:  []nodelib.PortSpec{{ID: "out", Label: "Out"}},
			Controls: []nodelib.Control{
				{ID: "drive", Label: "Drive", Min: 0.1, Max: 10, Default: 1, Hint: "knob"},
			},
		},
		Assembly: &nodelib.Assembly{
			Declarations: []string{declMath},
			Emit: func(ctx nodelib.EmitContext) string {
				return ctx.Store("out", fmt.Sprintf("tanhf(%s * %s)",
					ctx.InputOr("in", 0), ctx.Param("drive")))
			},
		},
	}
}

// sampleHold latches its input on every rising trigger edge. State words:
// held value, previous trigger.
func sampleHold() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "util.sh",
			Category: CategoryUtility,
			Label:    "Sample & Hold",
			Inputs: []nodelib.PortSpec{
				{ID: "in", Label: "In"},
				{ID: "trig", Label: "Trigger"},
			},
			Outputs:    []nodelib.PortSpec{{ID: "out", Label: "Out"}},
			StateWords: 2,
		},
		Assembly: &nodelib.Assembly{
			Declarations: []string{declEdge},
			Emit: func(ctx nodelib.EmitContext) string {
				return fmt.Sprintf(`{
    float trig = %s;
    if (edge_trigger(trig, %s) > 0.5f) %s = %s;
    %s = trig;
    %s
}`,
					ctx.InputOr("trig", 0),
					ctx.State(1),
					ctx.State(0), ctx.InputOr("in", 0),
					ctx.State(1),
					ctx.Store("out", ctx.State(0)))
			},
		},
	}
}
