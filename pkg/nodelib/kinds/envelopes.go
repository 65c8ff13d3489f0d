package kinds

import (
	"fmt"

	"github.com/soundpatch/patchc/pkg/nodelib"
)

// adEnvelope is a linear attack-decay envelope retriggered on every rising
// gate edge. State words: level, previous gate, stage (0 idle, 1 attack,
// 2 decay).
func adEnvelope() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "env.ad",
			Category: CategoryEnvelope,
			Label:    "AD Envelope",
			Inputs:   []nodelib.PortSpec{{ID: "gate", Label: "Gate"}},
			Outputs:  []nodelib.PortSpec{{ID: "out", Label: "Out"}},
			Controls: []nodelib.Control{
				{ID: "attack", Label: "Attack", Min: 0.001, Max: 5, Default: 0.01, Hint: "knob"},
				{ID: "decay", Label: "Decay", Min: 0.001, Max: 10, Default: 0.2, Hint: "knob"},
			},
			StateWords: 3,
		},
		Assembly: &nodelib.Assembly{
			Declarations: []string{declEdge},
			Emit: func(ctx nodelib.EmitContext) string {
				return fmt.Sprintf(`{
    float gate = %s;
    float lvl = %s;
    float stage = %s;
    if (edge_trigger(gate, %s) > 0.5f) stage = 1.0f;
    %s = gate;
    if (stage > 0.5f && stage < 1.5f) {
        lvl += %s / (%s + 1e-6f);
        if (lvl >= 1.0f) { lvl = 1.0f; stage = 2.0f; }
    } else if (stage > 1.5f) {
        lvl -= %s / (%s + 1e-6f);
        if (lvl <= 0.0f) { lvl = 0.0f; stage = 0.0f; }
    }
    %s = lvl;
    %s = stage;
    %s
}`,
					ctx.InputOr("gate", 0),
					ctx.State(0),
					ctx.State(2),
					ctx.State(1),
					ctx.State(1),
					ctx.InvSampleRate(), ctx.Param("attack"),
					ctx.InvSampleRate(), ctx.Param("decay"),
					ctx.State(0),
					ctx.State(2),
					ctx.Store("out", "lvl"))
			},
		},
	}
}
