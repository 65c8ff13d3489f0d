package kinds

import (
	"fmt"

	"github.com/soundpatch/patchc/pkg/nodelib"
)

// stateVariableFilter is a Chamberlin state-variable filter with lowpass,
// highpass, and bandpass taps. Two state words: the low and band integrators.
func stateVariableFilter() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "filter.svf",
			Category: CategoryFilter,
			Label:    "SVF",
			Inputs: []nodelib.PortSpec{
				{ID: "in", Label: "In"},
				{ID: "mod", Label: "Cutoff Mod"},
			},
			Outputs: []nodelib.PortSpec{
				{ID: "lp", Label: "Lowpass"},
				{ID: "hp", Label: "Highpass"},
				{ID: "bp", Label: "Bandpass"},
			},
			Controls: []nodelib.Control{
				{ID: "cutoff", Label: "Cutoff", Min: 20, Max: 16000, Default: 1000, Hint: "knob"},
				{ID: "res", Label: "Resonance", Min: 0, Max: 0.95, Default: 0.2, Hint: "knob"},
			},
			StateWords: 2,
		},
		Assembly: &nodelib.Assembly{
			Declarations: []string{declMath},
			Emit: func(ctx nodelib.EmitContext) string {
				return fmt.Sprintf(`{
    float x = %s;
    float fc = %s + %s;
    float f = 2.0f * sinf(3.14159265f * fc * %s);
    if (f > 1.5f) f = 1.5f;
    float q = 1.0f - %s;
    float low = %s;
    float band = %s;
    low += f * band;
    float high = x - low - q * band;
    band += f * high;
    %s = low;
    %s = band;
    %s
    %s
    %s
}`,
					ctx.InputOr("in", 0),
					ctx.Param("cutoff"), ctx.InputOr("mod", 0),
					ctx.InvSampleRate(),
					ctx.Param("res"),
					ctx.State(0),
					ctx.State(1),
					ctx.State(0),
					ctx.State(1),
					ctx.Store("lp", "low"),
					ctx.Store("hp", "high"),
					ctx.Store("bp", "band"))
			},
		},
	}
}
