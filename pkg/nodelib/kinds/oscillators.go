package kinds

import (
	"fmt"

	"github.com/soundpatch/patchc/pkg/nodelib"
)

func sineOscillator() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "osc.sine",
			Category: CategoryOscillator,
			Label:    "Sine",
			Inputs:   []nodelib.PortSpec{{ID: "fm", Label: "FM"}},
			Outputs:  []nodelib.PortSpec{{ID: "out", Label: "Out"}},
			Controls: []nodelib.Control{
				{ID: "freq", Label: "Frequency", Min: 20, Max: 8000, Default: 220, Hint: "knob"},
				{ID: "amp", Label: "Amplitude", Min: 0, Max: 1, Default: 0.5, Hint: "knob"},
			},
			StateWords: 1,
		},
		Assembly: &nodelib.Assembly{
			Declarations: []string{declMath, declWrap},
			Emit: func(ctx nodelib.EmitContext) string {
				return fmt.Sprintf(`{
    float ph = %s;
    ph = wrap01(ph + (%s + %s) * %s);
    %s = ph;
    %s
}`,
					ctx.State(0),
					ctx.Param("freq"), ctx.InputOr("fm", 0), ctx.InvSampleRate(),
					ctx.State(0),
					ctx.Store("out", fmt.Sprintf("sinf(ph * 6.2831853f) * %s", ctx.Param("amp"))))
			},
		},
	}
}

func sawOscillator() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "osc.saw",
			Category: CategoryOscillator,
			Label:    "Saw",
			Inputs:   []nodelib.PortSpec{{ID: "fm", Label: "FM"}},
			Outputs:  []nodelib.PortSpec{{ID: "out", Label: "Out"}},
			Controls: []nodelib.Control{
				{ID: "freq", Label: "Frequency", Min: 20, Max: 8000, Default: 110, Hint: "knob"},
				{ID: "amp", Label: "Amplitude", Min: 0, Max: 1, Default: 0.5, Hint: "knob"},
			},
			StateWords: 1,
		},
		Assembly: &nodelib.Assembly{
			Declarations: []string{declWrap},
			Emit: func(ctx nodelib.EmitContext) string {
				return fmt.Sprintf(`{
    float ph = %s;
    ph = wrap01(ph + (%s + %s) * %s);
    %s = ph;
    %s
}`,
					ctx.State(0),
					ctx.Param("freq"), ctx.InputOr("fm", 0), ctx.InvSampleRate(),
					ctx.State(0),
					ctx.Store("out", fmt.Sprintf("(ph * 2.0f - 1.0f) * %s", ctx.Param("amp"))))
			},
		},
	}
}

func pulseOscillator() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "osc.pulse",
			Category: CategoryOscillator,
			Label:    "Pulse",
			Inputs: []nodelib.PortSpec{
				{ID: "fm", Label: "FM"},
				{ID: "pwm", Label: "PWM"},
			},
			Outputs: []nodelib.PortSpec{{ID: "out", Label: "Out"}},
			Controls: []nodelib.Control{
				{ID: "freq", Label: "Frequency", Min: 20, Max: 8000, Default: 110, Hint: "knob"},
				{ID: "width", Label: "Width", Min: 0.01, Max: 0.99, Default: 0.5, Hint: "knob"},
				{ID: "amp", Label: "Amplitude", Min: 0, Max: 1, Default: 0.5, Hint: "knob"},
			},
			StateWords: 1,
		},
		Assembly: &nodelib.Assembly{
			Declarations: []string{declWrap},
			Emit: func(ctx nodelib.EmitContext) string {
				return fmt.Sprintf(`{
    float ph = %s;
    float w = %s + %s;
    ph = wrap01(ph + (%s + %s) * %s);
    %s = ph;
    %s
}`,
					ctx.State(0),
					ctx.Param("width"), ctx.InputOr("pwm", 0),
					ctx.Param("freq"), ctx.InputOr("fm", 0), ctx.InvSampleRate(),
					ctx.State(0),
					ctx.Store("out", fmt.Sprintf("((ph < w) ? 1.0f : -1.0f) * %s", ctx.Param("amp"))))
			},
		},
	}
}

// noiseSource is a white-noise generator. The LCG word lives in the state
// arena through a type pun; only the bit pattern matters, never the float
// value, so a zero-initialized arena seeds it deterministically.
func noiseSource() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "noise",
			Category: CategoryOscillator,
			Label:    "Noise",
			Outputs:  []nodelib.PortSpec{{ID: "out", Label: "Out"}},
			Controls: []nodelib.Control{
				{ID: "amp", Label: "Amplitude", Min: 0, Max: 1, Default: 0.3, Hint: "knob"},
			},
			StateWords: 1,
		},
		Assembly: &nodelib.Assembly{
			Emit: func(ctx nodelib.EmitContext) string {
				return fmt.Sprintf(`{
    union { float f; unsigned u; } r;
    r.f = %s;
    r.u = r.u * 1664525u + 1013904223u;
    %s = r.f;
    %s
}`,
					ctx.State(0),
					ctx.State(0),
					ctx.Store("out", fmt.Sprintf("((float)(r.u >> 8) * (1.0f / 8388608.0f) - 1.0f) * %s", ctx.Param("amp"))))
			},
		},
	}
}
