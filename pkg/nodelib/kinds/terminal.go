package kinds

import (
	"fmt"

	"github.com/soundpatch/patchc/pkg/nodelib"
)

// stereoOut is the terminal mix node. An unconnected channel falls back to
// the auto-routed producer when one was elected, otherwise it is silent.
func stereoOut() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "out.stereo",
			Category: CategoryOutput,
			Label:    "Stereo Out",
			Inputs: []nodelib.PortSpec{
				{ID: "left", Label: "Left"},
				{ID: "right", Label: "Right"},
			},
			Controls: []nodelib.Control{
				{ID: "gain", Label: "Gain", Min: 0, Max: 2, Default: 0.8, Hint: "knob"},
			},
			Terminal: true,
		},
		Assembly: &nodelib.Assembly{
			Emit: func(ctx nodelib.EmitContext) string {
				return fmt.Sprintf("%s = %s * %s;\n%s = %s * %s;",
					ctx.MixOut("left"), channelExpr(ctx, "left"), ctx.Param("gain"),
					ctx.MixOut("right"), channelExpr(ctx, "right"), ctx.Param("gain"))
			},
		},
	}
}

func channelExpr(ctx nodelib.EmitContext, channel string) string {
	if expr, ok := ctx.Input(channel); ok {
		return expr
	}
	if expr, ok := ctx.AutoInput(channel); ok {
		return expr
	}
	return "0.0f"
}
