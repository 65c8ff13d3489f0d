package kinds

import (
	"fmt"

	"github.com/soundpatch/patchc/pkg/nodelib"
)

// delayBufferWords is the fixed circular buffer length per delay instance, a
// power of two so the write index wraps with a mask. Word 0 of the state
// range holds the write index; the buffer starts at word 1.
const delayBufferWords = 65536

func delayLine() nodelib.Entry {
	return nodelib.Entry{
		Manifest: nodelib.Manifest{
			Kind:     "delay.line",
			Category: CategoryDelay,
			Label:    "Delay",
			Inputs:   []nodelib.PortSpec{{ID: "in", Label: "In"}},
			Outputs:  []nodelib.PortSpec{{ID: "out", Label: "Out"}},
			Controls: []nodelib.Control{
				{ID: "time", Label: "Time", Min: 0.001, Max: 1, Default: 0.25, Hint: "knob"},
				{ID: "feedback", Label: "Feedback", Min: 0, Max: 0.95, Default: 0.3, Hint: "knob"},
				{ID: "mix", Label: "Mix", Min: 0, Max: 1, Default: 0.5, Hint: "knob"},
			},
			StateWords: 1 + delayBufferWords,
		},
		Assembly: &nodelib.Assembly{
			Emit: func(ctx nodelib.EmitContext) string {
				// The buffer is addressed relative to its first word; the
				// index word never leaves [0, delayBufferWords), which a
				// 32-bit float represents exactly.
				return fmt.Sprintf(`{
    float x = %s;
    float *buf = &%s;
    int idx = (int)%s;
    int len = (int)(%s * OSR);
    if (len < 1) len = 1;
    if (len > %d) len = %d;
    int rd = idx - len;
    if (rd < 0) rd += %d;
    float d = buf[rd];
    buf[idx] = x + d * %s;
    idx = (idx + 1) & %d;
    %s = (float)idx;
    %s
}`,
					ctx.InputOr("in", 0),
					ctx.State(1),
					ctx.State(0),
					ctx.Param("time"),
					delayBufferWords-1, delayBufferWords-1,
					delayBufferWords,
					ctx.Param("feedback"),
					delayBufferWords-1,
					ctx.State(0),
					ctx.Store("out", fmt.Sprintf("x + (d - x) * %s", ctx.Param("mix"))))
			},
		},
	}
}
