// Package kinds provides the builtin node library: oscillators, a filter,
// a delay line, an envelope, utility math/logic nodes, and the terminal
// stereo output. Each kind registers a manifest plus an assembly whose emit
// callback generates its per-sample C body.
//
// Hosts that bring their own DSP register additional kinds into the same
// library; the compiler treats builtin and external kinds identically.
package kinds

import "github.com/soundpatch/patchc/pkg/nodelib"

// Node categories used by manifests and the CLI browser.
const (
	CategoryOscillator = "oscillator"
	CategoryFilter     = "filter"
	CategoryDelay      = "delay"
	CategoryEnvelope   = "envelope"
	CategoryUtility    = "utility"
	CategoryOutput     = "output"
)

// Library returns a fresh library populated with every builtin kind.
// Callers own the returned library and may register further kinds into it.
func Library() *nodelib.Library {
	lib := nodelib.NewLibrary()
	for _, e := range builtins() {
		lib.MustRegister(e)
	}
	return lib
}

func builtins() []nodelib.Entry {
	return []nodelib.Entry{
		sineOscillator(),
		sawOscillator(),
		pulseOscillator(),
		noiseSource(),
		stateVariableFilter(),
		delayLine(),
		adEnvelope(),
		addNode(),
		mulNode(),
		clipNode(),
		sampleHold(),
		stereoOut(),
	}
}

// Shared declaration snippets. The emitter deduplicates by content, so
// snippets shared across kinds appear exactly once in the generated unit.
const (
	declMath = "#include <math.h>"

	declWrap = `static float wrap01(float x) {
    x -= (float)(int)x;
    return (x < 0.0f) ? x + 1.0f : x;
}`

	declEdge = `static float edge_trigger(float cur, float prev) {
    return (cur > 0.5f && prev <= 0.5f) ? 1.0f : 0.0f;
}`
)
