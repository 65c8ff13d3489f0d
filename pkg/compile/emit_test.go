package compile_test

import (
	"strings"
	"testing"

	"github.com/soundpatch/patchc/pkg/compile"
	"github.com/soundpatch/patchc/pkg/nodelib/kinds"
	"github.com/soundpatch/patchc/pkg/patch"
)

func buildPatch(t *testing.T, wire bool) patch.Patch {
	t.Helper()
	lib := kinds.Library()

	p := patch.New()
	osc, err := lib.Instantiate("osc.sine", "s1")
	if err != nil {
		t.Fatal(err)
	}
	out, err := lib.Instantiate("out.stereo", "o1")
	if err != nil {
		t.Fatal(err)
	}
	p, _ = p.AddNode(osc)
	p, _ = p.AddNode(out)
	if wire {
		p, err = p.Connect("s1", "out", "o1", "left")
		if err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func emitPatch(t *testing.T, p patch.Patch) string {
	t.Helper()
	lib := kinds.Library()
	res := compile.Validate(p)
	if !res.Valid {
		t.Fatalf("patch invalid: %+v", res.Issues)
	}
	plan, err := compile.NewPlan(res, p, lib)
	if err != nil {
		t.Fatalf("NewPlan error: %v", err)
	}
	src, err := compile.Emit(plan, lib)
	if err != nil {
		t.Fatalf("Emit error: %v", err)
	}
	return src
}

func TestEmitExportContract(t *testing.T) {
	src := emitPatch(t, buildPatch(t, true))

	for _, want := range []string{
		"#define BLOCK_SIZE 128",
		"#define OVERSAMPLE 2",
		"#define SAMPLE_RATE 44100.0f",
		"#define OSR ",
		"#define INV_OSR ",
		"float *param_buffer(void)",
		"float *state_buffer(void)",
		"void process(float *left, float *right)",
		"left[i] = mix_l;",
		"right[i] = mix_r;",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("emitted source missing %q", want)
		}
	}
}

func TestEmitDeterministic(t *testing.T) {
	p := buildPatch(t, true)
	a := emitPatch(t, p)
	b := emitPatch(t, p)
	if a != b {
		t.Error("compiling the same patch twice must be byte-identical")
	}
}

func TestEmitParamBuffer(t *testing.T) {
	src := emitPatch(t, buildPatch(t, true))

	// Sine packs freq then amp, stereo out packs gain, in topological order.
	if !strings.Contains(src, "static float params[3] = {220.0f, 0.5f, 0.8f};") {
		t.Errorf("unexpected param buffer:\n%s", src)
	}
	// One phase word for the oscillator.
	if !strings.Contains(src, "static float state[1];") {
		t.Errorf("unexpected state arena:\n%s", src)
	}
}

func TestEmitWiredChannelAndAutoRoute(t *testing.T) {
	// Left is wired explicitly; right falls back to the same producer via
	// the auto route.
	src := emitPatch(t, buildPatch(t, true))

	if !strings.Contains(src, "float w_s1_out_0 = 0.0f;") {
		t.Error("missing wire variable declaration")
	}
	if !strings.Contains(src, "float w_s1_auto = 0.0f;") {
		t.Error("missing auto-route variable declaration")
	}
	if !strings.Contains(src, "mix_l = w_s1_out_0 * params[2];") {
		t.Error("left channel should read the explicit wire")
	}
	if !strings.Contains(src, "mix_r = w_s1_auto * params[2];") {
		t.Error("right channel should read the auto route")
	}
}

func TestEmitFullyUnwiredAutoRoute(t *testing.T) {
	src := emitPatch(t, buildPatch(t, false))

	if !strings.Contains(src, "w_s1_auto = sinf(") {
		t.Error("auto-only producer should assign straight into the auto variable")
	}
	if !strings.Contains(src, "mix_l = w_s1_auto * params[2];") ||
		!strings.Contains(src, "mix_r = w_s1_auto * params[2];") {
		t.Error("both channels should read the auto route")
	}
}

func TestEmitDegradedNodeComment(t *testing.T) {
	p := buildPatch(t, true)
	p, err := p.AddNode(patch.Node{ID: "m1", Kind: "mystery", Outputs: []patch.Port{{ID: "out"}}})
	if err != nil {
		t.Fatal(err)
	}

	src := emitPatch(t, p)
	if !strings.Contains(src, "/* m1 (mystery): skipped: kind mystery is not registered */") {
		t.Errorf("degraded node should emit an inert comment:\n%s", src)
	}
}

func TestEmitSharedDeclarationsDeduplicated(t *testing.T) {
	lib := kinds.Library()
	p := patch.New()
	// env.ad and util.sh both depend on the edge_trigger helper.
	env, _ := lib.Instantiate("env.ad", "e1")
	sh, _ := lib.Instantiate("util.sh", "h1")
	env2, _ := lib.Instantiate("env.ad", "e2")
	p, _ = p.AddNode(env)
	p, _ = p.AddNode(sh)
	p, _ = p.AddNode(env2)

	src := emitPatch(t, p)
	if got := strings.Count(src, "static float edge_trigger"); got != 1 {
		t.Errorf("edge_trigger declared %d times, want 1", got)
	}
}

func TestEmitCyclicPatchRefused(t *testing.T) {
	lib := kinds.Library()
	p := patch.New()
	a, _ := lib.Instantiate("math.add", "a")
	b, _ := lib.Instantiate("math.add", "b")
	p, _ = p.AddNode(a)
	p, _ = p.AddNode(b)
	p, _ = p.Connect("a", "out", "b", "a")
	p, _ = p.Connect("b", "out", "a", "a")

	res := compile.Validate(p)
	if res.Valid {
		t.Fatal("cyclic patch should be invalid")
	}
	if _, err := compile.NewPlan(res, p, lib); err == nil {
		t.Fatal("planning a cyclic patch should fail")
	}
}

func TestEmitStateOffsets(t *testing.T) {
	lib := kinds.Library()
	p := patch.New()
	// Two sines and an SVF: 1 + 1 + 2 state words.
	s1, _ := lib.Instantiate("osc.sine", "s1")
	s2, _ := lib.Instantiate("osc.sine", "s2")
	f1, _ := lib.Instantiate("filter.svf", "f1")
	p, _ = p.AddNode(s1)
	p, _ = p.AddNode(s2)
	p, _ = p.AddNode(f1)
	p, _ = p.Connect("s2", "out", "f1", "in")

	src := emitPatch(t, p)
	if !strings.Contains(src, "static float state[4];") {
		t.Errorf("unexpected state arena:\n%s", src)
	}
	// The filter is planned last; its integrators sit at the arena tail.
	if !strings.Contains(src, "state[2]") || !strings.Contains(src, "state[3]") {
		t.Error("filter state words not placed after oscillator phases")
	}
}
