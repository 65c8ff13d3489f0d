package compile

import (
	"testing"

	"github.com/soundpatch/patchc/pkg/patch"
)

func node(id string, inputs, outputs []string) patch.Node {
	n := patch.Node{ID: id, Kind: "test." + id}
	for _, p := range inputs {
		n.Inputs = append(n.Inputs, patch.Port{ID: p})
	}
	for _, p := range outputs {
		n.Outputs = append(n.Outputs, patch.Port{ID: p})
	}
	return n
}

func mustAdd(t *testing.T, p patch.Patch, n patch.Node) patch.Patch {
	t.Helper()
	out, err := p.AddNode(n)
	if err != nil {
		t.Fatalf("AddNode(%s): %v", n.ID, err)
	}
	return out
}

func mustConnect(t *testing.T, p patch.Patch, fn, fp, tn, tp string) patch.Patch {
	t.Helper()
	out, err := p.Connect(fn, fp, tn, tp)
	if err != nil {
		t.Fatalf("Connect(%s.%s -> %s.%s): %v", fn, fp, tn, tp, err)
	}
	return out
}

func orderIDs(res Result) []string {
	ids := make([]string, len(res.Order))
	for i, n := range res.Order {
		ids[i] = n.ID
	}
	return ids
}

func TestValidateDiamondOrder(t *testing.T) {
	// a feeds b and c; both feed d. Insertion order breaks the b/c tie.
	p := patch.New()
	p = mustAdd(t, p, node("a", nil, []string{"out"}))
	p = mustAdd(t, p, node("b", []string{"in"}, []string{"out"}))
	p = mustAdd(t, p, node("c", []string{"in"}, []string{"out"}))
	p = mustAdd(t, p, node("d", []string{"x", "y"}, nil))
	p = mustConnect(t, p, "a", "out", "b", "in")
	p = mustConnect(t, p, "a", "out", "c", "in")
	p = mustConnect(t, p, "b", "out", "d", "x")
	p = mustConnect(t, p, "c", "out", "d", "y")

	res := Validate(p)
	if !res.Valid {
		t.Fatalf("expected valid, got issues: %+v", res.Issues)
	}
	want := []string{"a", "b", "c", "d"}
	got := orderIDs(res)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	// Determinism: repeated validation yields the identical order.
	again := orderIDs(Validate(p))
	for i := range got {
		if got[i] != again[i] {
			t.Fatal("validation order is not deterministic")
		}
	}
}

func TestValidateCycle(t *testing.T) {
	// a and b feed each other; c is untouched by the cycle.
	p := patch.New()
	p = mustAdd(t, p, node("a", []string{"in"}, []string{"out"}))
	p = mustAdd(t, p, node("b", []string{"in"}, []string{"out"}))
	p = mustAdd(t, p, node("c", []string{"in"}, nil))
	p = mustConnect(t, p, "a", "out", "b", "in")
	p = mustConnect(t, p, "b", "out", "a", "in")
	p = mustConnect(t, p, "b", "out", "c", "in")

	res := Validate(p)
	if res.Valid {
		t.Fatal("cycle should invalidate the patch")
	}
	if !res.HasIssue(IssueCycleDetected) {
		t.Errorf("missing CYCLE_DETECTED issue: %+v", res.Issues)
	}
	// Exactly one back edge closes this cycle.
	cycles := 0
	for _, i := range res.Issues {
		if i.Code == IssueCycleDetected {
			cycles++
			if i.Connection == nil {
				t.Error("cycle issue should carry the closing connection")
			}
		}
	}
	if cycles != 1 {
		t.Errorf("cycle issues = %d, want 1", cycles)
	}
	// The partial order still covers every node for diagnostics.
	if len(res.Order) != 3 {
		t.Errorf("partial order len = %d, want 3", len(res.Order))
	}
}

func TestValidateDanglingEndpoints(t *testing.T) {
	p := patch.New()
	p = mustAdd(t, p, node("a", nil, []string{"out"}))
	p = mustAdd(t, p, node("b", []string{"in"}, nil))

	// Connections are injected directly: Connect would refuse them, but
	// documents loaded from disk can carry arbitrary endpoints.
	p.Connections = []patch.Connection{
		{FromNode: "ghost", FromPort: "out", ToNode: "b", ToPort: "in"},
		{FromNode: "a", FromPort: "nope", ToNode: "b", ToPort: "in"},
		{FromNode: "a", FromPort: "out", ToNode: "b", ToPort: "nope"},
	}

	res := Validate(p)
	if res.Valid {
		t.Fatal("dangling endpoints should invalidate the patch")
	}
	if !res.HasIssue(IssueMissingNode) {
		t.Error("missing MISSING_NODE issue")
	}
	if !res.HasIssue(IssueMissingPort) {
		t.Error("missing MISSING_PORT issue")
	}
	// All three problems are reported, not just the first.
	if len(res.Issues) != 3 {
		t.Errorf("issues = %d, want 3: %+v", len(res.Issues), res.Issues)
	}
	// Dangling edges are excluded from ordering, so it still completes.
	if len(res.Order) != 2 {
		t.Errorf("order len = %d, want 2", len(res.Order))
	}
}

func TestValidateEmptyPatch(t *testing.T) {
	res := Validate(patch.New())
	if !res.Valid {
		t.Error("empty patch should be valid")
	}
	if len(res.Order) != 0 {
		t.Errorf("order len = %d, want 0", len(res.Order))
	}
}

func TestValidateDuplicateNodeIDs(t *testing.T) {
	// AddNode refuses duplicate ids, but a decoded document can carry
	// them. Two nodes sharing an id must not validate: the planner would
	// give both the same state identifier and alias their storage.
	doc, err := patch.DecodeDocument([]byte(`{
		"nodes": [
			{"id": "x", "kind": "gen", "outputs": [{"id": "out"}]},
			{"id": "x", "kind": "gen", "outputs": [{"id": "out"}]}
		]
	}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}

	res := Validate(doc.Patch)
	if res.Valid {
		t.Fatal("duplicate node ids should invalidate the patch")
	}
	if !res.HasIssue(IssueDuplicateNode) {
		t.Errorf("missing DUPLICATE_NODE issue: %+v", res.Issues)
	}
	for _, i := range res.Issues {
		if i.Code == IssueDuplicateNode && i.NodeID != "x" {
			t.Errorf("issue NodeID = %q, want %q", i.NodeID, "x")
		}
	}

	// The invalid result keeps the duplicate out of the planner.
	if _, err := NewPlan(res, doc.Patch, testLibrary()); err == nil {
		t.Error("planning a patch with duplicate ids should fail")
	}
}

func TestValidateSelfLoop(t *testing.T) {
	p := patch.New()
	p = mustAdd(t, p, node("a", []string{"in"}, []string{"out"}))
	p = mustConnect(t, p, "a", "out", "a", "in")

	res := Validate(p)
	if res.Valid {
		t.Fatal("self loop should invalidate the patch")
	}
	if !res.HasIssue(IssueCycleDetected) {
		t.Errorf("missing CYCLE_DETECTED issue: %+v", res.Issues)
	}
}
