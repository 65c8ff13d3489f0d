package compile

import (
	"strconv"

	"github.com/soundpatch/patchc/pkg/errors"
	"github.com/soundpatch/patchc/pkg/nodelib"
	"github.com/soundpatch/patchc/pkg/patch"
)

// Terminal mix-bus input port IDs, by convention of terminal node kinds.
const (
	MixLeft  = "left"
	MixRight = "right"
)

// PlanWire is one resolved connection: the wire itself plus the variable
// name synthesized for it. The producer assigns into the variable; the
// consumer reads exactly this variable for this specific connection.
// Fan-out produces one independently named variable per outgoing wire.
type PlanWire struct {
	Conn patch.Connection
	Var  string
}

// PlanInput resolves one input port: the incoming wires, or none if the
// port was left unconnected.
type PlanInput struct {
	Port  patch.Port
	Wires []PlanWire
}

// PlanOutput resolves one output port into its outgoing wires.
type PlanOutput struct {
	Port  patch.Port
	Wires []PlanWire
}

// PlanControl binds a manifest control to its packed parameter-buffer slot
// and the node's current value for it.
type PlanControl struct {
	Control nodelib.Control
	Slot    int
	Value   float64
}

// PlanNode is the compiler's resolved, per-node compilation context, one per
// node in topological order. Emit callbacks receive everything pre-resolved
// and never look up identifiers themselves.
type PlanNode struct {
	Node     patch.Node
	Manifest nodelib.Manifest

	// StateID is the sanitized identifier derived from the node ID, unique
	// across the plan. It names the node in generated comments and prefixes
	// its wire variables.
	StateID string

	// StateOffset is the node's slot in the contiguous state arena;
	// Manifest.StateWords words starting here belong exclusively to this
	// instance.
	StateOffset int

	Inputs   []PlanInput
	Outputs  []PlanOutput
	Controls []PlanControl

	// AutoSource marks the fallback producer elected to feed the mix bus
	// because the terminal inputs were left unconnected; AutoVar is the
	// extra variable it assigns for that purpose.
	AutoSource bool
	AutoVar    string

	// AutoLeft / AutoRight mark terminal channels fed by the auto route.
	AutoLeft  bool
	AutoRight bool

	// Degraded nodes emit an inert comment instead of code. A single
	// malformed node never blocks compiling the rest of the graph.
	Degraded       bool
	DegradedReason string

	// insertionIndex is the node's position in the patch, kept for the
	// auto-route recency rule.
	insertionIndex int
}

// Input returns the resolved input for a port ID.
func (pn *PlanNode) Input(portID string) (*PlanInput, bool) {
	for i := range pn.Inputs {
		if pn.Inputs[i].Port.ID == portID {
			return &pn.Inputs[i], true
		}
	}
	return nil, false
}

// Output returns the resolved output for a port ID.
func (pn *PlanNode) Output(portID string) (*PlanOutput, bool) {
	for i := range pn.Outputs {
		if pn.Outputs[i].Port.ID == portID {
			return &pn.Outputs[i], true
		}
	}
	return nil, false
}

// Control returns the resolved control for a control ID.
func (pn *PlanNode) Control(controlID string) (*PlanControl, bool) {
	for i := range pn.Controls {
		if pn.Controls[i].Control.ID == controlID {
			return &pn.Controls[i], true
		}
	}
	return nil, false
}

// Plan is the ordered compilation plan for a whole patch.
type Plan struct {
	Nodes    []PlanNode
	Settings patch.Settings

	// ParamCount is the size of the packed parameter buffer.
	ParamCount int
	// StateWords is the total size of the state arena.
	StateWords int
	// WireVars lists every synthesized wire variable in declaration order.
	WireVars []string
	// AutoVar is the auto-route bus variable, empty when no auto route was
	// planned.
	AutoVar string
}

// ParamValues returns the initial parameter buffer contents in slot order.
func (p *Plan) ParamValues() []float64 {
	vals := make([]float64, p.ParamCount)
	for i := range p.Nodes {
		for _, c := range p.Nodes[i].Controls {
			vals[c.Slot] = c.Value
		}
	}
	return vals
}

// NewPlan resolves a validated patch against a node library into an ordered
// sequence of per-node compilation contexts. It refuses to run on an
// invalid validation result; that is a contract violation, not a
// graph-content problem.
//
// Wire variables, parameter slots, and state offsets are all assigned in
// topological order (controls in manifest declaration order within a node),
// so an unchanged patch always plans identically.
func NewPlan(res Result, p patch.Patch, lib *nodelib.Library) (*Plan, error) {
	if !res.Valid {
		return nil, errors.New(errors.ErrCodeInvalidPlan,
			"cannot plan an invalid patch (%d issues)", len(res.Issues))
	}
	if lib == nil {
		return nil, errors.New(errors.ErrCodeInvalidPlan, "node library is nil")
	}
	if p.Settings.Oversample < 1 || p.Settings.BlockSize < 1 || p.Settings.SampleRate <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidSettings,
			"settings out of range: rate=%v block=%d oversample=%d",
			p.Settings.SampleRate, p.Settings.BlockSize, p.Settings.Oversample)
	}

	plan := &Plan{Settings: p.Settings}

	// Sanitized state identifiers, made injective by suffixing: two
	// distinct node IDs never collide after sanitization.
	ids := newIdentifierSet()
	stateID := make(map[string]string, len(res.Order))
	for _, n := range res.Order {
		stateID[n.ID] = ids.claim(n.ID)
	}

	// One variable per wire, named from the source node and a per-output-
	// port counter. Connection insertion order fixes the counters.
	wireVar := make(map[patch.Connection]string, len(p.Connections))
	for _, n := range res.Order {
		for _, out := range n.Outputs {
			for k, c := range p.Outgoing(n.ID, out.ID) {
				v := "w_" + stateID[n.ID] + "_" + sanitize(out.ID) + "_" + strconv.Itoa(k)
				wireVar[c] = v
				plan.WireVars = append(plan.WireVars, v)
			}
		}
	}

	paramSlot := 0
	stateOffset := 0
	for _, n := range res.Order {
		pn := PlanNode{
			Node:           n,
			StateID:        stateID[n.ID],
			StateOffset:    stateOffset,
			insertionIndex: p.NodeIndex(n.ID),
		}

		entry, known := lib.Lookup(n.Kind)
		if known {
			pn.Manifest = entry.Manifest
			stateOffset += entry.Manifest.StateWords
		} else {
			pn.Degraded = true
			pn.DegradedReason = "kind " + n.Kind + " is not registered"
		}

		// The node instance must still carry every port its manifest
		// declares; documents edited by hand (or by an older schema) may
		// not. Such nodes degrade instead of aborting the compile.
		if known && !pn.Degraded {
			for _, spec := range entry.Manifest.Inputs {
				if _, ok := n.Input(spec.ID); !ok {
					pn.Degraded = true
					pn.DegradedReason = "input port " + spec.ID + " missing from instance"
					break
				}
			}
		}
		if known && !pn.Degraded {
			for _, spec := range entry.Manifest.Outputs {
				if _, ok := n.Output(spec.ID); !ok {
					pn.Degraded = true
					pn.DegradedReason = "output port " + spec.ID + " missing from instance"
					break
				}
			}
		}

		for _, in := range n.Inputs {
			pi := PlanInput{Port: in}
			for _, c := range p.Incoming(n.ID, in.ID) {
				pi.Wires = append(pi.Wires, PlanWire{Conn: c, Var: wireVar[c]})
			}
			pn.Inputs = append(pn.Inputs, pi)
		}
		for _, out := range n.Outputs {
			po := PlanOutput{Port: out}
			for _, c := range p.Outgoing(n.ID, out.ID) {
				po.Wires = append(po.Wires, PlanWire{Conn: c, Var: wireVar[c]})
			}
			pn.Outputs = append(pn.Outputs, po)
		}

		// Parameter packing: topological node order, then declaration
		// order within the manifest. Values fall back to control defaults.
		if known {
			for _, ctl := range entry.Manifest.Controls {
				val := ctl.Default
				if v, ok := n.Params[ctl.ID]; ok {
					val = v
				}
				pn.Controls = append(pn.Controls, PlanControl{Control: ctl, Slot: paramSlot, Value: val})
				paramSlot++
			}
		}

		plan.Nodes = append(plan.Nodes, pn)
	}
	plan.ParamCount = paramSlot
	plan.StateWords = stateOffset

	planAutoRoute(plan, lib)

	return plan, nil
}

// planAutoRoute wires the implicit mix-bus route: when the terminal node's
// left/right inputs are unconnected, the most recently added eligible
// producer feeds them directly. This is pure ergonomics — one oscillator
// and no wiring still makes sound.
//
// Eligible means: not the terminal, not degraded, and at least one output
// port. Recency is insertion order, the same ordering used for topological
// tie-breaking, so the choice is stable across recompiles.
func planAutoRoute(plan *Plan, lib *nodelib.Library) {
	var terminal *PlanNode
	for i := range plan.Nodes {
		if plan.Nodes[i].Manifest.Terminal {
			terminal = &plan.Nodes[i]
			break
		}
	}
	if terminal == nil {
		return
	}

	left, hasLeft := terminal.Input(MixLeft)
	right, hasRight := terminal.Input(MixRight)
	needLeft := hasLeft && len(left.Wires) == 0
	needRight := hasRight && len(right.Wires) == 0
	if !needLeft && !needRight {
		return
	}

	var source *PlanNode
	maxIndex := -1
	for i := range plan.Nodes {
		pn := &plan.Nodes[i]
		if pn.Manifest.Terminal || pn.Degraded || len(pn.Node.Outputs) == 0 {
			continue
		}
		// Plan order is topological; recency is decided by the node's
		// position in the patch, not in the plan.
		if pn.insertionIndex > maxIndex {
			maxIndex = pn.insertionIndex
			source = pn
		}
	}
	if source == nil {
		return
	}

	source.AutoSource = true
	source.AutoVar = "w_" + source.StateID + "_auto"
	terminal.AutoLeft = needLeft
	terminal.AutoRight = needRight
	plan.AutoVar = source.AutoVar
	plan.WireVars = append(plan.WireVars, source.AutoVar)
}
