package patch

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidNodeID is returned by [Patch.AddNode] when the node ID is empty.
	// All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Patch.AddNode] when a node with the
	// same ID already exists in the patch. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrDuplicatePortID is returned by [Patch.AddNode] when two ports on the
	// same side of a node share an ID.
	ErrDuplicatePortID = errors.New("duplicate port ID")

	// ErrUnknownSourceNode is returned by [Patch.Connect] when the source node
	// does not exist in the patch.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Patch.Connect] when the target node
	// does not exist in the patch.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrUnknownSourcePort is returned by [Patch.Connect] when the source node
	// exists but has no output port with the given ID.
	ErrUnknownSourcePort = errors.New("unknown source port")

	// ErrUnknownTargetPort is returned by [Patch.Connect] when the target node
	// exists but has no input port with the given ID.
	ErrUnknownTargetPort = errors.New("unknown target port")
)

// Default engine settings for a freshly created patch.
const (
	DefaultSampleRate = 44100.0
	DefaultBlockSize  = 128
	DefaultOversample = 2
)

// Settings holds the global engine parameters of a patch. They apply to the
// whole graph: every node is compiled against the same sample rate, block
// size, and oversampling factor.
type Settings struct {
	SampleRate float64 `json:"sample_rate" bson:"sample_rate"`
	BlockSize  int     `json:"block_size" bson:"block_size"`
	Oversample int     `json:"oversample" bson:"oversample"`
}

// DefaultSettings returns the settings used by [New].
func DefaultSettings() Settings {
	return Settings{
		SampleRate: DefaultSampleRate,
		BlockSize:  DefaultBlockSize,
		Oversample: DefaultOversample,
	}
}

// Metadata stores arbitrary key-value pairs attached to a node. It is used
// by the editor for things like canvas position and display hints; the
// compiler never interprets it.
type Metadata map[string]any

// Port is a signal-carrying connection point on a node. Every port carries
// the single numeric signal type; there is no further port typing.
type Port struct {
	ID    string `json:"id" bson:"id"`
	Label string `json:"label,omitempty" bson:"label,omitempty"`
}

// Node is one instance of a node kind placed in a patch. Ports are ordered;
// port IDs are unique within each side of the node. Params maps control IDs
// to their current values.
type Node struct {
	ID      string             `json:"id" bson:"id"`
	Kind    string             `json:"kind" bson:"kind"`
	Label   string             `json:"label,omitempty" bson:"label,omitempty"`
	Inputs  []Port             `json:"inputs,omitempty" bson:"inputs,omitempty"`
	Outputs []Port             `json:"outputs,omitempty" bson:"outputs,omitempty"`
	Params  map[string]float64 `json:"params,omitempty" bson:"params,omitempty"`
	Meta    Metadata           `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Input returns the input port with the given ID.
func (n Node) Input(id string) (Port, bool) { return findPort(n.Inputs, id) }

// Output returns the output port with the given ID.
func (n Node) Output(id string) (Port, bool) { return findPort(n.Outputs, id) }

func findPort(ports []Port, id string) (Port, bool) {
	for _, p := range ports {
		if p.ID == id {
			return p, true
		}
	}
	return Port{}, false
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// clone deep-copies the node so that edits to one patch value can never be
// observed through another.
func (n Node) clone() Node {
	out := n
	out.Inputs = append([]Port(nil), n.Inputs...)
	out.Outputs = append([]Port(nil), n.Outputs...)
	if n.Params != nil {
		out.Params = make(map[string]float64, len(n.Params))
		for k, v := range n.Params {
			out.Params[k] = v
		}
	}
	if n.Meta != nil {
		out.Meta = make(Metadata, len(n.Meta))
		for k, v := range n.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

// Connection is one directed wire from an output port to an input port.
// A single output port may fan out into many connections; whether an input
// port accepts more than one incoming wire is up to the node kind (summing
// inputs do, most others expect at most one).
type Connection struct {
	FromNode string `json:"from_node" bson:"from_node"`
	FromPort string `json:"from_port" bson:"from_port"`
	ToNode   string `json:"to_node" bson:"to_node"`
	ToPort   string `json:"to_port" bson:"to_port"`
}

// Patch is the immutable value type representing a node-and-wire audio
// program. Node insertion order is preserved and significant: it breaks ties
// in topological ordering and decides auto-route fallback selection, so an
// unchanged patch always compiles to byte-identical source.
//
// All mutation methods are pure: they return a new Patch and never alter
// their receiver. Two independent edit sessions can never interfere.
type Patch struct {
	Settings    Settings     `json:"settings" bson:"settings"`
	Nodes       []Node       `json:"nodes,omitempty" bson:"nodes,omitempty"`
	Connections []Connection `json:"connections,omitempty" bson:"connections,omitempty"`
}

// New creates an empty patch with default settings.
func New() Patch {
	return Patch{Settings: DefaultSettings()}
}

// NewNodeID generates a fresh opaque node identifier. IDs only need to be
// unique within a patch; the compiler sanitizes them before they ever reach
// generated source.
func NewNodeID(kind string) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return kind + "-" + short
}

// Node returns the node with the given ID.
func (p Patch) Node(id string) (Node, bool) {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodeIndex returns the insertion index of the node, or -1 if not present.
func (p Patch) NodeIndex(id string) int {
	for i, n := range p.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// NodeCount returns the number of nodes in the patch.
func (p Patch) NodeCount() int { return len(p.Nodes) }

// ConnectionCount returns the number of connections in the patch.
func (p Patch) ConnectionCount() int { return len(p.Connections) }

// Incoming returns the connections terminating at the given input port, in
// connection insertion order.
func (p Patch) Incoming(nodeID, portID string) []Connection {
	var in []Connection
	for _, c := range p.Connections {
		if c.ToNode == nodeID && c.ToPort == portID {
			in = append(in, c)
		}
	}
	return in
}

// Outgoing returns the connections originating at the given output port, in
// connection insertion order.
func (p Patch) Outgoing(nodeID, portID string) []Connection {
	var out []Connection
	for _, c := range p.Connections {
		if c.FromNode == nodeID && c.FromPort == portID {
			out = append(out, c)
		}
	}
	return out
}

// AddNode returns a new patch with the node appended. The input patch is
// unchanged. Fails if the node ID is empty or already taken, or if the node
// declares duplicate port IDs.
func (p Patch) AddNode(n Node) (Patch, error) {
	if n.ID == "" {
		return Patch{}, ErrInvalidNodeID
	}
	if _, exists := p.Node(n.ID); exists {
		return Patch{}, ErrDuplicateNodeID
	}
	if hasDuplicatePort(n.Inputs) || hasDuplicatePort(n.Outputs) {
		return Patch{}, ErrDuplicatePortID
	}

	out := p.shallowCopy()
	out.Nodes = append(out.Nodes, n.clone())
	return out, nil
}

// Connect returns a new patch with a wire from (fromNode, fromPort) to
// (toNode, toPort) appended. The input patch is unchanged. Both endpoints
// must reference existing node/port pairs.
func (p Patch) Connect(fromNode, fromPort, toNode, toPort string) (Patch, error) {
	src, ok := p.Node(fromNode)
	if !ok {
		return Patch{}, ErrUnknownSourceNode
	}
	dst, ok := p.Node(toNode)
	if !ok {
		return Patch{}, ErrUnknownTargetNode
	}
	if _, ok := src.Output(fromPort); !ok {
		return Patch{}, ErrUnknownSourcePort
	}
	if _, ok := dst.Input(toPort); !ok {
		return Patch{}, ErrUnknownTargetPort
	}

	out := p.shallowCopy()
	out.Connections = append(out.Connections, Connection{
		FromNode: fromNode,
		FromPort: fromPort,
		ToNode:   toNode,
		ToPort:   toPort,
	})
	return out, nil
}

// WithSettings returns a new patch with the given engine settings and all
// else unchanged. Zero-valued fields fall back to the current setting, so
// callers can update a single field without restating the others.
func (p Patch) WithSettings(s Settings) Patch {
	out := p.shallowCopy()
	if s.SampleRate == 0 {
		s.SampleRate = p.Settings.SampleRate
	}
	if s.BlockSize == 0 {
		s.BlockSize = p.Settings.BlockSize
	}
	if s.Oversample == 0 {
		s.Oversample = p.Settings.Oversample
	}
	out.Settings = s
	return out
}

// Clone returns a deep copy sharing no mutable substructure with p.
func (p Patch) Clone() Patch {
	out := Patch{
		Settings:    p.Settings,
		Nodes:       make([]Node, len(p.Nodes)),
		Connections: append([]Connection(nil), p.Connections...),
	}
	for i, n := range p.Nodes {
		out.Nodes[i] = n.clone()
	}
	return out
}

// shallowCopy copies the slice headers so that appends never alias the
// receiver's backing arrays. Node values themselves are immutable by
// convention once added, so they can be shared.
func (p Patch) shallowCopy() Patch {
	return Patch{
		Settings:    p.Settings,
		Nodes:       append([]Node(nil), p.Nodes...),
		Connections: append([]Connection(nil), p.Connections...),
	}
}

func hasDuplicatePort(ports []Port) bool {
	seen := make(map[string]struct{}, len(ports))
	for _, p := range ports {
		if _, dup := seen[p.ID]; dup {
			return true
		}
		seen[p.ID] = struct{}{}
	}
	return false
}
