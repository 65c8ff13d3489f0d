// Package compile turns an immutable patch into deterministic per-sample
// source: Validate produces a topological order or a structured issue list,
// Plan resolves wires and parameter slots into per-node compilation
// contexts, and Emit drives each node kind's code-generation callback to
// assemble the final source unit.
//
// The three stages are pure over their inputs. Compiling the same patch
// twice yields byte-identical source.
package compile

import "github.com/soundpatch/patchc/pkg/patch"

// IssueCode identifies a class of graph-content problem. The codes are part
// of the public contract: editors match on them to point at offending nodes
// and wires.
type IssueCode string

const (
	// IssueCycleDetected reports a directed cycle; the issue names the
	// connection that closes the cycle.
	IssueCycleDetected IssueCode = "CYCLE_DETECTED"

	// IssueMissingNode reports a connection endpoint referencing a node
	// that does not exist in the patch.
	IssueMissingNode IssueCode = "MISSING_NODE"

	// IssueMissingPort reports a connection endpoint referencing a port
	// that does not exist on an existing node.
	IssueMissingPort IssueCode = "MISSING_PORT"

	// IssueDuplicateNode reports two nodes sharing one id. Duplicate ids
	// would alias parameter slots and state storage, so the patch is
	// refused outright.
	IssueDuplicateNode IssueCode = "DUPLICATE_NODE"
)

// Issue is one machine-readable validation finding. Graph-content problems
// are always reported this way, never as errors: the caller decides how to
// surface them, and compilation simply does not proceed past an invalid
// result.
type Issue struct {
	Code       IssueCode         `json:"code"`
	NodeID     string            `json:"node_id,omitempty"`
	PortID     string            `json:"port_id,omitempty"`
	Connection *patch.Connection `json:"connection,omitempty"`
	Message    string            `json:"message"`
}

// Result is the outcome of validating a patch snapshot. Order is a
// topological order when Valid; otherwise it is a best-effort partial order
// kept for diagnostic display. The planner refuses to run on an invalid
// result.
type Result struct {
	Valid  bool         `json:"valid"`
	Order  []patch.Node `json:"-"`
	Issues []Issue      `json:"issues,omitempty"`
}

// Validate checks a patch for cycles and dangling wiring and computes a
// deterministic topological order over its nodes.
//
// Traversal never stops at the first problem: all issues are collected so an
// editor can show every offending node and connection at once. Ties between
// independent nodes are broken by insertion index, so recompiling an
// unchanged patch always yields the same order.
func Validate(p patch.Patch) Result {
	res := Result{Valid: true}

	// Node ids must be unique. AddNode enforces this for programmatic
	// edits, but a decoded document can carry any ids it likes; duplicates
	// are reported here so they never reach the planner. The first
	// occurrence keeps the id for connection resolution.
	index := make(map[string]int, len(p.Nodes))
	for i, n := range p.Nodes {
		if _, dup := index[n.ID]; dup {
			res.addIssue(Issue{Code: IssueDuplicateNode, NodeID: n.ID,
				Message: "node id " + n.ID + " is used by more than one node"})
			continue
		}
		index[n.ID] = i
	}

	// Resolve connections, reporting dangling endpoints. Only fully valid
	// edges participate in the traversal.
	type edge struct {
		conn patch.Connection
		to   int
	}
	outgoing := make([][]edge, len(p.Nodes))
	for _, c := range p.Connections {
		c := c
		valid := true

		from, ok := index[c.FromNode]
		if !ok {
			res.addIssue(Issue{Code: IssueMissingNode, NodeID: c.FromNode, Connection: &c,
				Message: "connection references missing source node " + c.FromNode})
			valid = false
		} else if _, ok := p.Nodes[from].Output(c.FromPort); !ok {
			res.addIssue(Issue{Code: IssueMissingPort, NodeID: c.FromNode, PortID: c.FromPort, Connection: &c,
				Message: "node " + c.FromNode + " has no output port " + c.FromPort})
			valid = false
		}

		to, ok := index[c.ToNode]
		if !ok {
			res.addIssue(Issue{Code: IssueMissingNode, NodeID: c.ToNode, Connection: &c,
				Message: "connection references missing target node " + c.ToNode})
			valid = false
		} else if _, ok := p.Nodes[to].Input(c.ToPort); !ok {
			res.addIssue(Issue{Code: IssueMissingPort, NodeID: c.ToNode, PortID: c.ToPort, Connection: &c,
				Message: "node " + c.ToNode + " has no input port " + c.ToPort})
			valid = false
		}

		if valid {
			outgoing[from] = append(outgoing[from], edge{conn: c, to: to})
		}
	}

	// Cycle detection: depth-first traversal with white/gray/black
	// coloring. An edge into a gray node closes a cycle; the traversal
	// skips that edge and keeps going so every back edge gets reported.
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(p.Nodes))
	backEdge := make(map[patch.Connection]bool)

	var dfs func(i int)
	dfs = func(i int) {
		color[i] = gray
		for _, e := range outgoing[i] {
			switch color[e.to] {
			case white:
				dfs(e.to)
			case gray:
				if !backEdge[e.conn] {
					backEdge[e.conn] = true
					conn := e.conn
					res.addIssue(Issue{Code: IssueCycleDetected, NodeID: conn.FromNode, Connection: &conn,
						Message: "cycle closed by connection " + conn.FromNode + "." + conn.FromPort +
							" -> " + conn.ToNode + "." + conn.ToPort})
				}
			}
		}
		color[i] = black
	}
	for i := range p.Nodes {
		if color[i] == white {
			dfs(i)
		}
	}

	// Topological order by repeatedly taking the ready node with the lowest
	// insertion index. Back edges are excluded so the order stays usable
	// for diagnostics even when the patch is cyclic; any nodes a true cycle
	// leaves unresolved are appended in insertion order.
	indegree := make([]int, len(p.Nodes))
	for i := range p.Nodes {
		for _, e := range outgoing[i] {
			if !backEdge[e.conn] {
				indegree[e.to]++
			}
		}
	}
	emitted := make([]bool, len(p.Nodes))
	for len(res.Order) < len(p.Nodes) {
		next := -1
		for i := range p.Nodes {
			if !emitted[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			for i := range p.Nodes {
				if !emitted[i] {
					res.Order = append(res.Order, p.Nodes[i])
					emitted[i] = true
				}
			}
			break
		}
		emitted[next] = true
		res.Order = append(res.Order, p.Nodes[next])
		for _, e := range outgoing[next] {
			if !backEdge[e.conn] {
				indegree[e.to]--
			}
		}
	}

	return res
}

func (r *Result) addIssue(i Issue) {
	r.Valid = false
	r.Issues = append(r.Issues, i)
}

// HasIssue reports whether the result contains an issue with the given code.
func (r Result) HasIssue(code IssueCode) bool {
	for _, i := range r.Issues {
		if i.Code == code {
			return true
		}
	}
	return false
}
