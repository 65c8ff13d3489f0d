// Package nodelib defines the node library interface the patch compiler
// consumes: a registry mapping a node kind string to a manifest (ports,
// controls, defaults) and an optional assembly (shared declarations plus a
// per-node code-generation callback).
//
// The compiler depends only on this package, never on concrete DSP code.
// Builtin kinds live in the kinds subpackage; hosts can register their own
// kinds alongside or instead of them.
package nodelib

import (
	"sort"
	"sync"

	"github.com/soundpatch/patchc/pkg/errors"
	"github.com/soundpatch/patchc/pkg/patch"
)

// PortSpec describes one signal-carrying port in a manifest.
type PortSpec struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Control describes one user-adjustable parameter of a node kind.
// Values are clamped by the editor, not the compiler; Min/Max/Step are
// surfaced here so UIs need no second source of truth.
type Control struct {
	ID      string  `json:"id"`
	Label   string  `json:"label,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step,omitempty"`
	Default float64 `json:"default"`
	Hint    string  `json:"hint,omitempty"` // UI appearance hint ("knob", "toggle", ...)
}

// Manifest declares the shape of a node kind: its ports, controls, and how
// much persistent state one instance of it needs at runtime.
type Manifest struct {
	Kind     string     `json:"kind"`
	Category string     `json:"category"`
	Label    string     `json:"label"`
	Inputs   []PortSpec `json:"inputs,omitempty"`
	Outputs  []PortSpec `json:"outputs,omitempty"`
	Controls []Control  `json:"controls,omitempty"`

	// StateWords is the number of 32-bit words of persistent state one
	// instance needs in the state arena (phase accumulators, delay lines).
	StateWords int `json:"state_words,omitempty"`

	// Terminal marks the designated output node kind that feeds the mix
	// bus. A patch is expected to contain at most one terminal node.
	Terminal bool `json:"terminal,omitempty"`
}

// Control returns the control descriptor with the given ID.
func (m Manifest) Control(id string) (Control, bool) {
	for _, c := range m.Controls {
		if c.ID == id {
			return c, true
		}
	}
	return Control{}, false
}

// EmitContext is the fixed helper surface handed to a kind's emit callback.
// It is implemented by the compiler; assemblies use it to reference wires,
// parameters, and state without ever resolving identifiers themselves.
//
// All expression-returning methods produce C99 fragments over 32-bit floats.
type EmitContext interface {
	// NodeID returns the raw node ID (for comments).
	NodeID() string
	// Kind returns the node's kind string.
	Kind() string

	// Input returns an expression reading the given input port: the sum of
	// all incoming wires, or false if the port is unconnected.
	Input(portID string) (string, bool)
	// InputOr is Input with a literal fallback for unconnected ports.
	InputOr(portID string, fallback float64) string
	// Store returns statements assigning expr into every outgoing wire of
	// the given output port (one assignment per wire), including the
	// auto-route bus when this node was elected as implicit mix source.
	Store(portID string, expr string) string

	// Param returns the parameter-buffer access expression for a control.
	Param(controlID string) string
	// State returns the state-arena access expression for the node's
	// persistent word at the given offset (0 <= word < StateWords).
	State(word int) string

	// Lit formats a numeric literal with float32 semantics.
	Lit(v float64) string

	// SampleRate is the oversampled processing rate in Hz.
	SampleRate() float64
	// InvSampleRate returns the expression for the shared 1/rate constant.
	InvSampleRate() string
	// Oversample returns the patch's oversampling factor.
	Oversample() int

	// AutoSource reports whether this node feeds the mix bus implicitly
	// because the terminal inputs were left unconnected.
	AutoSource() bool
	// AutoInput returns an expression reading the auto-routed signal for an
	// unconnected terminal channel ("left"/"right"), or false if no
	// fallback producer exists.
	AutoInput(channel string) (string, bool)
	// MixOut returns the per-channel output lvalue of the terminal node.
	MixOut(channel string) string
}

// Assembly carries the code-generation half of a library entry.
type Assembly struct {
	// Declarations are shared source snippets (helper functions, tables)
	// required by this kind. The emitter deduplicates them by content, so a
	// snippet shared by many kinds or instances appears exactly once.
	Declarations []string

	// Emit generates the per-sample body for one node instance. A nil Emit
	// (or a nil Assembly) makes every instance of the kind degrade to an
	// inert comment at emission time.
	Emit func(ctx EmitContext) string
}

// Entry is one registered node kind.
type Entry struct {
	Manifest Manifest
	Assembly *Assembly
}

// Library is a registry of node kinds. It is safe for concurrent lookup;
// registration is expected to happen once at startup.
type Library struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{entries: make(map[string]Entry)}
}

// Register adds an entry to the library. Registering a kind twice is a
// programming error and fails hard.
func (l *Library) Register(e Entry) error {
	if e.Manifest.Kind == "" {
		return errors.New(errors.ErrCodeInvalidInput, "manifest has empty kind")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.entries[e.Manifest.Kind]; dup {
		return errors.New(errors.ErrCodeInvalidInput, "kind %q already registered", e.Manifest.Kind)
	}
	l.entries[e.Manifest.Kind] = e
	l.order = append(l.order, e.Manifest.Kind)
	return nil
}

// MustRegister is Register that panics on error, for static kind tables.
func (l *Library) MustRegister(e Entry) {
	if err := l.Register(e); err != nil {
		panic(err)
	}
}

// Lookup returns the entry for a kind.
func (l *Library) Lookup(kind string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[kind]
	return e, ok
}

// Kinds returns all registered kind strings in sorted order.
func (l *Library) Kinds() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	kinds := make([]string, 0, len(l.entries))
	for k := range l.entries {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Len returns the number of registered kinds.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Instantiate builds a patch node of the given kind: manifest ports copied
// in order, params seeded with control defaults. Requesting an unknown kind
// is a hard error, never silently recovered.
func (l *Library) Instantiate(kind, id string) (patch.Node, error) {
	e, ok := l.Lookup(kind)
	if !ok {
		return patch.Node{}, errors.New(errors.ErrCodeUnknownKind, "no such node kind: %s", kind)
	}

	n := patch.Node{
		ID:    id,
		Kind:  kind,
		Label: e.Manifest.Label,
	}
	for _, p := range e.Manifest.Inputs {
		n.Inputs = append(n.Inputs, patch.Port{ID: p.ID, Label: p.Label})
	}
	for _, p := range e.Manifest.Outputs {
		n.Outputs = append(n.Outputs, patch.Port{ID: p.ID, Label: p.Label})
	}
	if len(e.Manifest.Controls) > 0 {
		n.Params = make(map[string]float64, len(e.Manifest.Controls))
		for _, c := range e.Manifest.Controls {
			n.Params[c.ID] = c.Default
		}
	}
	return n, nil
}
