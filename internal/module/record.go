// Package module implements component E, the Module Graph: resolution,
// loading, static linking, and evaluation of ES/CJS/JSON/built-in modules
// (§3 "Module record", §4.E).
//
// Grounded on the teacher's bundle.go (esbuild-based transform) and its
// wrapESModule IIFE-wrapping idiom (pool.go), generalized from "wrap one
// worker script" to "resolve, link, and evaluate an arbitrary graph" — see
// DESIGN.md for why linking is done as a Go-side static pre-pass rather
// than relying on either vendored engine's (absent) native ESM loader
// hooks.
package module

import "sync"

// Kind classifies a module record, per §3.
type Kind int

const (
	KindES Kind = iota
	KindCJS
	KindJSON
	KindWASM
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindES:
		return "es"
	case KindCJS:
		return "cjs"
	case KindJSON:
		return "json"
	case KindWASM:
		return "wasm"
	case KindBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// State is a module's position in the linkage lifecycle of §3. States are
// monotonically non-decreasing except Errored, which is terminal.
type State int

const (
	Unresolved State = iota
	Resolving
	Resolved
	Linked
	Evaluating
	Evaluated
	Errored
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Linked:
		return "linked"
	case Evaluating:
		return "evaluating"
	case Evaluated:
		return "evaluated"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Record is a module record (§3): identified by its canonical absolute
// specifier, at most one per graph (dedup invariant).
type Record struct {
	mu sync.Mutex

	Specifier   string
	Kind        Kind
	Source      string
	Transformed string // CJS-shaped body handed to the JS kernel's Function wrapper
	SourceMapJS string // raw V3 source map JSON, empty when unavailable
	Deps        []string
	State       State
	Err         error
}

func (r *Record) setState(s State) {
	r.mu.Lock()
	r.State = s
	r.mu.Unlock()
}

func (r *Record) getState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.State
}

func (r *Record) fail(err error) {
	r.mu.Lock()
	r.State = Errored
	r.Err = err
	r.mu.Unlock()
}
