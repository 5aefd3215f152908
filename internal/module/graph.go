package module

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/duneland/dune/internal/core"
	"github.com/duneland/dune/internal/diagnostics"
	"github.com/duneland/dune/internal/engine"
	"github.com/duneland/dune/internal/scheduler"
	"github.com/duneland/dune/internal/transform"
)

// Graph is the module graph of §3/§4.E: resolution, static linking (a Go
// DFS over scan.go's statically discoverable specifiers), and evaluation
// (delegated to kernel.go's script-side evaluateModule once linking is
// complete). Exactly one Record per canonical specifier (the dedup
// invariant) — enforced by records being written once, under g.mu, the
// first time a specifier is seen.
type Graph struct {
	rt       core.JSRuntime
	sched    *scheduler.Scheduler
	pipeline *transform.Pipeline
	fetcher  *Fetcher
	builtins map[string]bool
	report   *diagnostics.Reporter

	mu      sync.Mutex
	records map[string]*Record
	smCache map[string]*diagnostics.SourceMap
}

// New creates a Graph. builtinNames is the closed set recognized by
// Resolve's step 1 (§4.G's binding registry names); fetcher may be nil if
// remote (http/https) specifiers should never be permitted. report receives
// every uncaught exception and unhandled rejection Run observes, per §4.H.
func New(rt core.JSRuntime, sched *scheduler.Scheduler, pipeline *transform.Pipeline, builtinNames []string, fetcher *Fetcher, report *diagnostics.Reporter) *Graph {
	builtins := make(map[string]bool, len(builtinNames))
	for _, n := range builtinNames {
		builtins[n] = true
	}
	return &Graph{
		rt:       rt,
		sched:    sched,
		pipeline: pipeline,
		fetcher:  fetcher,
		builtins: builtins,
		report:   report,
		records:  make(map[string]*Record),
	}
}

// Install evaluates the module-evaluation kernel (kernel.go) and the
// unhandled-rejection tracker (rejection.go). Intended for use as an
// engine.Installer, after the binding registry's get_binding global is
// already installed.
func (g *Graph) Install(rt core.JSRuntime) error {
	if err := rt.Eval(kernelJS); err != nil {
		return err
	}
	return rt.Eval(rejectionKernelJS)
}

// sourceMaps lazily parses every linked record's source map, for demangling
// reported stack frames back to original source positions (§4.H).
func (g *Graph) sourceMaps() map[string]*diagnostics.SourceMap {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.smCache != nil {
		return g.smCache
	}
	maps := make(map[string]*diagnostics.SourceMap, len(g.records))
	for spec, rec := range g.records {
		if rec.SourceMapJS == "" {
			continue
		}
		sm, err := diagnostics.ParseSourceMap([]byte(rec.SourceMapJS))
		if err != nil {
			continue
		}
		maps[spec] = sm
	}
	g.smCache = maps
	return maps
}

// drainRejections pulls every rejection the JS tracker (rejection.go)
// recorded as unhandled past its grace tick and reports it.
func (g *Graph) drainRejections() error {
	raw, err := g.rt.EvalString(`JSON.stringify(globalThis.__dune_unhandled_rejections.splice(0))`)
	if err != nil {
		return diagnostics.Wrap(diagnostics.Internal, err, "draining unhandled rejections")
	}
	if raw == "" || raw == "[]" {
		return nil
	}
	var stacks []string
	if err := json.Unmarshal([]byte(raw), &stacks); err != nil {
		return diagnostics.Wrap(diagnostics.Internal, err, "parsing unhandled rejections")
	}
	maps := g.sourceMaps()
	for _, stack := range stacks {
		header, frames := diagnostics.ParseStack(stack)
		g.report.ReportUnhandledRejection(header, frames, maps)
	}
	return nil
}

// Record returns the graph's record for specifier, if linked.
func (g *Graph) Record(specifier string) (*Record, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.records[specifier]
	return r, ok
}

// LocalFilePaths returns every linked record's specifier that names a
// local file on disk (excludes builtin: and http(s): specifiers), for the
// CLI's --watch flag to register with the filesystem watcher.
func (g *Graph) LocalFilePaths() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	paths := make([]string, 0, len(g.records))
	for specifier := range g.records {
		if strings.HasPrefix(specifier, "builtin:") || strings.HasPrefix(specifier, "http://") || strings.HasPrefix(specifier, "https://") {
			continue
		}
		paths = append(paths, specifier)
	}
	return paths
}

// Check resolves and statically links entrySpecifier's full dependency
// graph (resolution + scan + transform for every reachable module) without
// evaluating any of it, for the CLI's --check flag: it exercises exactly
// the RESOLUTION/PARSE/LINK error paths a real run would hit, with no
// script ever executing.
func (g *Graph) Check(entrySpecifier string) error {
	canonical, kind, err := g.Resolve(entrySpecifier, "")
	if err != nil {
		return err
	}
	return g.linkRecord(canonical, kind, make(map[string]bool))
}

// Run resolves entrySpecifier, links its full static dependency graph, and
// evaluates it, driving the scheduler's tick loop until the root module's
// evaluation promise has settled and nothing is left pending (timers, I/O,
// immediates, ref'd handles). A rejected root promise returns at once; a
// root promise still unsettled once nothing is pending fails with TIMEOUT
// after timeout elapses.
func (g *Graph) Run(entrySpecifier string, timeout time.Duration) error {
	canonical, kind, err := g.Resolve(entrySpecifier, "")
	if err != nil {
		return err
	}

	if err := g.linkRecord(canonical, kind, make(map[string]bool)); err != nil {
		return err
	}

	graphJSON, err := g.serialize()
	if err != nil {
		return diagnostics.Wrap(diagnostics.Internal, err, "serializing module graph")
	}

	driver := fmt.Sprintf("globalThis.__duneRun(%s, %s)", jsonString(graphJSON), jsonString(canonical))
	if err := g.rt.Eval(driver); err != nil {
		return diagnostics.Wrap(diagnostics.Internal, err, "starting module graph evaluation")
	}
	// __duneRun's own Promise chain (and any next-tick it queued) is still
	// pending at this point; drain it before the first Tick so a microtask
	// scheduled by the top-level module body always settles ahead of a
	// zero-delay timer, per §5's ordering guarantee.
	g.sched.Drain()

	deadline := time.Now().Add(timeout)
	for {
		g.sched.Tick()
		g.rt.RunMicrotasks()

		if err := g.drainRejections(); err != nil {
			return err
		}

		state, err := g.rt.EvalString("globalThis.__dune_root_state")
		if err != nil {
			return diagnostics.Wrap(diagnostics.Internal, err, "polling module graph evaluation state")
		}
		switch state {
		case "ok":
			if !g.sched.HasPending() {
				return nil
			}
		case "error":
			msg, _ := g.rt.EvalString("globalThis.__dune_root_error")
			header, frames := diagnostics.ParseStack(msg)
			g.report.ReportUncaught(header, frames, g.sourceMaps())
			return engine.ThrownError(canonical, errors.New(header))
		}

		if !g.sched.HasPending() {
			if time.Now().After(deadline) {
				return diagnostics.New(diagnostics.Timeout, "module graph evaluation of %s did not settle", canonical)
			}
			time.Sleep(time.Millisecond)
		}
	}
}

// linkRecord is the Go-side DFS of §4.E: resolve -> load -> scan deps ->
// recurse -> transform+rewrite. visiting tracks the specifiers currently
// on the call stack so a cyclic back-edge is accepted as a forward
// reference (left Resolving, not re-entered) instead of infinite recursion.
func (g *Graph) linkRecord(canonical string, kind Kind, visiting map[string]bool) error {
	g.mu.Lock()
	if rec, exists := g.records[canonical]; exists {
		g.mu.Unlock()
		switch rec.getState() {
		case Errored:
			return rec.Err
		default:
			return nil // already linked, or a cycle's forward reference
		}
	}
	rec := &Record{Specifier: canonical, Kind: kind}
	g.records[canonical] = rec
	g.mu.Unlock()

	rec.setState(Resolving)
	source, err := g.load(canonical, kind)
	if err != nil {
		rec.fail(err)
		return err
	}
	rec.Source = source
	rec.setState(Resolved)

	if kind == KindBuiltin || kind == KindJSON {
		rec.Transformed = source
		rec.setState(Linked)
		return nil
	}

	deps := scanSpecifiers(source)
	resolvedMap := make(map[string]string, len(deps))
	visiting[canonical] = true
	for _, dep := range deps {
		depCanonical, depKind, err := g.Resolve(dep, canonical)
		if err != nil {
			delete(visiting, canonical)
			rec.fail(err)
			return err
		}
		resolvedMap[dep] = depCanonical
		rec.Deps = append(rec.Deps, depCanonical)
		if visiting[depCanonical] {
			continue // cyclic back-edge; the ancestor frame will finish linking it
		}
		if err := g.linkRecord(depCanonical, depKind, visiting); err != nil {
			delete(visiting, canonical)
			rec.fail(err)
			return err
		}
	}
	delete(visiting, canonical)

	result, err := g.pipeline.Transform(canonical, source)
	if err != nil {
		rec.fail(err)
		return err
	}
	rec.Transformed = rewriteToCJS(result.Code, resolvedMap)
	rec.SourceMapJS = result.SourceMap
	rec.setState(Linked)
	return nil
}

// load reads canonical's raw source text, synthesizing it for built-in and
// JSON kinds so every subsequent stage (transform, evaluation) sees the
// same CommonJS-shaped module.exports assignment regardless of kind —
// unifying the kernel's evaluation path (see kernel.go's doc comment).
func (g *Graph) load(canonical string, kind Kind) (string, error) {
	switch kind {
	case KindBuiltin:
		name := strings.TrimPrefix(canonical, "builtin:")
		return fmt.Sprintf("module.exports = get_binding(%s);\nmodule.exports.__esModule = true;\n", engine.SafeIdentifier(name)), nil
	case KindJSON:
		raw, err := g.readRaw(canonical)
		if err != nil {
			return "", err
		}
		var probe any
		if err := json.Unmarshal([]byte(raw), &probe); err != nil {
			return "", diagnostics.Wrap(diagnostics.Parse, err, "parsing JSON module %s", canonical)
		}
		return fmt.Sprintf("module.exports = { default: %s, __esModule: true };\n", raw), nil
	default:
		return g.readRaw(canonical)
	}
}

func (g *Graph) readRaw(canonical string) (string, error) {
	if strings.HasPrefix(canonical, "http://") || strings.HasPrefix(canonical, "https://") {
		if g.fetcher == nil {
			return "", diagnostics.New(diagnostics.Resolution, "remote module %s: no fetcher configured", canonical)
		}
		return g.fetcher.Fetch(canonical)
	}
	data, err := os.ReadFile(canonical)
	if err != nil {
		return "", diagnostics.Wrap(diagnostics.HostIO, err, "reading module %s", canonical)
	}
	return string(data), nil
}

// serialize emits the linked graph as {specifier: {code: "..."}} JSON for
// kernel.go's globalThis.__dune_graph.
func (g *Graph) serialize() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]struct {
		Code string `json:"code"`
	}, len(g.records))
	for spec, rec := range g.records {
		out[spec] = struct {
			Code string `json:"code"`
		}{Code: rec.Transformed}
	}
	data, err := json.Marshal(out)
	return string(data), err
}

func jsonString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
