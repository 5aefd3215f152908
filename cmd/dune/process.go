package main

import (
	"time"

	"github.com/duneland/dune/internal/bindings"
	"github.com/duneland/dune/internal/bridge"
	"github.com/duneland/dune/internal/core"
	"github.com/duneland/dune/internal/diagnostics"
	"github.com/duneland/dune/internal/engine"
	"github.com/duneland/dune/internal/module"
	"github.com/duneland/dune/internal/scheduler"
	"github.com/duneland/dune/internal/transform"
)

// Process bundles one isolate's collaborators (§3: "exactly one isolate
// exists per process") — the same grouping the teacher's qjsWorker struct
// gives one request's collaborators, generalized here to the process
// lifetime instead of one HTTP request's lifetime.
type Process struct {
	RT      core.JSRuntime
	Sched   *scheduler.Scheduler
	Bridge  *bridge.Bridge
	Graph   *module.Graph
	Fetcher *module.Fetcher
	State   *core.ProcessState
	Report  *diagnostics.Reporter
}

// bootProcess wires every component named in §4.A-§4.G together: boot the
// engine, build the scheduler/bridge/registry/graph bound to it, then
// install each in the order later components depend on (bridge's promise
// kernel and the binding registry's get_binding must exist before the
// module graph's own kernel, since evaluated modules call both).
func bootProcess(cfg core.Config, argv []string) (*Process, error) {
	duneDir := cfg.DuneDir
	state := core.NewProcessState(argv, duneDir)
	state.NoColor = state.NoColor || cfg.NoColor
	state.Unstable = cfg.Unstable

	// The engine itself is booted ahead of its installers (rather than via
	// engine.Boot) because the installers close over collaborators (sched,
	// br, the graph) that don't exist until after New returns; Boot's own
	// installer loop is reused as-is for the bridge/registry/graph trio
	// below, once they're built.
	rt, err := engine.New(cfg.MemoryLimitMB)
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.Internal, err, "booting engine")
	}

	sched := scheduler.New(rt)
	br := bridge.New(rt, sched)

	fetcher, err := module.NewFetcher(moduleCacheDir(duneDir))
	if err != nil {
		rt.Dispose()
		return nil, diagnostics.Wrap(diagnostics.HostIO, err, "opening module fetch cache")
	}

	pipeline, err := transform.New(transformCacheDir(duneDir), cfg.Reload)
	if err != nil {
		rt.Dispose()
		fetcher.Close()
		return nil, diagnostics.Wrap(diagnostics.HostIO, err, "opening transform cache")
	}

	report := diagnostics.NewReporter(state.NoColor)
	registry := bindings.NewRegistry(&bindings.Env{State: state, Sched: sched, Bridge: br})
	graph := module.New(rt, sched, pipeline, registry.Names(), fetcher, report)

	if err := engine.RunInstallers(rt, br.Install, registry.Install, graph.Install); err != nil {
		rt.Dispose()
		fetcher.Close()
		return nil, err
	}

	return &Process{
		RT:      rt,
		Sched:   sched,
		Bridge:  br,
		Graph:   graph,
		Fetcher: fetcher,
		State:   state,
		Report:  report,
	}, nil
}

// Close tears down the isolate and releases the process's owned resources,
// in reverse dependency order.
func (p *Process) Close() {
	p.Bridge.Dispose()
	p.RT.Dispose()
	p.Fetcher.Close()
}

// defaultTimeout bounds a single `run`/`test` invocation; no CLI flag
// overrides it. Generous enough not to bite interactive scripts,
// short enough that a genuinely hung script doesn't wedge `dune test` runs.
const defaultTimeout = 30 * time.Minute
