// Package bindings implements component G, the Binding Registry: a closed
// enumeration of host capability tables reachable from script through the
// single `get_binding(name)` entry point (§4.G, §6).
//
// Grounded on the teacher's buildSetupFuncs/setupFunc list
// (internal/v8engine/pool.go), which installs one Web-API surface per
// worker boot; generalized here from "Web APIs for one request" to
// "short-name binding tables for the process lifetime" since dune boots a
// single isolate, not a pool.
package bindings

import (
	"fmt"
	"sort"

	"github.com/duneland/dune/internal/bridge"
	"github.com/duneland/dune/internal/core"
	"github.com/duneland/dune/internal/scheduler"
)

// Module installs one binding's Go-backed raw functions and defines its
// script-visible table under globalThis.__dune_bindings[Name].
type Module struct {
	Name    string
	Install func(rt core.JSRuntime) error
}

// Registry is the closed set of built-in module names (§4.E's resolution
// step 1 consults this) plus the installer that wires get_binding.
type Registry struct {
	modules map[string]Module
}

// NewRegistry builds a Registry from env, the shared collaborators every
// binding module may need (scheduler for timers, bridge for async calls).
func NewRegistry(env *Env) *Registry {
	r := &Registry{modules: make(map[string]Module)}
	for _, m := range []Module{
		consoleModule(env),
		processModule(env),
		osModule(env),
		pathModule(env),
		fsModule(env),
		timersModule(env),
		eventsModule(env),
		assertModule(env),
		utilModule(env),
		perfHooksModule(env),
		netModule(env),
		dnsModule(env),
		httpModule(env),
		streamModule(env),
		testModule(env),
	} {
		r.modules[m.Name] = m
	}
	return r
}

// Env bundles the collaborators binding modules are built against.
type Env struct {
	State  *core.ProcessState
	Sched  *scheduler.Scheduler
	Bridge *bridge.Bridge
}

// Names returns the closed list of built-in module names, sorted, for
// Graph.Resolve's step-1 membership test.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install registers get_binding and every module's raw host functions,
// then defines globalThis.__dune_bindings[name] for each. Intended for use
// as an engine.Installer, run once at boot.
func (r *Registry) Install(rt core.JSRuntime) error {
	if err := rt.Eval(`globalThis.__dune_bindings = {};
		globalThis.get_binding = function(name) {
			var t = globalThis.__dune_bindings[name];
			if (!t) throw new Error("unknown binding: " + name);
			return t;
		};`); err != nil {
		return fmt.Errorf("bindings: installing get_binding: %w", err)
	}
	if err := rt.Eval(bytesKernelJS); err != nil {
		return fmt.Errorf("bindings: installing byte helpers: %w", err)
	}
	for _, name := range r.Names() {
		if err := r.modules[name].Install(rt); err != nil {
			return fmt.Errorf("bindings: installing %q: %w", name, err)
		}
	}
	return nil
}
