package bindings

import (
	"testing"

	"github.com/duneland/dune/internal/bridge"
	"github.com/duneland/dune/internal/core"
	"github.com/duneland/dune/internal/engine"
	"github.com/duneland/dune/internal/scheduler"
)

// bootTestRuntime boots a real isolate with the full registry installed —
// the same path bootProcess uses — so these tests exercise the pure-JS
// binding kernels (events, assert, util, stream) the way a script actually
// would, rather than mocking core.JSRuntime.
func bootTestRuntime(t *testing.T) (core.JSRuntime, *Registry) {
	t.Helper()
	rt, err := engine.New(0)
	if err != nil {
		t.Fatalf("booting engine: %v", err)
	}
	t.Cleanup(rt.Dispose)

	sched := scheduler.New(rt)
	b := bridge.New(rt, sched)
	t.Cleanup(b.Dispose)

	env := &Env{State: core.NewProcessState(nil, t.TempDir()), Sched: sched, Bridge: b}
	reg := NewRegistry(env)
	if err := b.Install(rt); err != nil {
		t.Fatalf("installing bridge kernel: %v", err)
	}
	if err := reg.Install(rt); err != nil {
		t.Fatalf("installing registry: %v", err)
	}
	return rt, reg
}

func TestRegistryNamesIsClosedAndSorted(t *testing.T) {
	_, reg := bootTestRuntime(t)
	names := reg.Names()

	want := []string{
		"assert", "console", "dns", "events", "fs", "http", "net",
		"os", "path", "perf_hooks", "process", "stream", "test",
		"timers", "util",
	}
	if len(names) != len(want) {
		t.Fatalf("got %d binding names, want %d: %v", len(names), len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names()[%d] = %q, want %q (not sorted or list drifted)", i, names[i], want[i])
		}
	}
}

func TestEventsModuleEmitsToListeners(t *testing.T) {
	rt, _ := bootTestRuntime(t)
	if err := rt.Eval(`
		var EventEmitter = get_binding("events").EventEmitter;
		var emitter = new EventEmitter();
		globalThis.__received = null;
		emitter.on("greet", function(name) { globalThis.__received = "hello " + name; });
		emitter.emit("greet", "world");
	`); err != nil {
		t.Fatalf("eval: %v", err)
	}
	got, err := rt.EvalString("globalThis.__received")
	if err != nil {
		t.Fatalf("EvalString: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("__received = %q, want %q", got, "hello world")
	}
}

func TestEventsModuleOnceFiresOnlyOnce(t *testing.T) {
	rt, _ := bootTestRuntime(t)
	if err := rt.Eval(`
		var EventEmitter = get_binding("events").EventEmitter;
		var emitter = new EventEmitter();
		globalThis.__count = 0;
		emitter.once("tick", function() { globalThis.__count++; });
		emitter.emit("tick");
		emitter.emit("tick");
	`); err != nil {
		t.Fatalf("eval: %v", err)
	}
	count, err := rt.EvalInt("globalThis.__count")
	if err != nil {
		t.Fatalf("EvalInt: %v", err)
	}
	if count != 1 {
		t.Fatalf("__count = %d, want 1", count)
	}
}

func TestAssertModuleThrowsOnFailure(t *testing.T) {
	rt, _ := bootTestRuntime(t)
	ok, err := rt.EvalBool(`(function() {
		try {
			get_binding("assert").ok(false, "boom");
			return false;
		} catch (e) {
			return e.message.indexOf("boom") !== -1;
		}
	})()`)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !ok {
		t.Fatal("assert.ok(false) did not throw the expected message")
	}
}

func TestAssertModulePassesOnTruth(t *testing.T) {
	rt, _ := bootTestRuntime(t)
	if err := rt.Eval(`get_binding("assert").strictEqual(1, 1);`); err != nil {
		t.Fatalf("assert.strictEqual(1, 1) unexpectedly threw: %v", err)
	}
}

func TestUtilFormatSubstitutesDirectives(t *testing.T) {
	rt, _ := bootTestRuntime(t)
	got, err := rt.EvalString(`get_binding("util").format("%s has %d items", "cart", 3)`)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got != "cart has 3 items" {
		t.Fatalf("format() = %q, want %q", got, "cart has 3 items")
	}
}

func TestPerfHooksNowIsMonotonicNonNegative(t *testing.T) {
	rt, _ := bootTestRuntime(t)
	ok, err := rt.EvalBool(`(function() {
		var now = get_binding("perf_hooks").performance.now;
		var a = now();
		var b = now();
		return typeof a === "number" && a >= 0 && b >= a;
	})()`)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !ok {
		t.Fatal("performance.now() was not monotonic and non-negative")
	}
}
