package bindings

import "github.com/duneland/dune/internal/core"

// testModule implements the `test` binding's registration API (§4.I): a
// Deno.test-shaped `test(name, fn)` that appends to a process-wide
// registry, plus the `__duneRunTests` driver the `dune test` subcommand
// evals and polls the same way Graph.Run polls module evaluation — no
// separate host-side test runner loop, since awaiting each registered
// fn is already exactly what the engine's microtask/scheduler drain does
// for top-level await.
func testModule(env *Env) Module {
	return Module{
		Name: "test",
		Install: func(rt core.JSRuntime) error {
			return rt.Eval(testKernelJS)
		},
	}
}

const testKernelJS = `(function() {
	globalThis.__dune_tests = [];

	function test(name, fn) {
		if (typeof name === "function") { fn = name; name = fn.name || "anonymous test"; }
		globalThis.__dune_tests.push({ name: name, fn: fn });
	}

	globalThis.__duneRunTests = async function(filter) {
		const results = [];
		for (const t of globalThis.__dune_tests) {
			if (filter && t.name.indexOf(filter) === -1) continue;
			const start = (globalThis.__dune_bindings.perf_hooks
				? globalThis.__dune_bindings.perf_hooks.performance.now()
				: 0);
			try {
				await t.fn();
				results.push({ name: t.name, ok: true, durationMS: (globalThis.__dune_bindings.perf_hooks ? globalThis.__dune_bindings.perf_hooks.performance.now() : 0) - start });
			} catch (e) {
				results.push({
					name: t.name,
					ok: false,
					durationMS: (globalThis.__dune_bindings.perf_hooks ? globalThis.__dune_bindings.perf_hooks.performance.now() : 0) - start,
					error: e && e.message ? e.message : String(e),
					stack: e && e.stack ? e.stack : undefined,
				});
			}
		}
		globalThis.__dune_test_report = JSON.stringify(results);
		globalThis.__dune_test_done = true;
	};

	globalThis.__dune_bindings.test = { test: test };
	globalThis.test = test;
})()`
