package module

// kernelJS is installed once at boot (Graph.Install). It implements the
// actual module-record execution: given the graph Go already resolved and
// linked (canonical specifiers, CJS-shaped code, static dependency lists),
// evaluateModule runs each module's factory, short-circuiting a cyclic
// back-edge by returning the in-progress (possibly partial) exports object
// instead of waiting on it — the forward-reference handling §3 describes
// for cycles — and otherwise awaiting dependencies before the importer's
// own body runs, so real top-level `await` anywhere in the graph works the
// same way TC39's asynchronous module evaluation does for native ESM.
//
// Grounded on the teacher's own pattern of shipping host orchestration
// logic as a single Go-templated JS string evaluated once at setup
// (internal/webapi/scheduler.go's timer polyfill, cache.go's JSON-boundary
// glue), scaled up from "a handful of global functions" to "the module
// loader's own linking kernel" since neither vendored engine binding
// exposes native ES module instantiation hooks (see DESIGN.md).
const kernelJS = `(function() {
	const registry = new Map();
	const AsyncFunction = Object.getPrototypeOf(async function(){}).constructor;

	function evaluateModule(spec) {
		let entry = registry.get(spec);
		if (entry) {
			if (entry.state === "errored") return Promise.reject(entry.error);
			if (entry.state === "evaluating") return Promise.resolve(entry.exports);
			return entry.promise;
		}

		const node = globalThis.__dune_graph[spec];
		if (!node) return Promise.reject(new Error("MODULE_NOT_FOUND: " + spec));

		const exportsObj = {};
		entry = { state: "evaluating", exports: exportsObj, error: null, promise: null };
		registry.set(spec, entry);

		entry.promise = (async () => {
			const moduleObj = { exports: exportsObj };
			let fn;
			try {
				fn = new AsyncFunction("module", "exports", "__dune_mod", "__filename", node.code);
			} catch (e) {
				entry.state = "errored";
				entry.error = e;
				throw e;
			}
			try {
				await fn(moduleObj, exportsObj, evaluateModule, spec);
				Object.assign(exportsObj, moduleObj.exports === exportsObj ? {} : moduleObj.exports);
				entry.exports = moduleObj.exports;
				entry.state = "evaluated";
				return entry.exports;
			} catch (e) {
				entry.state = "errored";
				entry.error = e;
				throw e;
			}
		})();

		return entry.promise;
	}

	globalThis.__dune_evaluateModule = evaluateModule;

	globalThis.__duneRun = function(graphJSON, rootSpecifier) {
		globalThis.__dune_graph = JSON.parse(graphJSON);
		globalThis.__dune_root_state = "pending";
		globalThis.__dune_root_error = "";
		evaluateModule(rootSpecifier).then(
			() => { globalThis.__dune_root_state = "ok"; },
			(e) => {
				globalThis.__dune_root_state = "error";
				globalThis.__dune_root_error = String((e && e.stack) || e);
			}
		);
	};
})()`
