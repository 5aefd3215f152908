package bindings

import "github.com/duneland/dune/internal/core"

// assertModule implements the `assert` binding (§6): deepEqual, strictEqual,
// throws, ok, plus an AssertionError type carrying actual/expected like the
// teacher's own diagnostics.Error does for stack/position — consistency over
// what shape a thrown error carries. No host call needed: equality and
// exception probing are pure script operations once values already live in
// the engine's heap.
func assertModule(env *Env) Module {
	return Module{
		Name: "assert",
		Install: func(rt core.JSRuntime) error {
			return rt.Eval(assertKernelJS)
		},
	}
}

const assertKernelJS = `(function() {
	function AssertionError(message, actual, expected, operator) {
		const err = new Error(message);
		err.name = "AssertionError";
		err.actual = actual;
		err.expected = expected;
		err.operator = operator;
		return err;
	}

	function deepEqual(a, b) {
		if (Object.is(a, b)) return true;
		if (typeof a !== typeof b) return false;
		if (a === null || b === null) return a === b;
		if (typeof a !== "object") return a === b;
		if (Array.isArray(a) !== Array.isArray(b)) return false;
		const ka = Object.keys(a), kb = Object.keys(b);
		if (ka.length !== kb.length) return false;
		for (const k of ka) {
			if (!Object.prototype.hasOwnProperty.call(b, k)) return false;
			if (!deepEqual(a[k], b[k])) return false;
		}
		return true;
	}

	function ok(value, message) {
		if (!value) throw new AssertionError(message || "assertion failed", value, true, "==");
	}
	function equal(actual, expected, message) {
		if (actual != expected) throw new AssertionError(message || (actual + " == " + expected), actual, expected, "==");
	}
	function strictEqual(actual, expected, message) {
		if (!Object.is(actual, expected)) throw new AssertionError(message || (actual + " === " + expected), actual, expected, "===");
	}
	function notStrictEqual(actual, expected, message) {
		if (Object.is(actual, expected)) throw new AssertionError(message || "values should not be strictly equal", actual, expected, "!==");
	}
	function deepStrictEqual(actual, expected, message) {
		if (!deepEqual(actual, expected)) throw new AssertionError(message || "values are not deeply equal", actual, expected, "deepStrictEqual");
	}
	function throws(fn, message) {
		let threw = false;
		try { fn(); } catch (e) { threw = true; }
		if (!threw) throw new AssertionError(message || "expected function to throw", fn, undefined, "throws");
	}
	function rejects(promise, message) {
		return promise.then(
			function() { throw new AssertionError(message || "expected promise to reject", promise, undefined, "rejects"); },
			function() { return undefined; }
		);
	}

	const assert = function(value, message) { ok(value, message); };
	assert.ok = ok;
	assert.equal = equal;
	assert.strictEqual = strictEqual;
	assert.notStrictEqual = notStrictEqual;
	assert.deepStrictEqual = deepStrictEqual;
	assert.deepEqual = function(actual, expected, message) {
		if (!deepEqual(actual, expected)) throw new AssertionError(message || "values are not deeply equal", actual, expected, "deepEqual");
	};
	assert.throws = throws;
	assert.rejects = rejects;
	assert.AssertionError = AssertionError;

	globalThis.__dune_bindings.assert = assert;
})()`
