package bindings

import "github.com/duneland/dune/internal/core"

// utilModule implements the `util` binding's (§6) small, commonly-depended
// -on surface: format/inspect, promisify, and callbackify, the minimum
// needed for CJS interop code (much of npm's ecosystem reaches for
// `util.promisify` the moment it bridges old-style callback APIs).
func utilModule(env *Env) Module {
	return Module{
		Name: "util",
		Install: func(rt core.JSRuntime) error {
			return rt.Eval(utilKernelJS)
		},
	}
}

const utilKernelJS = `(function() {
	function inspect(value, depth) {
		depth = depth === undefined ? 2 : depth;
		function walk(v, d, seen) {
			if (v === null) return "null";
			if (v === undefined) return "undefined";
			if (typeof v === "string") return JSON.stringify(v);
			if (typeof v === "function") return "[Function: " + (v.name || "anonymous") + "]";
			if (typeof v !== "object") return String(v);
			if (seen.indexOf(v) !== -1) return "[Circular]";
			if (d < 0) return Array.isArray(v) ? "[Array]" : "[Object]";
			seen = seen.concat([v]);
			if (Array.isArray(v)) {
				return "[ " + v.map(function(e) { return walk(e, d - 1, seen); }).join(", ") + " ]";
			}
			const keys = Object.keys(v);
			const body = keys.map(function(k) { return k + ": " + walk(v[k], d - 1, seen); }).join(", ");
			return keys.length ? "{ " + body + " }" : "{}";
		}
		return walk(value, depth, []);
	}

	function format(fmt) {
		const args = Array.prototype.slice.call(arguments, 1);
		if (typeof fmt !== "string") {
			return [fmt].concat(args).map(function(a) { return typeof a === "string" ? a : inspect(a); }).join(" ");
		}
		let i = 0;
		const out = fmt.replace(/%[sdifjoO%]/g, function(token) {
			if (token === "%%") return "%";
			if (i >= args.length) return token;
			const arg = args[i++];
			switch (token) {
				case "%s": return typeof arg === "string" ? arg : inspect(arg);
				case "%d": return String(Number(arg));
				case "%i": return String(parseInt(arg, 10));
				case "%f": return String(parseFloat(arg));
				case "%j": return JSON.stringify(arg);
				case "%o":
				case "%O": return inspect(arg);
				default: return token;
			}
		});
		const rest = args.slice(i).map(function(a) { return typeof a === "string" ? a : inspect(a); });
		return rest.length ? out + " " + rest.join(" ") : out;
	}

	function promisify(fn) {
		return function() {
			const args = Array.prototype.slice.call(arguments);
			const self = this;
			return new Promise(function(resolve, reject) {
				args.push(function(err, value) {
					if (err) reject(err); else resolve(value);
				});
				fn.apply(self, args);
			});
		};
	}

	function callbackify(fn) {
		return function() {
			const args = Array.prototype.slice.call(arguments);
			const cb = args.pop();
			const self = this;
			fn.apply(self, args).then(
				function(value) { cb(null, value); },
				function(err) { cb(err); }
			);
		};
	}

	globalThis.__dune_bindings.util = {
		format: format,
		inspect: inspect,
		promisify: promisify,
		callbackify: callbackify,
	};
})()`
