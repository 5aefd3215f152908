package bindings

import "github.com/duneland/dune/internal/core"

// eventsModule implements the `events` binding's EventEmitter (§6). It
// needs no host collaborator at all — emitter bookkeeping is pure script
// state — so unlike every other module here it's defined entirely in JS,
// the same way the teacher keeps purely-script-visible polyfills (its
// timer-id bookkeeping, before any host call is involved) out of Go.
func eventsModule(env *Env) Module {
	return Module{
		Name: "events",
		Install: func(rt core.JSRuntime) error {
			return rt.Eval(eventsKernelJS)
		},
	}
}

const eventsKernelJS = `(function() {
	function EventEmitter() {
		this._listeners = new Map();
	}
	EventEmitter.prototype.on = function(name, fn) {
		if (!this._listeners.has(name)) this._listeners.set(name, []);
		this._listeners.get(name).push(fn);
		return this;
	};
	EventEmitter.prototype.once = function(name, fn) {
		const self = this;
		function wrapper() {
			self.off(name, wrapper);
			fn.apply(self, arguments);
		}
		wrapper._original = fn;
		return this.on(name, wrapper);
	};
	EventEmitter.prototype.off = function(name, fn) {
		const list = this._listeners.get(name);
		if (!list) return this;
		this._listeners.set(name, list.filter(function(l) { return l !== fn && l._original !== fn; }));
		return this;
	};
	EventEmitter.prototype.removeAllListeners = function(name) {
		if (name === undefined) this._listeners.clear();
		else this._listeners.delete(name);
		return this;
	};
	EventEmitter.prototype.emit = function(name) {
		const list = this._listeners.get(name);
		if (!list || list.length === 0) return false;
		const args = Array.prototype.slice.call(arguments, 1);
		list.slice().forEach(function(fn) { fn.apply(null, args); });
		return true;
	};
	EventEmitter.prototype.listenerCount = function(name) {
		const list = this._listeners.get(name);
		return list ? list.length : 0;
	};

	globalThis.__dune_bindings.events = { EventEmitter: EventEmitter };
})()`
