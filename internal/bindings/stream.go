package bindings

import "github.com/duneland/dune/internal/core"

// streamModule implements a minimal ReadableStream/WritableStream pair
// (§6) as pure script: a pull-based queue over whatever byte chunks a
// source (fs.readFile, a net connection's read()) feeds it. No host call
// of its own — it's userland plumbing over the async primitives fs/net
// already expose, the same layering the Fetch/Streams specs use in
// browsers.
func streamModule(env *Env) Module {
	return Module{
		Name: "stream",
		Install: func(rt core.JSRuntime) error {
			return rt.Eval(streamKernelJS)
		},
	}
}

const streamKernelJS = `(function() {
	function ReadableStream(source) {
		this._queue = [];
		this._done = false;
		this._error = null;
		this._waiting = null;
		const self = this;
		const controller = {
			enqueue: function(chunk) {
				if (self._waiting) {
					const resolve = self._waiting;
					self._waiting = null;
					resolve({ value: chunk, done: false });
				} else {
					self._queue.push(chunk);
				}
			},
			close: function() {
				self._done = true;
				if (self._waiting) {
					const resolve = self._waiting;
					self._waiting = null;
					resolve({ value: undefined, done: true });
				}
			},
			error: function(err) {
				self._error = err;
				if (self._waiting) {
					const reject = self._waitingReject;
					self._waiting = null;
					if (reject) reject(err);
				}
			},
		};
		if (source && source.start) source.start(controller);
		this._pull = source && source.pull ? function() { return source.pull(controller); } : null;
	}

	ReadableStream.prototype.getReader = function() {
		const self = this;
		return {
			read: function() {
				if (self._error) return Promise.reject(self._error);
				if (self._queue.length > 0) {
					return Promise.resolve({ value: self._queue.shift(), done: false });
				}
				if (self._done) return Promise.resolve({ value: undefined, done: true });
				const maybePull = self._pull ? self._pull() : null;
				return Promise.resolve(maybePull).then(function() {
					return new Promise(function(resolve, reject) {
						if (self._queue.length > 0) { resolve({ value: self._queue.shift(), done: false }); return; }
						if (self._done) { resolve({ value: undefined, done: true }); return; }
						self._waiting = resolve;
						self._waitingReject = reject;
					});
				});
			},
			releaseLock: function() {},
		};
	};

	function WritableStream(sink) {
		this._sink = sink || {};
		this._closed = false;
	}
	WritableStream.prototype.getWriter = function() {
		const self = this;
		return {
			write: function(chunk) {
				if (self._closed) return Promise.reject(new Error("stream is closed"));
				return Promise.resolve(self._sink.write ? self._sink.write(chunk) : undefined);
			},
			close: function() {
				self._closed = true;
				return Promise.resolve(self._sink.close ? self._sink.close() : undefined);
			},
			releaseLock: function() {},
		};
	};

	globalThis.ReadableStream = ReadableStream;
	globalThis.WritableStream = WritableStream;
	globalThis.__dune_bindings.stream = { ReadableStream: ReadableStream, WritableStream: WritableStream };
})()`
