package module

// rejectionKernelJS wraps the global Promise constructor so an explicit
// `new Promise(...)`/`Promise.reject(...)` that settles rejected with no
// `.then`/`.catch` rejection handler attached by the next microtask turn is
// recorded into globalThis.__dune_unhandled_rejections for Graph.Run to
// drain and report (§4.H's "unhandled rejection" grace-tick discipline).
//
// Grounded on the teacher's unhandledrejection.go, which patches
// Promise.prototype.then/catch to clear a pending-rejection entry once a
// handler is attached and relies on a microtask to notice what's still
// pending — the same polyfill shape, generalized from "caller must invoke
// __trackRejection manually" (neither vendored engine exposes a host
// promise-rejection-tracker hook to call it automatically) to "every
// rejection constructed via the script-visible Promise constructor is
// tracked automatically," which is enough to catch the standalone
// `Promise.reject(...)`/`new Promise((_, reject) => reject(...))` case the
// evaluateModule await-chain in kernel.go doesn't already observe.
//
// This does not see rejections of promises the engine creates internally
// for `async function`/`await` (those never pass through the script-visible
// Promise constructor). Such a rejection is reported only when it propagates
// into a module body's await chain, where evaluateModule's try/catch records
// it; an async function's rejected promise that nothing awaits is not
// reported.
const rejectionKernelJS = `(function() {
	const NativePromise = globalThis.Promise;
	let nextId = 1;
	const pending = new Map();

	globalThis.__dune_unhandled_rejections = [];

	function track(reason) {
		const id = nextId++;
		pending.set(id, true);
		NativePromise.resolve().then(function() {
			if (pending.has(id)) {
				pending.delete(id);
				const stack = (reason && reason.stack) ? reason.stack : String(reason);
				globalThis.__dune_unhandled_rejections.push(stack);
			}
		});
		return id;
	}

	function untrack(promise) {
		const id = promise && promise.__dune_rejectionId;
		if (id !== null && id !== undefined) pending.delete(id);
	}

	function DunePromise(executor) {
		let rejectionId = null;
		const promise = new NativePromise(function(resolve, reject) {
			executor(resolve, function(reason) {
				rejectionId = track(reason);
				reject(reason);
			});
		});
		Object.defineProperty(promise, "__dune_rejectionId", {
			get: function() { return rejectionId; },
			configurable: true,
		});
		return promise;
	}
	DunePromise.prototype = NativePromise.prototype;
	DunePromise.resolve = NativePromise.resolve.bind(NativePromise);
	DunePromise.reject = function(reason) {
		return new DunePromise(function(_, reject) { reject(reason); });
	};
	DunePromise.all = NativePromise.all.bind(NativePromise);
	DunePromise.allSettled = NativePromise.allSettled.bind(NativePromise);
	DunePromise.race = NativePromise.race.bind(NativePromise);
	if (NativePromise.any) DunePromise.any = NativePromise.any.bind(NativePromise);

	const origThen = NativePromise.prototype.then;
	NativePromise.prototype.then = function(onFulfilled, onRejected) {
		if (onRejected) untrack(this);
		return origThen.call(this, onFulfilled, onRejected);
	};
	NativePromise.prototype.catch = function(onRejected) {
		return this.then(undefined, onRejected);
	};

	globalThis.Promise = DunePromise;
})()`
