package bindings

import (
	"time"

	"github.com/duneland/dune/internal/core"
)

// timersModule implements setTimeout/setInterval/clearTimeout/
// clearInterval/setImmediate/clearImmediate/queueMicrotask/process.nextTick
// (§6) directly against the scheduler (component C), exactly the queues
// §4.C and §5 describe — deadlines, ordering and ref state live in the
// scheduler; script keeps only an id -> callback map (timersKernelJS).
//
// Grounded on the teacher's timers.go (the same setTimeout/setInterval
// surface, wired there to eventloop.Drain's timer heap) generalized from
// "timers for one worker request" to "timers for the process lifetime."
func timersModule(env *Env) Module {
	return Module{
		Name: "timers",
		Install: func(rt core.JSRuntime) error {
			if err := rt.RegisterFunc("__timers_setTimer", func(delayMS int, interval bool) (int, error) {
				var id int
				id = env.Sched.SetTimer(time.Duration(delayMS)*time.Millisecond, interval, true, func() {
					rt.Eval("globalThis.__timers_fire(" + itoa(id) + ")")
				})
				return id, nil
			}); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__timers_clear", func(id int) error {
				env.Sched.ClearTimer(id)
				return nil
			}); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__timers_unref", func(id int) error { env.Sched.RefTimer(id, false); return nil }); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__timers_ref", func(id int) error { env.Sched.RefTimer(id, true); return nil }); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__timers_setImmediate", func() (int, error) {
				var id int
				id = env.Sched.SetImmediate(func() {
					rt.Eval("globalThis.__immediates_fire(" + itoa(id) + ")")
				})
				return id, nil
			}); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__timers_nextTick", func() error {
				env.Sched.NextTick(func() {
					rt.Eval("globalThis.__dune_drainNextTick()")
				})
				return nil
			}); err != nil {
				return err
			}

			return rt.Eval(timersKernelJS)
		},
	}
}

// itoa avoids importing strconv repeatedly across every binding file that
// needs to embed an int into generated JS source.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// timersKernelJS tracks per-id JS callbacks (timers.go's __timers_fire only
// tells script "id N fired"; the actual callback closures live in script,
// matching how real setTimeout callback identity works) and wires
// process.nextTick/queueMicrotask to the host next-tick queue and the
// engine's native microtask queue respectively.
const timersKernelJS = `(function() {
	const timerCallbacks = new Map();
	const immediateCallbacks = new Map();
	const nextTickQueue = [];

	function setImmediate(fn) {
		const args = Array.prototype.slice.call(arguments, 1);
		const id = __timers_setImmediate();
		immediateCallbacks.set(id, function() { fn.apply(null, args); });
		return id;
	}
	function clearImmediate(id) { immediateCallbacks.delete(id); }
	globalThis.__immediates_fire = function(id) {
		const cb = immediateCallbacks.get(id);
		immediateCallbacks.delete(id);
		if (cb) cb();
	};
	globalThis.setImmediate = setImmediate;
	globalThis.clearImmediate = clearImmediate;

	function setTimeout(fn, delay) {
		const args = Array.prototype.slice.call(arguments, 2);
		const id = __timers_setTimer(delay | 0, false);
		timerCallbacks.set(id, { fn: function() { fn.apply(null, args); }, interval: false });
		return id;
	}
	function setInterval(fn, delay) {
		const args = Array.prototype.slice.call(arguments, 2);
		const id = __timers_setTimer(delay | 0, true);
		timerCallbacks.set(id, { fn: function() { fn.apply(null, args); }, interval: true });
		return id;
	}
	function clearTimeout(id) { __timers_clear(id); timerCallbacks.delete(id); }
	function clearInterval(id) { __timers_clear(id); timerCallbacks.delete(id); }

	globalThis.__timers_fire = function(id) {
		const entry = timerCallbacks.get(id);
		if (!entry) return;
		if (!entry.interval) timerCallbacks.delete(id);
		entry.fn();
	};

	globalThis.__dune_drainNextTick = function() {
		while (nextTickQueue.length) {
			const fn = nextTickQueue.shift();
			fn();
		}
	};

	const processNextTick = function(fn) {
		const args = Array.prototype.slice.call(arguments, 1);
		nextTickQueue.push(function() { fn.apply(null, args); });
		__timers_nextTick();
	};

	globalThis.setTimeout = setTimeout;
	globalThis.setInterval = setInterval;
	globalThis.clearTimeout = clearTimeout;
	globalThis.clearInterval = clearInterval;
	globalThis.queueMicrotask = function(fn) { Promise.resolve().then(fn); };

	globalThis.__dune_bindings.timers = {
		setTimeout: setTimeout,
		setInterval: setInterval,
		clearTimeout: clearTimeout,
		clearInterval: clearInterval,
		setImmediate: setImmediate,
		clearImmediate: clearImmediate,
		nextTick: processNextTick,
	};
	if (globalThis.__dune_bindings.process) {
		globalThis.__dune_bindings.process.nextTick = processNextTick;
	}
})()`
