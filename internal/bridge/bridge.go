// Package bridge implements component D, the promise↔callback bridge used
// by every asynchronous host call: hand back a pending id synchronously,
// run the work on a goroutine, and settle the matching script promise from
// the scheduler's phase-2 I/O-completion drain (§4.D).
//
// Grounded on the teacher's per-fetch completion channel pattern
// (eventloop.PendingFetch / DrainPendingFetches / __fetchResolve /
// __fetchReject in cryguy/worker): a Go-side pending table keyed by an
// integer id, settled from script-side glue registered once at boot,
// generalized from "one fetch" to any asynchronous binding call. Since
// core.JSRuntime (unlike the teacher's richer v8Runtime) exposes no native
// resolver-pair constructor, the promise itself is created and tracked
// entirely in script via a small kernel installed by Install — the same
// division of labor the teacher uses for its cache/KV JSON boundary.
package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/duneland/dune/internal/core"
	"github.com/duneland/dune/internal/scheduler"
)

// kernelJS defines globalThis.__dune_pending (id -> {resolve,reject}),
// __dune_newPromise(id), and __dune_settle, the script-side settle glue
// that settle() invokes through rt.Eval.
const kernelJS = `(function() {
	globalThis.__dune_pending = new Map();
	globalThis.__dune_nextPendingId = 1;
	globalThis.__dune_newPromise = function(id) {
		return new Promise(function(resolve, reject) {
			globalThis.__dune_pending.set(id, { resolve: resolve, reject: reject });
		});
	};
	globalThis.__dune_settle = function(id, ok, value) {
		var p = globalThis.__dune_pending.get(id);
		if (!p) return;
		globalThis.__dune_pending.delete(id);
		if (ok) {
			p.resolve(value === "" ? undefined : JSON.parse(value));
		} else {
			p.reject(new Error(value));
		}
	};
})()`

// Slot tracks a single pending id's discard state (§4.C: a handle that
// closes before its in-flight completion arrives drops that completion
// instead of settling the promise).
type Slot struct {
	id       int
	once     sync.Once
	closed   bool
	closedMu sync.Mutex
}

// ID returns the pending id a script-visible binding should embed in its
// `globalThis.__dune_newPromise(id)` call.
func (s *Slot) ID() int { return s.id }

// Discard marks the slot so an in-flight completion is dropped instead of
// settling the promise, per §4.C's cancellation semantics.
func (s *Slot) Discard() {
	s.closedMu.Lock()
	s.closed = true
	s.closedMu.Unlock()
}

func (s *Slot) isDiscarded() bool {
	s.closedMu.Lock()
	defer s.closedMu.Unlock()
	return s.closed
}

// Bridge owns pending-id allocation, the scheduler used to settle promises
// on the main thread, and whether the isolate has been torn down (in which
// case arriving completions are discarded instead of touching a disposed
// runtime, §4.D).
type Bridge struct {
	rt    core.JSRuntime
	sched *scheduler.Scheduler

	nextID int64

	mu       sync.Mutex
	disposed bool
	slots    map[int]*Slot
}

// New creates a Bridge driving settlement through sched against rt. Call
// Install once, after rt is booted, before any binding calls Submit.
func New(rt core.JSRuntime, sched *scheduler.Scheduler) *Bridge {
	return &Bridge{rt: rt, sched: sched, slots: make(map[int]*Slot)}
}

// Install evaluates the bridge's script-side kernel (globalThis.__dune_new
// Promise/__dune_settle/__dune_pending). Intended for use as an
// engine.Installer, run once at boot before any binding calls Submit.
func (b *Bridge) Install(rt core.JSRuntime) error {
	return rt.Eval(kernelJS)
}

// Dispose marks the bridge's isolate as gone; completions that arrive
// afterward are silently dropped instead of attempting to touch a
// torn-down script context.
func (b *Bridge) Dispose() {
	b.mu.Lock()
	b.disposed = true
	b.mu.Unlock()
}

func (b *Bridge) isDisposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// NewSlot allocates a fresh pending id and its tracking Slot, without
// submitting any work yet — for handle-backed bindings (sockets, watchers)
// that need to hand back a promise before the async work starts.
func (b *Bridge) NewSlot() *Slot {
	id := int(atomic.AddInt64(&b.nextID, 1))
	slot := &Slot{id: id}
	b.mu.Lock()
	b.slots[id] = slot
	b.mu.Unlock()
	return slot
}

// Submit allocates a pending id, runs work on a new goroutine (so the main
// thread never blocks on a host future, §9), and posts the result as an
// I/O completion so it settles from the scheduler's phase-2 drain, keeping
// `await` resumption in the expected tick order (§4.D). It returns the
// pending id the caller's script-visible glue turns into a promise via
// `globalThis.__dune_newPromise(id)`.
//
// Submit itself must be called from the engine's main thread. work runs on
// a background goroutine and must not touch rt.
func (b *Bridge) Submit(work func() (json string, err error)) int {
	slot := b.NewSlot()

	b.sched.AddRefdHandle()
	go func() {
		defer b.sched.RemoveRefdHandle()
		v, err := work()
		b.sched.PostCompletion(func() {
			b.settle(slot, v, err)
		})
	}()

	return slot.id
}

// Complete settles slot with a pre-computed result, for handle-backed
// bindings managing their own multi-completion lifetime (e.g. a TCP read
// that resolves once per chunk, each time through NewSlot).
func (b *Bridge) Complete(slot *Slot, json string, err error) {
	b.sched.PostCompletion(func() {
		b.settle(slot, json, err)
	})
}

func (b *Bridge) settle(slot *Slot, value string, err error) {
	b.mu.Lock()
	delete(b.slots, slot.id)
	b.mu.Unlock()

	if b.isDisposed() {
		return // isolate torn down; nothing to settle (§4.D)
	}
	if slot.isDiscarded() {
		return // originating handle closed; drop silently (§4.C)
	}
	slot.once.Do(func() {
		if err != nil {
			b.rt.Eval(fmt.Sprintf("globalThis.__dune_settle(%d, false, %q)", slot.id, err.Error()))
			return
		}
		b.rt.Eval(fmt.Sprintf("globalThis.__dune_settle(%d, true, %q)", slot.id, value))
	})
}
