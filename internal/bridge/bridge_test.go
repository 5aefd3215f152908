package bridge

import (
	"errors"
	"sync"
	"testing"

	"github.com/duneland/dune/internal/scheduler"
)

type fakeEngine struct{}

func (fakeEngine) RunMicrotasks() {}

// fakeRuntime records every Eval call instead of running a real isolate;
// enough to assert what the bridge tries to settle without an engine.
type fakeRuntime struct {
	mu    sync.Mutex
	evals []string
}

func (r *fakeRuntime) Eval(js string) error {
	r.mu.Lock()
	r.evals = append(r.evals, js)
	r.mu.Unlock()
	return nil
}
func (r *fakeRuntime) EvalString(js string) (string, error) { return "", nil }
func (r *fakeRuntime) EvalBool(js string) (bool, error)      { return false, nil }
func (r *fakeRuntime) EvalInt(js string) (int, error)        { return 0, nil }
func (r *fakeRuntime) RegisterFunc(name string, fn any) error { return nil }
func (r *fakeRuntime) SetGlobal(name string, value any) error { return nil }
func (r *fakeRuntime) RunMicrotasks()                          {}
func (r *fakeRuntime) Dispose()                                {}

func (r *fakeRuntime) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.evals)
}

func TestSettleExactlyOnce(t *testing.T) {
	sched := scheduler.New(fakeEngine{})
	rt := &fakeRuntime{}
	b := New(rt, sched)

	slot := b.NewSlot()
	b.Complete(slot, `"ok"`, nil)
	b.Complete(slot, "", errors.New("too late"))

	sched.Tick()
	sched.Tick()

	if got := rt.count(); got != 1 {
		t.Fatalf("Eval called %d times settling, want 1", got)
	}
}

func TestDiscardedSlotNeverSettles(t *testing.T) {
	sched := scheduler.New(fakeEngine{})
	rt := &fakeRuntime{}
	b := New(rt, sched)

	slot := b.NewSlot()
	slot.Discard()

	b.Complete(slot, `"late"`, nil)
	sched.Tick()

	if rt.count() != 0 {
		t.Fatal("discarded slot settled")
	}
}

func TestDisposedBridgeDropsCompletions(t *testing.T) {
	sched := scheduler.New(fakeEngine{})
	rt := &fakeRuntime{}
	b := New(rt, sched)
	b.Dispose()

	slot := b.NewSlot()
	b.Complete(slot, `"late"`, nil)
	sched.Tick()

	if rt.count() != 0 {
		t.Fatal("disposed bridge settled a completion")
	}
}

func TestSubmitRunsWorkOffMainGoroutineAndSettles(t *testing.T) {
	sched := scheduler.New(fakeEngine{})
	rt := &fakeRuntime{}
	b := New(rt, sched)

	id := b.Submit(func() (string, error) {
		return `"42"`, nil
	})
	if id <= 0 {
		t.Fatalf("Submit returned invalid id %d", id)
	}

	for i := 0; i < 1000 && rt.count() == 0; i++ {
		sched.Tick()
	}
	if rt.count() == 0 {
		t.Fatal("work never settled after bounded ticking")
	}
}
