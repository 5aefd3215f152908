//go:build !v8

// This is the default Engine Adapter backend (no build tag required),
// mirroring the teacher's choice of QuickJS as the cgo-free default with
// V8 as the opt-in `-tags v8` backend (internal/quickjs/runtime.go).
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"modernc.org/quickjs"

	"github.com/duneland/dune/internal/core"
)

type entryGuard struct {
	entered int32
}

func (g *entryGuard) enter() func() {
	if !atomic.CompareAndSwapInt32(&g.entered, 0, 1) {
		panic("engine: nested re-entry into the isolate (INTERNAL invariant violation)")
	}
	return func() { atomic.StoreInt32(&g.entered, 0) }
}

// qjsRuntime implements core.JSRuntime for the QuickJS engine.
type qjsRuntime struct {
	vm    *quickjs.VM
	mu    sync.Mutex
	guard entryGuard
}

var _ core.JSRuntime = (*qjsRuntime)(nil)

// New boots a fresh QuickJS VM. memoryLimitMB of 0 leaves QuickJS's default
// memory limit in place.
func New(memoryLimitMB int) (core.JSRuntime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	if memoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(memoryLimitMB) * 1024 * 1024)
	}
	return &qjsRuntime{vm: vm}, nil
}

func (r *qjsRuntime) Eval(js string) error {
	defer r.guard.enter()()
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

func (r *qjsRuntime) EvalString(js string) (string, error) {
	defer r.guard.enter()()
	r.mu.Lock()
	defer r.mu.Unlock()
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

func (r *qjsRuntime) EvalBool(js string) (bool, error) {
	defer r.guard.enter()()
	r.mu.Lock()
	defer r.mu.Unlock()
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", result)
	}
	return b, nil
}

func (r *qjsRuntime) EvalInt(js string) (int, error) {
	defer r.guard.enter()()
	r.mu.Lock()
	defer r.mu.Unlock()
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return 0, err
	}
	switch v := result.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected int, got %T", result)
	}
}

// RegisterFunc registers a Go function as a global, wrapping it so the
// (T, error) convention the rest of dune relies on throws a TypeError
// instead of surfacing QuickJS's raw [value, error] array return — the
// same wrapJS trick the teacher uses for exactly this reason.
func (r *qjsRuntime) RegisterFunc(name string, fn any) error {
	r.mu.Lock()
	rawName := "__raw_" + name
	err := r.vm.RegisterFunc(rawName, fn, false)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return r.Eval(wrapJS)
}

func (r *qjsRuntime) SetGlobal(name string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	atom, err := r.vm.NewAtom(name)
	if err != nil {
		return fmt.Errorf("creating atom %q: %w", name, err)
	}
	glob := r.vm.GlobalObject()
	defer glob.Free()
	return glob.SetProperty(atom, value)
}

func (r *qjsRuntime) RunMicrotasks() {
	r.mu.Lock()
	defer r.mu.Unlock()
	executePendingJobs(r.vm)
}

func (r *qjsRuntime) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vm.Close()
}
