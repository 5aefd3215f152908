//go:build v8

// Package engine implements component A, the Engine Adapter: owning the
// isolate/context, marshaling values, and installing globals (§4.A). This
// file is the V8 backend, compiled in with `-tags v8`; quickjs_runtime.go
// is the default (cgo-free) backend.
//
// Grounded directly on the teacher's internal/v8engine/runtime.go
// (v8Runtime): same RegisterFunc reflection-based marshaling, same
// Eval/EvalString/EvalBool/EvalInt split, generalized from "per-request
// worker execution" to "one isolate for the process lifetime" (§3).
package engine

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	v8 "github.com/tommie/v8go"

	"github.com/duneland/dune/internal/core"
)

// entryGuard enforces §4.A's "entry sets up a scope guarding against
// nested re-entry from within a V8 callback" — a host function called from
// script must never itself re-enter RunScript on the same isolate from a
// different goroutine; here it also catches an accidental same-thread
// nested Eval from inside a RegisterFunc callback, which the spec calls an
// invariant violation rather than something to silently support.
type entryGuard struct {
	entered int32
}

func (g *entryGuard) enter() func() {
	if !atomic.CompareAndSwapInt32(&g.entered, 0, 1) {
		panic("engine: nested re-entry into the isolate (INTERNAL invariant violation)")
	}
	return func() { atomic.StoreInt32(&g.entered, 0) }
}

// v8Runtime implements core.JSRuntime for the V8 engine.
type v8Runtime struct {
	iso *v8.Isolate
	ctx *v8.Context
	mu  sync.Mutex
	guard entryGuard
}

var _ core.JSRuntime = (*v8Runtime)(nil)

// New boots a fresh V8 isolate and context. memoryLimitMB is not applied:
// the isolate always runs with V8's own default heap limits.
func New(memoryLimitMB int) (core.JSRuntime, error) {
	iso := v8.NewIsolate()
	ctx := v8.NewContext(iso)
	return &v8Runtime{iso: iso, ctx: ctx}, nil
}

func (r *v8Runtime) Eval(js string) error {
	defer r.guard.enter()()
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.ctx.RunScript(js, "eval.js")
	return err
}

func (r *v8Runtime) EvalString(js string) (string, error) {
	defer r.guard.enter()()
	r.mu.Lock()
	defer r.mu.Unlock()
	val, err := r.ctx.RunScript(js, "eval_string.js")
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return val.String(), nil
}

func (r *v8Runtime) EvalBool(js string) (bool, error) {
	defer r.guard.enter()()
	r.mu.Lock()
	defer r.mu.Unlock()
	val, err := r.ctx.RunScript(js, "eval_bool.js")
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, nil
	}
	return val.Boolean(), nil
}

func (r *v8Runtime) EvalInt(js string) (int, error) {
	defer r.guard.enter()()
	r.mu.Lock()
	defer r.mu.Unlock()
	val, err := r.ctx.RunScript(js, "eval_int.js")
	if err != nil {
		return 0, err
	}
	if val == nil {
		return 0, nil
	}
	return int(val.Integer()), nil
}

// RegisterFunc registers a Go function as a global JavaScript function,
// using reflection to build a V8 FunctionTemplate marshaling arguments and
// return values. Supported argument/return kinds: string, int, float64,
// bool — anything richer crosses as a JSON string (see core.MarshalArg),
// the same boundary the teacher's bindings use throughout.
//
// Supported Go signatures:
//   - func(args...)
//   - func(args...) T
//   - func(args...) (T, error)  — throws the error message as a plain JS
//     string (not a TypeError) on non-nil error
func (r *v8Runtime) RegisterFunc(name string, fn any) error {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("RegisterFunc: expected function, got %T", fn)
	}

	tmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		// No guard.enter() here: this callback runs synchronously inside the
		// RunScript call that invoked it, so the guard an enclosing
		// Eval/EvalString/EvalBool/EvalInt already holds is still held for
		// its whole duration. Entering it again would always CAS-fail against
		// that still-held guard and panic on every single host-function call
		// from script. A genuine nested re-entry (a binding calling back into
		// r.Eval from here) is still caught, since that call acquires the
		// same still-held guard itself.
		args := info.Args()
		if len(args) < fnType.NumIn() {
			msg := fmt.Sprintf("%s requires at least %d argument(s), got %d", name, fnType.NumIn(), len(args))
			jsMsg, _ := v8.NewValue(r.iso, msg)
			r.iso.ThrowException(jsMsg)
			return nil
		}

		goArgs := make([]reflect.Value, fnType.NumIn())
		for i := 0; i < fnType.NumIn(); i++ {
			goArgs[i] = jsToGoArg(args[i], fnType.In(i))
		}

		results := fnVal.Call(goArgs)

		switch fnType.NumOut() {
		case 0:
			return nil
		case 1:
			return goToJSValue(r.iso, results[0])
		case 2:
			errVal := results[1]
			if !errVal.IsNil() {
				errMsg := errVal.Interface().(error).Error()
				msg := fmt.Sprintf("calling %s: %s", name, errMsg)
				jsMsg, _ := v8.NewValue(r.iso, msg)
				r.iso.ThrowException(jsMsg)
				return nil
			}
			return goToJSValue(r.iso, results[0])
		default:
			return nil
		}
	})

	fnObj := tmpl.GetFunction(r.ctx)
	return r.ctx.Global().Set(name, fnObj)
}

func (r *v8Runtime) SetGlobal(name string, value any) error {
	jsVal, err := goAnyToJSValue(r.iso, r.ctx, value)
	if err != nil {
		return fmt.Errorf("converting value for %q: %w", name, err)
	}
	return r.ctx.Global().Set(name, jsVal)
}

func (r *v8Runtime) RunMicrotasks() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx.PerformMicrotaskCheckpoint()
}

func (r *v8Runtime) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx.Close()
	r.iso.Dispose()
}

func jsToGoArg(val *v8.Value, targetType reflect.Type) reflect.Value {
	switch targetType.Kind() {
	case reflect.String:
		return reflect.ValueOf(val.String())
	case reflect.Int:
		return reflect.ValueOf(int(val.Integer()))
	case reflect.Int64:
		return reflect.ValueOf(val.Integer())
	case reflect.Float64:
		return reflect.ValueOf(val.Number())
	case reflect.Bool:
		return reflect.ValueOf(val.Boolean())
	default:
		return reflect.Zero(targetType)
	}
}

func goToJSValue(iso *v8.Isolate, val reflect.Value) *v8.Value {
	if !val.IsValid() {
		return nil
	}
	switch val.Kind() {
	case reflect.String:
		v, _ := v8.NewValue(iso, val.String())
		return v
	case reflect.Int, reflect.Int64, reflect.Int32:
		v, _ := v8.NewValue(iso, int32(val.Int()))
		return v
	case reflect.Float64, reflect.Float32:
		v, _ := v8.NewValue(iso, val.Float())
		return v
	case reflect.Bool:
		v, _ := v8.NewValue(iso, val.Bool())
		return v
	default:
		return nil
	}
}

func goAnyToJSValue(iso *v8.Isolate, ctx *v8.Context, value any) (*v8.Value, error) {
	if value == nil {
		return v8.Undefined(iso), nil
	}
	switch v := value.(type) {
	case string:
		return v8.NewValue(iso, v)
	case int:
		return v8.NewValue(iso, int32(v))
	case int32:
		return v8.NewValue(iso, v)
	case int64:
		return v8.NewValue(iso, int32(v))
	case float64:
		return v8.NewValue(iso, v)
	case bool:
		return v8.NewValue(iso, v)
	default:
		data, err := core.MarshalArg(value)
		if err != nil {
			return nil, err
		}
		return ctx.RunScript(fmt.Sprintf("JSON.parse(%q)", data), "set_global.js")
	}
}
