package core

// JSRuntime abstracts the JavaScript engine (V8 or QuickJS) behind a
// common interface used by shared setup functions in internal/bindings and
// the shared scheduler/bridge in internal/scheduler and internal/bridge.
// Mirrors the teacher's core.JSRuntime contract exactly — both backends
// marshal complex values as JSON strings crossing the boundary, the same
// way the teacher's cache.go/d1.go/kv.go bindings do.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// EvalBool evaluates JavaScript and returns the result as a Go bool.
	EvalBool(js string) (bool, error)

	// EvalInt evaluates JavaScript and returns the result as a Go int.
	EvalInt(js string) (int, error)

	// RegisterFunc registers a Go function as a global JavaScript function.
	// The function's Go types are automatically marshaled to/from JS types.
	// On error return, the call throws instead of returning a value: a
	// TypeError under the QuickJS backend, the error message as a plain
	// string under the V8 backend.
	RegisterFunc(name string, fn any) error

	// SetGlobal sets a global variable on the JS context. Basic Go types
	// (string, int, float64, bool) are auto-converted to JS types.
	SetGlobal(name string, value any) error

	// RunMicrotasks pumps the microtask queue (Promise callbacks, etc.).
	// V8: PerformMicrotaskCheckpoint, QuickJS: ExecutePendingJob loop.
	RunMicrotasks()

	// Dispose tears down the isolate/VM. After Dispose, no further Eval
	// calls are valid and any in-flight completions must be discarded by
	// their owners (§4.D).
	Dispose()
}

// SourceFetcher retrieves the source text for a module specifier the
// engine-agnostic module graph has already resolved to a concrete location
// (file path, URL, or built-in name). Implemented per specifier kind in
// internal/module.
type SourceFetcher interface {
	Fetch(specifier string) (source string, err error)
}
