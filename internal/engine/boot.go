package engine

import (
	"fmt"

	"github.com/duneland/dune/internal/core"
	"github.com/duneland/dune/internal/diagnostics"
)

// Installer configures a freshly booted runtime with one slice of global
// state — a Web-Platform-ish global, a binding table, a polyfill. Mirrors
// the teacher's setupFunc list (internal/v8engine/pool.go buildSetupFuncs),
// generalized from "per-worker Web APIs" to "per-process globals and
// binding tables" since dune boots exactly one isolate for the process
// lifetime (§3).
type Installer func(rt core.JSRuntime) error

// Boot creates a runtime via the build-tag-selected backend (New) and runs
// every installer against it in order, matching §4.A's `boot(global_installers)`
// contract. If any installer fails the runtime is disposed before the error
// is returned, so callers never leak a half-booted isolate.
func Boot(memoryLimitMB int, installers ...Installer) (core.JSRuntime, error) {
	rt, err := New(memoryLimitMB)
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.Internal, err, "booting engine")
	}
	if err := RunInstallers(rt, installers...); err != nil {
		rt.Dispose()
		return nil, err
	}
	return rt, nil
}

// RunInstallers applies installers to an already-booted runtime, in order,
// stopping at the first failure. Split out from Boot for callers (like the
// CLI's bootProcess) whose installers close over collaborators that must be
// constructed after the runtime exists but before installation runs.
func RunInstallers(rt core.JSRuntime, installers ...Installer) error {
	for i, install := range installers {
		if err := install(rt); err != nil {
			return diagnostics.Wrap(diagnostics.Internal, err, "installer %d failed", i)
		}
	}
	return nil
}

// CompileError wraps a syntax error surfaced while compiling transformed
// source, tagged PARSE per §7's taxonomy.
func CompileError(specifier string, cause error) error {
	return diagnostics.Wrap(diagnostics.Parse, cause, "compiling %s", specifier)
}

// ThrownError wraps a value thrown from script during evaluation, tagged
// EVAL per §7.
func ThrownError(specifier string, cause error) error {
	return diagnostics.Wrap(diagnostics.Eval, cause, "evaluating %s", specifier)
}

// SafeIdentifier escapes a module-graph-internal identifier (a canonical
// specifier) for embedding in a JS glue-code string literal, the same
// %q-style embedding the teacher relies on throughout its Go-templated JS.
func SafeIdentifier(specifier string) string {
	return fmt.Sprintf("%q", specifier)
}
