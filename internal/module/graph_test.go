package module

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/duneland/dune/internal/bindings"
	"github.com/duneland/dune/internal/bridge"
	"github.com/duneland/dune/internal/core"
	"github.com/duneland/dune/internal/diagnostics"
	"github.com/duneland/dune/internal/engine"
	"github.com/duneland/dune/internal/scheduler"
	"github.com/duneland/dune/internal/transform"
)

// bootTestGraph wires a real isolate, scheduler, bridge, binding registry,
// and Graph together in the exact order cmd/dune's bootProcess uses, so
// these tests run real TypeScript/JavaScript through the full evaluation
// path rather than mocking core.JSRuntime.
func bootTestGraph(t *testing.T) *Graph {
	t.Helper()
	rt, err := engine.New(0)
	if err != nil {
		t.Fatalf("booting engine: %v", err)
	}
	t.Cleanup(rt.Dispose)

	sched := scheduler.New(rt)
	br := bridge.New(rt, sched)
	t.Cleanup(br.Dispose)

	pipeline, err := transform.New(filepath.Join(t.TempDir(), "transform-cache"), false)
	if err != nil {
		t.Fatalf("opening transform cache: %v", err)
	}

	env := &bindings.Env{State: core.NewProcessState(nil, t.TempDir()), Sched: sched, Bridge: br}
	registry := bindings.NewRegistry(env)
	report := diagnostics.NewReporter(true)
	g := New(rt, sched, pipeline, registry.Names(), nil, report)

	if err := br.Install(rt); err != nil {
		t.Fatalf("installing bridge kernel: %v", err)
	}
	if err := registry.Install(rt); err != nil {
		t.Fatalf("installing registry: %v", err)
	}
	if err := g.Install(rt); err != nil {
		t.Fatalf("installing module graph kernel: %v", err)
	}
	return g
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// TestGraphRunResolvesModuleWithExtensionProbing covers scenario 1 from
// §8 end-to-end: running the entry evaluates the resolved dependency and
// the importer observes its exported value.
func TestGraphRunResolvesModuleWithExtensionProbing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.ts", `export default 1;`)
	main := writeFile(t, dir, "main.ts", `
		import x from './lib';
		globalThis.__test_result = x;
	`)

	g := bootTestGraph(t)
	if err := g.Run(main, 5*time.Second); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	got, err := g.rt.EvalInt("globalThis.__test_result")
	if err != nil {
		t.Fatalf("reading __test_result: %v", err)
	}
	if got != 1 {
		t.Fatalf("__test_result = %d, want 1", got)
	}
}

// TestGraphRunCycleWithLiveBinding covers scenario 6 from §8: module A
// imports B, B imports A back (a cycle); B reads A's export while A is
// still evaluating and observes the live value A assigned before
// importing B, not a stale snapshot taken at link time.
func TestGraphRunCycleWithLiveBinding(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.ts", `
		import { a } from './a';
		globalThis.__test_result = a;
	`)
	aPath := writeFile(t, dir, "a.ts", `
		export let a = 1;
		import './b';
	`)

	g := bootTestGraph(t)
	if err := g.Run(aPath, 5*time.Second); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	got, err := g.rt.EvalInt("globalThis.__test_result")
	if err != nil {
		t.Fatalf("reading __test_result: %v", err)
	}
	if got != 1 {
		t.Fatalf("__test_result = %d, want 1 (live binding across the A<->B cycle)", got)
	}
}

// TestGraphRunReportsUnhandledRejection covers scenario 3 from §8: a
// promise rejected with no attached rejection handler is reported by the
// Reporter (rejection.go's grace-tick tracker) and the process's exit
// code implied by proc.Report.ExitCode() becomes 1, even though the root
// module itself finished evaluating without throwing.
func TestGraphRunReportsUnhandledRejection(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.ts", `
		Promise.reject(new Error('boom'));
	`)

	g := bootTestGraph(t)
	if err := g.Run(main, 5*time.Second); err != nil {
		t.Fatalf("Run() = %v, want nil (root module itself does not throw)", err)
	}
	if code := g.report.ExitCode(); code != 1 {
		t.Fatalf("report.ExitCode() = %d, want 1 after an unhandled rejection", code)
	}
}

// TestGraphRunHandledRejectionIsNotReported is the negative case: a
// rejection with a .catch attached before the grace tick must not be
// reported, so legitimate error handling doesn't trip the exit code.
func TestGraphRunHandledRejectionIsNotReported(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.ts", `
		Promise.reject(new Error('boom')).catch(() => { globalThis.__test_caught = true; });
	`)

	g := bootTestGraph(t)
	if err := g.Run(main, 5*time.Second); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if code := g.report.ExitCode(); code != 0 {
		t.Fatalf("report.ExitCode() = %d, want 0 for a handled rejection", code)
	}
	caught, err := g.rt.EvalBool("!!globalThis.__test_caught")
	if err != nil {
		t.Fatalf("reading __test_caught: %v", err)
	}
	if !caught {
		t.Fatal("__test_caught was not set; .catch handler never ran")
	}
}
