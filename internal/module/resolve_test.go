package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/duneland/dune/internal/diagnostics"
)

// TestResolveExtensionProbing covers scenario 1 from §8: a relative
// specifier with no extension resolves against probeExtensions in order,
// the way Node's CJS resolver and esbuild's own resolver both do.
func TestResolveExtensionProbing(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.ts")
	libPath := filepath.Join(dir, "lib.ts")
	if err := os.WriteFile(mainPath, []byte(`import x from './lib';`), 0o644); err != nil {
		t.Fatalf("writing main.ts: %v", err)
	}
	if err := os.WriteFile(libPath, []byte(`export default 1;`), 0o644); err != nil {
		t.Fatalf("writing lib.ts: %v", err)
	}

	g := New(nil, nil, nil, nil, nil, nil)
	canonical, kind, err := g.Resolve("./lib", mainPath)
	if err != nil {
		t.Fatalf("Resolve(./lib) = %v", err)
	}
	if canonical != libPath {
		t.Fatalf("canonical = %q, want %q", canonical, libPath)
	}
	if kind != KindES {
		t.Fatalf("kind = %v, want KindES", kind)
	}
}

// TestResolveExtensionProbingPrefersEarlierExtension asserts the probe
// order itself: when both lib.ts and lib.js exist, the earlier entry in
// probeExtensions wins regardless of directory iteration order.
func TestResolveExtensionProbingPrefersEarlierExtension(t *testing.T) {
	dir := t.TempDir()
	tsPath := filepath.Join(dir, "lib.ts")
	jsPath := filepath.Join(dir, "lib.js")
	if err := os.WriteFile(tsPath, []byte(`export default 1;`), 0o644); err != nil {
		t.Fatalf("writing lib.ts: %v", err)
	}
	if err := os.WriteFile(jsPath, []byte(`export default 2;`), 0o644); err != nil {
		t.Fatalf("writing lib.js: %v", err)
	}

	g := New(nil, nil, nil, nil, nil, nil)
	parent := filepath.Join(dir, "main.ts")
	canonical, _, err := g.Resolve("./lib", parent)
	if err != nil {
		t.Fatalf("Resolve(./lib) = %v", err)
	}
	if canonical != tsPath {
		t.Fatalf("canonical = %q, want %q (.ts must probe before .js)", canonical, tsPath)
	}
}

// TestResolveMissingModuleIsResolutionError asserts an extensionless
// specifier with no matching file on disk fails with MODULE_NOT_FOUND
// rather than panicking or silently returning a non-existent path.
func TestResolveMissingModuleIsResolutionError(t *testing.T) {
	dir := t.TempDir()
	g := New(nil, nil, nil, nil, nil, nil)
	parent := filepath.Join(dir, "main.ts")
	_, _, err := g.Resolve("./missing", parent)
	if err == nil {
		t.Fatal("Resolve(./missing) succeeded, want MODULE_NOT_FOUND error")
	}
	if kind := diagnostics.KindOf(err); kind != diagnostics.Resolution {
		t.Fatalf("Resolve(./missing) error kind = %s, want %s", kind, diagnostics.Resolution)
	}
}

// TestResolveBuiltinBypassesFilesystem asserts step 1 of §4.E: a
// registered builtin name resolves without ever touching the filesystem,
// even from a parent path that doesn't exist.
func TestResolveBuiltinBypassesFilesystem(t *testing.T) {
	g := New(nil, nil, nil, []string{"fs", "path"}, nil, nil)
	canonical, kind, err := g.Resolve("fs", "/does/not/exist.ts")
	if err != nil {
		t.Fatalf("Resolve(fs) = %v", err)
	}
	if canonical != "builtin:fs" || kind != KindBuiltin {
		t.Fatalf("Resolve(fs) = (%q, %v), want (builtin:fs, KindBuiltin)", canonical, kind)
	}
}
