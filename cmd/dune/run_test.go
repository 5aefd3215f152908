package main

import (
	"os"
	"path/filepath"
	"testing"
)

// TestRunOnceModuleResolutionWithExtensionProbing is the CLI-level
// counterpart of scenario 1 from §8: `dune run /a/main.ts` against a
// real entry file exits 0 after the import it resolves by extension
// probing evaluates successfully.
func TestRunOnceModuleResolutionWithExtensionProbing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lib.ts"), []byte(`export default 1;`), 0o644); err != nil {
		t.Fatalf("writing lib.ts: %v", err)
	}
	main := filepath.Join(dir, "main.ts")
	if err := os.WriteFile(main, []byte(`import x from './lib'; if (x !== 1) throw new Error('x is ' + x);`), 0o644); err != nil {
		t.Fatalf("writing main.ts: %v", err)
	}

	withTestDuneDir(t)
	code, err := runOnce(main, nil)
	if err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}
	if code != exitOK {
		t.Fatalf("runOnce() code = %d, want %d", code, exitOK)
	}
}

// TestRunOnceUnhandledRejectionFailsTheRun is the CLI-level counterpart of
// scenario 3: a script that rejects a promise with nobody handling it
// exits non-zero even though the root module itself never throws.
func TestRunOnceUnhandledRejectionFailsTheRun(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.ts")
	if err := os.WriteFile(main, []byte(`Promise.reject(new Error('boom'));`), 0o644); err != nil {
		t.Fatalf("writing main.ts: %v", err)
	}

	withTestDuneDir(t)
	code, err := runOnce(main, nil)
	if err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}
	if code == exitOK {
		t.Fatal("runOnce() = exitOK, want a failure code for an unhandled rejection")
	}
}

// withTestDuneDir points globalCfg.DuneDir at a throwaway directory so
// bootProcess's fetch/transform caches never touch a real user profile
// during tests, restoring the previous value afterward.
func withTestDuneDir(t *testing.T) {
	t.Helper()
	prev := globalCfg
	globalCfg.DuneDir = t.TempDir()
	t.Cleanup(func() { globalCfg = prev })
}
