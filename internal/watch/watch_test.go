package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDebouncesBurstIntoOneSignal(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "entry.js")
	if err := os.WriteFile(file, []byte("export default 1;"), 0o644); err != nil {
		t.Fatalf("seeding watched file: %v", err)
	}

	w, err := New(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// A burst of three writes inside the debounce window must collapse
	// into a single Changes signal.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(file, []byte("export default 2;"), 0o644); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-w.Changes:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a Changes signal after the debounce window")
	}

	select {
	case <-w.Changes:
		t.Fatal("expected exactly one Changes signal for a debounced burst")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestAddAllStopsAtFirstError(t *testing.T) {
	dir := t.TempDir()
	w, err := New(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	err = w.AddAll([]string{dir, filepath.Join(dir, "does-not-exist")})
	if err == nil {
		t.Fatal("expected AddAll to fail on a nonexistent path")
	}
}
