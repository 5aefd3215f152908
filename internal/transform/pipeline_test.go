package transform

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestTransformCacheHitSkipsRecompute covers scenario 5 from §8: running
// the same (path, source) pair through Transform twice serves the second
// call from the on-disk cache — observed here as "the cache file's mtime
// is unchanged after the second call" and "the emitted code is
// byte-identical," the same function-of-(source,options) property §8's
// invariant list states for the cache.
func TestTransformCacheHitSkipsRecompute(t *testing.T) {
	dir := t.TempDir()
	p, err := New(filepath.Join(dir, "cache"), false)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	const src = `const x: number = 1; export default x;`
	first, err := p.Transform("/app/main.ts", src)
	if err != nil {
		t.Fatalf("first Transform() = %v", err)
	}

	key := cacheKey("/app/main.ts", loaderForPath("/app/main.ts"), src)
	info1, err := os.Stat(p.cache.path(key))
	if err != nil {
		t.Fatalf("stat cache entry after first transform: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	second, err := p.Transform("/app/main.ts", src)
	if err != nil {
		t.Fatalf("second Transform() = %v", err)
	}
	info2, err := os.Stat(p.cache.path(key))
	if err != nil {
		t.Fatalf("stat cache entry after second transform: %v", err)
	}

	if !info1.ModTime().Equal(info2.ModTime()) {
		t.Fatalf("cache entry mtime changed (%v -> %v); second Transform() did not serve from cache", info1.ModTime(), info2.ModTime())
	}
	if first.Code != second.Code {
		t.Fatalf("Transform is not a function of (source, options): got two different outputs for the same input")
	}
}

// TestTransformDifferentSourceMisses is the negative case: a changed
// source produces a different cache key, so it never collides with an
// unrelated cached entry.
func TestTransformDifferentSourceMisses(t *testing.T) {
	dir := t.TempDir()
	p, err := New(filepath.Join(dir, "cache"), false)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	a, err := p.Transform("/app/main.ts", `export default 1;`)
	if err != nil {
		t.Fatalf("Transform(1) = %v", err)
	}
	b, err := p.Transform("/app/main.ts", `export default 2;`)
	if err != nil {
		t.Fatalf("Transform(2) = %v", err)
	}
	if a.Code == b.Code {
		t.Fatal("different source produced identical output; cache key does not vary with source")
	}
}
