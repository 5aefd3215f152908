package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/duneland/dune/internal/diagnostics"
)

// Cache is the content-addressed transform cache of §4.F: keyed on a
// digest of (path, loader, source), written via a temp-file-then-rename so a
// crash mid-write never leaves a corrupt cache entry visible to a later
// lookup (§5).
type Cache struct {
	dir string
}

func newCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, diagnostics.Wrap(diagnostics.HostIO, err, "creating transform cache dir")
	}
	return &Cache{dir: dir}, nil
}

func cacheKey(path string, loader api.Loader, source string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte{byte(loader)})
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

type cacheEntry struct {
	Code      string `json:"code"`
	SourceMap string `json:"sourceMap"`
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns a previously cached Result for key, if present and readable.
func (c *Cache) Get(key string) (Result, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return Result{}, false
	}
	var e cacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return Result{}, false
	}
	return Result{Code: e.Code, SourceMap: e.SourceMap}, true
}

// Put stores result under key via the atomic-rename write discipline; a
// failure to write the cache is not fatal to the caller (the transform
// result is still returned), it only means the next run recomputes it.
func (c *Cache) Put(key string, result Result) {
	data, err := json.Marshal(cacheEntry{Code: result.Code, SourceMap: result.SourceMap})
	if err != nil {
		return
	}
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return
	}
	tmp.Close()
	os.Rename(tmp.Name(), c.path(key))
}
