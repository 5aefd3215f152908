package module

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/sqlite"
	"golang.org/x/net/http/httpproxy"

	"github.com/duneland/dune/internal/diagnostics"
)

// Fetcher retrieves remote (http/https) module sources and caches them on
// disk, content-addressed by the body's sha256 digest, with a SQLite index
// tracking specifier -> digest -> fetch time. Grounded on the teacher's
// d1.go (OpenD1Database: database/sql + "github.com/glebarez/sqlite"),
// repurposed from per-tenant D1 emulation to a single process-local module
// cache under DUNE_DIR/cache/modules (§4.E, §4.J).
type Fetcher struct {
	cacheDir string
	db       *sql.DB
	client   *http.Client
}

// NewFetcher opens (creating if absent) the module cache index at
// cacheDir/index.sqlite3 and configures an http.Client honoring
// HTTP_PROXY/HTTPS_PROXY/NO_PROXY via golang.org/x/net/http/httpproxy, the
// same proxy-environment dependency the teacher's go.mod already carries.
func NewFetcher(cacheDir string) (*Fetcher, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, diagnostics.Wrap(diagnostics.HostIO, err, "creating module cache dir")
	}
	db, err := sql.Open("sqlite", filepath.Join(cacheDir, "index.sqlite3"))
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.HostIO, err, "opening module cache index")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS fetches (
		specifier TEXT PRIMARY KEY,
		digest TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, diagnostics.Wrap(diagnostics.HostIO, err, "preparing module cache index schema")
	}

	proxyCfg := httpproxy.FromEnvironment()
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			return proxyCfg.ProxyFunc()(req.URL)
		},
	}

	return &Fetcher{
		cacheDir: cacheDir,
		db:       db,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}, nil
}

// Fetch returns specifier's source, serving from the content-addressed disk
// cache when a prior fetch recorded a digest for it, otherwise downloading,
// writing the cache file via an atomic rename (§5's "no partial cache
// files" discipline, grounded on the teacher's care around not leaving
// half-written state when opening bridges), and recording the digest.
func (f *Fetcher) Fetch(specifier string) (string, error) {
	var digest string
	err := f.db.QueryRow(`SELECT digest FROM fetches WHERE specifier = ?`, specifier).Scan(&digest)
	if err == nil {
		if data, readErr := os.ReadFile(f.cachePath(digest)); readErr == nil {
			return string(data), nil
		}
	}

	resp, err := f.client.Get(specifier)
	if err != nil {
		return "", diagnostics.Wrap(diagnostics.Network, err, "fetching %s", specifier)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", diagnostics.New(diagnostics.Network, "fetching %s: HTTP %d", specifier, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", diagnostics.Wrap(diagnostics.Network, err, "reading body of %s", specifier)
	}

	sum := sha256.Sum256(body)
	digest = hex.EncodeToString(sum[:])

	tmp, err := os.CreateTemp(f.cacheDir, "fetch-*.tmp")
	if err != nil {
		return "", diagnostics.Wrap(diagnostics.HostIO, err, "staging cache file for %s", specifier)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", diagnostics.Wrap(diagnostics.HostIO, err, "writing cache file for %s", specifier)
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), f.cachePath(digest)); err != nil {
		os.Remove(tmp.Name())
		return "", diagnostics.Wrap(diagnostics.HostIO, err, "finalizing cache file for %s", specifier)
	}

	if _, err := f.db.Exec(`INSERT INTO fetches (specifier, digest, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(specifier) DO UPDATE SET digest = excluded.digest, fetched_at = excluded.fetched_at`,
		specifier, digest, time.Now().Unix()); err != nil {
		return "", diagnostics.Wrap(diagnostics.HostIO, err, "recording fetch for %s", specifier)
	}

	return string(body), nil
}

func (f *Fetcher) cachePath(digest string) string {
	return filepath.Join(f.cacheDir, digest+".src")
}

// Close releases the cache index's database handle.
func (f *Fetcher) Close() error {
	return f.db.Close()
}
