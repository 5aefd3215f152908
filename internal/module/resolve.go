package module

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/duneland/dune/internal/diagnostics"
)

// probeExtensions is the extension probing order for an extensionless
// relative/absolute specifier (§4.E step 3).
var probeExtensions = []string{"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".json"}

// Resolve implements §4.E's resolution algorithm: built-in names first,
// then explicit URL schemes, then relative/absolute file paths with
// extension probing, then bare package-manifest names, failing with a
// RESOLUTION error (MODULE_NOT_FOUND) otherwise.
func (g *Graph) Resolve(specifier, parent string) (string, Kind, error) {
	// Step 1: built-in modules are a closed namespace, matched before
	// anything touches the filesystem or network.
	if g.builtins[specifier] {
		return "builtin:" + specifier, KindBuiltin, nil
	}

	// Step 2: explicit URL scheme.
	if u, err := url.Parse(specifier); err == nil && u.Scheme != "" {
		switch u.Scheme {
		case "http", "https":
			return specifier, kindForPath(u.Path), nil
		case "file":
			return filepath.Clean(u.Path), kindForPath(u.Path), nil
		case "node", "builtin":
			name := strings.TrimPrefix(strings.TrimPrefix(specifier, "node:"), "builtin:")
			if g.builtins[name] {
				return "builtin:" + name, KindBuiltin, nil
			}
			return "", 0, diagnostics.New(diagnostics.Resolution, "MODULE_NOT_FOUND: no built-in module %q", name)
		default:
			return "", 0, diagnostics.New(diagnostics.Resolution, "MODULE_NOT_FOUND: unsupported scheme %q in %q", u.Scheme, specifier)
		}
	}

	// Step 3: relative or absolute file path, with extension probing.
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") || strings.HasPrefix(specifier, "/") || filepath.IsAbs(specifier) {
		if pu, err := url.Parse(parent); err == nil && (pu.Scheme == "http" || pu.Scheme == "https") {
			if ref, err := url.Parse(specifier); err == nil {
				abs := pu.ResolveReference(ref)
				return abs.String(), kindForPath(abs.Path), nil
			}
		}
		base := specifier
		if !filepath.IsAbs(base) {
			base = filepath.Join(filepath.Dir(stripScheme(parent)), specifier)
		}
		if resolved, ok := probeFile(base); ok {
			return resolved, kindForPath(resolved), nil
		}
		return "", 0, diagnostics.New(diagnostics.Resolution, "MODULE_NOT_FOUND: %s (from %s)", specifier, parent)
	}

	// Step 4: if the parent is itself remote, a relative or absolute path
	// specifier resolves against the parent's URL (handled above in the
	// relative-path branch, with no extension probing); a genuinely
	// bare specifier from a remote parent falls through to package-manifest
	// resolution below, same as from a local parent.

	// Step 5: bare package-manifest name via node_modules-style lookup.
	if resolved, kind, err := g.resolvePackage(specifier, parent); err == nil {
		return resolved, kind, nil
	}

	return "", 0, diagnostics.New(diagnostics.Resolution, "MODULE_NOT_FOUND: %s", specifier)
}

func stripScheme(specifier string) string {
	if u, err := url.Parse(specifier); err == nil && (u.Scheme == "file" || u.Scheme == "") {
		return u.Path
	}
	return specifier
}

func probeFile(base string) (string, bool) {
	for _, ext := range probeExtensions {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	// directory with an index file
	for _, idx := range []string{"index.ts", "index.tsx", "index.js", "index.json"} {
		candidate := filepath.Join(base, idx)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func kindForPath(p string) Kind {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return KindJSON
	case ".cjs":
		return KindCJS
	default:
		return KindES
	}
}
