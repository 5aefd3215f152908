package module

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/duneland/dune/internal/diagnostics"
)

// packageManifest is the handful of package.json fields dune's bare-name
// resolution cares about (§4.E step 5).
type packageManifest struct {
	Main   string `json:"main"`
	Module string `json:"module"`
	Types  string `json:"types"`
}

// resolvePackage resolves a bare specifier ("lodash", "lodash/fp") by
// walking node_modules directories upward from parent's directory, the same
// lookup Node's CJS loader performs. It only reads package.json's
// main/module fields — no "exports" map subpath resolution, no conditional
// exports, and no semver range resolution (dune has no package manager of
// its own); see DESIGN.md.
func (g *Graph) resolvePackage(specifier, parent string) (string, Kind, error) {
	name, subpath := specifier, ""
	if i := strings.Index(specifier, "/"); i >= 0 && !strings.HasPrefix(specifier, "@") {
		name, subpath = specifier[:i], specifier[i+1:]
	} else if strings.HasPrefix(specifier, "@") {
		parts := strings.SplitN(specifier, "/", 3)
		if len(parts) >= 2 {
			name = parts[0] + "/" + parts[1]
		}
		if len(parts) == 3 {
			subpath = parts[2]
		}
	}

	dir := filepath.Dir(stripScheme(parent))
	if dir == "" || dir == "." {
		dir, _ = os.Getwd()
	}

	for {
		pkgDir := filepath.Join(dir, "node_modules", name)
		if info, err := os.Stat(pkgDir); err == nil && info.IsDir() {
			if subpath != "" {
				if resolved, ok := probeFile(filepath.Join(pkgDir, subpath)); ok {
					return resolved, kindForPath(resolved), nil
				}
			} else if entry, ok := readManifestEntry(pkgDir); ok {
				if resolved, ok := probeFile(filepath.Join(pkgDir, entry)); ok {
					return resolved, kindForPath(resolved), nil
				}
			} else if resolved, ok := probeFile(filepath.Join(pkgDir, "index")); ok {
				return resolved, kindForPath(resolved), nil
			}
		}
		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			break
		}
		dir = parentDir
	}

	return "", 0, diagnostics.New(diagnostics.Resolution, "MODULE_NOT_FOUND: package %q", name)
}

func readManifestEntry(pkgDir string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		return "", false
	}
	var m packageManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", false
	}
	if m.Module != "" {
		return m.Module, true
	}
	if m.Main != "" {
		return m.Main, true
	}
	return "", false
}
