package bindings

import (
	"path/filepath"

	"github.com/duneland/dune/internal/core"
)

// pathModule implements the `path` binding (§6) directly over
// path/filepath, the same stdlib package the module graph's own resolver
// uses — scripts get the host's actual path semantics, not a
// reimplementation that could drift from it.
func pathModule(env *Env) Module {
	return Module{
		Name: "path",
		Install: func(rt core.JSRuntime) error {
			if err := rt.RegisterFunc("__path_join", func(partsJSON string) (string, error) {
				var parts []string
				if err := core.UnmarshalArg(partsJSON, &parts); err != nil {
					return "", err
				}
				return filepath.Join(parts...), nil
			}); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__path_resolve", func(partsJSON string) (string, error) {
				var parts []string
				if err := core.UnmarshalArg(partsJSON, &parts); err != nil {
					return "", err
				}
				joined := filepath.Join(parts...)
				return filepath.Abs(joined)
			}); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__path_dirname", func(p string) (string, error) { return filepath.Dir(p), nil }); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__path_basename", func(p string) (string, error) { return filepath.Base(p), nil }); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__path_extname", func(p string) (string, error) { return filepath.Ext(p), nil }); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__path_isAbsolute", func(p string) (bool, error) { return filepath.IsAbs(p), nil }); err != nil {
				return err
			}

			sepJSON, err := core.MarshalArg(string(filepath.Separator))
			if err != nil {
				return err
			}
			return rt.Eval(`globalThis.__dune_bindings.path = {
				sep: ` + sepJSON + `,
				join: function() { return __path_join(JSON.stringify(Array.prototype.slice.call(arguments))); },
				resolve: function() { return __path_resolve(JSON.stringify(Array.prototype.slice.call(arguments))); },
				dirname: __path_dirname,
				basename: __path_basename,
				extname: __path_extname,
				isAbsolute: __path_isAbsolute,
			};`)
		},
	}
}
