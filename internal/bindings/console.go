package bindings

import (
	"fmt"
	"os"

	"github.com/duneland/dune/internal/core"
)

// consoleModule implements the `console` binding (§6): log/info/debug to
// stdout, warn/error to stderr. Script-side argument stringification
// (Array.prototype.map(String).join(' ')) happens in the installed glue so
// the Go side only ever receives a single already-joined string, the same
// single-string-argument convention every other binding here uses to avoid
// variadic marshaling across the reflection-based RegisterFunc boundary.
func consoleModule(env *Env) Module {
	return Module{
		Name: "console",
		Install: func(rt core.JSRuntime) error {
			writers := map[string]*os.File{
				"log": os.Stdout, "info": os.Stdout, "debug": os.Stdout,
				"warn": os.Stderr, "error": os.Stderr,
			}
			for name, w := range writers {
				w := w
				if err := rt.RegisterFunc("__console_"+name, func(s string) error {
					_, err := fmt.Fprintln(w, s)
					return err
				}); err != nil {
					return err
				}
			}
			return rt.Eval(`(function() {
				function make(raw) {
					return function() {
						raw(Array.prototype.slice.call(arguments).map(String).join(' '));
					};
				}
				var con = {
					log: make(__console_log),
					info: make(__console_info),
					debug: make(__console_debug),
					warn: make(__console_warn),
					error: make(__console_error),
				};
				globalThis.__dune_bindings.console = con;
				globalThis.console = con;
			})()`)
		},
	}
}
