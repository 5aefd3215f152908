package bindings

import (
	"os"
	"runtime"

	"github.com/duneland/dune/internal/core"
)

// osModule implements the `os` binding (§6): the small synchronous subset
// of host OS information scripts can read without going through the event
// loop — hostname, temp dir, CPU count, platform/arch, line ending.
func osModule(env *Env) Module {
	return Module{
		Name: "os",
		Install: func(rt core.JSRuntime) error {
			hostname, _ := os.Hostname()
			if err := rt.RegisterFunc("__os_hostname", func() (string, error) { return hostname, nil }); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__os_tmpdir", func() (string, error) { return os.TempDir(), nil }); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__os_homedir", func() (string, error) {
				h, err := os.UserHomeDir()
				return h, err
			}); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__os_cpuCount", func() (int, error) { return runtime.NumCPU(), nil }); err != nil {
				return err
			}

			eol := `\n`
			if runtime.GOOS == "windows" {
				eol = `\r\n`
			}

			script := `globalThis.__dune_bindings.os = {
				hostname: __os_hostname,
				tmpdir: __os_tmpdir,
				homedir: __os_homedir,
				cpuCount: __os_cpuCount,
				platform: "` + runtime.GOOS + `",
				arch: "` + runtime.GOARCH + `",
				EOL: "` + eol + `",
			};`
			return rt.Eval(script)
		},
	}
}
