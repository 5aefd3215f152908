package bindings

import (
	"os"
	"runtime"
	"strconv"

	"github.com/duneland/dune/internal/core"
)

// processModule implements the `process` binding (§6): argv, env, cwd,
// pid, platform, exit code, and exit(), backed by the shared
// core.ProcessState snapshot taken at boot (SPEC_FULL.md §3). argv/env/pid
// are immutable after NewProcessState, so they're read without locking;
// only ExitCode mutates after boot, via ProcessState's own accessors.
func processModule(env *Env) Module {
	return Module{
		Name: "process",
		Install: func(rt core.JSRuntime) error {
			argvJSON, err := core.MarshalArg(env.State.Argv)
			if err != nil {
				return err
			}
			envJSON, err := core.MarshalArg(env.State.Env)
			if err != nil {
				return err
			}
			cwd := env.State.CWD
			pid := env.State.PID

			if err := rt.RegisterFunc("__process_cwd", func() (string, error) { return cwd, nil }); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__process_exit", func(code int) error {
				env.State.SetExitCode(code)
				os.Exit(code)
				return nil
			}); err != nil {
				return err
			}
			if err := rt.RegisterFunc("__process_setExitCode", func(code int) error {
				env.State.SetExitCode(code)
				return nil
			}); err != nil {
				return err
			}

			script := `globalThis.__dune_bindings.process = {
				argv: ` + argvJSON + `,
				env: ` + envJSON + `,
				pid: ` + strconv.Itoa(pid) + `,
				platform: "` + runtime.GOOS + `",
				cwd: __process_cwd,
				exit: __process_exit,
				setExitCode: __process_setExitCode,
			};`
			return rt.Eval(script)
		},
	}
}
