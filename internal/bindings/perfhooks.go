package bindings

import (
	"time"

	"github.com/duneland/dune/internal/core"
)

// perfHooksModule implements the `perf_hooks` binding's `performance.now()`
// (§6): milliseconds since process start, measured off ProcessState.StartTime
// (the same snapshot process.go reads pid/cwd from) rather than wall-clock
// time.Now(), since now() must never go backwards across an NTP step.
func perfHooksModule(env *Env) Module {
	return Module{
		Name: "perf_hooks",
		Install: func(rt core.JSRuntime) error {
			start := env.State.StartTime
			if err := rt.RegisterFunc("__perf_now", func() (float64, error) {
				return float64(time.Since(start).Microseconds()) / 1000.0, nil
			}); err != nil {
				return err
			}
			return rt.Eval(`globalThis.__dune_bindings.perf_hooks = {
				performance: { now: __perf_now },
			};`)
		},
	}
}
