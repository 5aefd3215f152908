// Command dune is the CLI entry point (§6, component I): a cobra root
// command dispatching to run/repl/test/bundle/compile/upgrade, each
// wiring the kernel components (engine, scheduler, bridge, module graph,
// binding registry) described in internal/{engine,scheduler,bridge,module,
// bindings}.
//
// Grounded on the teacher's flat EngineConfig-from-flags shape, adapted
// from "one config struct read once at worker boot" to "one config struct
// populated from cobra persistent flags before each subcommand runs."
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/duneland/dune/internal/core"
)

// version is stamped by the release pipeline's -ldflags; left as a literal
// default for local builds, the same pattern cosmos's main.go const uses.
var version = "dev"

var globalCfg core.Config

func main() {
	log.SetFlags(0)
	log.SetPrefix("dune: ")

	// A `dune compile`d binary carries its script appended after a trailer
	// (compile.go); recognize that shape before cobra ever sees argv, since
	// the compiled script's own argv (os.Args[1:]) is script argv, not CLI
	// flags.
	if payload, ok := selfContainedPayload(); ok {
		os.Exit(runCompiledPayload(payload, os.Args[1:]))
	}

	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(exitUsage)
	}
}

// runCompiledPayload runs an embedded script the same way `dune run` would,
// configuring globalCfg from the environment directly since no cobra
// PersistentPreRunE runs on this path.
func runCompiledPayload(payload string, scriptArgv []string) int {
	duneDir, err := resolveDuneDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dune: resolving DUNE_DIR: %v\n", err)
		return exitSoftware
	}
	globalCfg.DuneDir = duneDir
	globalCfg.NoColor = os.Getenv("NO_COLOR") != ""
	globalCfg.HTTPProxy = os.Getenv("HTTP_PROXY")
	globalCfg.HTTPSProxy = os.Getenv("HTTPS_PROXY")

	tmp, err := os.CreateTemp("", "dune-payload-*.js")
	if err != nil {
		fmt.Fprintf(os.Stderr, "dune: staging compiled payload: %v\n", err)
		return exitSoftware
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(payload); err != nil {
		tmp.Close()
		fmt.Fprintf(os.Stderr, "dune: staging compiled payload: %v\n", err)
		return exitSoftware
	}
	tmp.Close()

	code, err := runOnce(tmp.Name(), scriptArgv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dune: %v\n", err)
	}
	return code
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dune",
		Short:         "A standalone JavaScript and TypeScript runtime",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			duneDir, err := resolveDuneDir()
			if err != nil {
				return fmt.Errorf("resolving DUNE_DIR: %w", err)
			}
			globalCfg.DuneDir = duneDir
			if v := os.Getenv("NO_COLOR"); v != "" {
				globalCfg.NoColor = true
			}
			globalCfg.HTTPProxy = os.Getenv("HTTP_PROXY")
			globalCfg.HTTPSProxy = os.Getenv("HTTPS_PROXY")
			return nil
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	flags := root.PersistentFlags()
	flags.BoolVar(&globalCfg.Reload, "reload", false, "ignore the transform cache")
	flags.BoolVar(&globalCfg.CheckOnly, "check", false, "resolve, link and transform without executing (no type checking)")
	flags.BoolVar(&globalCfg.Unstable, "unstable", false, "recorded in process state; no binding checks it")
	flags.BoolVar(&globalCfg.Watch, "watch", false, "re-run the entry on file change")
	flags.StringVar(&globalCfg.Inspect, "inspect", "", "devtools host:port; recorded only, no devtools server is started")
	flags.Lookup("inspect").NoOptDefVal = "127.0.0.1:9229"
	flags.IntVar(&globalCfg.MemoryLimitMB, "memory-limit", 0, "cap the isolate's heap, in megabytes (0: engine default)")

	root.AddCommand(
		newRunCommand(),
		newReplCommand(),
		newTestCommand(),
		newBundleCommand(),
		newCompileCommand(),
		newUpgradeCommand(),
	)
	return root
}
