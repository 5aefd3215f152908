package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duneland/dune/internal/diagnostics"
	"github.com/duneland/dune/internal/watch"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <entry> [-- script-args…]",
		Short: "Run a JavaScript or TypeScript file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := args[0]
			scriptArgs := args[1:]
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				scriptArgs = args[dash:]
			}
			code, err := runEntry(entry, scriptArgs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "dune: %v\n", err)
			}
			os.Exit(code)
			return nil
		},
	}
	return cmd
}

// runEntry boots one Process, runs (or watch-reruns) entry, and returns the
// process exit code. A returned non-nil error is a startup-time failure
// (config, resolution before any script ran); script-level failures are
// already reported to stderr by the Reporter and folded into the exit code.
func runEntry(entry string, scriptArgv []string) (int, error) {
	if !globalCfg.Watch {
		return runOnce(entry, scriptArgv)
	}
	return runWatched(entry, scriptArgv)
}

func runOnce(entry string, scriptArgv []string) (int, error) {
	proc, err := bootProcess(globalCfg, append([]string{entry}, scriptArgv...))
	if err != nil {
		return exitCodeFor(err), err
	}
	defer proc.Close()

	if globalCfg.CheckOnly {
		if err := proc.Graph.Check(entry); err != nil {
			fmt.Fprintf(os.Stderr, "dune: %v\n", err)
			return exitCodeFor(err), nil
		}
		return exitOK, nil
	}

	if err := proc.Graph.Run(entry, defaultTimeout); err != nil {
		// Eval failures are already printed by proc.Report (Graph.Run calls
		// ReportUncaught before returning); printing err's message again here
		// would duplicate the "error: Uncaught ..." line.
		if diagnostics.KindOf(err) == diagnostics.Eval {
			return exitScriptFail, nil
		}
		if diagnostics.KindOf(err) == diagnostics.Timeout {
			fmt.Fprintf(os.Stderr, "dune: %v\n", err)
			return exitScriptFail, nil
		}
		return exitCodeFor(err), err
	}
	// The root module can resolve "ok" while an unhandled promise rejection
	// was still reported during the run (§4.H) — that alone fails the run.
	if code := proc.Report.ExitCode(); code != 0 {
		return exitScriptFail, nil
	}
	if code := proc.State.GetExitCode(); code != 0 {
		return code, nil
	}
	return exitOK, nil
}

// runWatched re-runs runOnce every time a file reachable from the last
// successful link changes, per §4.B/§6's --watch. Each iteration boots a
// fresh Process — matching §3's "exactly one isolate per process" even
// under --watch, rather than trying to hot-reload a live isolate.
func runWatched(entry string, scriptArgv []string) (int, error) {
	w, err := watch.New(150 * time.Millisecond)
	if err != nil {
		return exitSoftware, err
	}
	defer w.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lastCode, lastErr := runOnce(entry, scriptArgv)
	watchPaths(w, entry, scriptArgv)

	for {
		select {
		case <-w.Changes:
			fmt.Fprintln(os.Stderr, "dune: file change detected, restarting")
			lastCode, lastErr = runOnce(entry, scriptArgv)
			watchPaths(w, entry, scriptArgv)
		case err := <-w.Errors:
			fmt.Fprintf(os.Stderr, "dune: watch error: %v\n", err)
		case <-sigCh:
			return lastCode, lastErr
		}
	}
}

// watchPaths re-links entry in a throwaway Process purely to discover its
// current file set, then registers those files with w — linking is cheap
// (cache-backed) and keeps the watch list accurate across edits that add
// or remove imports.
func watchPaths(w *watch.Watcher, entry string, scriptArgv []string) {
	proc, err := bootProcess(globalCfg, append([]string{entry}, scriptArgv...))
	if err != nil {
		return
	}
	defer proc.Close()
	if err := proc.Graph.Check(entry); err != nil {
		return
	}
	w.AddAll(proc.Graph.LocalFilePaths())
}
