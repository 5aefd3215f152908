package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newReplCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive JavaScript/TypeScript session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
}

// runRepl evaluates one line of input at a time against a single
// long-lived Process, draining the scheduler between lines so a
// setTimeout or fetch queued by one line can settle before the next
// prompt — the interactive analogue of Graph.Run's own poll loop.
func runRepl() error {
	proc, err := bootProcess(globalCfg, []string{"repl"})
	if err != nil {
		return err
	}
	defer proc.Close()

	if err := proc.RT.Eval(replPreludeJS); err != nil {
		return fmt.Errorf("installing repl prelude: %w", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stderr, "dune> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			fmt.Fprint(os.Stderr, "dune> ")
			continue
		}
		out, err := proc.RT.EvalString(replWrap(line))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Uncaught %v\n", err)
		} else if out != "" {
			fmt.Println(out)
		}

		for proc.Sched.HasPending() {
			proc.Sched.Tick()
			proc.RT.RunMicrotasks()
		}
		fmt.Fprint(os.Stderr, "dune> ")
	}
	fmt.Fprintln(os.Stderr)
	return scanner.Err()
}

// replWrap routes the line through __dune_replEval so both expression
// statements and declarations print a representation the same way a
// browser devtools console echoes the last evaluated value.
func replWrap(line string) string {
	return "globalThis.__dune_replEval(" + backtickQuote(line) + ")"
}

func backtickQuote(s string) string {
	escaped := ""
	for _, r := range s {
		switch r {
		case '`':
			escaped += "\\`"
		case '\\':
			escaped += "\\\\"
		case '\n':
			escaped += "\\n"
		default:
			escaped += string(r)
		}
	}
	return "`" + escaped + "`"
}

// replPreludeJS defines __dune_replEval(source): eval the source with
// (0, eval) so it runs in global scope (matching how declarations at a
// real top-level module work), format the result via util.inspect when
// the binding is installed, and swallow `undefined` so empty statements
// stay silent.
const replPreludeJS = `(function() {
	globalThis.__dune_replEval = function(source) {
		const result = (0, eval)(source);
		if (result === undefined) return "";
		const util = globalThis.__dune_bindings.util;
		return util ? util.inspect(result) : String(result);
	};
})()`
