package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/duneland/dune/internal/diagnostics"
)

// testResult mirrors test.go's testKernelJS report shape.
type testResult struct {
	Name       string  `json:"name"`
	OK         bool    `json:"ok"`
	DurationMS float64 `json:"durationMS"`
	Error      string  `json:"error"`
	Stack      string  `json:"stack"`
}

func newTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test [patterns…]",
		Short: "Run test files and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runTests(args)
			if err != nil {
				fmt.Fprintf(os.Stderr, "dune: %v\n", err)
			}
			os.Exit(code)
			return nil
		},
	}
}

// discoverTestFiles walks the working directory for *_test.{js,ts,jsx,tsx}
// and *.test.{js,ts,jsx,tsx} files, then keeps only those matching at least
// one of patterns (glob-style over the path, per §6) when patterns is
// non-empty.
func discoverTestFiles(patterns []string) ([]string, error) {
	var found []string
	err := filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "node_modules" || strings.HasPrefix(info.Name(), ".") && path != "." {
				return filepath.SkipDir
			}
			return nil
		}
		base := filepath.Base(path)
		ext := filepath.Ext(base)
		switch ext {
		case ".js", ".ts", ".jsx", ".tsx":
		default:
			return nil
		}
		stem := strings.TrimSuffix(base, ext)
		if strings.HasSuffix(stem, "_test") || strings.HasSuffix(stem, ".test") {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return found, nil
	}
	var filtered []string
	for _, f := range found {
		for _, pattern := range patterns {
			if ok, _ := filepath.Match(pattern, f); ok {
				filtered = append(filtered, f)
				break
			}
		}
	}
	return filtered, nil
}

func runTests(patterns []string) (int, error) {
	files, err := discoverTestFiles(patterns)
	if err != nil {
		return exitIOErr, err
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "dune: no test files found")
		return exitOK, nil
	}

	var totalPass, totalFail int
	for _, file := range files {
		results, err := runTestFile(file)
		if err != nil {
			// Eval-kind failures are already printed by the file's own
			// Reporter (Graph.Run calls ReportUncaught before returning).
			if diagnostics.KindOf(err) != diagnostics.Eval {
				fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			}
			totalFail++
			continue
		}
		fmt.Printf("%s\n", file)
		for _, r := range results {
			if r.OK {
				totalPass++
				fmt.Printf("  ok   %s (%.1fms)\n", r.Name, r.DurationMS)
			} else {
				totalFail++
				fmt.Printf("  FAIL %s (%.1fms): %s\n", r.Name, r.DurationMS, r.Error)
			}
		}
	}

	fmt.Printf("\n%d passed, %d failed\n", totalPass, totalFail)
	if totalFail > 0 {
		return exitScriptFail, nil
	}
	return exitOK, nil
}

func runTestFile(file string) ([]testResult, error) {
	proc, err := bootProcess(globalCfg, []string{file})
	if err != nil {
		return nil, err
	}
	defer proc.Close()

	if err := proc.Graph.Run(file, defaultTimeout); err != nil {
		return nil, err
	}

	if err := proc.RT.Eval(`globalThis.__dune_test_done = false; globalThis.__duneRunTests();`); err != nil {
		return nil, diagnostics.Wrap(diagnostics.Internal, err, "starting test run for %s", file)
	}

	deadline := time.Now().Add(defaultTimeout)
	for {
		proc.Sched.Tick()
		proc.RT.RunMicrotasks()

		done, err := proc.RT.EvalBool("!!globalThis.__dune_test_done")
		if err != nil {
			return nil, diagnostics.Wrap(diagnostics.Internal, err, "polling test run for %s", file)
		}
		if done {
			break
		}
		if !proc.Sched.HasPending() && time.Now().After(deadline) {
			return nil, diagnostics.New(diagnostics.Timeout, "tests in %s did not settle", file)
		}
	}

	reportJSON, err := proc.RT.EvalString("globalThis.__dune_test_report")
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.Internal, err, "reading test report for %s", file)
	}
	var results []testResult
	if err := json.Unmarshal([]byte(reportJSON), &results); err != nil {
		return nil, diagnostics.Wrap(diagnostics.Internal, err, "decoding test report for %s", file)
	}
	if proc.Report.ExitCode() != 0 {
		results = append(results, testResult{Name: "(unhandled rejection)", OK: false, Error: "an unhandled promise rejection was reported during this file's run"})
	}
	return results, nil
}
