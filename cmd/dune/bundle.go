package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/cobra"
)

func newBundleCommand() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "bundle <entry>",
		Short: "Bundle an entry module and its dependencies into a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("-o is required")
			}
			return runBundle(args[0], outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "outfile", "o", "", "output file path")
	return cmd
}

// runBundle drives esbuild's own bundler (api.Build, Bundle:true) — unlike
// internal/transform.Pipeline's per-module api.Transform calls, which
// deliberately leave import/export untouched for the runtime's own linker
// to rewrite, `dune bundle` wants esbuild to do real cross-file linking
// into one self-contained output, exactly the teacher's bundle.go shape
// (esbuild.Build with Bundle: true) aimed at a file instead of a worker
// script string.
func runBundle(entry, outPath string) error {
	result := api.Build(api.BuildOptions{
		EntryPoints:   []string{entry},
		Bundle:        true,
		Write:         false,
		Format:        api.FormatESModule,
		Target:        api.ESNext,
		Platform:      api.PlatformNeutral,
		LegalComments: api.LegalCommentsNone,
	})
	if len(result.Errors) > 0 {
		var msgs []string
		for _, m := range result.Errors {
			msgs = append(msgs, m.Text)
		}
		return fmt.Errorf("bundling %s: %s", entry, strings.Join(msgs, "; "))
	}
	if len(result.OutputFiles) == 0 {
		return fmt.Errorf("bundling %s: esbuild produced no output", entry)
	}
	return os.WriteFile(outPath, result.OutputFiles[0].Contents, 0o644)
}
