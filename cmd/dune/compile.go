package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// compileMagic trails every self-contained binary `dune compile` produces;
// selfContainedPayload looks for it at startup to decide whether the running
// executable IS a compiled script rather than the dune CLI itself.
var compileMagic = [8]byte{'D', 'U', 'N', 'E', 'P', 'K', 'G', '1'}

func newCompileCommand() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "compile <entry>",
		Short: "Compile an entry module into a self-contained executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("-o is required")
			}
			return runCompile(args[0], outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "outfile", "o", "", "output executable path")
	return cmd
}

// runCompile bundles entry, then appends it to a copy of the running `dune`
// executable followed by an 8-byte length and the compileMagic trailer — the
// same "append a data segment after a copy of yourself, recognize your own
// trailer at startup" trick self-contained-executable tools in this space
// use instead of re-invoking a Go toolchain the target machine may not have
// (and which this process is forbidden from shelling out to regardless).
func runCompile(entry, outPath string) error {
	bundled, err := bundleToBytes(entry)
	if err != nil {
		return err
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating running executable: %w", err)
	}
	src, err := os.Open(self)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	if _, err := out.Write(bundled); err != nil {
		return err
	}

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(bundled)))
	if _, err := out.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := out.Write(compileMagic[:]); err != nil {
		return err
	}
	return nil
}

func bundleToBytes(entry string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "dune-compile-*.js")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := runBundle(entry, tmpPath); err != nil {
		return nil, err
	}
	return os.ReadFile(tmpPath)
}

// selfContainedPayload checks whether the currently running executable
// carries a compile trailer, returning its embedded script source when it
// does. Called once at the top of main before cobra parses any flags.
func selfContainedPayload() (string, bool) {
	self, err := os.Executable()
	if err != nil {
		return "", false
	}
	f, err := os.Open(self)
	if err != nil {
		return "", false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() < 16 {
		return "", false
	}

	var trailer [16]byte
	if _, err := f.ReadAt(trailer[:], info.Size()-16); err != nil {
		return "", false
	}
	if string(trailer[8:]) != string(compileMagic[:]) {
		return "", false
	}
	payloadLen := int64(binary.LittleEndian.Uint64(trailer[:8]))
	payloadStart := info.Size() - 16 - payloadLen
	if payloadStart < 0 {
		return "", false
	}

	payload := make([]byte, payloadLen)
	if _, err := f.ReadAt(payload, payloadStart); err != nil {
		return "", false
	}
	return string(payload), true
}
