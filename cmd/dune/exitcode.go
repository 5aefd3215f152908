package main

import "github.com/duneland/dune/internal/diagnostics"

// Exit codes per §6: 0 success, 1 uncaught script error or unhandled
// rejection, 2 CLI usage error, 64-78 reserved for specific startup
// failures (config, resolution) — the sysexits.h range the teacher's own
// CLI tooling convention draws from for "something before the script even
// ran went wrong."
const (
	exitOK         = 0
	exitScriptFail = 1
	exitUsage      = 2

	exitDataErr  = 65 // EX_DATAERR: malformed entry source (PARSE/LINK)
	exitNoInput  = 66 // EX_NOINPUT: entry or import could not be resolved
	exitIOErr    = 74 // EX_IOERR: cache/fetch/file system failure
	exitSoftware = 70 // EX_SOFTWARE: invariant violation
	exitTimeout  = 75 // EX_TEMPFAIL-adjacent: execution deadline exceeded
)

// exitCodeFor maps a startup-time (pre-script) error to one of the
// reserved 64-78 codes by its diagnostics.Kind; errors surfacing *during*
// script evaluation are reported by the Reporter and always exit 1,
// handled separately in run.go/test.go.
func exitCodeFor(err error) int {
	switch diagnostics.KindOf(err) {
	case diagnostics.Resolution:
		return exitNoInput
	case diagnostics.Parse, diagnostics.Link:
		return exitDataErr
	case diagnostics.HostIO, diagnostics.Network:
		return exitIOErr
	case diagnostics.Timeout:
		return exitTimeout
	default:
		return exitSoftware
	}
}
