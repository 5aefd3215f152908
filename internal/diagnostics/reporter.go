package diagnostics

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Reporter prints uncaught exceptions and unhandled rejections the way a
// script author sees them: demangled stack, colorized when the output
// stream is a real terminal and NO_COLOR isn't set, plain otherwise.
type Reporter struct {
	out, err io.Writer
	color    bool

	uncaught int
}

// NewReporter builds a Reporter targeting stdout/stderr, auto-detecting
// color support via isatty the same way a CLI tool in this ecosystem
// would (go-isatty has no other caller in the retrieval pack besides being
// pulled in transitively by the SQLite driver stack; promoted here to a
// direct, exercised import for NO_COLOR/TTY detection).
func NewReporter(noColor bool) *Reporter {
	color := !noColor && isatty.IsTerminal(os.Stderr.Fd())
	return &Reporter{out: os.Stdout, err: os.Stderr, color: color}
}

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

// ReportUncaught prints an uncaught script exception. Per §7, the exit code
// is 1 regardless of how many uncaught errors are reported; every report
// after the first carries its ordinal in the label.
func (r *Reporter) ReportUncaught(header string, frames []Frame, maps map[string]*SourceMap) {
	r.uncaught++
	label := "error: Uncaught"
	if r.uncaught > 1 {
		label = fmt.Sprintf("error: Uncaught (%d)", r.uncaught)
	}
	fmt.Fprintln(r.err, r.paint("31", label)+" "+FormatStack(header, frames, maps))
}

// ReportUnhandledRejection prints a rejection that the module package's
// tracker found still unhandled one microtask turn after it was created
// (§4.H). No unhandledRejection listener is consulted: every such rejection
// is printed and counts toward ExitCode.
func (r *Reporter) ReportUnhandledRejection(reason string, frames []Frame, maps map[string]*SourceMap) {
	r.uncaught++
	fmt.Fprintln(r.err, r.paint("31", "error: Uncaught (in promise)")+" "+FormatStack(reason, frames, maps))
}

// ExitCode returns the process exit code implied by what's been reported:
// 0 if nothing uncaught was seen, 1 otherwise (§7).
func (r *Reporter) ExitCode() int {
	if r.uncaught > 0 {
		return 1
	}
	return 0
}
