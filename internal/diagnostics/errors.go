// Package diagnostics implements the error-kind taxonomy and stack/format
// reporting described in spec §7 (component H, "Error & Diagnostics"): it
// is the single place host errors are tagged with a kind before crossing
// into script, and the single place uncaught errors are formatted for the
// top-level reporter.
package diagnostics

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds enumerated in spec §7. Kept as a string
// (not an int enum) because it is marshaled directly onto the script
// Error's `.code` property.
type Kind string

const (
	Resolution Kind = "RESOLUTION"
	Parse      Kind = "PARSE"
	Link       Kind = "LINK"
	Eval       Kind = "EVAL"
	HostIO     Kind = "HOST_IO"
	Network    Kind = "NETWORK"
	Timeout    Kind = "TIMEOUT"
	Validation Kind = "VALIDATION"
	Internal   Kind = "INTERNAL"
)

// Error is a host error carrying a typed kind, message, optional cause
// chain, and optional OS errno, per §4.H.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Errno   int // 0 when not OS-errno-backed
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a typed Error with no cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a typed Error wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is a
// *Error, defaulting to Internal — an unclassified error reaching the
// bridge is itself an invariant violation worth flagging as such.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return Internal
}
