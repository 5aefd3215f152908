package core

import (
	"encoding/json"
	"fmt"

	"github.com/duneland/dune/internal/diagnostics"
)

// MarshalArg JSON-encodes a Go value for a host function argument or return
// value crossing the boundary as a string — the same "JSON.stringify on
// the Go side, JSON.parse on the JS side" idiom the teacher uses throughout
// cache.go/d1.go/kv.go for anything beyond a bare scalar.
func MarshalArg(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", diagnostics.Wrap(diagnostics.Validation, err, "marshaling value")
	}
	return string(data), nil
}

// UnmarshalArg decodes a JSON-encoded argument into dst, producing a
// VALIDATION error (§9 "Dynamic typing at the boundary") rather than
// letting a malformed shape reach deeper layers.
func UnmarshalArg(data string, dst any) error {
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return diagnostics.Wrap(diagnostics.Validation, err, "unmarshaling argument %q", truncate(data, 80))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// RequireString validates that a marshaled argument is non-empty, the
// minimal shape check used by bindings that take a single required
// specifier/path/key argument.
func RequireString(name, v string) error {
	if v == "" {
		return diagnostics.New(diagnostics.Validation, "%s must not be empty", name)
	}
	return nil
}

// FormatJSError renders a Go error as the message a script-visible Error
// object's .message should carry, including the kind prefix so
// `err.code` and the message agree.
func FormatJSError(err error) string {
	return fmt.Sprintf("%s", err.Error())
}
