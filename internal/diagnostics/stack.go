package diagnostics

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SourceMap is the subset of a V3 source map dune needs to demangle a
// transformed-source stack frame back to the original TS/JSX line. esbuild
// emits this shape when asked for SourceMapInline/SourceMapExternal.
type SourceMap struct {
	Version    int      `json:"version"`
	Sources    []string `json:"sources"`
	Names      []string `json:"names"`
	Mappings   string   `json:"mappings"`
	decoded    []mapping
	decodeOnce bool
}

type mapping struct {
	genLine, genCol               int
	srcIdx, srcLine, srcCol, name int
	hasName                       bool
}

// ParseSourceMap decodes a V3 source map's JSON envelope. Mapping decoding
// is lazy (Decode) since most frames never need it.
func ParseSourceMap(data []byte) (*SourceMap, error) {
	var sm SourceMap
	if err := json.Unmarshal(data, &sm); err != nil {
		return nil, Wrap(Internal, err, "parsing source map")
	}
	return &sm, nil
}

// decodeVLQSegments decodes the VLQ/base64 mapping field into raw segments, per the
// source-map v3 spec. Each returned slice is a relative-encoded segment.
func decodeVLQSegments(mappings string) [][]int {
	const b64 = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	var rev [256]int
	for i := range rev {
		rev[i] = -1
	}
	for i, c := range b64 {
		rev[c] = i
	}

	var out [][]int
	var cur []int
	var value, shift int
	started := false
	for _, line := range strings.Split(mappings, ";") {
		for _, seg := range strings.Split(line, ",") {
			if seg == "" {
				continue
			}
			cur = cur[:0]
			value, shift = 0, 0
			for _, c := range seg {
				d := rev[byte(c)]
				if d < 0 {
					continue
				}
				started = true
				cont := d & 32
				d &= 31
				value += d << uint(shift)
				if cont != 0 {
					shift += 5
					continue
				}
				if value&1 != 0 {
					cur = append(cur, -(value >> 1))
				} else {
					cur = append(cur, value>>1)
				}
				value, shift = 0, 0
			}
			if started && len(cur) > 0 {
				seg := make([]int, len(cur))
				copy(seg, cur)
				out = append(out, seg)
			}
		}
		// line separators are tracked by the caller via index, not encoded here
	}
	return out
}

// decode lazily builds the absolute-position mapping table used by Resolve.
func (sm *SourceMap) decode() {
	if sm.decodeOnce {
		return
	}
	sm.decodeOnce = true

	genLine := 0
	srcIdx, srcLine, srcCol, nameIdx := 0, 0, 0, 0
	for _, rawLine := range strings.Split(sm.Mappings, ";") {
		genCol := 0
		if rawLine != "" {
			for _, seg := range decodeVLQSegments(rawLine) {
				if len(seg) == 0 {
					continue
				}
				genCol += seg[0]
				m := mapping{genLine: genLine, genCol: genCol}
				if len(seg) >= 4 {
					srcIdx += seg[1]
					srcLine += seg[2]
					srcCol += seg[3]
					m.srcIdx, m.srcLine, m.srcCol = srcIdx, srcLine, srcCol
					if len(seg) >= 5 {
						nameIdx += seg[4]
						m.name = nameIdx
						m.hasName = true
					}
				}
				sm.decoded = append(sm.decoded, m)
			}
		}
		genLine++
	}
	sort.Slice(sm.decoded, func(i, j int) bool {
		if sm.decoded[i].genLine != sm.decoded[j].genLine {
			return sm.decoded[i].genLine < sm.decoded[j].genLine
		}
		return sm.decoded[i].genCol < sm.decoded[j].genCol
	})
}

// Resolve maps a 1-based (line, col) in the transformed source back to the
// original source file and 1-based (line, col). Returns ok=false if the
// position has no mapping (e.g. synthetic code with no map entry).
func (sm *SourceMap) Resolve(line, col int) (file string, origLine, origCol int, ok bool) {
	sm.decode()
	// genLine/genCol are 0-based internally; caller passes 1-based.
	gl, gc := line-1, col-1
	best := -1
	for i, m := range sm.decoded {
		if m.genLine > gl {
			break
		}
		if m.genLine == gl && m.genCol > gc {
			break
		}
		best = i
	}
	if best < 0 {
		return "", 0, 0, false
	}
	m := sm.decoded[best]
	if m.srcIdx < 0 || m.srcIdx >= len(sm.Sources) {
		return "", 0, 0, false
	}
	return sm.Sources[m.srcIdx], m.srcLine + 1, m.srcCol + 1, true
}

// Frame is one entry of a demangled stack trace.
type Frame struct {
	FunctionName string
	File         string
	Line, Col    int
}

func (f Frame) String() string {
	name := f.FunctionName
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("    at %s (%s:%d:%d)", name, f.File, f.Line, f.Col)
}

// stackFrameLine matches both forms V8/QuickJS emit for a stack frame:
// "at name (file:line:col)" and the anonymous "at file:line:col".
var stackFrameLine = regexp.MustCompile(`^at\s+(?:(.+?)\s+\()?([^()\s]+):(\d+):(\d+)\)?$`)

// ParseStack splits a thrown value's .stack string into its header (the
// "Error: message" first line, or the whole string if there are no frame
// lines) and the parsed call frames, ready for FormatStack to demangle
// against a module's source map.
func ParseStack(stack string) (header string, frames []Frame) {
	lines := strings.Split(stack, "\n")
	if len(lines) == 0 {
		return stack, nil
	}
	header = strings.TrimRight(lines[0], "\r")
	for _, line := range lines[1:] {
		m := stackFrameLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		lineNo, _ := strconv.Atoi(m[3])
		colNo, _ := strconv.Atoi(m[4])
		frames = append(frames, Frame{FunctionName: m[1], File: m[2], Line: lineNo, Col: colNo})
	}
	return header, frames
}

// FormatStack renders demangled frames as a JS-conventional stack string,
// given the raw (possibly already-native) frames and a lookup from
// transformed-file path to its SourceMap.
func FormatStack(header string, frames []Frame, maps map[string]*SourceMap) string {
	var b strings.Builder
	b.WriteString(header)
	for _, f := range frames {
		if sm, ok := maps[f.File]; ok {
			if file, line, col, ok := sm.Resolve(f.Line, f.Col); ok {
				f.File, f.Line, f.Col = file, line, col
			}
		}
		b.WriteString("\n")
		b.WriteString(f.String())
	}
	return b.String()
}
