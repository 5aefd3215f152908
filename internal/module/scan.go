package module

import (
	"regexp"
	"strings"
)

// The following regexes cover the statically analyzable ESM import/export
// forms dune links itself (see graph.go's Link phase and the rewriteToCJS
// linking trick below). Dynamic `import(expr)`/`require(expr)` with a
// non-literal argument, multi-declarator `export const a = 1, b = 2`, and
// `export * from` re-exports of a re-export are deliberately out of scope —
// the same boundary real bundlers draw between "statically analyzable" and
// "resolved at runtime"; see DESIGN.md.
var (
	importDefaultRe = regexp.MustCompile(`(?m)^[ \t]*import\s+([A-Za-z_$][\w$]*)\s*,?\s*(\{[^}]*\})?\s*from\s*["']([^"']+)["'];?[ \t]*$`)
	importNamedRe   = regexp.MustCompile(`(?m)^[ \t]*import\s*\{([^}]*)\}\s*from\s*["']([^"']+)["'];?[ \t]*$`)
	importStarRe    = regexp.MustCompile(`(?m)^[ \t]*import\s*\*\s*as\s+([A-Za-z_$][\w$]*)\s*from\s*["']([^"']+)["'];?[ \t]*$`)
	importBareRe    = regexp.MustCompile(`(?m)^[ \t]*import\s*["']([^"']+)["'];?[ \t]*$`)
	requireLitRe    = regexp.MustCompile(`require\(\s*["']([^"']+)["']\s*\)`)

	exportFromRe    = regexp.MustCompile(`(?m)^[ \t]*export\s*(\*|\{[^}]*\})\s*from\s*["']([^"']+)["'];?[ \t]*$`)
	exportDefaultRe = regexp.MustCompile(`(?m)^([ \t]*)export\s+default\s+`)
	// exportAssignDeclRe matches the single-line `export const/let/var name =
	// expr;` form and is rewritten with an immediate module.exports write, so
	// an importer on the other side of an import cycle that reads the name
	// after this statement has run sees the assigned value rather than
	// waiting for the whole module body to finish (§3's cyclic forward
	// reference: the importer gets the live exports object, but only this
	// inline write makes a value show up in it before evaluation completes).
	exportAssignDeclRe = regexp.MustCompile(`(?m)^([ \t]*)export\s+(const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*([^;\n]*);?[ \t]*$`)
	exportDeclRe       = regexp.MustCompile(`(?m)^([ \t]*)export\s+(const|let|var|function\*?|class)\s+([A-Za-z_$][\w$]*)`)
	exportListRe       = regexp.MustCompile(`(?m)^[ \t]*export\s*\{([^}]*)\}\s*;?[ \t]*$`)
)

// scanSpecifiers returns every statically discoverable import/require
// specifier literal referenced by source, first-seen order, deduped.
func scanSpecifiers(source string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(spec string) {
		spec = strings.TrimSpace(spec)
		if spec == "" || seen[spec] {
			return
		}
		seen[spec] = true
		out = append(out, spec)
	}
	for _, m := range importDefaultRe.FindAllStringSubmatch(source, -1) {
		add(m[3])
	}
	for _, m := range importNamedRe.FindAllStringSubmatch(source, -1) {
		add(m[2])
	}
	for _, m := range importStarRe.FindAllStringSubmatch(source, -1) {
		add(m[2])
	}
	for _, m := range importBareRe.FindAllStringSubmatch(source, -1) {
		add(m[1])
	}
	for _, m := range exportFromRe.FindAllStringSubmatch(source, -1) {
		add(m[2])
	}
	for _, m := range requireLitRe.FindAllStringSubmatch(source, -1) {
		add(m[1])
	}
	return out
}

// rewriteToCJS rewrites the ESM forms scan.go understands into CommonJS
// statements against `await __dune_mod(resolvedSpecifier)` — the JS
// kernel's module accessor, always async because any module anywhere in
// the graph may itself await real host work at its top level, and that
// asyncness propagates to every importer transitively (the same
// "asynchronous module evaluation" TC39 gives real ESM graphs; see
// graph.go/kernel.go) — plus a single trailing
// `Object.assign(module.exports, {...})` call collecting every named
// export. Each import/export statement is rewritten in place and kept on
// its own source line so line numbers used by source maps stay stable;
// `resolved` maps each literal specifier appearing in source to its
// canonical, already-linked form.
func rewriteToCJS(source string, resolved map[string]string) string {
	var exported []string // "name" or "name:local"

	resolve := func(lit string) string {
		if r, ok := resolved[lit]; ok {
			return r
		}
		return lit
	}

	source = importDefaultRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := importDefaultRe.FindStringSubmatch(m)
		name, named, spec := sub[1], sub[2], quoteJS(resolve(sub[3]))
		out := "const " + name + " = (await __dune_mod(" + spec + ")).default;"
		if named != "" {
			out += " const " + named + " = await __dune_mod(" + spec + ");"
		}
		return out
	})
	source = importNamedRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := importNamedRe.FindStringSubmatch(m)
		return "const {" + sub[1] + "} = await __dune_mod(" + quoteJS(resolve(sub[2])) + ");"
	})
	source = importStarRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := importStarRe.FindStringSubmatch(m)
		return "const " + sub[1] + " = await __dune_mod(" + quoteJS(resolve(sub[2])) + ");"
	})
	source = importBareRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := importBareRe.FindStringSubmatch(m)
		return "await __dune_mod(" + quoteJS(resolve(sub[1])) + ");"
	})
	source = exportFromRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := exportFromRe.FindStringSubmatch(m)
		_, spec := sub[1], quoteJS(resolve(sub[2]))
		return "Object.assign(module.exports, await __dune_mod(" + spec + "));"
	})
	source = exportListRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := exportListRe.FindStringSubmatch(m)
		for _, part := range strings.Split(sub[1], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if i := strings.Index(part, " as "); i >= 0 {
				local := strings.TrimSpace(part[:i])
				alias := strings.TrimSpace(part[i+4:])
				exported = append(exported, alias+":"+local)
			} else {
				exported = append(exported, part)
			}
		}
		return ""
	})
	source = exportAssignDeclRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := exportAssignDeclRe.FindStringSubmatch(m)
		indent, kw, name, expr := sub[1], sub[2], sub[3], sub[4]
		exported = append(exported, name)
		return indent + kw + " " + name + " = " + expr + "; module.exports." + name + " = " + name + ";"
	})
	source = exportDeclRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := exportDeclRe.FindStringSubmatch(m)
		indent, kw, name := sub[1], sub[2], sub[3]
		exported = append(exported, name)
		return indent + kw + " " + name
	})
	source = exportDefaultRe.ReplaceAllString(source, "${1}module.exports.default = ")

	if len(exported) > 0 {
		pairs := make([]string, len(exported))
		for i, e := range exported {
			if j := strings.Index(e, ":"); j >= 0 {
				pairs[i] = e[:j] + ": " + e[j+1:]
			} else {
				pairs[i] = e + ": " + e
			}
		}
		source += "\nObject.assign(module.exports, {" + strings.Join(pairs, ", ") + "});\n"
	}
	source += "\nmodule.exports.__esModule = true;\n"
	return source
}

func quoteJS(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
