package scanner

import (
	"regexp"
	"strings"
)

// The ESM surface scanner extracts import/export statements from module
// text without a full parse. Top-level import/export syntax is line
// oriented in practice; a statement-level scan keeps the scan stage fast
// and covers the forms the linker needs. Bodies stay raw — the link
// stage never rewrites statements it did not synthesize.

var (
	reImportFrom = regexp.MustCompile(`^\s*import\s+(.+?)\s+from\s+['"]([^'"]+)['"]`)
	reImportBare = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)

	reExportFrom    = regexp.MustCompile(`^\s*export\s+(\*|\{[^}]*\})\s+from\s+['"]([^'"]+)['"]`)
	reExportDecl    = regexp.MustCompile(`^\s*export\s+(const|let|var|function|async\s+function|class)\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	reExportDefault = regexp.MustCompile(`^\s*export\s+default\b`)
	reExportClause  = regexp.MustCompile(`^\s*export\s+\{([^}]*)\}\s*;?\s*$`)

	reCjsMarker = regexp.MustCompile(`(^|[^.\w$])(module\s*\.\s*exports|exports\s*\.\s*[A-Za-z_$]|exports\s*\[)`)
	reRequire   = regexp.MustCompile(`(^|[^.\w$])require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
)

// esmImport is one import statement's worth of bindings.
type esmImport struct {
	Specifier string
	Default   string            // local name of the default import, or ""
	Namespace string            // local name of `* as ns`, or ""
	Named     map[string]string // imported name -> local name
}

// esmExport is one locally-declared export.
type esmExport struct {
	Name  string // exported name
	Local string // local binding name
}

// esmReexport is an `export ... from` statement.
type esmReexport struct {
	Specifier string
	Star      bool
	Named     map[string]string // exported name -> source name
}

// esmScan is the surface syntax of one module.
type esmScan struct {
	Imports       []esmImport
	Exports       []esmExport
	Reexports     []esmReexport
	HasDefault    bool
	DefaultLocal  string // synthesized local name for `export default`
	BodyLines     []string
	HasEsmSyntax  bool
	RequireSpecs  []string
	HasCjsMarkers bool
}

// scanEsmSurface splits a module's source into surface syntax and body
// text. defaultLocal names the binding that will carry `export default`.
func scanEsmSurface(source, defaultLocal string) *esmScan {
	scan := &esmScan{DefaultLocal: defaultLocal}

	scan.HasCjsMarkers = reCjsMarker.MatchString(source)
	for _, m := range reRequire.FindAllStringSubmatch(source, -1) {
		scan.RequireSpecs = append(scan.RequireSpecs, m[2])
	}

	for _, line := range strings.Split(source, "\n") {
		switch {
		case reImportFrom.MatchString(line):
			m := reImportFrom.FindStringSubmatch(line)
			scan.Imports = append(scan.Imports, parseImportClause(m[1], m[2]))
			scan.HasEsmSyntax = true

		case reImportBare.MatchString(line):
			m := reImportBare.FindStringSubmatch(line)
			scan.Imports = append(scan.Imports, esmImport{Specifier: m[1]})
			scan.HasEsmSyntax = true

		case reExportFrom.MatchString(line):
			m := reExportFrom.FindStringSubmatch(line)
			scan.Reexports = append(scan.Reexports, parseReexportClause(m[1], m[2]))
			scan.HasEsmSyntax = true

		case reExportDecl.MatchString(line):
			m := reExportDecl.FindStringSubmatch(line)
			scan.Exports = append(scan.Exports, esmExport{Name: m[2], Local: m[2]})
			scan.HasEsmSyntax = true
			// Keep the declaration in the body, without the export keyword.
			idx := strings.Index(line, "export")
			scan.BodyLines = append(scan.BodyLines, line[:idx]+strings.TrimPrefix(line[idx:], "export "))

		case reExportDefault.MatchString(line):
			scan.HasDefault = true
			scan.HasEsmSyntax = true
			rest := reExportDefault.ReplaceAllString(line, "")
			scan.BodyLines = append(scan.BodyLines, "const "+defaultLocal+" ="+rest)

		case reExportClause.MatchString(line):
			m := reExportClause.FindStringSubmatch(line)
			for exported, local := range parseNamedClause(m[1], true) {
				scan.Exports = append(scan.Exports, esmExport{Name: exported, Local: local})
			}
			scan.HasEsmSyntax = true

		default:
			scan.BodyLines = append(scan.BodyLines, line)
		}
	}
	return scan
}

// parseImportClause parses the bindings between `import` and `from`.
func parseImportClause(clause, specifier string) esmImport {
	imp := esmImport{Specifier: specifier, Named: map[string]string{}}
	clause = strings.TrimSpace(clause)

	// `* as ns`
	if strings.HasPrefix(clause, "*") {
		if idx := strings.Index(clause, " as "); idx >= 0 {
			imp.Namespace = strings.TrimSpace(clause[idx+4:])
		}
		return imp
	}

	// `def, {a, b as c}` | `def` | `{a, b as c}`
	if idx := strings.Index(clause, "{"); idx >= 0 {
		head := strings.TrimSuffix(strings.TrimSpace(clause[:idx]), ",")
		if head != "" {
			imp.Default = strings.TrimSpace(head)
		}
		inner := clause[idx+1:]
		if end := strings.Index(inner, "}"); end >= 0 {
			inner = inner[:end]
		}
		for imported, local := range parseNamedClause(inner, false) {
			imp.Named[imported] = local
		}
		return imp
	}

	imp.Default = clause
	return imp
}

// parseNamedClause parses `a, b as c` into a name mapping. For exports
// the key is the exported name; for imports the key is the source name.
func parseNamedClause(inner string, isExport bool) map[string]string {
	out := map[string]string{}
	for _, item := range strings.Split(inner, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		source, target := item, item
		if idx := strings.Index(item, " as "); idx >= 0 {
			source = strings.TrimSpace(item[:idx])
			target = strings.TrimSpace(item[idx+4:])
		}
		if isExport {
			// export {local as exported} — key by exported name
			out[target] = source
		} else {
			// import {imported as local} — key by imported name
			out[source] = target
		}
	}
	return out
}

// parseReexportClause parses the clause of `export ... from`.
func parseReexportClause(clause, specifier string) esmReexport {
	re := esmReexport{Specifier: specifier}
	clause = strings.TrimSpace(clause)
	if clause == "*" {
		re.Star = true
		return re
	}
	inner := strings.Trim(clause, "{}")
	re.Named = parseNamedClause(inner, true)
	return re
}
