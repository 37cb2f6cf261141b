// Package generate is the generate stage: it orders the linked modules,
// prints one chunk per entry, and wraps the result in the configured
// output format. Chunk splitting, minification, and source maps are the
// job of downstream tooling; this stage produces a correct, readable
// bundle.
package generate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/fastpack/internal/config"
	"github.com/standardbeagle/fastpack/internal/debug"
	"github.com/standardbeagle/fastpack/internal/graph"
	"github.com/standardbeagle/fastpack/internal/jsast"
	"github.com/standardbeagle/fastpack/internal/linker"
	"github.com/standardbeagle/fastpack/internal/printer"
	"github.com/standardbeagle/fastpack/internal/types"
)

// OutputChunk is one emitted file.
type OutputChunk struct {
	FileName string
	Code     string
}

// BundleOutput is the result of a generate run.
type BundleOutput struct {
	Chunks []OutputChunk
}

// GenerateStage prints chunks from a linked module graph.
type GenerateStage struct {
	link    *linker.LinkStageOutput
	options *config.NormalizedOptions

	// namespaceNeeded marks modules whose namespace object must be
	// materialized because an importer binds to it.
	namespaceNeeded map[types.ModuleIdx]bool
}

// New creates a generate stage.
func New(link *linker.LinkStageOutput, options *config.NormalizedOptions) *GenerateStage {
	return &GenerateStage{link: link, options: options}
}

// Generate produces one chunk per entry.
func (g *GenerateStage) Generate() (*BundleOutput, error) {
	g.collectNamespaceUsage()

	out := &BundleOutput{}
	for _, entryIdx := range g.link.Entries {
		entry := g.link.ModuleTable.Normal(entryIdx)
		if entry == nil {
			continue
		}
		code, err := g.printChunk(entryIdx)
		if err != nil {
			return nil, err
		}
		name := chunkName(entry.Path)
		fileName := g.chunkFileName(name, code)
		out.Chunks = append(out.Chunks, OutputChunk{FileName: fileName, Code: code})
		debug.LogGenerate("chunk %s: %d bytes\n", fileName, len(code))
	}
	return out, nil
}

// collectNamespaceUsage finds modules whose namespace object some
// importer reads, either through `* as ns` or through CommonJS interop.
func (g *GenerateStage) collectNamespaceUsage() {
	g.namespaceNeeded = map[types.ModuleIdx]bool{}
	for _, m := range g.link.ModuleTable.Modules {
		module, ok := graph.AsNormal(m)
		if !ok {
			continue
		}
		for _, imp := range module.NamedImports {
			record := module.ImportRecords[imp.RecordIdx]
			if record.ResolvedIdx == types.InvalidModuleIdx {
				continue
			}
			target := g.link.ModuleTable.Normal(record.ResolvedIdx)
			if target == nil {
				continue
			}
			if imp.Imported == "*" || target.ExportsKind == types.ExportsCommonJs {
				g.namespaceNeeded[target.ModuleIdx] = true
			}
		}
	}
}

// printChunk prints the entry's dependency closure in dependency-first
// order, then wraps it in the output format.
func (g *GenerateStage) printChunk(entryIdx types.ModuleIdx) (string, error) {
	order := g.moduleOrder(entryIdx)

	body := printer.New()
	var externals []externalBinding
	for _, idx := range order {
		module := g.link.ModuleTable.Normal(idx)
		if module == nil {
			continue
		}
		externals = append(externals, g.externalBindings(module)...)
		g.printModule(body, module, idx == entryIdx)
	}

	return g.wrapChunk(entryIdx, body.String(), externals)
}

// moduleOrder is a DFS post-order over import records: dependencies
// print before their importers. Cycles are broken at the revisit.
func (g *GenerateStage) moduleOrder(entryIdx types.ModuleIdx) []types.ModuleIdx {
	var order []types.ModuleIdx
	visited := map[types.ModuleIdx]bool{}

	var visit func(idx types.ModuleIdx)
	visit = func(idx types.ModuleIdx) {
		if visited[idx] {
			return
		}
		visited[idx] = true
		module := g.link.ModuleTable.Normal(idx)
		if module == nil {
			return
		}
		for _, record := range module.ImportRecords {
			if record.ResolvedIdx != types.InvalidModuleIdx {
				visit(record.ResolvedIdx)
			}
		}
		order = append(order, idx)
	}
	visit(entryIdx)
	return order
}

// externalBinding is one import of an external module required by the
// chunk.
type externalBinding struct {
	Specifier string
	LocalName string // "" for bare side-effect imports
}

func (g *GenerateStage) externalBindings(module *graph.NormalModule) []externalBinding {
	var out []externalBinding
	for recordIdx, record := range module.ImportRecords {
		if record.ResolvedIdx == types.InvalidModuleIdx {
			continue
		}
		if _, ok := g.link.ModuleTable.Get(record.ResolvedIdx).(*graph.ExternalModule); !ok {
			continue
		}
		name := ""
		if ref, ok := module.ExternalNamespaceRefs[recordIdx]; ok {
			name = g.link.SymbolDb.Get(ref).Name
		}
		out = append(out, externalBinding{Specifier: record.Specifier, LocalName: name})
	}
	return out
}

// printModule prints one module's body into the chunk.
func (g *GenerateStage) printModule(p *printer.Printer, module *graph.NormalModule, isEntry bool) {
	ast, _, ok := g.link.AstTable.Get(module.EcmaAstIdx)
	if !ok {
		return
	}
	p.WriteString(fmt.Sprintf("// %s\n", module.Path))

	switch {
	case module.ExportsKind == types.ExportsCommonJs && module.AstUsage.Has(types.AstUsageModuleRef):
		g.printCommonJsModule(p, module, ast)
	default:
		g.printEsmModule(p, module, ast, isEntry)
	}
	p.WriteString("\n")
}

// printCommonJsModule wraps the body so the `module` and `exports`
// bindings the text uses exist. The namespace object is the exports
// object itself.
func (g *GenerateStage) printCommonJsModule(p *printer.Printer, module *graph.NormalModule, ast *jsast.EcmaAst) {
	nsName := g.link.SymbolDb.Get(module.NamespaceObjectRef).Name
	holder := nsName + "_module"

	p.WriteString(fmt.Sprintf("var %s = { exports: {} };\n", holder))
	p.WriteString("(function(module, exports) {\n")
	p.PrintBody(ast.Body())
	p.WriteString(fmt.Sprintf("})(%s, %s.exports);\n", holder, holder))
	p.WriteString(fmt.Sprintf("var %s = %s.exports;\n", nsName, holder))
}

// printEsmModule prints an ESM or side-effect-only module. Synthesized
// export statements are lowered to plain declarations in every module,
// the entry included; the entry's export surface is re-emitted by the
// wrapper.
func (g *GenerateStage) printEsmModule(p *printer.Printer, module *graph.NormalModule, ast *jsast.EcmaAst, isEntry bool) {
	defaultName := g.link.SymbolDb.Get(module.DefaultExportRef).Name

	g.printImportBindings(p, module)

	for _, stmt := range ast.Body() {
		switch s := stmt.(type) {
		case *jsast.SExportDefaultExpr:
			p.WriteString("const " + defaultName + " = ")
			p.PrintStmt(&jsast.SExpr{Value: s.Value})
		case *jsast.SExportConst:
			p.PrintStmt(&jsast.SRaw{Text: "const " + s.Name + " = " + exprText(s.Value) + ";"})
		default:
			p.PrintStmt(stmt)
		}
	}

	if module.ModuleType == types.ModuleTypeJson {
		g.printJsonDefaultObject(p, module, defaultName)
	}

	if g.namespaceNeeded[module.ModuleIdx] {
		g.printNamespaceObject(p, module)
	}
}

// printImportBindings re-establishes the bindings the stripped import
// statements declared: each local name becomes an alias of its
// canonical symbol, or a property read for CommonJS and external
// interop. Bindings whose local name already matches the canonical name
// need no shim; the concatenated declaration serves directly.
func (g *GenerateStage) printImportBindings(p *printer.Printer, module *graph.NormalModule) {
	for _, imp := range module.NamedImports {
		localData := g.link.SymbolDb.Get(imp.LocalRef)
		root := g.link.SymbolDb.CanonicalRefFor(imp.LocalRef)
		rootData := g.link.SymbolDb.Get(root)

		var rhs string
		if rootData.NamespaceAlias != nil {
			nsName := g.link.SymbolDb.Get(rootData.NamespaceAlias.NamespaceRef).Name
			rhs = nsName + "." + rootData.NamespaceAlias.PropertyName
		} else {
			rhs = rootData.Name
		}
		if rhs == "" || rhs == localData.Name {
			continue
		}
		p.WriteString("const " + localData.Name + " = " + rhs + ";\n")
	}
}

// printJsonDefaultObject materializes a JSON module's default export as
// an object over its named exports.
func (g *GenerateStage) printJsonDefaultObject(p *printer.Printer, module *graph.NormalModule, defaultName string) {
	names := make([]string, 0, len(module.NamedExports))
	for name := range module.NamedExports {
		if name != "default" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	p.WriteString("const " + defaultName + " = { ")
	for i, name := range names {
		if i > 0 {
			p.WriteString(", ")
		}
		p.WriteString(quoteIfNeeded(name) + ": " + name)
	}
	p.WriteString(" };\n")
}

// printNamespaceObject materializes `import * as ns` for an ESM module.
func (g *GenerateStage) printNamespaceObject(p *printer.Printer, module *graph.NormalModule) {
	nsName := g.link.SymbolDb.Get(module.NamespaceObjectRef).Name
	names := make([]string, 0, len(module.NamedExports))
	for name := range module.NamedExports {
		names = append(names, name)
	}
	sort.Strings(names)

	p.WriteString("var " + nsName + " = { ")
	for i, name := range names {
		if i > 0 {
			p.WriteString(", ")
		}
		ref := module.NamedExports[name].Referenced
		localName := g.link.SymbolDb.Get(g.link.SymbolDb.CanonicalRefFor(ref)).Name
		p.WriteString(quoteIfNeeded(name) + ": " + localName)
	}
	p.WriteString(" };\n")
}

// wrapChunk applies the output format around the printed module bodies.
func (g *GenerateStage) wrapChunk(entryIdx types.ModuleIdx, body string, externals []externalBinding) (string, error) {
	entry := g.link.ModuleTable.Normal(entryIdx)
	exports := g.entryExports(entry)

	var sb strings.Builder
	switch g.options.Format {
	case config.FormatEsm:
		writeExternalImportsEsm(&sb, externals)
		sb.WriteString(body)
		writeEntryExportsEsm(&sb, exports)

	case config.FormatCjs:
		writeExternalImportsCjs(&sb, externals)
		sb.WriteString(body)
		g.writeEntryExportsCjs(&sb, entry, exports)

	case config.FormatIife:
		sb.WriteString("var " + g.options.GlobalName + " = (function() {\n")
		writeExternalImportsCjs(&sb, externals)
		sb.WriteString(body)
		writeReturnExports(&sb, exports)
		sb.WriteString("})();\n")

	case config.FormatUmd:
		writeUmdHeader(&sb, g.options.GlobalName, externals)
		sb.WriteString(body)
		writeReturnExports(&sb, exports)
		sb.WriteString("});\n")

	default:
		return "", fmt.Errorf("unsupported output format %q", g.options.Format)
	}
	return sb.String(), nil
}

// entryExport is one name the chunk re-exports from the entry module.
type entryExport struct {
	Exported string
	Local    string
}

func (g *GenerateStage) entryExports(entry *graph.NormalModule) []entryExport {
	if entry == nil {
		return nil
	}
	names := make([]string, 0, len(entry.NamedExports))
	for name := range entry.NamedExports {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]entryExport, 0, len(names))
	for _, name := range names {
		ref := entry.NamedExports[name].Referenced
		local := g.link.SymbolDb.Get(g.link.SymbolDb.CanonicalRefFor(ref)).Name
		out = append(out, entryExport{Exported: name, Local: local})
	}
	return out
}

func writeExternalImportsEsm(sb *strings.Builder, externals []externalBinding) {
	for _, ext := range dedupeExternals(externals) {
		if ext.LocalName == "" {
			fmt.Fprintf(sb, "import %q;\n", ext.Specifier)
		} else {
			fmt.Fprintf(sb, "import * as %s from %q;\n", ext.LocalName, ext.Specifier)
		}
	}
}

func writeExternalImportsCjs(sb *strings.Builder, externals []externalBinding) {
	for _, ext := range dedupeExternals(externals) {
		if ext.LocalName == "" {
			fmt.Fprintf(sb, "require(%q);\n", ext.Specifier)
		} else {
			fmt.Fprintf(sb, "const %s = require(%q);\n", ext.LocalName, ext.Specifier)
		}
	}
}

func writeEntryExportsEsm(sb *strings.Builder, exports []entryExport) {
	var clauses []string
	for _, exp := range exports {
		if exp.Exported == "default" {
			fmt.Fprintf(sb, "export default %s;\n", exp.Local)
			continue
		}
		if exp.Exported == exp.Local {
			clauses = append(clauses, exp.Exported)
		} else {
			clauses = append(clauses, exp.Local+" as "+exp.Exported)
		}
	}
	if len(clauses) > 0 {
		fmt.Fprintf(sb, "export { %s };\n", strings.Join(clauses, ", "))
	}
}

func (g *GenerateStage) writeEntryExportsCjs(sb *strings.Builder, entry *graph.NormalModule, exports []entryExport) {
	if entry != nil && entry.ExportsKind == types.ExportsCommonJs {
		// The entry body assigned its wrapper's exports object;
		// re-export that object as the chunk's.
		nsName := g.link.SymbolDb.Get(entry.NamespaceObjectRef).Name
		fmt.Fprintf(sb, "module.exports = %s;\n", nsName)
		return
	}
	for _, exp := range exports {
		fmt.Fprintf(sb, "module.exports[%q] = %s;\n", exp.Exported, exp.Local)
	}
}

func writeReturnExports(sb *strings.Builder, exports []entryExport) {
	sb.WriteString("return { ")
	for i, exp := range exports {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quoteIfNeeded(exp.Exported) + ": " + exp.Local)
	}
	sb.WriteString(" };\n")
}

func writeUmdHeader(sb *strings.Builder, globalName string, externals []externalBinding) {
	sb.WriteString("(function(root, factory) {\n")
	sb.WriteString("  if (typeof module === 'object' && module.exports) { module.exports = factory(); }\n")
	sb.WriteString("  else { root." + globalName + " = factory(); }\n")
	sb.WriteString("})(typeof self !== 'undefined' ? self : this, function() {\n")
	writeExternalImportsCjs(sb, externals)
}

func dedupeExternals(externals []externalBinding) []externalBinding {
	seen := map[string]bool{}
	var out []externalBinding
	for _, ext := range externals {
		key := ext.Specifier + "\x00" + ext.LocalName
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ext)
	}
	return out
}

// chunkFileName substitutes [name] and [hash] in the filename pattern.
func (g *GenerateStage) chunkFileName(name, code string) string {
	fileName := g.options.EntryFileNames
	fileName = strings.ReplaceAll(fileName, "[name]", name)
	if strings.Contains(fileName, "[hash]") {
		hash := fmt.Sprintf("%08x", xxhash.Sum64String(code)&0xffffffff)
		fileName = strings.ReplaceAll(fileName, "[hash]", hash)
	}
	return fileName
}

func chunkName(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.IndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return base
}

func quoteIfNeeded(name string) string {
	for i, r := range name {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		if i == 0 && !alpha {
			return fmt.Sprintf("%q", name)
		}
		if !alpha && (r < '0' || r > '9') {
			return fmt.Sprintf("%q", name)
		}
	}
	if name == "" {
		return `""`
	}
	return name
}

// exprText prints a single expression to text.
func exprText(expr jsast.Expr) string {
	p := printer.New()
	p.PrintStmt(&jsast.SExpr{Value: expr})
	return strings.TrimSuffix(strings.TrimSuffix(p.String(), "\n"), ";")
}
