package linker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fastpack/internal/config"
	"github.com/standardbeagle/fastpack/internal/diagnostics"
	"github.com/standardbeagle/fastpack/internal/graph"
	"github.com/standardbeagle/fastpack/internal/jsast"
	"github.com/standardbeagle/fastpack/internal/scanner"
	"github.com/standardbeagle/fastpack/internal/symbols"
	"github.com/standardbeagle/fastpack/internal/types"
)

// graphFixture builds an empty multi-module graph for binding tests.
type graphFixture struct {
	out   *scanner.ScanOutput
	diags *diagnostics.Diagnostics
}

func newGraphFixture() *graphFixture {
	return &graphFixture{
		out: &scanner.ScanOutput{
			ModuleTable: &graph.ModuleTable{},
			AstTable:    &graph.AstTable{},
			SymbolDb:    symbols.NewSymbolRefDb(),
		},
		diags: diagnostics.New(),
	}
}

func (f *graphFixture) addModule(path string, exportsKind types.ExportsKind) *graph.NormalModule {
	idx := types.ModuleIdx(f.out.ModuleTable.Len())
	local := symbols.NewLocalSymbolTable(idx, nil)
	module := &graph.NormalModule{
		ModuleIdx:    idx,
		Path:         path,
		ExportsKind:  exportsKind,
		NamedExports: map[string]graph.LocalExport{},
		StmtInfos:    graph.NewStmtInfos(),
	}
	module.NamespaceObjectRef = types.SymbolRef{Owner: idx, Symbol: local.CreateSymbol(types.SyntheticSpan, fmt.Sprintf("m%d_ns", idx), 0, 0)}
	module.DefaultExportRef = types.SymbolRef{Owner: idx, Symbol: local.CreateSymbol(types.SyntheticSpan, fmt.Sprintf("m%d_default", idx), 0, 0)}
	f.out.ModuleTable.Push(module)
	module.EcmaAstIdx = f.out.AstTable.Push(jsast.NewEcmaAst(nil), idx)
	f.out.SymbolDb.StoreLocalDb(idx, local)
	return module
}

func (f *graphFixture) addExternal(specifier string) *graph.ExternalModule {
	ext := &graph.ExternalModule{Path: specifier}
	ext.ModuleIdx = f.out.ModuleTable.Push(ext)
	return ext
}

func (f *graphFixture) declare(module *graph.NormalModule, name string) types.SymbolRef {
	local := f.out.SymbolDb.Local(module.ModuleIdx)
	return types.SymbolRef{Owner: module.ModuleIdx, Symbol: local.CreateSymbol(types.SyntheticSpan, name, 0, 0)}
}

func (f *graphFixture) linkStage() *LinkStage {
	f.out.Entries = []types.ModuleIdx{0}
	return NewLinkStage(f.out, &config.NormalizedOptions{Format: config.FormatEsm}, f.diags)
}

func TestBindNamedImportToEsmExport(t *testing.T) {
	f := newGraphFixture()
	importer := f.addModule("/proj/a.js", types.ExportsEsm)
	exporter := f.addModule("/proj/b.js", types.ExportsEsm)

	exported := f.declare(exporter, "value")
	exporter.NamedExports["value"] = graph.LocalExport{Referenced: exported}

	localRef := f.declare(importer, "value")
	importer.ImportRecords = []graph.ImportRecord{{Specifier: "./b", ResolvedIdx: exporter.ModuleIdx}}
	importer.NamedImports = []graph.NamedImport{{LocalRef: localRef, Imported: "value", RecordIdx: 0}}

	ls := f.linkStage()
	ls.bindImportsExports()

	// Imported and exported symbols canonicalize to the exporter's
	// symbol; the exporter's ref survives as the root.
	assert.Equal(t, exported, f.out.SymbolDb.CanonicalRefFor(localRef))
	assert.False(t, f.diags.HasErrors())
}

func TestBindNamespaceImport(t *testing.T) {
	f := newGraphFixture()
	importer := f.addModule("/proj/a.js", types.ExportsEsm)
	exporter := f.addModule("/proj/b.js", types.ExportsEsm)

	localRef := f.declare(importer, "ns")
	importer.ImportRecords = []graph.ImportRecord{{Specifier: "./b", ResolvedIdx: exporter.ModuleIdx}}
	importer.NamedImports = []graph.NamedImport{{LocalRef: localRef, Imported: "*", RecordIdx: 0}}

	f.linkStage().bindImportsExports()

	assert.Equal(t, exporter.NamespaceObjectRef, f.out.SymbolDb.CanonicalRefFor(localRef))
}

func TestBindImportFromCommonJsSetsNamespaceAlias(t *testing.T) {
	f := newGraphFixture()
	importer := f.addModule("/proj/a.js", types.ExportsEsm)
	cjs := f.addModule("/proj/legacy.cjs", types.ExportsCommonJs)

	localRef := f.declare(importer, "thing")
	importer.ImportRecords = []graph.ImportRecord{{Specifier: "./legacy.cjs", ResolvedIdx: cjs.ModuleIdx}}
	importer.NamedImports = []graph.NamedImport{{LocalRef: localRef, Imported: "thing", RecordIdx: 0}}

	f.linkStage().bindImportsExports()

	alias := f.out.SymbolDb.Get(f.out.SymbolDb.CanonicalRefFor(localRef)).NamespaceAlias
	require.NotNil(t, alias)
	assert.Equal(t, cjs.NamespaceObjectRef, alias.NamespaceRef)
	assert.Equal(t, "thing", alias.PropertyName)
}

func TestBindMissingExportReportsSuggestion(t *testing.T) {
	f := newGraphFixture()
	importer := f.addModule("/proj/a.js", types.ExportsEsm)
	exporter := f.addModule("/proj/b.js", types.ExportsEsm)

	exporter.NamedExports["createServer"] = graph.LocalExport{Referenced: f.declare(exporter, "createServer")}

	localRef := f.declare(importer, "createSerer")
	importer.ImportRecords = []graph.ImportRecord{{Specifier: "./b", ResolvedIdx: exporter.ModuleIdx}}
	importer.NamedImports = []graph.NamedImport{{LocalRef: localRef, Imported: "createSerer", RecordIdx: 0}}

	f.linkStage().bindImportsExports()

	require.True(t, f.diags.HasErrors())
	var missing *diagnostics.MissingExportError
	for _, err := range f.diags.Errors() {
		if m, ok := err.(*diagnostics.MissingExportError); ok {
			missing = m
		}
	}
	require.NotNil(t, missing)
	assert.Equal(t, "createSerer", missing.Name)
	assert.Equal(t, "createServer", missing.Suggestion)
}

func TestBindExternalImportMintsNamespace(t *testing.T) {
	f := newGraphFixture()
	importer := f.addModule("/proj/a.js", types.ExportsEsm)
	ext := f.addExternal("node:path")

	localRef := f.declare(importer, "join")
	importer.ImportRecords = []graph.ImportRecord{{Specifier: "node:path", ResolvedIdx: ext.ModuleIdx}}
	importer.NamedImports = []graph.NamedImport{{LocalRef: localRef, Imported: "join", RecordIdx: 0}}

	f.linkStage().bindImportsExports()

	alias := f.out.SymbolDb.Get(f.out.SymbolDb.CanonicalRefFor(localRef)).NamespaceAlias
	require.NotNil(t, alias)
	assert.Equal(t, "join", alias.PropertyName)
	assert.Equal(t, importer.ModuleIdx, alias.NamespaceRef.Owner)
	// The minted namespace binding is cached per import record.
	assert.Len(t, importer.ExternalNamespaceRefs, 1)
}

func TestLinkRunsAllPasses(t *testing.T) {
	f := newGraphFixture()
	module := f.addModule("/proj/entry.js", types.ExportsEsm)

	out := f.linkStage().Link()
	require.NotNil(t, out)
	assert.Same(t, f.out.ModuleTable, out.ModuleTable)

	flags, ok := out.SymbolDb.Flags(module.NamespaceObjectRef)
	require.True(t, ok)
	assert.True(t, flags.Has(types.SymbolIsNotReassigned))
}
