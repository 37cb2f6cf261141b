// Package graph holds the module graph the link stage operates on: the
// module table, per-module statement metadata, and the AST table.
package graph

import (
	"github.com/standardbeagle/fastpack/internal/jsast"
	"github.com/standardbeagle/fastpack/internal/types"
)

// Module is either a Normal module with a parsed body or an External
// module kept as an opaque identity. Passes filter with a type switch.
type Module interface {
	Idx() types.ModuleIdx
	ID() string
}

// LocalExport binds an exported name to the local symbol that backs it.
// Referenced always points at a symbol owned by the exporting module;
// canonicalization happens at use sites, never in the export map.
type LocalExport struct {
	Span       types.Span
	Referenced types.SymbolRef
}

// ImportKind distinguishes how a dependency edge was written.
type ImportKind uint8

const (
	ImportStmt ImportKind = iota
	ImportRequire
	ImportDynamic
)

// NamedImport is one imported binding: the local symbol the importer
// declared and the name it asked the exporter for.
type NamedImport struct {
	LocalRef  types.SymbolRef
	Imported  string // "default" for default imports, "*" for namespace
	RecordIdx int
}

// ImportRecord is one dependency edge. The scan stage fills ResolvedIdx
// once the target module has an index; until then ResolvedPath carries
// the resolved file path.
type ImportRecord struct {
	Specifier    string
	Kind         ImportKind
	ResolvedIdx  types.ModuleIdx
	ResolvedPath string
}

// NormalModule is a module with a parsed body participating in linking.
type NormalModule struct {
	ModuleIdx types.ModuleIdx
	Path      string

	EcmaAstIdx  types.AstIdx
	ExportsKind types.ExportsKind
	ModuleType  types.ModuleType
	Meta        types.ModuleMeta
	AstUsage    types.EcmaModuleAstUsage

	// NamedExports has no "default" entry for lazy modules on entry to
	// the link stage; the materializer registers it.
	NamedExports map[string]LocalExport

	// DefaultExportRef is minted at scan time whether or not the module
	// turns out to have a default export.
	DefaultExportRef types.SymbolRef

	// NamespaceObjectRef backs `import * as ns` and CJS interop.
	NamespaceObjectRef types.SymbolRef

	StmtInfos StmtInfos

	ImportRecords []ImportRecord
	NamedImports  []NamedImport

	// ExternalNamespaceRefs caches the namespace symbol minted for each
	// import record that resolves to an external module.
	ExternalNamespaceRefs map[int]types.SymbolRef

	// Source is kept for diagnostics and raw passthrough printing.
	Source string
}

func (m *NormalModule) Idx() types.ModuleIdx { return m.ModuleIdx }
func (m *NormalModule) ID() string           { return m.Path }

// ExternalModule is a dependency left outside the bundle.
type ExternalModule struct {
	ModuleIdx types.ModuleIdx
	Path      string
}

func (m *ExternalModule) Idx() types.ModuleIdx { return m.ModuleIdx }
func (m *ExternalModule) ID() string           { return m.Path }

// AsNormal returns the module as a NormalModule when it is one.
func AsNormal(m Module) (*NormalModule, bool) {
	normal, ok := m.(*NormalModule)
	return normal, ok
}

// ModuleTable is the dense vector of all modules in the build.
type ModuleTable struct {
	Modules []Module
}

// Push appends a module and returns its index.
func (t *ModuleTable) Push(m Module) types.ModuleIdx {
	idx := types.ModuleIdx(len(t.Modules))
	t.Modules = append(t.Modules, m)
	return idx
}

// Get returns the module at idx, or nil when out of range.
func (t *ModuleTable) Get(idx types.ModuleIdx) Module {
	if int(idx) >= len(t.Modules) {
		return nil
	}
	return t.Modules[idx]
}

// Normal returns the normal module at idx, or nil.
func (t *ModuleTable) Normal(idx types.ModuleIdx) *NormalModule {
	m := t.Get(idx)
	if m == nil {
		return nil
	}
	normal, _ := AsNormal(m)
	return normal
}

// Len returns the number of modules.
func (t *ModuleTable) Len() int {
	return len(t.Modules)
}

// AstEntry pairs an AST with the module that owns its arena.
type AstEntry struct {
	Ast   *jsast.EcmaAst
	Owner types.ModuleIdx
}

// AstTable is the dense vector of parsed ASTs, indexed by AstIdx.
type AstTable struct {
	entries []AstEntry
}

// Push appends an entry and returns its index.
func (t *AstTable) Push(ast *jsast.EcmaAst, owner types.ModuleIdx) types.AstIdx {
	idx := types.AstIdx(len(t.entries))
	t.entries = append(t.entries, AstEntry{Ast: ast, Owner: owner})
	return idx
}

// Get returns the AST and owning module at idx.
func (t *AstTable) Get(idx types.AstIdx) (*jsast.EcmaAst, types.ModuleIdx, bool) {
	if int(idx) >= len(t.entries) {
		return nil, types.InvalidModuleIdx, false
	}
	entry := t.entries[idx]
	return entry.Ast, entry.Owner, true
}

// Len returns the number of entries.
func (t *AstTable) Len() int {
	return len(t.entries)
}
