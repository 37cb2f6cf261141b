// Package symbols is the cross-module symbol reference database. Every
// binding in the build is identified by a (module, symbol) pair; the
// database unifies pairs across module boundaries with a disjoint-set
// forest so downstream renaming and chunk placement see one canonical
// owner per binding.
package symbols

import (
	"github.com/standardbeagle/fastpack/internal/types"
)

// NamespaceAlias is a rewrite directive: every use of the aliased symbol
// must become a property access on the namespace symbol. This is how an
// ESM named import from a CommonJS module is expressed — `import {a}
// from './cjs'` reads `cjs_ns.a` at runtime.
type NamespaceAlias struct {
	NamespaceRef types.SymbolRef
	PropertyName string
}

// SymbolRefData is the per-symbol record the linker mutates.
type SymbolRefData struct {
	// Name is the symbol's declared identifier.
	Name string

	// Link points at the symbol this one has been unified with. It is a
	// parent pointer in a disjoint-set forest; a symbol whose link is
	// invalid is the canonical root of its class.
	Link types.SymbolRef

	// NamespaceAlias, when set, forces uses of this symbol to be printed
	// as a property access on the namespace. A linked symbol may still
	// carry an alias on its root.
	NamespaceAlias *NamespaceAlias

	// ChunkID is filled once chunking decides which output chunk owns
	// the emitted binding.
	ChunkID types.ChunkIdx
}

// symbolRecord is the parser-level registration kept alongside the
// classic data: where the symbol was declared and in which scope.
type symbolRecord struct {
	span  types.Span
	scope uint32
}

// LocalSymbolTable holds one module's symbols. It is created by the scan
// stage from the module's declared-name list, mutated during link, and
// read-only during generate.
type LocalSymbolTable struct {
	owner       types.ModuleIdx
	classicData []SymbolRefData
	records     []symbolRecord

	// Only some symbols carry flags, so they live in a sparse map.
	flags map[types.SymbolId]types.SymbolRefFlags
}

// NewLocalSymbolTable builds a table from a parsed module's name list.
// Every symbol starts as its own root with no alias and no chunk.
func NewLocalSymbolTable(owner types.ModuleIdx, names []string) *LocalSymbolTable {
	classic := make([]SymbolRefData, 0, len(names))
	records := make([]symbolRecord, 0, len(names))
	for _, name := range names {
		classic = append(classic, SymbolRefData{
			Name:    name,
			Link:    types.InvalidSymbolRef,
			ChunkID: types.InvalidChunkIdx,
		})
		records = append(records, symbolRecord{})
	}
	return &LocalSymbolTable{
		owner:       owner,
		classicData: classic,
		records:     records,
		flags:       make(map[types.SymbolId]types.SymbolRefFlags),
	}
}

// Owner returns the module this table belongs to.
func (t *LocalSymbolTable) Owner() types.ModuleIdx {
	return t.owner
}

// Len returns the number of symbols in the table.
func (t *LocalSymbolTable) Len() int {
	return len(t.classicData)
}

// CreateSymbol appends a symbol with the given declaration site and
// returns its id. It never fails.
func (t *LocalSymbolTable) CreateSymbol(span types.Span, name string, flags types.SymbolRefFlags, scope uint32) types.SymbolId {
	id := types.SymbolId(len(t.classicData))
	t.classicData = append(t.classicData, SymbolRefData{
		Name:    name,
		Link:    types.InvalidSymbolRef,
		ChunkID: types.InvalidChunkIdx,
	})
	t.records = append(t.records, symbolRecord{span: span, scope: scope})
	if flags != 0 {
		t.flags[id] = flags
	}
	return id
}

// Get returns the symbol's classic data. The id must be in range.
func (t *LocalSymbolTable) Get(id types.SymbolId) *SymbolRefData {
	return &t.classicData[id]
}

// Span returns the symbol's declaration span.
func (t *LocalSymbolTable) Span(id types.SymbolId) types.Span {
	return t.records[id].span
}

// Flags returns the symbol's flags, if any are set.
func (t *LocalSymbolTable) Flags(id types.SymbolId) (types.SymbolRefFlags, bool) {
	f, ok := t.flags[id]
	return f, ok
}

// SetFlags merges flags onto the symbol.
func (t *LocalSymbolTable) SetFlags(id types.SymbolId, flags types.SymbolRefFlags) {
	if flags == 0 {
		return
	}
	t.flags[id] |= flags
}
