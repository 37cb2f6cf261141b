package types

import "fmt"

// SymbolRef is the global identity of a binding: the owning module plus
// the symbol's index inside that module's local symbol table.
//
// Modules are parsed in parallel, so each parser mints SymbolIds that are
// only unique within its own module. Pairing them with the module index
// gives a build-wide identity without any cross-goroutine coordination,
// and lets the global database store symbols as an array of per-module
// arrays that merge for free.
type SymbolRef struct {
	Owner  ModuleIdx
	Symbol SymbolId
}

// InvalidSymbolRef marks "no symbol". A symbol whose link field holds it
// is the canonical root of its equivalence class.
var InvalidSymbolRef = SymbolRef{Owner: InvalidModuleIdx, Symbol: InvalidSymbolId}

// IsValid reports whether the ref points at a real symbol.
func (r SymbolRef) IsValid() bool {
	return r != InvalidSymbolRef
}

func (r SymbolRef) String() string {
	if !r.IsValid() {
		return "SymbolRef(invalid)"
	}
	return fmt.Sprintf("SymbolRef(%d:%d)", r.Owner, r.Symbol)
}

// SymbolRefFlags are sparse per-symbol attributes; only symbols with at
// least one flag set appear in the flag map.
type SymbolRefFlags uint8

const (
	// SymbolIsNotReassigned marks a binding that is never written after
	// initialization.
	SymbolIsNotReassigned SymbolRefFlags = 1 << iota

	// SymbolIsConst marks a binding declared with `const`.
	SymbolIsConst
)

// Has reports whether all bits in other are set.
func (f SymbolRefFlags) Has(other SymbolRefFlags) bool {
	return f&other == other
}

// Span is a half-open byte range into a module's source text.
type Span struct {
	Start uint32
	End   uint32
}

// SyntheticSpan marks nodes the linker fabricated; they have no source
// location.
var SyntheticSpan = Span{}
