package symbols

import (
	"github.com/standardbeagle/fastpack/internal/diagnostics"
	"github.com/standardbeagle/fastpack/internal/types"
)

// SymbolRefDb is the global symbol database: an indexed container of
// per-module tables. It grows monotonically; symbols are never removed
// for the lifetime of the link stage.
type SymbolRefDb struct {
	inner []*LocalSymbolTable
}

// NewSymbolRefDb creates an empty database.
func NewSymbolRefDb() *SymbolRefDb {
	return &SymbolRefDb{}
}

func (db *SymbolRefDb) ensureExactCapacity(moduleIdx types.ModuleIdx) {
	newLen := int(moduleIdx) + 1
	for len(db.inner) < newLen {
		db.inner = append(db.inner, nil)
	}
}

// StoreLocalDb installs a per-module table at the given index, growing
// the container as needed. Callers must not double-install.
func (db *SymbolRefDb) StoreLocalDb(moduleIdx types.ModuleIdx, local *LocalSymbolTable) {
	db.ensureExactCapacity(moduleIdx)
	db.inner[moduleIdx] = local
}

// Local returns the per-module table at the given index, or nil if none
// is installed.
func (db *SymbolRefDb) Local(moduleIdx types.ModuleIdx) *LocalSymbolTable {
	if int(moduleIdx) >= len(db.inner) {
		return nil
	}
	return db.inner[moduleIdx]
}

func (db *SymbolRefDb) local(moduleIdx types.ModuleIdx) *LocalSymbolTable {
	local := db.Local(moduleIdx)
	if local == nil {
		diagnostics.Invariantf("no local symbol table installed for module %d", moduleIdx)
	}
	return local
}

// CreateSymbol appends a new symbol to the owning module's table and
// returns its global ref. The owner must have an installed table.
func (db *SymbolRefDb) CreateSymbol(owner types.ModuleIdx, name string) types.SymbolRef {
	db.ensureExactCapacity(owner)
	id := db.local(owner).CreateSymbol(types.SyntheticSpan, name, 0, 0)
	return types.SymbolRef{Owner: owner, Symbol: id}
}

// Get returns the symbol's classic data without canonicalizing.
func (db *SymbolRefDb) Get(ref types.SymbolRef) *SymbolRefData {
	return db.local(ref.Owner).Get(ref.Symbol)
}

// GetMut is Get; it exists so call sites that mutate read as such.
func (db *SymbolRefDb) GetMut(ref types.SymbolRef) *SymbolRefData {
	return db.Get(ref)
}

// Link unifies the equivalence classes of base and target: afterwards
// both canonicalize to the same root. The direction matters — base's
// root becomes a descendant of target's root, so target survives as the
// canonical owner. Callers link imported refs to exporting refs, never
// the reverse.
func (db *SymbolRefDb) Link(base, target types.SymbolRef) {
	baseRoot := db.FindMut(base)
	targetRoot := db.FindMut(target)
	if baseRoot == targetRoot {
		// already linked
		return
	}
	db.GetMut(baseRoot).Link = targetRoot
}

// FindMut returns the canonical root of ref's class, applying path
// halving along the way: every visited node is repointed to its
// grandparent. One pointer write per two hops keeps the chains near-flat
// without the second pass full compression needs.
func (db *SymbolRefDb) FindMut(ref types.SymbolRef) types.SymbolRef {
	canonical := ref
	for {
		data := db.GetMut(canonical)
		parent := data.Link
		if !parent.IsValid() {
			return canonical
		}
		// Repoint only when a grandparent exists; a parent that is the
		// root must stay this node's link, or the node would detach
		// from its class.
		if grand := db.GetMut(parent).Link; grand.IsValid() {
			data.Link = grand
			canonical = grand
			continue
		}
		canonical = parent
	}
}

// CanonicalRefFor is the read-only canonicalization: it walks the chain
// without mutating, and produces the same root FindMut would. The chain
// is acyclic by construction (Link checks root equality first), so the
// walk always terminates.
func (db *SymbolRefDb) CanonicalRefFor(ref types.SymbolRef) types.SymbolRef {
	canonical := ref
	for {
		next := db.Get(canonical).Link
		if !next.IsValid() {
			return canonical
		}
		if next == ref {
			diagnostics.Invariantf("symbol link cycle detected at %s", ref)
		}
		canonical = next
	}
}

// CanonicalNameFor canonicalizes ref and looks up its assigned output
// name. A canonical ref with no assigned name is an invariant breach,
// not a user error, and kills the build.
func (db *SymbolRefDb) CanonicalNameFor(ref types.SymbolRef, canonicalNames map[types.SymbolRef]string) string {
	canonical := db.CanonicalRefFor(ref)
	name, ok := canonicalNames[canonical]
	if !ok {
		diagnostics.Invariantf("canonical name not found for %s, original name %q", canonical, db.Get(ref).Name)
	}
	return name
}

// Flags returns the flags recorded for ref, if any.
func (db *SymbolRefDb) Flags(ref types.SymbolRef) (types.SymbolRefFlags, bool) {
	return db.local(ref.Owner).Flags(ref.Symbol)
}

// SetFlags merges flags onto ref.
func (db *SymbolRefDb) SetFlags(ref types.SymbolRef, flags types.SymbolRefFlags) {
	db.local(ref.Owner).SetFlags(ref.Symbol, flags)
}

// ModuleCount returns the number of module slots, installed or not.
func (db *SymbolRefDb) ModuleCount() int {
	return len(db.inner)
}
