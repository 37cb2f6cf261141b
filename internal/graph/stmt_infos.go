package graph

import (
	"github.com/standardbeagle/fastpack/internal/diagnostics"
	"github.com/standardbeagle/fastpack/internal/types"
)

// StmtInfo is per-top-level-statement metadata consumed by tree-shaking:
// which symbols the statement declares and whether dropping it is
// observable.
type StmtInfo struct {
	DeclaredSymbols []types.SymbolRef
	SideEffect      bool
}

// StmtInfos is a module's statement-info vector. Index 0 is reserved for
// namespace-binding bookkeeping and must survive any rewrite of the AST
// body; statement k of the body maps to index k+1.
type StmtInfos struct {
	infos []StmtInfo
}

// NewStmtInfos creates a vector with the reserved namespace slot.
func NewStmtInfos() StmtInfos {
	return StmtInfos{infos: []StmtInfo{{}}}
}

// Push appends a statement's info and returns its index.
func (s *StmtInfos) Push(info StmtInfo) types.StmtInfoIdx {
	idx := types.StmtInfoIdx(len(s.infos))
	s.infos = append(s.infos, info)
	return idx
}

// Get returns the info at idx; out-of-range access is an invariant
// breach.
func (s *StmtInfos) Get(idx types.StmtInfoIdx) *StmtInfo {
	if int(idx) >= len(s.infos) {
		diagnostics.Invariantf("stmt info index %d out of range (len %d)", idx, len(s.infos))
	}
	return &s.infos[idx]
}

// DeclareSymbolForStmt records that the statement at idx declares ref.
func (s *StmtInfos) DeclareSymbolForStmt(idx types.StmtInfoIdx, ref types.SymbolRef) {
	info := s.Get(idx)
	info.DeclaredSymbols = append(info.DeclaredSymbols, ref)
}

// DrainFrom drops all infos at and after idx. The namespace slot cannot
// be drained.
func (s *StmtInfos) DrainFrom(idx types.StmtInfoIdx) {
	if idx == 0 {
		diagnostics.Invariantf("stmt info slot 0 is reserved and cannot be drained")
	}
	if int(idx) < len(s.infos) {
		s.infos = s.infos[:idx]
	}
}

// Len returns the number of infos, including the reserved slot.
func (s *StmtInfos) Len() int {
	return len(s.infos)
}
