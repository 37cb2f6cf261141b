package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/fastpack/internal/types"
)

func TestStmtInfos(t *testing.T) {
	t.Run("ReservedNamespaceSlot", func(t *testing.T) {
		infos := NewStmtInfos()
		assert.Equal(t, 1, infos.Len())

		idx := infos.Push(StmtInfo{SideEffect: true})
		assert.Equal(t, types.StmtInfoIdx(1), idx)
		assert.True(t, infos.Get(1).SideEffect)
	})

	t.Run("DeclareSymbolForStmt", func(t *testing.T) {
		infos := NewStmtInfos()
		infos.Push(StmtInfo{})
		ref := types.SymbolRef{Owner: 0, Symbol: 3}
		infos.DeclareSymbolForStmt(1, ref)
		assert.Contains(t, infos.Get(1).DeclaredSymbols, ref)
	})

	t.Run("DrainFromKeepsNamespaceSlot", func(t *testing.T) {
		infos := NewStmtInfos()
		infos.Push(StmtInfo{})
		infos.Push(StmtInfo{})
		infos.DrainFrom(1)
		assert.Equal(t, 1, infos.Len())
	})

	t.Run("DrainSlotZeroPanics", func(t *testing.T) {
		infos := NewStmtInfos()
		assert.Panics(t, func() {
			infos.DrainFrom(0)
		})
	})

	t.Run("OutOfRangePanics", func(t *testing.T) {
		infos := NewStmtInfos()
		assert.Panics(t, func() {
			infos.Get(5)
		})
	})
}

func TestModuleTable(t *testing.T) {
	table := &ModuleTable{}
	normal := &NormalModule{Path: "/a.js"}
	normal.ModuleIdx = table.Push(normal)
	ext := &ExternalModule{Path: "react"}
	ext.ModuleIdx = table.Push(ext)

	assert.Equal(t, 2, table.Len())
	assert.NotNil(t, table.Normal(normal.ModuleIdx))
	assert.Nil(t, table.Normal(ext.ModuleIdx))
	assert.Nil(t, table.Get(99))

	_, isNormal := AsNormal(table.Get(0))
	assert.True(t, isNormal)
	_, isNormal = AsNormal(table.Get(1))
	assert.False(t, isNormal)
}
