package jsast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithMutReleasesOnPanic(t *testing.T) {
	ast := NewEcmaAst([]Stmt{&SRaw{Text: "x;"}})

	assert.Panics(t, func() {
		ast.WithMut(func(cell ProgramCell) {
			panic("rewrite failed")
		})
	})

	// The lock was released on the panic path; the AST is still usable.
	ast.WithMut(func(cell ProgramCell) {
		assert.Len(t, *cell.Body, 1)
	})
}

func TestSnippetTakeExprLeavesHole(t *testing.T) {
	stmt := &SExpr{Value: &ENumber{Value: 5}}
	ast := NewEcmaAst([]Stmt{stmt})

	ast.WithMut(func(cell ProgramCell) {
		snippet := NewSnippet(cell.Alloc)
		expr := snippet.TakeExpr(stmt)
		num, ok := expr.(*ENumber)
		require.True(t, ok)
		assert.Equal(t, float64(5), num.Value)

		_, isHole := stmt.Value.(*EUndefined)
		assert.True(t, isHole)
	})
}

func TestSnippetBuilders(t *testing.T) {
	arena := NewArena()
	defer arena.Release()
	snippet := NewSnippet(arena)

	t.Run("ModuleExports", func(t *testing.T) {
		stmt := snippet.ModuleExportsExprStmt(&ENumber{Value: 1})
		exprStmt, ok := stmt.(*SExpr)
		require.True(t, ok)
		assign, ok := exprStmt.Value.(*EAssign)
		require.True(t, ok)
		dot, ok := assign.Target.(*EDot)
		require.True(t, ok)
		assert.Equal(t, "exports", dot.Name)
	})

	t.Run("ExportDefault", func(t *testing.T) {
		stmt := snippet.ExportDefaultExprStmt(&EBool{Value: true})
		def, ok := stmt.(*SExportDefaultExpr)
		require.True(t, ok)
		assert.IsType(t, &EBool{}, def.Value)
	})

	t.Run("ExportConst", func(t *testing.T) {
		stmt := snippet.ExportConstStmt("a", &ENumber{Value: 2})
		exp, ok := stmt.(*SExportConst)
		require.True(t, ok)
		assert.Equal(t, "a", exp.Name)
	})
}

func TestExtractObjectProperties(t *testing.T) {
	t.Run("FiltersToStringKeys", func(t *testing.T) {
		body := []Stmt{&SExpr{Value: &EObject{Properties: []Property{
			{Kind: PropertyNormal, Key: &EString{Value: "a"}, Value: &ENumber{Value: 1}},
			{Kind: PropertySpread, Value: &EIdent{Name: "rest"}},
			{Kind: PropertyComputed, Key: &EIdent{Name: "k"}, Value: &ENumber{Value: 2}},
			{Kind: PropertyNormal, Key: &EIdent{Name: "ident"}, Value: &ENumber{Value: 3}},
		}}}}
		props := ExtractObjectProperties(body)
		require.Len(t, props, 2)
		first, _ := props[0].StringKey()
		second, _ := props[1].StringKey()
		assert.Equal(t, "a", first)
		assert.Equal(t, "ident", second)
	})

	t.Run("SourceOrder", func(t *testing.T) {
		body := []Stmt{&SExpr{Value: &EObject{Properties: []Property{
			{Kind: PropertyNormal, Key: &EString{Value: "b"}, Value: &ENumber{Value: 2}},
			{Kind: PropertyNormal, Key: &EString{Value: "a"}, Value: &ENumber{Value: 1}},
		}}}}
		props := ExtractObjectProperties(body)
		require.Len(t, props, 2)
		first, _ := props[0].StringKey()
		second, _ := props[1].StringKey()
		assert.Equal(t, "b", first)
		assert.Equal(t, "a", second)
	})

	t.Run("NonObjectBody", func(t *testing.T) {
		assert.Nil(t, ExtractObjectProperties([]Stmt{&SRaw{Text: "x;"}}))
		assert.Nil(t, ExtractObjectProperties(nil))
	})
}

func TestArenaRelease(t *testing.T) {
	arena := NewArena()
	stmts := arena.StmtSlice(4)
	props := arena.PropSlice(4)
	assert.Equal(t, 0, len(stmts))
	assert.Equal(t, 0, len(props))
	arena.Release()
}
