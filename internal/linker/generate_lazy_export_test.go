package linker

import (
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

// lazyFixture builds a one-module graph with the given lazy body.
func lazyFixture(t *testing.T, body []jsast.Stmt, exportsKind types.ExportsKind, moduleType types.ModuleType) (*LinkStage, *graph.NormalModule) {
	t.Helper()

	out := &scanner.ScanOutput{
		ModuleTable: &graph.ModuleTable{},
		AstTable:    &graph.AstTable{},
		SymbolDb:    symbols.NewSymbolRefDb(),
	}

	local := symbols.NewLocalSymbolTable(0, nil)
	nsRef := types.SymbolRef{Owner: 0, Symbol: local.CreateSymbol(types.SyntheticSpan, "mod_ns", 0, 0)}
	defaultRef := types.SymbolRef{Owner: 0, Symbol: local.CreateSymbol(types.SyntheticSpan, "mod_default", 0, 0)}

	module := &graph.NormalModule{
		ModuleIdx:          0,
		Path:               "/proj/mod.js",
		ExportsKind:        exportsKind,
		ModuleType:         moduleType,
		Meta:               types.MetaHasLazyExport,
		NamedExports:       map[string]graph.LocalExport{},
		DefaultExportRef:   defaultRef,
		NamespaceObjectRef: nsRef,
		StmtInfos:          graph.NewStmtInfos(),
	}
	module.StmtInfos.DeclareSymbolForStmt(0, nsRef)
	for range body {
		module.StmtInfos.Push(graph.StmtInfo{})
	}

	out.ModuleTable.Push(module)
	module.EcmaAstIdx = out.AstTable.Push(jsast.NewEcmaAst(body), 0)
	out.SymbolDb.StoreLocalDb(0, local)
	out.Entries = []types.ModuleIdx{0}

	options := &config.NormalizedOptions{Format: config.FormatEsm}
	return NewLinkStage(out, options, diagnostics.New()), module
}

func TestLazyExportCommonJs(t *testing.T) {
	// Body `foo();` in a CommonJS context becomes
	// `module.exports = foo();`.
	body := []jsast.Stmt{
		&jsast.SExpr{Value: &jsast.ECall{Target: &jsast.EIdent{Name: "foo"}}},
	}
	ls, module := lazyFixture(t, body, types.ExportsCommonJs, types.ModuleTypeJs)

	ls.generateLazyExport()

	export, ok := module.NamedExports["default"]
	require.True(t, ok)
	assert.Equal(t, module.DefaultExportRef, export.Referenced)

	assert.True(t, module.StmtInfos.Get(1).SideEffect)
	assert.Contains(t, module.StmtInfos.Get(1).DeclaredSymbols, module.DefaultExportRef)
	assert.True(t, module.AstUsage.Has(types.AstUsageModuleRef))

	ast, _, ok := ls.astTable.Get(module.EcmaAstIdx)
	require.True(t, ok)
	stmts := ast.Body()
	require.Len(t, stmts, 1)

	exprStmt, ok := stmts[0].(*jsast.SExpr)
	require.True(t, ok)
	assign, ok := exprStmt.Value.(*jsast.EAssign)
	require.True(t, ok)
	dot, ok := assign.Target.(*jsast.EDot)
	require.True(t, ok)
	assert.Equal(t, "exports", dot.Name)
	target, ok := dot.Target.(*jsast.EIdent)
	require.True(t, ok)
	assert.Equal(t, "module", target.Name)

	call, ok := assign.Value.(*jsast.ECall)
	require.True(t, ok)
	callee, ok := call.Target.(*jsast.EIdent)
	require.True(t, ok)
	assert.Equal(t, "foo", callee.Name)
}

func TestLazyExportEsmDefault(t *testing.T) {
	// Body `42;` in an ESM context becomes `export default 42;`.
	body := []jsast.Stmt{
		&jsast.SExpr{Value: &jsast.ENumber{Value: 42}},
	}
	ls, module := lazyFixture(t, body, types.ExportsEsm, types.ModuleTypeJs)

	ls.generateLazyExport()

	export, ok := module.NamedExports["default"]
	require.True(t, ok)
	assert.Equal(t, module.DefaultExportRef, export.Referenced)
	assert.False(t, module.AstUsage.Has(types.AstUsageModuleRef))

	ast, _, ok := ls.astTable.Get(module.EcmaAstIdx)
	require.True(t, ok)
	stmts := ast.Body()
	require.Len(t, stmts, 1)

	defaultStmt, ok := stmts[0].(*jsast.SExportDefaultExpr)
	require.True(t, ok)
	num, ok := defaultStmt.Value.(*jsast.ENumber)
	require.True(t, ok)
	assert.Equal(t, float64(42), num.Value)
}

func TestLazyExportJson(t *testing.T) {
	// `{"a": 1, "b": 2}` becomes `export const a = 1; export const
	// b = 2;` in source order, with the statement infos truncated to
	// the namespace slot plus one per export.
	body := []jsast.Stmt{
		&jsast.SExpr{Value: &jsast.EObject{Properties: []jsast.Property{
			{Kind: jsast.PropertyNormal, Key: &jsast.EString{Value: "a"}, Value: &jsast.ERaw{Text: "1"}},
			{Kind: jsast.PropertyNormal, Key: &jsast.EString{Value: "b"}, Value: &jsast.ERaw{Text: "2"}},
			{Kind: jsast.PropertySpread, Value: &jsast.ERaw{Text: "rest"}},
			{Kind: jsast.PropertyComputed, Key: &jsast.ERaw{Text: "k"}, Value: &jsast.ERaw{Text: "3"}},
		}}},
	}
	ls, module := lazyFixture(t, body, types.ExportsEsm, types.ModuleTypeJson)

	ls.generateLazyExport()

	assert.Contains(t, module.NamedExports, "default")
	assert.Contains(t, module.NamedExports, "a")
	assert.Contains(t, module.NamedExports, "b")

	ast, _, ok := ls.astTable.Get(module.EcmaAstIdx)
	require.True(t, ok)
	stmts := ast.Body()
	require.Len(t, stmts, 2)

	first, ok := stmts[0].(*jsast.SExportConst)
	require.True(t, ok)
	assert.Equal(t, "a", first.Name)
	second, ok := stmts[1].(*jsast.SExportConst)
	require.True(t, ok)
	assert.Equal(t, "b", second.Name)

	// Namespace slot 0 survives; one declaring slot per emitted export.
	assert.Equal(t, 3, module.StmtInfos.Len())
	assert.Contains(t, module.StmtInfos.Get(1).DeclaredSymbols, module.NamedExports["a"].Referenced)
	assert.Contains(t, module.StmtInfos.Get(2).DeclaredSymbols, module.NamedExports["b"].Referenced)
}

func TestLazyExportRunsTwiceIsNoOp(t *testing.T) {
	body := []jsast.Stmt{
		&jsast.SExpr{Value: &jsast.ENumber{Value: 7}},
	}
	ls, module := lazyFixture(t, body, types.ExportsEsm, types.ModuleTypeJs)

	ls.generateLazyExport()
	require.False(t, module.Meta.Has(types.MetaHasLazyExport))

	ast, _, _ := ls.astTable.Get(module.EcmaAstIdx)
	before := ast.Body()

	ls.generateLazyExport()
	after := ast.Body()
	assert.Equal(t, before, after)
	assert.Len(t, module.NamedExports, 1)
}

func TestLazyExportWrongShapePanics(t *testing.T) {
	t.Run("NonExpressionFirstStatement", func(t *testing.T) {
		body := []jsast.Stmt{
			&jsast.SRaw{Text: "var x = 1;"},
		}
		ls, _ := lazyFixture(t, body, types.ExportsEsm, types.ModuleTypeJs)
		assert.Panics(t, func() {
			ls.generateLazyExport()
		})
	})

	t.Run("EmptyBody", func(t *testing.T) {
		ls, module := lazyFixture(t, nil, types.ExportsEsm, types.ModuleTypeJs)
		// An empty lazy body has no statement slot 1 either, so the
		// build dies in phase 1 already.
		assert.Panics(t, func() {
			ls.generateLazyExport()
		})
		_ = module
	})

	t.Run("PreexistingDefaultExport", func(t *testing.T) {
		body := []jsast.Stmt{
			&jsast.SExpr{Value: &jsast.ENumber{Value: 1}},
		}
		ls, module := lazyFixture(t, body, types.ExportsEsm, types.ModuleTypeJs)
		module.NamedExports["default"] = graph.LocalExport{Referenced: module.DefaultExportRef}
		assert.Panics(t, func() {
			ls.generateLazyExport()
		})
	})
}
