package linker

import (
	"github.com/standardbeagle/fastpack/internal/alloc"
	"github.com/standardbeagle/fastpack/internal/diagnostics"
	"github.com/standardbeagle/fastpack/internal/graph"
	"github.com/standardbeagle/fastpack/internal/jsast"
	"github.com/standardbeagle/fastpack/internal/types"
)

// lazyExportTask is one module's pending AST rewrite, collected during
// the parallel phase and applied in the serial phase.
type lazyExportTask struct {
	astIdx      types.AstIdx
	exportsKind types.ExportsKind
	isJSON      bool
}

// generateLazyExport materializes exports for modules whose export
// shape was deferred at parse time: a JSON object, a bare expression in
// a CommonJS context, or a single-expression module.
//
// The pass runs in two phases. Phase 1 touches only per-module state
// (export maps, statement infos, usage flags), which is disjoint across
// modules, so it fans out over the worker pool. Phase 2 rewrites bodies
// through the shared AST table and runs serially: a per-entry lock
// would cost more than the trivial work it guards.
func (ls *LinkStage) generateLazyExport() {
	collected := alloc.NewAppendOnlyVec[lazyExportTask]()

	ls.forEachNormalModuleParallel(func(module *graph.NormalModule) {
		if !module.Meta.Has(types.MetaHasLazyExport) {
			return
		}
		defaultRef := module.DefaultExportRef

		if _, exists := module.NamedExports["default"]; exists {
			diagnostics.Invariantf("lazy module %s already has a default export", module.Path)
		}
		module.NamedExports["default"] = graph.LocalExport{Span: types.SyntheticSpan, Referenced: defaultRef}

		isJSON := module.ModuleType == types.ModuleTypeJson
		// JSON is skipped: its body has no default-carrying statement at
		// index 1. The rewrite declares one symbol per materialized key;
		// the default ref is declared on no statement.
		if !isJSON {
			module.StmtInfos.DeclareSymbolForStmt(1, defaultRef)
		}
		collected.Push(lazyExportTask{
			astIdx:      module.EcmaAstIdx,
			exportsKind: module.ExportsKind,
			isJSON:      isJSON,
		})

		if module.ExportsKind == types.ExportsCommonJs {
			// The emitted `module.exports = ...` is observable and the
			// wrap arguments are generated on demand, so the module ref
			// usage is inserted here.
			module.StmtInfos.Get(1).SideEffect = true
			module.AstUsage |= types.AstUsageModuleRef
		}

		// Clearing the flag makes a second run of this pass a no-op.
		module.Meta &^= types.MetaHasLazyExport
	})

	for _, task := range collected.Drain() {
		ast, moduleIdx, ok := ls.astTable.Get(task.astIdx)
		if !ok {
			continue
		}

		switch {
		case task.exportsKind == types.ExportsCommonJs:
			rewriteLazyStmt(ast, func(snippet jsast.Snippet, expr jsast.Expr) jsast.Stmt {
				return snippet.ModuleExportsExprStmt(expr)
			})
		case task.isJSON:
			ls.jsonObjectExprToEsm(moduleIdx, ast)
		default:
			rewriteLazyStmt(ast, func(snippet jsast.Snippet, expr jsast.Expr) jsast.Stmt {
				return snippet.ExportDefaultExprStmt(expr)
			})
		}
	}
}

// rewriteLazyStmt moves the single expression out of the lazy body and
// replaces the statement with a synthesized export form. The scan stage
// guarantees lazy bodies hold exactly one expression statement; any
// other shape is an invariant breach.
func rewriteLazyStmt(ast *jsast.EcmaAst, build func(snippet jsast.Snippet, expr jsast.Expr) jsast.Stmt) {
	ast.WithMut(func(cell jsast.ProgramCell) {
		body := *cell.Body
		if len(body) == 0 {
			diagnostics.Invariantf("lazy module body is empty at rewrite time")
		}
		exprStmt, ok := body[0].(*jsast.SExpr)
		if !ok {
			diagnostics.Invariantf("lazy module body does not start with an expression statement")
		}
		snippet := jsast.NewSnippet(cell.Alloc)
		expr := snippet.TakeExpr(exprStmt)
		body[0] = build(snippet, expr)
	})
}

// jsonObjectExprToEsm replaces a JSON module's object-literal body with
// one `export const` per string-keyed own property, in source order.
// Spread members and non-string keys were dropped when the object was
// lowered; keys that are not valid identifiers are skipped here as well
// and stay reachable through the default export only.
func (ls *LinkStage) jsonObjectExprToEsm(moduleIdx types.ModuleIdx, ast *jsast.EcmaAst) {
	module := ls.moduleTable.Normal(moduleIdx)
	if module == nil {
		return
	}

	// Drop every statement slot except 0, which is reserved for the
	// namespace binding and must survive the rewrite.
	module.StmtInfos.DrainFrom(1)

	ast.WithMut(func(cell jsast.ProgramCell) {
		properties := jsast.ExtractObjectProperties(*cell.Body)
		if properties == nil {
			diagnostics.Invariantf("JSON module %s body does not hold an object literal", module.Path)
		}

		snippet := jsast.NewSnippet(cell.Alloc)
		stmts := cell.Alloc.StmtSlice(len(properties))
		for _, prop := range properties {
			key, _ := prop.StringKey()
			if !isValidIdentifier(key) {
				continue
			}
			stmts = append(stmts, snippet.ExportConstStmt(key, prop.Value))

			ref := ls.symbolDb.CreateSymbol(moduleIdx, key)
			module.NamedExports[key] = graph.LocalExport{Span: types.SyntheticSpan, Referenced: ref}
			stmtIdx := module.StmtInfos.Push(graph.StmtInfo{})
			module.StmtInfos.DeclareSymbolForStmt(stmtIdx, ref)
		}
		*cell.Body = stmts
	})
}

// isValidIdentifier reports whether name can be emitted as a binding
// name. ASCII-only on purpose: JSON keys outside this set are rare and
// remain reachable via the default export.
func isValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		if i == 0 && !alpha {
			return false
		}
		if !alpha && (r < '0' || r > '9') {
			return false
		}
	}
	return !jsReservedWords[name]
}

var jsReservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"import": true, "in": true, "instanceof": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true,
}
