package jsast

import "github.com/standardbeagle/fastpack/internal/types"

// Snippet builds the synthetic statements the linker splices into module
// bodies. All nodes carry SyntheticSpan; they have no source location.
type Snippet struct {
	alloc *Arena
}

// NewSnippet creates a snippet builder over the given arena.
func NewSnippet(alloc *Arena) Snippet {
	return Snippet{alloc: alloc}
}

// TakeExpr moves the expression out of an expression statement, leaving
// `undefined` behind as the hole.
func (s Snippet) TakeExpr(stmt *SExpr) Expr {
	expr := stmt.Value
	stmt.Value = &EUndefined{}
	return expr
}

// ModuleExportsExprStmt builds `module.exports = <value>;`.
func (s Snippet) ModuleExportsExprStmt(value Expr) Stmt {
	return &SExpr{
		Span: types.SyntheticSpan,
		Value: &EAssign{
			Target: &EDot{Target: &EIdent{Name: "module"}, Name: "exports"},
			Value:  value,
		},
	}
}

// ExportDefaultExprStmt builds `export default <value>;`.
func (s Snippet) ExportDefaultExprStmt(value Expr) Stmt {
	return &SExportDefaultExpr{Span: types.SyntheticSpan, Value: value}
}

// ExportConstStmt builds `export const <name> = <value>;`.
func (s Snippet) ExportConstStmt(name string, value Expr) Stmt {
	return &SExportConst{Span: types.SyntheticSpan, Name: name, Value: value}
}

// ExtractObjectProperties returns the string-keyed own properties of the
// object literal carried by the first statement, in source order. Spread
// members and computed or non-string keys are skipped. Returns nil when
// the body does not start with an object-literal expression statement.
func ExtractObjectProperties(body []Stmt) []Property {
	if len(body) == 0 {
		return nil
	}
	exprStmt, ok := body[0].(*SExpr)
	if !ok {
		return nil
	}
	obj, ok := exprStmt.Value.(*EObject)
	if !ok {
		return nil
	}
	out := make([]Property, 0, len(obj.Properties))
	for _, prop := range obj.Properties {
		if _, ok := prop.StringKey(); !ok {
			continue
		}
		out = append(out, prop)
	}
	return out
}
