// Package jsast holds the bundler's ECMAScript AST. The node set is
// deliberately small: the link stage only synthesizes export forms and
// moves expressions around; statements it never needs to understand are
// carried as raw source slices and printed verbatim.
package jsast

import "github.com/standardbeagle/fastpack/internal/types"

// Stmt is a top-level statement.
type Stmt interface {
	isStmt()
}

// Expr is an expression.
type Expr interface {
	isExpr()
}

// SExpr is an expression statement.
type SExpr struct {
	Span  types.Span
	Value Expr
}

// SExportDefaultExpr is `export default <expr>;`.
type SExportDefaultExpr struct {
	Span  types.Span
	Value Expr
}

// SExportConst is `export const <name> = <expr>;`.
type SExportConst struct {
	Span  types.Span
	Name  string
	Value Expr
}

// SRaw is a passthrough statement printed verbatim. The scan stage uses
// it for module text the linker never rewrites.
type SRaw struct {
	Span types.Span
	Text string
}

func (*SExpr) isStmt()              {}
func (*SExportDefaultExpr) isStmt() {}
func (*SExportConst) isStmt()       {}
func (*SRaw) isStmt()               {}

// EIdent is an identifier reference.
type EIdent struct {
	Name string
	Ref  types.SymbolRef
}

// EString is a string literal.
type EString struct {
	Value string
}

// ENumber is a numeric literal.
type ENumber struct {
	Value float64
}

// EBool is a boolean literal.
type EBool struct {
	Value bool
}

// ENull is the null literal.
type ENull struct{}

// EUndefined is the undefined value. The snippet builder also uses it as
// the hole left behind when an expression is moved out of a statement.
type EUndefined struct{}

// EArray is an array literal.
type EArray struct {
	Items []Expr
}

// EObject is an object literal.
type EObject struct {
	Properties []Property
}

// EDot is a static property access, `target.name`.
type EDot struct {
	Target Expr
	Name   string
}

// ECall is a call expression.
type ECall struct {
	Target Expr
	Args   []Expr
}

// EAssign is a simple assignment, `target = value`.
type EAssign struct {
	Target Expr
	Value  Expr
}

// ERaw is an expression carried as raw source text. JSON values and lazy
// bodies whose inner structure the linker does not care about stay raw.
type ERaw struct {
	Text string
}

func (*EIdent) isExpr()     {}
func (*EString) isExpr()    {}
func (*ENumber) isExpr()    {}
func (*EBool) isExpr()      {}
func (*ENull) isExpr()      {}
func (*EUndefined) isExpr() {}
func (*EArray) isExpr()     {}
func (*EObject) isExpr()    {}
func (*EDot) isExpr()       {}
func (*ECall) isExpr()      {}
func (*EAssign) isExpr()    {}
func (*ERaw) isExpr()       {}

// PropertyKind distinguishes the object-literal member forms the bundler
// tracks.
type PropertyKind uint8

const (
	PropertyNormal PropertyKind = iota
	PropertyComputed
	PropertySpread
)

// Property is one member of an object literal. Spread members carry only
// Value; normal members carry Key and Value.
type Property struct {
	Kind  PropertyKind
	Key   Expr
	Value Expr
}

// StringKey returns the property's key if it is a plain string or
// identifier key, and whether it was one.
func (p Property) StringKey() (string, bool) {
	if p.Kind != PropertyNormal {
		return "", false
	}
	switch k := p.Key.(type) {
	case *EString:
		return k.Value, true
	case *EIdent:
		return k.Name, true
	}
	return "", false
}
