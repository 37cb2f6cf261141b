package scanner

import (
	"strings"

	"github.com/t14raptor/go-fast/ast"
	"github.com/t14raptor/go-fast/parser"
)

// scriptShape is what a full parse of a non-ESM source tells the scan
// stage: whether the body is a single bare expression (the lazy-export
// shape) and which symbols the top level declares.
type scriptShape struct {
	Parsed        bool
	SingleExpr    bool
	TopLevelNames []string
}

// parseScriptShape parses source as classic script. ESM syntax is
// handled by the surface scanner before this runs; sources that fail to
// parse are carried raw with no declared symbols, which only costs
// tree-shaking precision, not correctness.
func parseScriptShape(source string) scriptShape {
	program, err := parser.ParseFile(source)
	if err != nil {
		return scriptShape{}
	}

	shape := scriptShape{Parsed: true}

	if len(program.Body) == 1 {
		if _, ok := program.Body[0].Stmt.(*ast.ExpressionStatement); ok {
			shape.SingleExpr = true
		}
	}

	for _, stmt := range program.Body {
		collectDeclaredNames(stmt.Stmt, &shape.TopLevelNames)
	}
	return shape
}

// collectDeclaredNames records the names a top-level statement declares.
func collectDeclaredNames(stmt ast.Stmt, names *[]string) {
	switch s := stmt.(type) {
	case *ast.FunctionDeclaration:
		if s.Function != nil && s.Function.Name != nil {
			*names = append(*names, s.Function.Name.Name)
		}
	case *ast.ClassDeclaration:
		if s.Class != nil && s.Class.Name != nil {
			*names = append(*names, s.Class.Name.Name)
		}
	case *ast.VariableDeclaration:
		for _, decl := range s.List {
			if decl.Target != nil && decl.Target.Target != nil {
				if ident, ok := decl.Target.Target.(*ast.Identifier); ok {
					*names = append(*names, ident.Name)
				}
			}
		}
	}
}

// lazyExpressionText extracts the expression source of a single-
// expression body: the text minus trailing semicolons and whitespace.
func lazyExpressionText(source string) string {
	text := strings.TrimSpace(source)
	text = strings.TrimSuffix(text, ";")
	return strings.TrimSpace(text)
}
