// Package printer renders the bundler's AST subset back to JavaScript
// text. It is deliberately simple: raw statements print verbatim, and
// synthesized nodes cover only the forms the linker fabricates.
package printer

import (
	"strconv"
	"strings"

	"github.com/standardbeagle/fastpack/internal/diagnostics"
	"github.com/standardbeagle/fastpack/internal/jsast"
)

// Printer accumulates printed output.
type Printer struct {
	sb strings.Builder
}

// New creates a printer.
func New() *Printer {
	return &Printer{}
}

// PrintBody prints a statement list.
func (p *Printer) PrintBody(body []jsast.Stmt) {
	for _, stmt := range body {
		p.PrintStmt(stmt)
	}
}

// PrintStmt prints one statement followed by a newline.
func (p *Printer) PrintStmt(stmt jsast.Stmt) {
	switch s := stmt.(type) {
	case *jsast.SRaw:
		text := strings.TrimRight(s.Text, "\n")
		if text != "" {
			p.sb.WriteString(text)
			p.sb.WriteByte('\n')
		}
	case *jsast.SExpr:
		p.printExpr(s.Value)
		p.sb.WriteString(";\n")
	case *jsast.SExportDefaultExpr:
		p.sb.WriteString("export default ")
		p.printExpr(s.Value)
		p.sb.WriteString(";\n")
	case *jsast.SExportConst:
		p.sb.WriteString("export const ")
		p.sb.WriteString(s.Name)
		p.sb.WriteString(" = ")
		p.printExpr(s.Value)
		p.sb.WriteString(";\n")
	default:
		diagnostics.Invariantf("printer: unknown statement type %T", stmt)
	}
}

func (p *Printer) printExpr(expr jsast.Expr) {
	switch e := expr.(type) {
	case *jsast.ERaw:
		p.sb.WriteString(e.Text)
	case *jsast.EIdent:
		p.sb.WriteString(e.Name)
	case *jsast.EString:
		p.sb.WriteString(quote(e.Value))
	case *jsast.ENumber:
		p.sb.WriteString(formatNumber(e.Value))
	case *jsast.EBool:
		if e.Value {
			p.sb.WriteString("true")
		} else {
			p.sb.WriteString("false")
		}
	case *jsast.ENull:
		p.sb.WriteString("null")
	case *jsast.EUndefined:
		p.sb.WriteString("void 0")
	case *jsast.EArray:
		p.sb.WriteByte('[')
		for i, item := range e.Items {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.printExpr(item)
		}
		p.sb.WriteByte(']')
	case *jsast.EObject:
		p.printObject(e)
	case *jsast.EDot:
		p.printExpr(e.Target)
		p.sb.WriteByte('.')
		p.sb.WriteString(e.Name)
	case *jsast.ECall:
		p.printExpr(e.Target)
		p.sb.WriteByte('(')
		for i, arg := range e.Args {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.printExpr(arg)
		}
		p.sb.WriteByte(')')
	case *jsast.EAssign:
		p.printExpr(e.Target)
		p.sb.WriteString(" = ")
		p.printExpr(e.Value)
	default:
		diagnostics.Invariantf("printer: unknown expression type %T", expr)
	}
}

func (p *Printer) printObject(obj *jsast.EObject) {
	if len(obj.Properties) == 0 {
		p.sb.WriteString("{}")
		return
	}
	p.sb.WriteString("{ ")
	for i, prop := range obj.Properties {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		switch prop.Kind {
		case jsast.PropertySpread:
			p.sb.WriteString("...")
			p.printExpr(prop.Value)
		case jsast.PropertyComputed:
			p.sb.WriteByte('[')
			p.printExpr(prop.Key)
			p.sb.WriteString("]: ")
			p.printExpr(prop.Value)
		default:
			p.printPropertyKey(prop.Key)
			p.sb.WriteString(": ")
			p.printExpr(prop.Value)
		}
	}
	p.sb.WriteString(" }")
}

func (p *Printer) printPropertyKey(key jsast.Expr) {
	if str, ok := key.(*jsast.EString); ok && isIdentLike(str.Value) {
		p.sb.WriteString(str.Value)
		return
	}
	p.printExpr(key)
}

// String returns the printed output.
func (p *Printer) String() string {
	return p.sb.String()
}

// WriteString appends raw text, for wrappers and separators.
func (p *Printer) WriteString(s string) {
	p.sb.WriteString(s)
}

func quote(s string) string {
	return strconv.Quote(s)
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isIdentLike(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		if i == 0 && !alpha {
			return false
		}
		if !alpha && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
