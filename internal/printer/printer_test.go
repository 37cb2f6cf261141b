package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/fastpack/internal/jsast"
)

func printOne(stmt jsast.Stmt) string {
	p := New()
	p.PrintStmt(stmt)
	return p.String()
}

func TestPrintStatements(t *testing.T) {
	tests := []struct {
		name string
		stmt jsast.Stmt
		want string
	}{
		{
			name: "raw verbatim",
			stmt: &jsast.SRaw{Text: "function f() { return 1; }\n"},
			want: "function f() { return 1; }\n",
		},
		{
			name: "module.exports assignment",
			stmt: &jsast.SExpr{Value: &jsast.EAssign{
				Target: &jsast.EDot{Target: &jsast.EIdent{Name: "module"}, Name: "exports"},
				Value:  &jsast.ECall{Target: &jsast.EIdent{Name: "foo"}},
			}},
			want: "module.exports = foo();\n",
		},
		{
			name: "export default",
			stmt: &jsast.SExportDefaultExpr{Value: &jsast.ENumber{Value: 42}},
			want: "export default 42;\n",
		},
		{
			name: "export const",
			stmt: &jsast.SExportConst{Name: "a", Value: &jsast.ERaw{Text: "1"}},
			want: "export const a = 1;\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, printOne(test.stmt))
		})
	}
}

func TestPrintExpressions(t *testing.T) {
	tests := []struct {
		name string
		expr jsast.Expr
		want string
	}{
		{"string", &jsast.EString{Value: `say "hi"`}, `"say \"hi\"";` + "\n"},
		{"integer number", &jsast.ENumber{Value: 3}, "3;\n"},
		{"float number", &jsast.ENumber{Value: 1.5}, "1.5;\n"},
		{"bool", &jsast.EBool{Value: true}, "true;\n"},
		{"null", &jsast.ENull{}, "null;\n"},
		{"undefined hole", &jsast.EUndefined{}, "void 0;\n"},
		{"array", &jsast.EArray{Items: []jsast.Expr{&jsast.ENumber{Value: 1}, &jsast.ENumber{Value: 2}}}, "[1, 2];\n"},
		{
			"object with ident-like and exotic keys",
			&jsast.EObject{Properties: []jsast.Property{
				{Kind: jsast.PropertyNormal, Key: &jsast.EString{Value: "a"}, Value: &jsast.ENumber{Value: 1}},
				{Kind: jsast.PropertyNormal, Key: &jsast.EString{Value: "a-b"}, Value: &jsast.ENumber{Value: 2}},
			}},
			`{ a: 1, "a-b": 2 };` + "\n",
		},
		{"empty object", &jsast.EObject{}, "{};\n"},
		{
			"spread property",
			&jsast.EObject{Properties: []jsast.Property{
				{Kind: jsast.PropertySpread, Value: &jsast.EIdent{Name: "rest"}},
			}},
			"{ ...rest };\n",
		},
		{
			"nested call and member",
			&jsast.ECall{
				Target: &jsast.EDot{Target: &jsast.EIdent{Name: "console"}, Name: "log"},
				Args:   []jsast.Expr{&jsast.ERaw{Text: "x + 1"}},
			},
			"console.log(x + 1);\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, printOne(&jsast.SExpr{Value: test.expr}))
		})
	}
}

func TestPrintBody(t *testing.T) {
	p := New()
	p.PrintBody([]jsast.Stmt{
		&jsast.SRaw{Text: "const x = 1;"},
		&jsast.SExpr{Value: &jsast.EIdent{Name: "x"}},
	})
	assert.Equal(t, "const x = 1;\nx;\n", p.String())
}
