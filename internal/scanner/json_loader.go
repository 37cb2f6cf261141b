package scanner

import (
	"fmt"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/standardbeagle/fastpack/internal/jsast"
)

// lowerJSONModule lowers a JSON source into an object-literal expression
// statement: the lazy shape the link stage materializes into ESM
// exports. Keys keep source order; values stay raw, since every JSON
// value is already a valid JavaScript expression.
func lowerJSONModule(source string) ([]jsast.Stmt, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, fmt.Errorf("empty JSON module")
	}

	// Only object roots materialize into named exports; other roots
	// (arrays, scalars) become a plain default export.
	if !strings.HasPrefix(trimmed, "{") {
		if err := validateJSONValue([]byte(trimmed)); err != nil {
			return nil, err
		}
		return []jsast.Stmt{
			&jsast.SExpr{Value: &jsast.ERaw{Text: trimmed}},
		}, nil
	}

	var properties []jsast.Property
	err := jsonparser.ObjectEach([]byte(trimmed), func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		raw := string(value)
		if dataType == jsonparser.String {
			// jsonparser strips the quotes from string values.
			raw = quoteJSString(string(value))
		}
		properties = append(properties, jsast.Property{
			Kind:  jsast.PropertyNormal,
			Key:   &jsast.EString{Value: string(key)},
			Value: &jsast.ERaw{Text: raw},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	return []jsast.Stmt{
		&jsast.SExpr{Value: &jsast.EObject{Properties: properties}},
	}, nil
}

func validateJSONValue(data []byte) error {
	_, _, _, err := jsonparser.Get(data)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// quoteJSString renders a string as a JS double-quoted literal.
func quoteJSString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
