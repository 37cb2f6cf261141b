package diagnostics

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildError(t *testing.T) {
	underlying := errors.New("boom")
	err := NewBuildError(PhaseScan, "parse", underlying).WithFile("/proj/a.js")

	assert.Contains(t, err.Error(), "scan parse failed for /proj/a.js")
	assert.ErrorIs(t, err, underlying)
}

func TestMissingExportError(t *testing.T) {
	err := &MissingExportError{
		Importer:   "/proj/a.js",
		Exporter:   "/proj/b.js",
		Name:       "craeteServer",
		Suggestion: "createServer",
	}
	assert.Contains(t, err.Error(), `does not export "craeteServer"`)
	assert.Contains(t, err.Error(), `did you mean "createServer"?`)

	bare := &MissingExportError{Importer: "a", Exporter: "b", Name: "x"}
	assert.NotContains(t, bare.Error(), "did you mean")
}

func TestDiagnosticsConcurrentAdd(t *testing.T) {
	d := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.AddError(errors.New("e"))
			d.AddWarning(errors.New("w"))
		}()
	}
	wg.Wait()

	assert.True(t, d.HasErrors())
	assert.Len(t, d.Errors(), 16)
	assert.Len(t, d.Warnings(), 16)
}

func TestInvariantfPanics(t *testing.T) {
	assert.PanicsWithValue(t, "invariant violation: bad state 7", func() {
		Invariantf("bad state %d", 7)
	})
}

func TestSuggestName(t *testing.T) {
	tests := []struct {
		name       string
		want       string
		candidates []string
		expected   string
	}{
		{"close typo", "craeteServer", []string{"createServer", "closeServer"}, "createServer"},
		{"nothing close", "zzzz", []string{"createServer"}, ""},
		{"exact match skipped", "a", []string{"a"}, ""},
		{"empty candidates", "x", nil, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := SuggestName(test.want, test.candidates)
			if test.expected == "" {
				require.Empty(t, got)
			} else {
				assert.Equal(t, test.expected, got)
			}
		})
	}
}
