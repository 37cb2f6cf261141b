package bundler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/fastpack/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestBundleEsmProject(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.js": `import { greet } from './lib.js'
import config from './config.json'
console.log(greet(config.name))
`,
		"lib.js": `export function greet(name) { return 'hi ' + name }
`,
		"config.json": `{"name": "fastpack", "port": 8080}`,
	})

	b, err := New(config.Options{
		Input:  []string{"./main.js"},
		Cwd:    root,
		OutDir: "dist",
		Format: config.FormatEsm,
	})
	require.NoError(t, err)
	defer b.Close()

	result, err := b.Write(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "main.js", result.Chunks[0].FileName)

	code := result.Chunks[0].Code
	// Dependencies print before the entry.
	assert.Less(t, strings.Index(code, "function greet"), strings.Index(code, "console.log"))
	// The JSON module materialized into const exports plus a default
	// object the importer's binding shim points at.
	assert.Contains(t, code, "const name = \"fastpack\";")
	assert.Contains(t, code, "const port = 8080;")
	assert.Contains(t, code, "const config = config_default;")
	// Import statements are gone from the output.
	assert.NotContains(t, code, "from './lib.js'")

	written, err := os.ReadFile(filepath.Join(root, "dist", "main.js"))
	require.NoError(t, err)
	assert.Equal(t, code, string(written))

	assert.Len(t, result.WatchFiles, 3)
}

func TestBundleLazyCjsEntry(t *testing.T) {
	root := writeProject(t, map[string]string{
		"value.cjs": "42;\n",
	})

	b, err := New(config.Options{
		Input:  []string{"./value.cjs"},
		Cwd:    root,
		Format: config.FormatCjs,
	})
	require.NoError(t, err)
	defer b.Close()

	result, err := b.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)

	// The lazy body materialized into a module.exports assignment and
	// got the CommonJS wrapper.
	code := result.Chunks[0].Code
	assert.Contains(t, code, "module.exports = 42;")
	assert.Contains(t, code, "(function(module, exports) {")
}

func TestBundleIifeFormat(t *testing.T) {
	root := writeProject(t, map[string]string{
		"entry.js": "export const answer = 42\n",
	})

	b, err := New(config.Options{
		Input:      []string{"./entry.js"},
		Cwd:        root,
		Format:     config.FormatIife,
		GlobalName: "App",
	})
	require.NoError(t, err)
	defer b.Close()

	result, err := b.Generate(context.Background())
	require.NoError(t, err)
	code := result.Chunks[0].Code
	assert.Contains(t, code, "var App = (function() {")
	assert.Contains(t, code, "return { answer: answer }")
}

func TestBundleHashedFileNames(t *testing.T) {
	root := writeProject(t, map[string]string{
		"entry.js": "export const a = 1\n",
	})

	b, err := New(config.Options{
		Input:          []string{"./entry.js"},
		Cwd:            root,
		EntryFileNames: "[name]-[hash].js",
	})
	require.NoError(t, err)
	defer b.Close()

	result, err := b.Generate(context.Background())
	require.NoError(t, err)
	name := result.Chunks[0].FileName
	assert.Regexp(t, `^entry-[0-9a-f]{8}\.js$`, name)
}

func TestBundleMissingExportFailsBuild(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.js": "import { craeteServer } from './server.js'\ncraeteServer()\n",
		"server.js": "export function createServer() {}\n",
	})

	b, err := New(config.Options{Input: []string{"./main.js"}, Cwd: root})
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not export")
	assert.Contains(t, err.Error(), "createServer")
}

func TestBundleAfterCloseFails(t *testing.T) {
	root := writeProject(t, map[string]string{"main.js": "export const a = 1\n"})

	b, err := New(config.Options{Input: []string{"./main.js"}, Cwd: root})
	require.NoError(t, err)

	b.Close()
	_, err = b.Generate(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = b.Write(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBundleExternalImports(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.js": "import { h } from 'preact'\nexport const app = h('div')\n",
	})

	b, err := New(config.Options{
		Input:    []string{"./main.js"},
		Cwd:      root,
		External: []string{"preact"},
	})
	require.NoError(t, err)
	defer b.Close()

	result, err := b.Generate(context.Background())
	require.NoError(t, err)
	code := result.Chunks[0].Code
	assert.Contains(t, code, `import * as preact_ns from "preact";`)
	assert.Contains(t, code, "const h = preact_ns.h;")
}
