package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fastpack/internal/bundler"
	"github.com/standardbeagle/fastpack/internal/config"
)

func TestWatcherRebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	entry := filepath.Join(root, "main.js")
	require.NoError(t, os.WriteFile(entry, []byte("export const a = 1\n"), 0644))

	b, err := bundler.New(config.Options{
		Input:  []string{"./main.js"},
		Cwd:    root,
		OutDir: filepath.Join(root, "dist"),
	})
	require.NoError(t, err)
	defer b.Close()

	w, err := New(b)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	results := make(chan *bundler.BundleResult, 4)
	w.OnRebuild = func(result *bundler.BundleResult, err error) {
		if err == nil {
			results <- result
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	// Initial build.
	select {
	case result := <-results:
		require.Len(t, result.Chunks, 1)
		assert.Contains(t, result.Chunks[0].Code, "const a = 1")
	case <-time.After(5 * time.Second):
		t.Fatal("initial build did not complete")
	}

	// A change triggers a debounced rebuild.
	require.NoError(t, os.WriteFile(entry, []byte("export const a = 2\n"), 0644))
	select {
	case result := <-results:
		assert.Contains(t, result.Chunks[0].Code, "const a = 2")
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild did not complete")
	}

	cancel()
	select {
	case err := <-done:
		assert.True(t, err == nil || strings.Contains(err.Error(), "context canceled"))
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
