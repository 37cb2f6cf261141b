// Package bundler is the public facade: options in, chunks out. It
// orchestrates the scan, link, and generate stages and owns file
// emission.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/standardbeagle/fastpack/internal/config"
	"github.com/standardbeagle/fastpack/internal/diagnostics"
	"github.com/standardbeagle/fastpack/internal/generate"
	"github.com/standardbeagle/fastpack/internal/graph"
	"github.com/standardbeagle/fastpack/internal/linker"
	"github.com/standardbeagle/fastpack/internal/resolver"
	"github.com/standardbeagle/fastpack/internal/scanner"
)

// ErrClosed is returned by Generate and Write after Close.
var ErrClosed = errors.New("bundler is already closed, no more calls to Generate or Write are allowed")

// BundleResult is the outcome of one build.
type BundleResult struct {
	Chunks   []generate.OutputChunk
	Warnings []error

	// WatchFiles lists every file the build read, for watch mode.
	WatchFiles []string
}

// Bundler runs builds for one set of options. It may run many builds
// over its lifetime in watch mode; the scanner's parse cache carries
// between them.
type Bundler struct {
	options  *config.NormalizedOptions
	resolver *resolver.Resolver
	scanner  *scanner.Scanner
	closed   bool
}

// New creates a bundler from raw options.
func New(opts config.Options) (*Bundler, error) {
	options, err := config.Normalize(opts)
	if err != nil {
		return nil, err
	}
	res := resolver.New(options)
	scan, err := scanner.New(options, res)
	if err != nil {
		return nil, err
	}
	return &Bundler{options: options, resolver: res, scanner: scan}, nil
}

// Options returns the normalized options.
func (b *Bundler) Options() *config.NormalizedOptions {
	return b.options
}

// Generate runs a build and returns chunks without writing them.
func (b *Bundler) Generate(ctx context.Context) (*BundleResult, error) {
	if b.closed {
		return nil, ErrClosed
	}
	return b.bundleUp(ctx)
}

// Write runs a build and writes chunks under the configured outdir.
func (b *Bundler) Write(ctx context.Context) (*BundleResult, error) {
	if b.closed {
		return nil, ErrClosed
	}
	result, err := b.bundleUp(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(b.options.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create output directory %s: %w", b.options.OutDir, err)
	}
	for _, chunk := range result.Chunks {
		dest := filepath.Join(b.options.OutDir, chunk.FileName)
		if dir := filepath.Dir(dest); dir != b.options.OutDir {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("could not create directory %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(dest, []byte(chunk.Code), 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", dest, err)
		}
	}
	return result, nil
}

// Close marks the bundler finished. Further builds fail with ErrClosed.
func (b *Bundler) Close() {
	b.closed = true
}

func (b *Bundler) bundleUp(ctx context.Context) (*BundleResult, error) {
	diags := diagnostics.New()

	scanOut, err := b.scanner.Scan(ctx, diags)
	if err != nil {
		return nil, err
	}
	if diags.HasErrors() {
		return nil, errors.Join(diags.Errors()...)
	}

	linkOut := linker.NewLinkStage(scanOut, b.options, diags).Link()
	if diags.HasErrors() {
		return nil, errors.Join(diags.Errors()...)
	}

	bundleOut, err := generate.New(linkOut, b.options).Generate()
	if err != nil {
		return nil, err
	}

	result := &BundleResult{
		Chunks:   bundleOut.Chunks,
		Warnings: diags.Warnings(),
	}
	for _, m := range linkOut.ModuleTable.Modules {
		if normal, ok := graph.AsNormal(m); ok {
			result.WatchFiles = append(result.WatchFiles, normal.Path)
		}
	}
	return result, nil
}
