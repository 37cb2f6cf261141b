// Package config holds bundler options and their file-based loading.
// Options arrive from three layers, later layers winning: defaults, a
// config file (fastpack.toml or .fastpack.kdl), and CLI flag overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// OutputFormat selects the module format of emitted chunks.
type OutputFormat string

const (
	FormatEsm  OutputFormat = "esm"
	FormatCjs  OutputFormat = "cjs"
	FormatIife OutputFormat = "iife"
	FormatUmd  OutputFormat = "umd"
)

// Platform biases resolution defaults.
type Platform string

const (
	PlatformBrowser Platform = "browser"
	PlatformNode    Platform = "node"
)

// Options are the raw, user-provided bundler options.
type Options struct {
	// Input lists entry modules, relative to Cwd.
	Input []string `toml:"input"`

	// Cwd anchors all relative paths. Defaults to the working directory.
	Cwd string `toml:"cwd"`

	// OutDir receives emitted chunks.
	OutDir string `toml:"outdir"`

	// Format picks the output module format.
	Format OutputFormat `toml:"format"`

	Platform Platform `toml:"platform"`

	// External lists glob patterns for import specifiers kept outside
	// the bundle.
	External []string `toml:"external"`

	// EntryFileNames is the chunk filename pattern. [name] and [hash]
	// are substituted.
	EntryFileNames string `toml:"entry_filenames"`

	// GlobalName names the IIFE/UMD global.
	GlobalName string `toml:"global_name"`

	Sourcemap bool `toml:"sourcemap"`
	Watch     bool `toml:"watch"`
}

// NormalizedOptions are options with defaults applied and paths made
// absolute. The link stage reads them but never mutates them.
type NormalizedOptions struct {
	Input          []string
	Cwd            string
	OutDir         string
	Format         OutputFormat
	Platform       Platform
	External       []string
	EntryFileNames string
	GlobalName     string
	Sourcemap      bool
	Watch          bool
}

// Normalize validates opts and fills defaults.
func Normalize(opts Options) (*NormalizedOptions, error) {
	if len(opts.Input) == 0 {
		return nil, fmt.Errorf("no input entries configured")
	}

	cwd := opts.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cwd = wd
	}
	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cwd %q: %w", cwd, err)
	}

	format := opts.Format
	if format == "" {
		format = FormatEsm
	}
	switch format {
	case FormatEsm, FormatCjs, FormatIife, FormatUmd:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}

	platform := opts.Platform
	if platform == "" {
		platform = PlatformBrowser
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = "dist"
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(absCwd, outDir)
	}

	entryFileNames := opts.EntryFileNames
	if entryFileNames == "" {
		entryFileNames = "[name].js"
	}

	for _, pattern := range opts.External {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid external pattern %q", pattern)
		}
	}

	if (format == FormatIife || format == FormatUmd) && opts.GlobalName == "" {
		return nil, fmt.Errorf("format %q requires global_name", format)
	}

	return &NormalizedOptions{
		Input:          append([]string(nil), opts.Input...),
		Cwd:            absCwd,
		OutDir:         outDir,
		Format:         format,
		Platform:       platform,
		External:       append([]string(nil), opts.External...),
		EntryFileNames: entryFileNames,
		GlobalName:     opts.GlobalName,
		Sourcemap:      opts.Sourcemap,
		Watch:          opts.Watch,
	}, nil
}

// IsExternal reports whether an import specifier matches any external
// pattern.
func (o *NormalizedOptions) IsExternal(specifier string) bool {
	for _, pattern := range o.External {
		if ok, err := doublestar.Match(pattern, specifier); err == nil && ok {
			return true
		}
	}
	return false
}
