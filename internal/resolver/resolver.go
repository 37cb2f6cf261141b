// Package resolver maps import specifiers to module paths. It supports
// the ESM and CommonJS resolution patterns the bundler needs: relative
// paths with extension probing, directory index files, and bare package
// imports through node_modules with package.json entry fields.
package resolver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/standardbeagle/fastpack/internal/config"
)

// ResolutionKind classifies a resolution result.
type ResolutionKind uint8

const (
	ResolutionNotFound ResolutionKind = iota
	ResolutionFile
	ResolutionPackage
	ResolutionBuiltin
	ResolutionExternal
)

// Resolution is the outcome of resolving one specifier.
type Resolution struct {
	RequestPath  string
	ResolvedPath string
	Kind         ResolutionKind
	IsExternal   bool
}

// PackageJSON is the subset of package.json the resolver reads.
type PackageJSON struct {
	Name    string `json:"name"`
	Main    string `json:"main"`
	Module  string `json:"module"`
	Browser string `json:"browser"`
	Type    string `json:"type"` // "module" for ESM, "commonjs" or empty for CommonJS
}

// probeExtensions is the extension search order for extensionless
// specifiers.
var probeExtensions = []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx", ".json", ".css"}

// nodeBuiltins are specifiers always kept external on any platform.
var nodeBuiltins = map[string]bool{
	"assert": true, "buffer": true, "child_process": true, "crypto": true,
	"events": true, "fs": true, "http": true, "https": true, "net": true,
	"os": true, "path": true, "process": true, "stream": true, "url": true,
	"util": true, "zlib": true,
}

// Resolver resolves import specifiers relative to a project root.
// Safe for concurrent use; package.json reads are cached.
type Resolver struct {
	rootPath string
	options  *config.NormalizedOptions

	mu           sync.Mutex
	packageJSONs map[string]*PackageJSON
}

// New creates a resolver rooted at the options' cwd.
func New(options *config.NormalizedOptions) *Resolver {
	return &Resolver{
		rootPath:     options.Cwd,
		options:      options,
		packageJSONs: make(map[string]*PackageJSON),
	}
}

// Resolve resolves a specifier imported from the given file.
func (r *Resolver) Resolve(specifier, importer string) Resolution {
	if r.options.IsExternal(specifier) {
		return Resolution{RequestPath: specifier, Kind: ResolutionExternal, IsExternal: true}
	}
	if isBuiltinModule(specifier) {
		return Resolution{RequestPath: specifier, Kind: ResolutionBuiltin, IsExternal: true}
	}

	fromDir := r.rootPath
	if importer != "" {
		fromDir = filepath.Dir(importer)
	}

	switch {
	case isRelativeImport(specifier):
		return r.resolvePath(specifier, filepath.Join(fromDir, specifier))
	case filepath.IsAbs(specifier):
		return r.resolvePath(specifier, specifier)
	default:
		return r.resolvePackageImport(specifier, fromDir)
	}
}

func (r *Resolver) resolvePath(specifier, targetPath string) Resolution {
	targetPath = filepath.Clean(targetPath)

	if resolved, ok := r.tryResolveFile(targetPath); ok {
		return Resolution{RequestPath: specifier, ResolvedPath: resolved, Kind: ResolutionFile}
	}
	if resolved, ok := r.tryResolveDirectory(targetPath); ok {
		return Resolution{RequestPath: specifier, ResolvedPath: resolved, Kind: ResolutionFile}
	}
	return Resolution{RequestPath: specifier, Kind: ResolutionNotFound}
}

// tryResolveFile probes the path as-is, then with each extension.
func (r *Resolver) tryResolveFile(path string) (string, bool) {
	if isFile(path) {
		return path, true
	}
	for _, ext := range probeExtensions {
		probe := path + ext
		if isFile(probe) {
			return probe, true
		}
	}
	return "", false
}

// tryResolveDirectory probes package.json entry fields, then index files.
func (r *Resolver) tryResolveDirectory(dir string) (string, bool) {
	if !isDir(dir) {
		return "", false
	}
	if pkg := r.loadPackageJSON(dir); pkg != nil {
		if entry := r.entryField(pkg); entry != "" {
			if resolved, ok := r.tryResolveFile(filepath.Join(dir, entry)); ok {
				return resolved, true
			}
		}
	}
	return r.tryResolveFile(filepath.Join(dir, "index"))
}

func (r *Resolver) resolvePackageImport(specifier, fromDir string) Resolution {
	for dir := fromDir; ; dir = filepath.Dir(dir) {
		nodeModules := filepath.Join(dir, "node_modules")
		if isDir(nodeModules) {
			packageDir, subpath := splitPackageSpecifier(nodeModules, specifier)
			if packageDir != "" && isDir(packageDir) {
				if subpath != "" {
					return r.resolvePath(specifier, filepath.Join(packageDir, subpath))
				}
				if resolved, ok := r.tryResolveDirectory(packageDir); ok {
					return Resolution{RequestPath: specifier, ResolvedPath: resolved, Kind: ResolutionPackage}
				}
			}
		}
		if dir == filepath.Dir(dir) || dir == r.rootPath {
			break
		}
	}
	// Unresolvable bare imports are treated as external rather than
	// failing the build; node decides at runtime for the cjs format.
	return Resolution{RequestPath: specifier, Kind: ResolutionExternal, IsExternal: true}
}

// splitPackageSpecifier splits "pkg/sub/path" (scoped or not) into the
// package directory under node_modules and the remaining subpath.
func splitPackageSpecifier(nodeModules, specifier string) (string, string) {
	if strings.HasPrefix(specifier, "@") {
		parts := strings.SplitN(specifier, "/", 3)
		if len(parts) < 2 {
			return "", ""
		}
		sub := ""
		if len(parts) == 3 {
			sub = parts[2]
		}
		return filepath.Join(nodeModules, parts[0], parts[1]), sub
	}
	parts := strings.SplitN(specifier, "/", 2)
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	return filepath.Join(nodeModules, parts[0]), sub
}

// entryField picks the package entry by platform: browser builds prefer
// the browser field, then module, then main.
func (r *Resolver) entryField(pkg *PackageJSON) string {
	if r.options.Platform == config.PlatformBrowser && pkg.Browser != "" {
		return pkg.Browser
	}
	if pkg.Module != "" {
		return pkg.Module
	}
	return pkg.Main
}

// loadPackageJSON reads and caches the package.json in dir, or nil.
func (r *Resolver) loadPackageJSON(dir string) *PackageJSON {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.packageJSONs[dir]; ok {
		return cached
	}
	var pkg *PackageJSON
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err == nil {
		parsed := &PackageJSON{}
		if json.Unmarshal(data, parsed) == nil {
			pkg = parsed
		}
	}
	r.packageJSONs[dir] = pkg
	return pkg
}

// NearestPackageType walks up from dir looking for a package.json "type"
// field. Returns "module", "commonjs", or "" when none declares one.
func (r *Resolver) NearestPackageType(dir string) string {
	for ; ; dir = filepath.Dir(dir) {
		if pkg := r.loadPackageJSON(dir); pkg != nil && pkg.Type != "" {
			return pkg.Type
		}
		if dir == filepath.Dir(dir) || dir == r.rootPath {
			return ""
		}
	}
}

func isRelativeImport(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".."
}

func isBuiltinModule(specifier string) bool {
	if strings.HasPrefix(specifier, "node:") {
		return true
	}
	return nodeBuiltins[specifier]
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
