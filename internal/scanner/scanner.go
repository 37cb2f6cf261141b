// Package scanner is the scan stage: it expands entries, walks the
// import graph, parses each module, and builds the module table, AST
// table, and symbol database the link stage owns from then on.
package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/fastpack/internal/config"
	"github.com/standardbeagle/fastpack/internal/debug"
	"github.com/standardbeagle/fastpack/internal/diagnostics"
	"github.com/standardbeagle/fastpack/internal/graph"
	"github.com/standardbeagle/fastpack/internal/jsast"
	"github.com/standardbeagle/fastpack/internal/resolver"
	"github.com/standardbeagle/fastpack/internal/symbols"
	"github.com/standardbeagle/fastpack/internal/types"
)

// parseCacheSize bounds the watch-mode parse cache. Rebuilds touch a
// handful of files; everything else is served from here.
const parseCacheSize = 4096

// ScanOutput is what the scan stage hands the link stage.
type ScanOutput struct {
	ModuleTable *graph.ModuleTable
	AstTable    *graph.AstTable
	SymbolDb    *symbols.SymbolRefDb
	Entries     []types.ModuleIdx
}

// parsedModule is the parse result for one file, cacheable across
// watch-mode rebuilds.
type parsedModule struct {
	Source     string
	Hash       uint64
	ModuleType types.ModuleType
	Esm        *esmScan
	Shape      scriptShape
	Lazy       bool
	Body       []jsast.Stmt
}

// Scanner drives the scan stage. One scanner lives for the life of a
// bundler, so its parse cache carries across watch-mode rebuilds.
type Scanner struct {
	options  *config.NormalizedOptions
	resolver *resolver.Resolver
	cache    *lru.Cache[string, *parsedModule]
}

// New creates a scanner.
func New(options *config.NormalizedOptions, res *resolver.Resolver) (*Scanner, error) {
	cache, err := lru.New[string, *parsedModule](parseCacheSize)
	if err != nil {
		return nil, err
	}
	return &Scanner{options: options, resolver: res, cache: cache}, nil
}

// Scan builds the module graph from the configured entries.
func (s *Scanner) Scan(ctx context.Context, diags *diagnostics.Diagnostics) (*ScanOutput, error) {
	out := &ScanOutput{
		ModuleTable: &graph.ModuleTable{},
		AstTable:    &graph.AstTable{},
		SymbolDb:    symbols.NewSymbolRefDb(),
	}

	entryPaths, err := s.resolveEntries()
	if err != nil {
		return nil, err
	}

	// BFS over the import graph. Each wave parses in parallel, then
	// module construction runs serially in sorted path order so module
	// indices are deterministic regardless of goroutine scheduling.
	// Records that point at modules from later waves carry only the
	// resolved path; indices are patched once the walk completes.
	seen := map[string]types.ModuleIdx{}
	externalSeen := map[string]types.ModuleIdx{}
	wave := entryPaths

	for len(wave) > 0 {
		parsed, err := s.parseWave(ctx, wave)
		if err != nil {
			return nil, err
		}

		var next []string
		nextSeen := map[string]bool{}
		for _, path := range wave {
			if _, dup := seen[path]; dup {
				continue
			}
			pm := parsed[path]
			idx := s.addModule(out, path, pm, diags, seen, externalSeen, func(dep string) {
				if _, ok := seen[dep]; !ok && !nextSeen[dep] {
					nextSeen[dep] = true
					next = append(next, dep)
				}
			})
			debug.LogScan("module %d: %s (%s)\n", idx, path, pm.ModuleType)
		}
		sort.Strings(next)
		wave = next
	}

	s.patchImportRecords(out, seen)

	for _, path := range entryPaths {
		if idx, ok := seen[path]; ok {
			out.Entries = append(out.Entries, idx)
		}
	}
	if len(out.Entries) == 0 {
		return nil, fmt.Errorf("no entry modules could be scanned")
	}
	return out, nil
}

// resolveEntries expands the configured inputs to absolute file paths.
func (s *Scanner) resolveEntries() ([]string, error) {
	var paths []string
	for _, input := range s.options.Input {
		specifier := input
		if !strings.HasPrefix(specifier, ".") && !filepath.IsAbs(specifier) {
			specifier = "./" + specifier
		}
		res := s.resolver.Resolve(specifier, "")
		if res.Kind == resolver.ResolutionNotFound || res.ResolvedPath == "" {
			return nil, &diagnostics.ResolveError{Importer: "<entry>", Specifier: input}
		}
		paths = append(paths, res.ResolvedPath)
	}
	sort.Strings(paths)
	return paths, nil
}

// parseWave parses a wave of files concurrently.
func (s *Scanner) parseWave(ctx context.Context, wave []string) (map[string]*parsedModule, error) {
	results := make([]*parsedModule, len(wave))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxParseWorkers())
	for i, path := range wave {
		g.Go(func() error {
			pm, err := s.parseFile(path)
			if err != nil {
				return &diagnostics.BuildError{Phase: diagnostics.PhaseScan, Operation: "parse", FilePath: path, Underlying: err}
			}
			results[i] = pm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*parsedModule, len(wave))
	for i, path := range wave {
		out[path] = results[i]
	}
	return out, nil
}

func maxParseWorkers() int {
	n := runtime.NumCPU()
	if n < 2 {
		return 2
	}
	return n
}

// parseFile loads and parses one file, via the cache when the content
// hash is unchanged.
func (s *Scanner) parseFile(path string) (*parsedModule, error) {
	source, err := readSource(path)
	if err != nil {
		return nil, err
	}
	hash := sourceHash(source)

	if cached, ok := s.cache.Get(path); ok && cached.Hash == hash {
		return cached, nil
	}

	pm := &parsedModule{
		Source:     source,
		Hash:       hash,
		ModuleType: types.ModuleTypeFromPath(path),
	}

	switch pm.ModuleType {
	case types.ModuleTypeJson:
		body, err := lowerJSONModule(source)
		if err != nil {
			return nil, err
		}
		pm.Body = body
		pm.Lazy = true

	case types.ModuleTypeCss, types.ModuleTypeText:
		// Non-JS assets bundle as a default string export.
		pm.Body = []jsast.Stmt{&jsast.SExpr{Value: &jsast.EString{Value: source}}}
		pm.Lazy = true

	default:
		defaultLocal := identifierFromPath(path) + "_default"
		pm.Esm = scanEsmSurface(source, defaultLocal)
		if !pm.Esm.HasEsmSyntax {
			pm.Shape = parseScriptShape(source)
			if pm.Shape.SingleExpr && !pm.Esm.HasCjsMarkers && len(pm.Esm.RequireSpecs) == 0 {
				pm.Lazy = true
				pm.Body = []jsast.Stmt{&jsast.SExpr{Value: &jsast.ERaw{Text: lazyExpressionText(source)}}}
			}
		}
		if !pm.Lazy {
			body := source
			if pm.Esm.HasEsmSyntax {
				body = strings.Join(pm.Esm.BodyLines, "\n")
			}
			if strings.TrimSpace(body) != "" {
				pm.Body = []jsast.Stmt{&jsast.SRaw{Text: body}}
			}
		}
	}

	s.cache.Add(path, pm)
	return pm, nil
}

// addModule constructs the module record, mints its symbols, resolves
// its dependencies, and installs everything into the output tables.
func (s *Scanner) addModule(
	out *ScanOutput,
	path string,
	pm *parsedModule,
	diags *diagnostics.Diagnostics,
	seen map[string]types.ModuleIdx,
	externalSeen map[string]types.ModuleIdx,
	enqueue func(dep string),
) types.ModuleIdx {
	base := identifierFromPath(path)
	module := &graph.NormalModule{
		Path:         path,
		ModuleType:   pm.ModuleType,
		NamedExports: map[string]graph.LocalExport{},
		StmtInfos:    graph.NewStmtInfos(),
		Source:       pm.Source,
	}

	// Installing the module before wiring keeps index assignment in one
	// place; externals discovered during wiring land after it.
	idx := out.ModuleTable.Push(module)
	module.ModuleIdx = idx
	seen[path] = idx

	local := symbols.NewLocalSymbolTable(idx, nil)
	module.NamespaceObjectRef = types.SymbolRef{Owner: idx, Symbol: local.CreateSymbol(types.SyntheticSpan, base+"_ns", 0, 0)}
	module.DefaultExportRef = types.SymbolRef{Owner: idx, Symbol: local.CreateSymbol(types.SyntheticSpan, base+"_default", 0, 0)}
	module.StmtInfos.DeclareSymbolForStmt(0, module.NamespaceObjectRef)

	module.ExportsKind = s.exportsKindFor(path, pm)
	if pm.Lazy {
		module.Meta |= types.MetaHasLazyExport
	}
	if pm.Esm != nil {
		if pm.Esm.HasEsmSyntax {
			module.Meta |= types.MetaHasEsmSyntax
		}
		if pm.Esm.HasCjsMarkers {
			module.AstUsage |= types.AstUsageModuleRef | types.AstUsageExportsRef
		}
		if len(pm.Esm.RequireSpecs) > 0 {
			module.AstUsage |= types.AstUsageRequireRef
		}
	}

	// Declared top-level symbols, by name, for import/export binding.
	declared := map[string]types.SymbolRef{}
	declare := func(name string) types.SymbolRef {
		if ref, ok := declared[name]; ok {
			return ref
		}
		flags := types.SymbolRefFlags(0)
		if isConstDecl(pm.Source, name) {
			flags = types.SymbolIsConst | types.SymbolIsNotReassigned
		}
		ref := types.SymbolRef{Owner: idx, Symbol: local.CreateSymbol(types.SyntheticSpan, name, flags, 0)}
		declared[name] = ref
		return ref
	}
	for _, name := range pm.Shape.TopLevelNames {
		declare(name)
	}

	if pm.Esm != nil {
		s.wireEsmSurface(module, pm.Esm, declare, diags, out, externalSeen, enqueue)
	}

	// One statement-info slot per top-level statement, after the
	// reserved namespace slot. Raw statements are opaque, so they are
	// assumed observable and carry every declared symbol.
	for _, stmt := range pm.Body {
		info := graph.StmtInfo{}
		_, isRaw := stmt.(*jsast.SRaw)
		info.SideEffect = isRaw
		stmtIdx := module.StmtInfos.Push(info)
		if isRaw {
			for _, name := range sortedKeys(declared) {
				module.StmtInfos.DeclareSymbolForStmt(stmtIdx, declared[name])
			}
		}
	}

	module.EcmaAstIdx = out.AstTable.Push(jsast.NewEcmaAst(pm.Body), idx)
	out.SymbolDb.StoreLocalDb(idx, local)
	return idx
}

// wireEsmSurface turns the surface scan into import records, named
// imports, and named exports.
func (s *Scanner) wireEsmSurface(
	module *graph.NormalModule,
	scan *esmScan,
	declare func(name string) types.SymbolRef,
	diags *diagnostics.Diagnostics,
	out *ScanOutput,
	externalSeen map[string]types.ModuleIdx,
	enqueue func(dep string),
) {
	addRecord := func(specifier string, kind graph.ImportKind) int {
		recordIdx := len(module.ImportRecords)
		record := graph.ImportRecord{Specifier: specifier, Kind: kind, ResolvedIdx: types.InvalidModuleIdx}

		res := s.resolver.Resolve(specifier, module.Path)
		switch {
		case res.Kind == resolver.ResolutionNotFound:
			diags.AddError(&diagnostics.ResolveError{Importer: module.Path, Specifier: specifier})
		case res.IsExternal:
			extIdx, ok := externalSeen[specifier]
			if !ok {
				ext := &graph.ExternalModule{Path: specifier}
				extIdx = out.ModuleTable.Push(ext)
				ext.ModuleIdx = extIdx
				externalSeen[specifier] = extIdx
			}
			record.ResolvedIdx = extIdx
		default:
			record.ResolvedPath = res.ResolvedPath
			enqueue(res.ResolvedPath)
		}
		module.ImportRecords = append(module.ImportRecords, record)
		return recordIdx
	}

	for _, imp := range scan.Imports {
		recordIdx := addRecord(imp.Specifier, graph.ImportStmt)
		if imp.Default != "" {
			module.NamedImports = append(module.NamedImports, graph.NamedImport{LocalRef: declare(imp.Default), Imported: "default", RecordIdx: recordIdx})
		}
		if imp.Namespace != "" {
			module.NamedImports = append(module.NamedImports, graph.NamedImport{LocalRef: declare(imp.Namespace), Imported: "*", RecordIdx: recordIdx})
		}
		for _, imported := range sortedKeys(imp.Named) {
			module.NamedImports = append(module.NamedImports, graph.NamedImport{LocalRef: declare(imp.Named[imported]), Imported: imported, RecordIdx: recordIdx})
		}
	}

	for _, re := range scan.Reexports {
		recordIdx := addRecord(re.Specifier, graph.ImportStmt)
		if re.Star {
			// Star re-exports are kept as graph edges only; their
			// names are not expanded into named exports.
			continue
		}
		for _, exported := range sortedKeys(re.Named) {
			ref := declare("reexport_" + exported)
			module.NamedImports = append(module.NamedImports, graph.NamedImport{LocalRef: ref, Imported: re.Named[exported], RecordIdx: recordIdx})
			module.NamedExports[exported] = graph.LocalExport{Referenced: ref}
		}
	}

	for _, spec := range scan.RequireSpecs {
		addRecord(spec, graph.ImportRequire)
	}

	for _, exp := range scan.Exports {
		module.NamedExports[exp.Name] = graph.LocalExport{Referenced: declare(exp.Local)}
	}
	if scan.HasDefault {
		// The surface scanner rewrote `export default <expr>` into a
		// const declaration whose name matches the reserved default
		// symbol, so the export map can bind straight to it.
		module.NamedExports["default"] = graph.LocalExport{Referenced: module.DefaultExportRef}
	}
}

// patchImportRecords fills in module indices for records resolved to
// paths that were scanned in later waves.
func (s *Scanner) patchImportRecords(out *ScanOutput, seen map[string]types.ModuleIdx) {
	for _, m := range out.ModuleTable.Modules {
		module, ok := graph.AsNormal(m)
		if !ok {
			continue
		}
		for i := range module.ImportRecords {
			record := &module.ImportRecords[i]
			if record.ResolvedIdx == types.InvalidModuleIdx && record.ResolvedPath != "" {
				if idx, ok := seen[record.ResolvedPath]; ok {
					record.ResolvedIdx = idx
				}
			}
		}
	}
}

// exportsKindFor decides how a module surfaces exports.
func (s *Scanner) exportsKindFor(path string, pm *parsedModule) types.ExportsKind {
	switch pm.ModuleType {
	case types.ModuleTypeJson, types.ModuleTypeCss, types.ModuleTypeText:
		return types.ExportsEsm
	}
	if pm.Esm != nil && pm.Esm.HasEsmSyntax {
		return types.ExportsEsm
	}
	if pm.Esm != nil && pm.Esm.HasCjsMarkers {
		return types.ExportsCommonJs
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".cjs" {
		return types.ExportsCommonJs
	}
	if ext == ".mjs" {
		return types.ExportsEsm
	}
	if s.resolver.NearestPackageType(filepath.Dir(path)) == "commonjs" {
		return types.ExportsCommonJs
	}
	if pm.Lazy {
		return types.ExportsEsm
	}
	return types.ExportsNone
}

var identSanitizer = regexp.MustCompile(`[^A-Za-z0-9_$]`)

// identifierFromPath derives a JS identifier from a file's base name.
func identifierFromPath(path string) string {
	base := filepath.Base(path)
	if idx := strings.Index(base, "."); idx > 0 {
		base = base[:idx]
	}
	ident := identSanitizer.ReplaceAllString(base, "_")
	if ident == "" || (ident[0] >= '0' && ident[0] <= '9') {
		ident = "_" + ident
	}
	return ident
}

// isConstDecl reports whether name appears to be declared with const at
// the top level.
func isConstDecl(source, name string) bool {
	return strings.Contains(source, "const "+name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
