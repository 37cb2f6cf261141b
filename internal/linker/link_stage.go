// Package linker is the link stage: it owns the module table, AST
// table, and symbol database produced by the scan stage, materializes
// lazy exports, and unifies imported references with their exporting
// module's local symbol.
package linker

import (
	"runtime"
	"sync"

	"github.com/standardbeagle/fastpack/internal/config"
	"github.com/standardbeagle/fastpack/internal/debug"
	"github.com/standardbeagle/fastpack/internal/diagnostics"
	"github.com/standardbeagle/fastpack/internal/graph"
	"github.com/standardbeagle/fastpack/internal/scanner"
	"github.com/standardbeagle/fastpack/internal/symbols"
	"github.com/standardbeagle/fastpack/internal/types"
)

// LinkStageOutput is the linked module graph handed to generate.
type LinkStageOutput struct {
	ModuleTable *graph.ModuleTable
	AstTable    *graph.AstTable
	SymbolDb    *symbols.SymbolRefDb
	Entries     []types.ModuleIdx
}

// LinkStage runs the linking passes over one build's module graph.
type LinkStage struct {
	moduleTable *graph.ModuleTable
	astTable    *graph.AstTable
	symbolDb    *symbols.SymbolRefDb
	entries     []types.ModuleIdx
	options     *config.NormalizedOptions
	diags       *diagnostics.Diagnostics
}

// NewLinkStage creates a link stage over the scan output.
func NewLinkStage(scan *scanner.ScanOutput, options *config.NormalizedOptions, diags *diagnostics.Diagnostics) *LinkStage {
	return &LinkStage{
		moduleTable: scan.ModuleTable,
		astTable:    scan.AstTable,
		symbolDb:    scan.SymbolDb,
		entries:     scan.Entries,
		options:     options,
		diags:       diags,
	}
}

// Link runs all passes and returns the linked graph. The tables are
// mutated in place; the returned output aliases them.
func (ls *LinkStage) Link() *LinkStageOutput {
	ls.generateLazyExport()
	ls.bindImportsExports()
	ls.populateSymbolFlags()
	debug.LogLink("linked %d modules\n", ls.moduleTable.Len())

	return &LinkStageOutput{
		ModuleTable: ls.moduleTable,
		AstTable:    ls.astTable,
		SymbolDb:    ls.symbolDb,
		Entries:     ls.entries,
	}
}

// forEachNormalModuleParallel visits every normal module from a worker
// pool. Each module is visited by exactly one worker; passes that use
// this must only write module-local state.
func (ls *LinkStage) forEachNormalModuleParallel(fn func(module *graph.NormalModule)) {
	modules := ls.moduleTable.Modules
	workers := runtime.NumCPU()
	if workers > len(modules) {
		workers = len(modules)
	}
	if workers <= 1 {
		for _, m := range modules {
			if normal, ok := graph.AsNormal(m); ok {
				fn(normal)
			}
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (len(modules) + workers - 1) / workers
	for start := 0; start < len(modules); start += chunk {
		end := start + chunk
		if end > len(modules) {
			end = len(modules)
		}
		wg.Add(1)
		go func(slice []graph.Module) {
			defer wg.Done()
			for _, m := range slice {
				if normal, ok := graph.AsNormal(m); ok {
					fn(normal)
				}
			}
		}(modules[start:end])
	}
	wg.Wait()
}

// populateSymbolFlags marks per-module synthetic bindings. The writes
// are disjoint across modules, so the pass runs parallel.
func (ls *LinkStage) populateSymbolFlags() {
	ls.forEachNormalModuleParallel(func(module *graph.NormalModule) {
		local := ls.symbolDb.Local(module.ModuleIdx)
		if local == nil {
			return
		}
		// Namespace objects and materialized defaults are written once.
		local.SetFlags(module.NamespaceObjectRef.Symbol, types.SymbolIsNotReassigned)
		local.SetFlags(module.DefaultExportRef.Symbol, types.SymbolIsNotReassigned)
	})
}
