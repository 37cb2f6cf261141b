package linker

import (
	"github.com/standardbeagle/fastpack/internal/diagnostics"
	"github.com/standardbeagle/fastpack/internal/graph"
	"github.com/standardbeagle/fastpack/internal/symbols"
	"github.com/standardbeagle/fastpack/internal/types"
)

// bindImportsExports unifies every named import with the symbol its
// exporter declared. The pass is serial: linking mutates the shared
// symbol database (path halving needs exclusive access), and the work
// per import is a couple of pointer chases.
//
// The discipline here is what makes canonical roots deterministic:
// imports always link toward exporters, so the exporting module's
// symbol survives as the root no matter what order modules bind in.
func (ls *LinkStage) bindImportsExports() {
	for _, m := range ls.moduleTable.Modules {
		module, ok := graph.AsNormal(m)
		if !ok {
			continue
		}
		for _, imp := range module.NamedImports {
			ls.bindNamedImport(module, imp)
		}
	}
}

func (ls *LinkStage) bindNamedImport(module *graph.NormalModule, imp graph.NamedImport) {
	record := module.ImportRecords[imp.RecordIdx]
	if record.ResolvedIdx == types.InvalidModuleIdx {
		return // unresolved; the scan stage already reported it
	}

	switch target := ls.moduleTable.Get(record.ResolvedIdx).(type) {
	case *graph.ExternalModule:
		// Externals have no symbol table. The import is rewritten to a
		// property access on a namespace binding owned by the importer;
		// code emission prints the matching import of the external.
		nsRef := ls.externalNamespaceRef(module, imp.RecordIdx, target)
		root := ls.symbolDb.FindMut(imp.LocalRef)
		ls.symbolDb.GetMut(root).NamespaceAlias = &symbols.NamespaceAlias{
			NamespaceRef: nsRef,
			PropertyName: imp.Imported,
		}

	case *graph.NormalModule:
		switch {
		case imp.Imported == "*":
			ls.symbolDb.Link(imp.LocalRef, target.NamespaceObjectRef)

		case target.ExportsKind == types.ExportsCommonJs:
			// Named imports from CommonJS read properties off the
			// exports object at runtime; there is no static binding to
			// link to. The alias lands on the root so it survives any
			// later unification.
			root := ls.symbolDb.FindMut(imp.LocalRef)
			ls.symbolDb.GetMut(root).NamespaceAlias = &symbols.NamespaceAlias{
				NamespaceRef: target.NamespaceObjectRef,
				PropertyName: imp.Imported,
			}

		default:
			export, ok := target.NamedExports[imp.Imported]
			if !ok {
				ls.diags.AddError(&diagnostics.MissingExportError{
					Importer:   module.Path,
					Exporter:   target.Path,
					Name:       imp.Imported,
					Suggestion: diagnostics.SuggestName(imp.Imported, exportNames(target)),
				})
				return
			}
			ls.symbolDb.Link(imp.LocalRef, export.Referenced)
		}
	}
}

// externalNamespaceRef mints (once per import record) the namespace
// symbol that stands in for an external module inside the importer.
func (ls *LinkStage) externalNamespaceRef(module *graph.NormalModule, recordIdx int, external *graph.ExternalModule) types.SymbolRef {
	if module.ExternalNamespaceRefs == nil {
		module.ExternalNamespaceRefs = map[int]types.SymbolRef{}
	}
	if ref, ok := module.ExternalNamespaceRefs[recordIdx]; ok {
		return ref
	}
	ref := ls.symbolDb.CreateSymbol(module.ModuleIdx, identifierFromSpecifier(external.Path)+"_ns")
	module.ExternalNamespaceRefs[recordIdx] = ref
	return ref
}

func exportNames(module *graph.NormalModule) []string {
	names := make([]string, 0, len(module.NamedExports))
	for name := range module.NamedExports {
		names = append(names, name)
	}
	return names
}

// identifierFromSpecifier derives a JS identifier from an external
// specifier like "node:path" or "@scope/pkg".
func identifierFromSpecifier(specifier string) string {
	out := make([]rune, 0, len(specifier))
	for _, r := range specifier {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '$':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		out = append([]rune{'_'}, out...)
	}
	return string(out)
}
