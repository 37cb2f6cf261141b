package types

import (
	"path/filepath"
	"strings"
)

// ModuleType classifies a module's source format. It decides which loader
// parses the module and how a lazy body is materialized into exports.
type ModuleType uint8

const (
	ModuleTypeJs ModuleType = iota
	ModuleTypeJsx
	ModuleTypeTs
	ModuleTypeTsx
	ModuleTypeJson
	ModuleTypeCss
	ModuleTypeText
	ModuleTypeEmpty
)

func (mt ModuleType) String() string {
	switch mt {
	case ModuleTypeJs:
		return "js"
	case ModuleTypeJsx:
		return "jsx"
	case ModuleTypeTs:
		return "ts"
	case ModuleTypeTsx:
		return "tsx"
	case ModuleTypeJson:
		return "json"
	case ModuleTypeCss:
		return "css"
	case ModuleTypeText:
		return "text"
	case ModuleTypeEmpty:
		return "empty"
	}
	return "unknown"
}

// ModuleTypeFromPath maps a file extension to a module type. Unknown
// extensions are treated as plain text so they still bundle as a default
// string export instead of failing the build.
func ModuleTypeFromPath(path string) ModuleType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs":
		return ModuleTypeJs
	case ".jsx":
		return ModuleTypeJsx
	case ".ts", ".mts", ".cts":
		return ModuleTypeTs
	case ".tsx":
		return ModuleTypeTsx
	case ".json":
		return ModuleTypeJson
	case ".css":
		return ModuleTypeCss
	default:
		return ModuleTypeText
	}
}

// ExportsKind describes how a module surfaces its exports.
type ExportsKind uint8

const (
	ExportsNone ExportsKind = iota
	ExportsEsm
	ExportsCommonJs
)

func (ek ExportsKind) String() string {
	switch ek {
	case ExportsEsm:
		return "esm"
	case ExportsCommonJs:
		return "commonjs"
	}
	return "none"
}

// EcmaModuleAstUsage records which synthetic bindings a module's text
// touches. Code emission materializes wrapper arguments only for the
// bindings that are actually used.
type EcmaModuleAstUsage uint8

const (
	// AstUsageModuleRef means the module references the `module` object.
	AstUsageModuleRef EcmaModuleAstUsage = 1 << iota

	// AstUsageExportsRef means the module references the `exports` object.
	AstUsageExportsRef

	// AstUsageRequireRef means the module calls `require`.
	AstUsageRequireRef
)

// Has reports whether all bits in other are set.
func (u EcmaModuleAstUsage) Has(other EcmaModuleAstUsage) bool {
	return u&other == other
}

// ModuleMeta carries precomputed per-module predicates set by the scan
// stage and consumed by the link stage.
type ModuleMeta uint8

const (
	// MetaHasLazyExport marks a module whose export shape was deferred at
	// parse time because its body is a single top-level expression.
	MetaHasLazyExport ModuleMeta = 1 << iota

	// MetaHasEsmSyntax marks a module containing static import/export
	// statements.
	MetaHasEsmSyntax
)

// Has reports whether all bits in other are set.
func (m ModuleMeta) Has(other ModuleMeta) bool {
	return m&other == other
}
