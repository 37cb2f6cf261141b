package types

// Common system-wide constants
const (
	// File size limits
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB per source file
	// Rationale: Prevents memory exhaustion from large generated
	// bundles being re-ingested as inputs. Source files above this
	// are almost always prebuilt artifacts.

	// MmapThreshold is the size above which sources are mapped
	// instead of read into memory.
	MmapThreshold = 1 * 1024 * 1024 // 1MB

	// DefaultMaxModuleCount bounds a single build's module graph.
	DefaultMaxModuleCount = 100000
)

// ModuleIdx is a dense index into the module table.
type ModuleIdx uint32

// SymbolId is a dense index into one module's symbol table.
type SymbolId uint32

// ChunkIdx is a dense index into the output chunk list.
type ChunkIdx uint32

// StmtInfoIdx is a dense index into a module's statement-info vector.
type StmtInfoIdx uint32

// AstIdx is a dense index into the AST table.
type AstIdx uint32

const (
	InvalidModuleIdx ModuleIdx = ^ModuleIdx(0)
	InvalidSymbolId  SymbolId  = ^SymbolId(0)
	InvalidChunkIdx  ChunkIdx  = ^ChunkIdx(0)
	InvalidAstIdx    AstIdx    = ^AstIdx(0)
)
