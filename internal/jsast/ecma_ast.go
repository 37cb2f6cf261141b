package jsast

import (
	"sync"

	"github.com/standardbeagle/fastpack/internal/alloc"
)

// Arena owns the slice storage backing one module's AST. Node structs are
// garbage-collected as usual, but the hot slices (statement bodies,
// property lists, call arguments) are drawn from shared slab pools and
// returned when the AST is released, so a large build does not thrash the
// GC during rewrite passes.
type Arena struct {
	stmtSlab *alloc.SlabAllocator[Stmt]
	propSlab *alloc.SlabAllocator[Property]

	// Slices handed out by this arena, returned to the slabs on Release.
	stmtSlices [][]Stmt
	propSlices [][]Property
}

var (
	sharedStmtSlab = alloc.NewAstSlabAllocator[Stmt]()
	sharedPropSlab = alloc.NewAstSlabAllocator[Property]()
)

// NewArena creates an arena backed by the shared slab pools.
func NewArena() *Arena {
	return &Arena{
		stmtSlab: sharedStmtSlab,
		propSlab: sharedPropSlab,
	}
}

// StmtSlice allocates a statement slice with the given capacity.
func (a *Arena) StmtSlice(capacity int) []Stmt {
	s := a.stmtSlab.Get(capacity)
	a.stmtSlices = append(a.stmtSlices, s)
	return s
}

// PropSlice allocates a property slice with the given capacity.
func (a *Arena) PropSlice(capacity int) []Property {
	s := a.propSlab.Get(capacity)
	a.propSlices = append(a.propSlices, s)
	return s
}

// Release returns all slices drawn from this arena to the slab pools.
// The AST that used them must not be touched afterwards.
func (a *Arena) Release() {
	for _, s := range a.stmtSlices {
		a.stmtSlab.Put(s)
	}
	for _, s := range a.propSlices {
		a.propSlab.Put(s)
	}
	a.stmtSlices = nil
	a.propSlices = nil
}

// Program is a module's top-level statement list.
type Program struct {
	Body []Stmt
}

// EcmaAst pairs a program with the arena its nodes were built against.
// All mutation goes through WithMut so the arena and the body are only
// ever exposed together, and only to one goroutine at a time.
type EcmaAst struct {
	mu      sync.Mutex
	program Program
	arena   *Arena
}

// NewEcmaAst creates an AST owning the given body.
func NewEcmaAst(body []Stmt) *EcmaAst {
	return &EcmaAst{
		program: Program{Body: body},
		arena:   NewArena(),
	}
}

// ProgramCell is the scoped rewrite handle: the arena allocator and a
// mutable view of the program body, valid only inside a WithMut callback.
type ProgramCell struct {
	Body  *[]Stmt
	Alloc *Arena
}

// WithMut runs fn with exclusive access to the program body and its
// arena. The lock is released on every exit path, including panics, so
// an invariant breach inside a rewrite cannot leave the AST wedged for
// whoever recovers at the build boundary.
func (a *EcmaAst) WithMut(fn func(cell ProgramCell)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(ProgramCell{Body: &a.program.Body, Alloc: a.arena})
}

// Body returns a read-only snapshot of the statement list.
func (a *EcmaAst) Body() []Stmt {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.program.Body
}

// BodyLen returns the number of top-level statements.
func (a *EcmaAst) BodyLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.program.Body)
}
