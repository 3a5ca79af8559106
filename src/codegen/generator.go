package codegen

import (
	"fmt"

	"sirgen/src/sir"
	"sirgen/src/util"
)

// generator.go holds the owning type and the Generate entry point, which
// emits the top driver (top.go, spec section 4.6) first: it holds the single naming/buffer/type-registry state for one module and
// walks the program's functions through a worklist, exactly once each,
// discovering new functions to lower from JumpFunction/ParallelFor
// terminators as it goes (spec section 4.3's "idempotent function
// emission" requirement, tested in generator_test.go).

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// LlvmGenerator is the single-use, single-threaded code generator for one
// SIR program (spec section 5: "must not be shared across goroutines").
type LlvmGenerator struct {
	n                 *naming
	mod               moduleBuffer
	types             *typeRegistry
	seen              map[int]bool
	queue             *util.Worklist
	prog              *sir.Program
	cudfDeclared      map[string]bool
	boundCheckEmitted map[int]bool
	trampolineEmitted map[int]bool
	loopBody          map[int]sir.ParallelFor
	argStructs        map[int]argStructInfo
}

// argStructInfo is the memoized bare argument-struct type for one
// function's sorted parameters (loop.go's buildArgStruct/emitTrampoline).
type argStructInfo struct {
	name       string
	fieldNames []string
}

// funcCtx carries the per-function emission state shared by the
// statement/terminator/loop lowerers: the function body's own line buffer
// (flushed into the module body once complete), and the values every
// statement may need to reference (current thread id, current work
// descriptor pointer, current run id), established once in the entry
// block (spec section 4.3 step 2).
type funcCtx struct {
	g       *LlvmGenerator
	fn      *sir.Function
	buf     util.Buffer
	tid     string
	workVar string
	runVar  string
}

// ---------------------
// ----- functions -----
// ---------------------

// NewGenerator allocates a fresh generator for one module.
func NewGenerator() *LlvmGenerator {
	return &LlvmGenerator{
		n:     &naming{},
		seen:  make(map[int]bool),
		queue: &util.Worklist{},
	}
}

// Generate lowers prog into a complete LLIR module (spec section 4.6).
func (g *LlvmGenerator) Generate(prog *sir.Program) (string, error) {
	g.prog = prog
	g.mod = moduleBuffer{}
	g.types = newTypeRegistry(g.n, &g.mod.prelude)

	g.mod.prelude.AddString("; generated module, do not edit by hand")
	for _, d := range runtimeDecls {
		g.mod.prelude.AddString(d)
	}
	g.mod.prelude.AddString("")

	if err := g.lowerTopDriver(prog); err != nil {
		return "", err
	}

	g.queue.Push(0)
	g.seen[0] = true
	for {
		id, ok := g.queue.Pop()
		if !ok {
			break
		}
		fn := prog.FuncByID(id)
		if fn == nil {
			return "", fmt.Errorf("reference to undefined function %d", id)
		}
		if pf, ok := g.loopBody[id]; ok {
			if err := g.lowerLoopBodyFunction(fn, pf); err != nil {
				return "", fmt.Errorf("function %d: %w", id, err)
			}
			continue
		}
		if err := g.lowerFunction(fn); err != nil {
			return "", fmt.Errorf("function %d: %w", id, err)
		}
	}
	return g.mod.result(), nil
}

// enqueue marks id for lowering if it has not already been seen, giving
// idempotent emission regardless of how many terminators reference it.
func (g *LlvmGenerator) enqueue(id int) {
	if g.seen[id] {
		return
	}
	g.seen[id] = true
	g.queue.Push(id)
}

// registerLoopBody records that id is the body of a ParallelFor, so
// Generate dispatches it to lowerLoopBodyFunction instead of lowerFunction
// once popped off the worklist.
func (g *LlvmGenerator) registerLoopBody(pf sir.ParallelFor) {
	if g.loopBody == nil {
		g.loopBody = make(map[int]sir.ParallelFor)
	}
	g.loopBody[pf.Body] = pf
}

// fresh returns a new SSA temporary name.
func (fc *funcCtx) fresh() string { return fc.g.n.temp() }

// emit appends one indented instruction line to the function body.
func (fc *funcCtx) emit(format string, args ...interface{}) {
	fc.buf.AddString("  " + fmt.Sprintf(format, args...))
}

// emitLabel appends a label line: name followed by a colon, with no
// indentation. name must not already end in a colon.
func (fc *funcCtx) emitLabel(name string) {
	fc.buf.AddString(name + ":")
}

// bldTypeName returns the memoized LLIR type name for a builder type,
// assuming it has already been registered (true for every Builder symbol,
// since function/local declarations register all of their types up
// front - see lowerFunction).
func (fc *funcCtx) bldTypeName(b sir.Builder) string {
	name, err := fc.g.types.get(b)
	if err != nil {
		return "%bld.invalid"
	}
	return name
}
