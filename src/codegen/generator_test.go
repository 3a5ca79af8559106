package codegen

import (
	"strings"
	"testing"

	"sirgen/src/sir"
	"sirgen/src/util"
)

// simpleProgram returns a minimal one-function program: function 0 takes a
// single i64 parameter "n", returns it unchanged.
func simpleProgram() *sir.Program {
	n := sir.Symbol{Name: "n"}
	return &sir.Program{
		TopParams: []sir.SymbolType{{Sym: n, Typ: sir.Scalar{Kind: sir.I64}}},
		Functions: []sir.Function{
			{
				Id:     0,
				Params: []sir.SymbolType{{Sym: n, Typ: sir.Scalar{Kind: sir.I64}}},
				Blocks: []sir.Block{
					{Id: 0, Term: sir.ProgramReturn{Sym: n}},
				},
			},
		},
	}
}

func TestGenerateProducesPreludeAndBody(t *testing.T) {
	g := NewGenerator()
	mod, err := g.Generate(simpleProgram())
	if err != nil {
		t.Fatalf("Generate returned error: %s", err)
	}
	if !strings.Contains(mod, "; PRELUDE:") || !strings.Contains(mod, "; BODY:") {
		t.Fatalf("expected module to contain both prelude and body sections, got:\n%s", mod)
	}
	if !strings.Contains(mod, "define void @f0(") {
		t.Errorf("expected function 0 to be defined, got:\n%s", mod)
	}
}

// TestIdempotentFunctionEmission verifies a function referenced by more
// than one JumpFunction terminator is still lowered exactly once.
func TestIdempotentFunctionEmission(t *testing.T) {
	prog := &sir.Program{
		Functions: []sir.Function{
			{Id: 0, Blocks: []sir.Block{
				{Id: 0, Term: sir.Branch{Cond: sir.Symbol{Name: "n"}, True: 1, False: 2}},
				{Id: 1, Term: sir.JumpFunction{Func: 5}},
				{Id: 2, Term: sir.JumpFunction{Func: 5}},
			}, Locals: []sir.SymbolType{{Sym: sir.Symbol{Name: "n"}, Typ: sir.Scalar{Kind: sir.Bool}}}},
			{Id: 5, Blocks: []sir.Block{{Id: 0, Term: sir.EndFunction{}}}},
		},
	}
	g := NewGenerator()
	mod, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate returned error: %s", err)
	}
	if n := strings.Count(mod, "define void @f5("); n != 1 {
		t.Fatalf("expected function 5 to be defined exactly once, got %d definitions:\n%s", n, mod)
	}
}

// TestCanonicalParameterOrder verifies a function's parameter list in the
// generated definition follows ascending symbol order regardless of the
// order Params was populated in.
func TestCanonicalParameterOrder(t *testing.T) {
	prog := &sir.Program{
		TopParams: []sir.SymbolType{
			{Sym: sir.Symbol{Name: "zeta"}, Typ: sir.Scalar{Kind: sir.I32}},
			{Sym: sir.Symbol{Name: "alpha"}, Typ: sir.Scalar{Kind: sir.I32}},
		},
		Functions: []sir.Function{
			{
				Id: 0,
				Params: []sir.SymbolType{
					{Sym: sir.Symbol{Name: "zeta"}, Typ: sir.Scalar{Kind: sir.I32}},
					{Sym: sir.Symbol{Name: "alpha"}, Typ: sir.Scalar{Kind: sir.I32}},
				},
				Blocks: []sir.Block{{Id: 0, Term: sir.EndFunction{}}},
			},
		},
	}
	g := NewGenerator()
	mod, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate returned error: %s", err)
	}
	alphaIdx := strings.Index(mod, "%alpha")
	zetaIdx := strings.Index(mod, "%zeta")
	if alphaIdx == -1 || zetaIdx == -1 {
		t.Fatalf("expected both parameters present in output:\n%s", mod)
	}
	if alphaIdx > zetaIdx {
		t.Errorf("expected alpha to precede zeta in the canonical parameter order, got:\n%s", mod)
	}
}

// TestTypeRegistryMemoization verifies that two requests for structurally
// identical but independently constructed IR types return the same name
// and only emit the type's helpers once.
func TestTypeRegistryMemoization(t *testing.T) {
	n := &naming{}
	var prelude util.Buffer
	r := newTypeRegistry(n, &prelude)

	vt1 := sir.Vector{Elem: sir.Scalar{Kind: sir.I32}}
	vt2 := sir.Vector{Elem: sir.Scalar{Kind: sir.I32}}
	name1, err := r.get(vt1)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	name2, err := r.get(vt2)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if name1 != name2 {
		t.Fatalf("expected memoized name to be identical, got %q vs %q", name1, name2)
	}
	if n := strings.Count(prelude.Result(), ".new("); n != 1 {
		t.Errorf("expected exactly one .new helper to be emitted, got %d", n)
	}
}

// TestCrashLowersToAbortSequence verifies the resolved open question
// (spec section 9): Crash must call get_runid, set_errno(Unknown), then
// abort, in that order.
func TestCrashLowersToAbortSequence(t *testing.T) {
	prog := &sir.Program{
		Functions: []sir.Function{
			{Id: 0, Blocks: []sir.Block{{Id: 0, Term: sir.Crash{}}}},
		},
	}
	g := NewGenerator()
	mod, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate returned error: %s", err)
	}
	setErrno := strings.Index(mod, "@weld_rt_set_errno")
	abort := strings.Index(mod, "@weld_abort_thread")
	if setErrno == -1 || abort == -1 {
		t.Fatalf("expected both set_errno and abort_thread calls, got:\n%s", mod)
	}
	if setErrno > abort {
		t.Errorf("expected set_errno to precede abort_thread, got:\n%s", mod)
	}
}
