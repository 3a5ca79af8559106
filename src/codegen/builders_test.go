package codegen

import (
	"fmt"
	"strings"
	"testing"

	"sirgen/src/sir"
	"sirgen/src/util"
)

// newTestFuncCtx builds a minimal funcCtx/LlvmGenerator pair suitable for
// exercising one builder family's lowerNew/lowerMerge/lowerResult in
// isolation, without going through Generate's full function-lowering path.
func newTestFuncCtx() *funcCtx {
	g := &LlvmGenerator{n: &naming{}, seen: map[int]bool{}, queue: &util.Worklist{}}
	g.mod = moduleBuffer{}
	g.types = newTypeRegistry(g.n, &g.mod.prelude)
	fc := &funcCtx{g: g, tid: "%tid", runVar: "%run", workVar: "%cur.work"}
	return fc
}

func TestMergerIdentityByOperator(t *testing.T) {
	tests := []struct {
		op   sir.BinOpKind
		elem sir.IRType
		want string
	}{
		{sir.Add, sir.Scalar{Kind: sir.I64}, "0"},
		{sir.Add, sir.Scalar{Kind: sir.F64}, "0.0"},
		{sir.Mul, sir.Scalar{Kind: sir.I64}, "1"},
		{sir.Mul, sir.Scalar{Kind: sir.F32}, "1.0"},
		{sir.BitwiseAnd, sir.Scalar{Kind: sir.I32}, "-1"},
	}
	for _, tc := range tests {
		if got := mergerIdentity(tc.op, tc.elem); got != tc.want {
			t.Errorf("mergerIdentity(%s, %v) = %q, want %q", tc.op, tc.elem, got, tc.want)
		}
	}
}

// TestMergerNewMergeResultRoundTrip exercises a Merger[I64, +] through
// lowerNew/lowerMerge/lowerResult and checks the emitted code references
// both per-worker cell arrays the way spec sections 4.8/4.9/4.10 describe:
// lowerNew sizes and identity-initializes a scalar cell AND a vector cell
// per worker, lowerMerge dispatches on the merged value's IR type to pick
// which array to load-combine-store into, and lowerResult reduces both
// arrays over every worker before folding the vector accumulator down into
// the scalar result.
func TestMergerNewMergeResultRoundTrip(t *testing.T) {
	fc := newTestFuncCtx()
	b := sir.Builder{Kind: sir.Merger, Elem: sir.Scalar{Kind: sir.I64}, Op: sir.Add}
	fam, err := builderFamilyFor(b.Kind)
	if err != nil {
		t.Fatalf("builderFamilyFor: %s", err)
	}

	dst := fc.fresh()
	if err := fam.lowerNew(fc, b, dst, "", false); err != nil {
		t.Fatalf("lowerNew: %s", err)
	}
	if err := fam.lowerMerge(fc, b, dst, "%incoming", sir.Scalar{Kind: sir.I64}); err != nil {
		t.Fatalf("lowerMerge: %s", err)
	}
	res := fc.fresh()
	if err := fam.lowerResult(fc, b, res, dst); err != nil {
		t.Fatalf("lowerResult: %s", err)
	}

	body := fc.buf.Result()
	if !strings.Contains(body, "@weld_rt_get_nworkers()") {
		t.Errorf("expected lowerNew/lowerResult to size their cell arrays by the runtime worker count, got:\n%s", body)
	}
	if !strings.Contains(body, "store i64 0,") {
		t.Errorf("expected lowerNew to store the additive identity 0 into the scalar cells, got:\n%s", body)
	}
	if !strings.Contains(body, "insertelement") {
		t.Errorf("expected lowerNew to build the vector cells' SIMD identity via insertelement, got:\n%s", body)
	}
	if !strings.Contains(body, "add i64") {
		t.Errorf("expected lowerMerge's scalar path to emit an add i64 instruction, got:\n%s", body)
	}
	if res == dst || res == "" {
		t.Errorf("expected lowerResult to be given a fresh SSA destination distinct from %q, got %q", dst, res)
	}
	if !strings.Contains(body, "extractelement") {
		t.Errorf("expected lowerResult to horizontally reduce the vector accumulator via extractelement, got:\n%s", body)
	}
	if !strings.Contains(body, res+" = add i64") {
		t.Errorf("expected lowerResult's final horizontal-reduction step to write its result into %s, got:\n%s", res, body)
	}
}

// TestMergerSimdMergeUsesVectorCell verifies lowerMerge dispatches a SIMD
// merge value onto the vector cell array (field 1), not the scalar one
// (field 0), so a SIMD-fringe merger (spec scenario 4) combines into the
// right per-worker cell.
func TestMergerSimdMergeUsesVectorCell(t *testing.T) {
	fc := newTestFuncCtx()
	b := sir.Builder{Kind: sir.Merger, Elem: sir.Scalar{Kind: sir.I64}, Op: sir.Add}
	fam, err := builderFamilyFor(b.Kind)
	if err != nil {
		t.Fatalf("builderFamilyFor: %s", err)
	}

	dst := fc.fresh()
	if err := fam.lowerNew(fc, b, dst, "", false); err != nil {
		t.Fatalf("lowerNew: %s", err)
	}
	if err := fam.lowerMerge(fc, b, dst, "%incoming.vec", sir.Simd{Kind: sir.I64}); err != nil {
		t.Fatalf("lowerMerge: %s", err)
	}

	body := fc.buf.Result()
	if !strings.Contains(body, fmt.Sprintf("extractvalue %s %s, 1", fc.bldTypeName(b), dst)) {
		t.Errorf("expected a SIMD merge to extract field 1 (the vector cells) of %s, got:\n%s", dst, body)
	}
}

// TestBuilderFamilyForRejectsUnknownKind verifies the closed BuilderKind
// dispatch returns an error rather than a nil family for an out-of-range
// kind value.
func TestBuilderFamilyForRejectsUnknownKind(t *testing.T) {
	if _, err := builderFamilyFor(sir.BuilderKind(99)); err == nil {
		t.Fatal("expected an error for an unknown builder kind")
	}
}

// TestAppenderTypeNameStableUnderRepeatedRequests verifies the appender
// family's lowerType, called twice for the same element type through the
// registry, returns an identical name and only declares its runtime
// externals once.
func TestAppenderTypeNameStableUnderRepeatedRequests(t *testing.T) {
	fc := newTestFuncCtx()
	b := sir.Builder{Kind: sir.Appender, Elem: sir.Scalar{Kind: sir.I32}}
	name1, err := fc.g.types.get(b)
	if err != nil {
		t.Fatalf("first get: %s", err)
	}
	name2, err := fc.g.types.get(b)
	if err != nil {
		t.Fatalf("second get: %s", err)
	}
	if name1 != name2 {
		t.Fatalf("expected stable appender type name, got %q vs %q", name1, name2)
	}
	if n := strings.Count(fc.g.mod.prelude.Result(), "@weld_rt_new_vb_piece"); n != 1 {
		t.Errorf("expected the appender runtime externals declared exactly once, got %d", n)
	}
}
