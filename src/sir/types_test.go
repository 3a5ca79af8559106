package sir

import "testing"

// TestTypeKeyStructuralEquality verifies that two independently constructed
// IRType values describing the same structural type produce identical Key()
// strings, and that structurally different types never collide.
func TestTypeKeyStructuralEquality(t *testing.T) {
	a := Struct{Fields: []IRType{Scalar{Kind: I32}, Vector{Elem: Scalar{Kind: F64}}}}
	b := Struct{Fields: []IRType{Scalar{Kind: I32}, Vector{Elem: Scalar{Kind: F64}}}}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys for structurally equal types, got %q vs %q", a.Key(), b.Key())
	}

	c := Struct{Fields: []IRType{Scalar{Kind: I32}, Vector{Elem: Scalar{Kind: F32}}}}
	if a.Key() == c.Key() {
		t.Fatalf("expected different keys for structurally different types, both %q", a.Key())
	}
}

func TestBuilderKeyDistinguishesOperator(t *testing.T) {
	sum := Builder{Kind: Merger, Elem: Scalar{Kind: I64}, Op: Add}
	prod := Builder{Kind: Merger, Elem: Scalar{Kind: I64}, Op: Mul}
	if sum.Key() == prod.Key() {
		t.Fatalf("mergers over different operators must not share a key, got %q", sum.Key())
	}
}

func TestBinOpIsComparison(t *testing.T) {
	tests := []struct {
		op   BinOpKind
		want bool
	}{
		{Add, false},
		{Mul, false},
		{Eq, true},
		{GreaterThanOrEqual, true},
		{BitwiseAnd, false},
	}
	for _, tc := range tests {
		if got := tc.op.IsComparison(); got != tc.want {
			t.Errorf("%s.IsComparison() = %v, want %v", tc.op, got, tc.want)
		}
	}
}
