package sir

import "testing"

// TestSortSymbolsCanonicalOrder verifies the ascending-by-name-then-id
// ordering is independent of input order, and does not mutate its argument.
func TestSortSymbolsCanonicalOrder(t *testing.T) {
	in := []SymbolType{
		{Sym: Symbol{Name: "b", Id: 0}, Typ: Scalar{Kind: I32}},
		{Sym: Symbol{Name: "a", Id: 1}, Typ: Scalar{Kind: I32}},
		{Sym: Symbol{Name: "a", Id: 0}, Typ: Scalar{Kind: I32}},
	}
	inCopy := make([]SymbolType, len(in))
	copy(inCopy, in)

	got := SortSymbols(in)
	want := []Symbol{{Name: "a", Id: 0}, {Name: "a", Id: 1}, {Name: "b", Id: 0}}
	if len(got) != len(want) {
		t.Fatalf("expected %d symbols, got %d", len(want), len(got))
	}
	for i1, s := range want {
		if got[i1].Sym != s {
			t.Errorf("position %d: got %s, want %s", i1, got[i1].Sym, s)
		}
	}
	for i1 := range in {
		if in[i1] != inCopy[i1] {
			t.Fatalf("SortSymbols mutated its argument at index %d", i1)
		}
	}
}

func TestSymbolLess(t *testing.T) {
	if !(Symbol{Name: "a", Id: 0}).Less(Symbol{Name: "a", Id: 1}) {
		t.Error("expected a.0 < a.1")
	}
	if !(Symbol{Name: "a", Id: 5}).Less(Symbol{Name: "b", Id: 0}) {
		t.Error("expected a.5 < b.0 (name dominates id)")
	}
}
