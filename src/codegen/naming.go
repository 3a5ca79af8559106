package codegen

import (
	"fmt"

	"sirgen/src/sir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// naming holds the monotonic, per-namespace id generators used while
// lowering one module. Disjoint prefixes per namespace (spec section 4.1,
// design note in section 9) mean a generated struct type and a generated
// vector type can never collide even if requested the same number of
// times. Unlike util's teacher-style label generator (util/label.go in the
// teacher repo), these counters are plain instance fields rather than a
// global goroutine listening on channels: the generator that owns a naming
// value is single-threaded by design (spec section 5), so there is no
// concurrent requester to serialise against.
type naming struct {
	tmp     int // SSA temporaries, "%tN".
	structN int // Struct type names, "%sN".
	vectorN int // Vector type names, "%vN".
	dictN   int // Dict type names, "%dN".
	mergerN int // Merger builder type names, "%mN.bld".
	argN    int // Trampoline argument-struct names, "%argsN.t".
}

// ---------------------
// ----- functions -----
// ---------------------

// temp returns a fresh SSA temporary name.
func (n *naming) temp() string {
	v := n.tmp
	n.tmp++
	return fmt.Sprintf("%%t%d", v)
}

// structName returns a fresh struct type name.
func (n *naming) structName() string {
	v := n.structN
	n.structN++
	return fmt.Sprintf("%%s%d", v)
}

// vectorName returns a fresh vector type name.
func (n *naming) vectorName() string {
	v := n.vectorN
	n.vectorN++
	return fmt.Sprintf("%%v%d", v)
}

// dictName returns a fresh dict type name.
func (n *naming) dictName() string {
	v := n.dictN
	n.dictN++
	return fmt.Sprintf("%%d%d", v)
}

// mergerName returns a fresh merger builder type name.
func (n *naming) mergerName() string {
	v := n.mergerN
	n.mergerN++
	return fmt.Sprintf("%%m%d.bld", v)
}

// argStructName returns a fresh name for a trampoline's stashed
// argument-struct type (loop.go): distinct from structName's IRType-backed
// structs, since these carry no hash/cmp helpers and never enter the type
// registry's memoization table.
func (n *naming) argStructName() string {
	v := n.argN
	n.argN++
	return fmt.Sprintf("%%args%d.t", v)
}

// symName mangles a SIR symbol into its LLIR value name: a symbol with
// disambiguator id 0 lowers to "%name", any other id to "%name.id". This
// rule is taken verbatim from the original llvm_symbol lowering (see
// SPEC_FULL.md's "supplemented features").
func symName(s sir.Symbol) string {
	if s.Id == 0 {
		return "%" + s.Name
	}
	return fmt.Sprintf("%%%s.%d", s.Name, s.Id)
}

// slotName returns the name of the stack slot backing symbol s. Every SIR
// local and parameter has exactly one such slot, allocated in the
// function's entry block (spec section 3.3); all reads and writes to the
// symbol go through it.
func slotName(s sir.Symbol) string {
	return symName(s) + ".addr"
}

// blockLabel returns the deterministic label for SIR block id b within the
// current function (spec section 4.3 step 4).
func blockLabel(id int) string {
	return fmt.Sprintf("b.b%d", id)
}
