package codegen

import "sirgen/src/util"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// moduleBuffer is the append-only pair of textual buffers described in
// spec section 4.1: one prelude (type declarations, per-type helpers,
// external declarations) and one body (function definitions). Separating
// the two lets the type registry insert a type's declaration and helpers
// into the prelude *after* code in the body already referenced the type's
// name — the registry guarantees the referenced name is identical to the
// name eventually declared.
type moduleBuffer struct {
	prelude util.Buffer
	body    util.Buffer
}

// ---------------------
// ----- functions -----
// ---------------------

// result renders the final module text: prelude followed by body.
func (m *moduleBuffer) result() string {
	return "; PRELUDE:\n" + m.prelude.Result() + "\n; BODY:\n" + m.body.Result()
}
