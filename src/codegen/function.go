package codegen

import (
	"fmt"

	"sirgen/src/sir"
)

// function.go lowers one ordinary (non-top-driver) SIR function to its
// LLIR definition (spec section 4.3): a fixed entry block that allocates
// one stack slot per parameter and local and stores the incoming
// parameters, followed by one LLIR block per SIR block in declaration
// order, sharing a common epilogue label.

// funcName returns the mangled LLIR symbol for SIR function id.
func funcName(id int) string {
	return fmt.Sprintf("@f%d", id)
}

// lowerFunction emits fn's definition into the module body. Parameters are
// declared in the canonical ascending-symbol order (spec section 3.3),
// independent of the order fn.Params happens to be stored in.
func (g *LlvmGenerator) lowerFunction(fn *sir.Function) error {
	fc := &funcCtx{g: g, fn: fn}

	params := sir.SortSymbols(fn.Params)
	paramDecls := make([]string, 0, len(params)+1)
	paramDecls = append(paramDecls, "%work_t* %cur.work")
	for _, p := range params {
		tn, err := g.types.get(p.Typ)
		if err != nil {
			return err
		}
		paramDecls = append(paramDecls, fmt.Sprintf("%s %s", tn, symName(p.Sym)))
	}

	fc.buf.Add("define void %s(%s) {", funcName(fn.Id), joinComma(paramDecls))
	fc.buf.AddString("entry:")
	fc.workVar = "%cur.work"
	fc.tid = fc.fresh()
	fc.emit("%s = call i32 @my_id_public()", fc.tid)
	fc.runVar = fc.fresh()
	fc.emit("%s = call i64 @get_runid()", fc.runVar)

	for _, l := range fn.Params {
		if err := fc.declareSlot(l); err != nil {
			return err
		}
	}
	for _, l := range fn.Locals {
		if err := fc.declareSlot(l); err != nil {
			return err
		}
	}
	for _, p := range params {
		tn, err := g.types.get(p.Typ)
		if err != nil {
			return err
		}
		fc.emit("store %s %s, %s* %s", tn, symName(p.Sym), tn, slotName(p.Sym))
	}
	fc.emit("br label %%%s", blockLabel(firstBlockID(fn)))

	if err := fc.emitBlocks(fn); err != nil {
		return err
	}

	fc.buf.AddString("body.end:")
	fc.buf.AddString("  ret void")
	fc.buf.AddString("}")
	fc.buf.AddString("")

	g.mod.body.AddString(fc.buf.Result())
	return nil
}

// emitBlocks lowers fn's SIR blocks, in declaration order, into fc's
// buffer: one LLIR block per SIR block, statements then terminator.
// Shared by lowerFunction and lowerLoopBodyFunction (spec sections 4.3
// step 5 and 4.4 step 4).
func (fc *funcCtx) emitBlocks(fn *sir.Function) error {
	for _, blk := range fn.Blocks {
		fc.buf.Add("%s:", blockLabel(blk.Id))
		for _, st := range blk.Statements {
			if err := fc.lowerStatement(st); err != nil {
				return err
			}
		}
		if err := fc.lowerTerminator(blk.Term); err != nil {
			return err
		}
	}
	return nil
}

// declareSlot allocates the stack slot for one parameter or local.
func (fc *funcCtx) declareSlot(st sir.SymbolType) error {
	tn, err := fc.g.types.get(st.Typ)
	if err != nil {
		return err
	}
	fc.emit("%s = alloca %s", slotName(st.Sym), tn)
	return nil
}

// loadSym loads the current value of a symbol from its stack slot into a
// fresh SSA temporary, returning the temporary and the symbol's IR type.
func (fc *funcCtx) loadSym(s sir.Symbol) (string, sir.IRType, error) {
	typ, ok := fc.fn.LookupLocal(s)
	if !ok {
		return "", nil, fmt.Errorf("undeclared symbol %s", s)
	}
	tn, err := fc.g.types.get(typ)
	if err != nil {
		return "", nil, err
	}
	dst := fc.fresh()
	fc.emit("%s = load %s, %s* %s", dst, tn, tn, slotName(s))
	return dst, typ, nil
}

// storeSym stores val (of IR type typ) into dst's stack slot.
func (fc *funcCtx) storeSym(dst sir.Symbol, typ sir.IRType, val string) error {
	tn, err := fc.g.types.get(typ)
	if err != nil {
		return err
	}
	fc.emit("store %s %s, %s* %s", tn, val, tn, slotName(dst))
	return nil
}

// firstBlockID returns the id of fn's first declared block, the function's
// entry point by convention (spec section 4.3 step 1).
func firstBlockID(fn *sir.Function) int {
	if len(fn.Blocks) == 0 {
		return 0
	}
	return fn.Blocks[0].Id
}

func joinComma(parts []string) string {
	out := ""
	for i1, p := range parts {
		if i1 > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
