package codegen

import (
	"fmt"

	"sirgen/src/sir"
)

// terminator.go lowers the closed set of SIR terminators (spec section
// 4.3 step 4). ParallelForTerm is the one non-trivial case, delegated to
// loop.go's wrapper/trampoline generation; every other case is a direct
// translation of a few instructions.

// lowerTerminator dispatches one SIR terminator, closing out the current
// LLIR block.
func (fc *funcCtx) lowerTerminator(term sir.Terminator) error {
	switch v := term.(type) {
	case sir.Branch:
		cv, _, err := fc.loadSym(v.Cond)
		if err != nil {
			return err
		}
		fc.emit("br i1 %s, label %%%s, label %%%s", cv, blockLabel(v.True), blockLabel(v.False))
		return nil
	case sir.JumpBlock:
		fc.emit("br label %%%s", blockLabel(v.Block))
		return nil
	case sir.JumpFunction:
		fc.g.enqueue(v.Func)
		return fc.lowerTailCall(v.Func)
	case sir.ParallelForTerm:
		fc.g.registerLoopBody(v.PF)
		fc.g.enqueue(v.PF.Body)
		fc.g.enqueue(v.PF.Cont)
		return fc.lowerParallelFor(v.PF)
	case sir.ProgramReturn:
		typ, ok := fc.fn.LookupLocal(v.Sym)
		if !ok {
			return fmt.Errorf("undeclared symbol %s", v.Sym)
		}
		tn, err := fc.g.types.get(typ)
		if err != nil {
			return err
		}
		raw := fc.fresh()
		fc.emit("%s = bitcast %s* %s to i8*", raw, tn, slotName(v.Sym))
		fc.emit("call void @set_result(i64 %s, i8* %s)", fc.runVar, raw)
		fc.emit("br label %%body.end")
		return nil
	case sir.EndFunction:
		fc.emit("br label %%body.end")
		return nil
	case sir.Crash:
		return fc.lowerCrash()
	default:
		return fmt.Errorf("unknown terminator type %T", term)
	}
}

// lowerTailCall emits the call-and-jump-to-epilogue sequence for a
// same-program tail call to another SIR function (spec glossary "Jump
// function"): the callee is invoked for effect and this function ends.
func (fc *funcCtx) lowerTailCall(target int) error {
	fn := fc.g.prog.FuncByID(target)
	if fn == nil {
		return fmt.Errorf("reference to undefined function %d", target)
	}
	params := sir.SortSymbols(fn.Params)
	args := make([]string, 0, len(params)+1)
	args = append(args, "%work_t* "+fc.workVar)
	for _, p := range params {
		val, typ, err := fc.loadSym(p.Sym)
		if err != nil {
			return err
		}
		tn, err := fc.g.types.get(typ)
		if err != nil {
			return err
		}
		args = append(args, tn+" "+val)
	}
	fc.emit("call void %s(%s)", funcName(target), joinComma(args))
	fc.emit("br label %%body.end")
	return nil
}

// lowerCrash implements the resolved open question (spec section 9): abort
// the whole run with an unknown-error errno rather than silently returning,
// since a Crash terminator only ever appears on an already-unrecoverable
// path.
func (fc *funcCtx) lowerCrash() error {
	fc.emit("call void @weld_rt_set_errno(i64 %s, i64 %d)", fc.runVar, errnoUnknown)
	fc.emit("call void @weld_abort_thread()")
	fc.emit("unreachable")
	return nil
}

