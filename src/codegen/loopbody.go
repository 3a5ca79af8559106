package codegen

import (
	"fmt"
	"strings"

	"sirgen/src/sir"
)

// loopbody.go lowers a SIR function referenced as a ParallelFor body (spec
// section 4.4): two extra range parameters, an internal induction-variable
// loop, and per-iteration element-address computation before entering the
// function's own SIR blocks. This is the one SIR function shape that does
// not get the ordinary one-call-per-invocation treatment function.go gives
// every other function: the runtime (or the serial fallback) invokes it
// once per work item, each covering a whole [lower, upper) range of
// iterations rather than a single index.

// lowerLoopBodyFunction lowers fn, the body of pf, into its LLIR
// definition.
func (g *LlvmGenerator) lowerLoopBodyFunction(fn *sir.Function, pf sir.ParallelFor) error {
	fc := &funcCtx{g: g, fn: fn}

	params := sir.SortSymbols(fn.Params)
	paramDecls := make([]string, 0, len(params)+3)
	paramDecls = append(paramDecls, "%work_t* %cur.work")
	for _, p := range params {
		tn, err := g.types.get(p.Typ)
		if err != nil {
			return err
		}
		paramDecls = append(paramDecls, fmt.Sprintf("%s %s", tn, symName(p.Sym)))
	}
	paramDecls = append(paramDecls, "i64 %lower.idx", "i64 %upper.idx")

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

	strideWidth := 1
	firstSimd := len(pf.Iters) > 0 && pf.Iters[0].Kind == sir.IterSimd
	if firstSimd {
		strideWidth = laneCount
	}

	idxAddr := "%cur.idx.addr"
	fc.emit("%s = alloca i64", idxAddr)
	fc.emit("store i64 %%lower.idx, i64* %s", idxAddr)
	fc.emit("br label %%loop.head")
	fc.emitLabel("loop.head")
	idx := fc.fresh()
	fc.emit("%s = load i64, i64* %s", idx, idxAddr)
	cond := fc.fresh()
	if firstSimd {
		probe := fc.fresh()
		fc.emit("%s = add i64 %s, %d", probe, idx, strideWidth)
		fc.emit("%s = icmp sle i64 %s, %%upper.idx", cond, probe)
	} else {
		fc.emit("%s = icmp slt i64 %s, %%upper.idx", cond, idx)
	}
	fc.emit("br i1 %s, label %%loop.body, label %%loop.done", cond)
	fc.emitLabel("loop.body")

	if err := fc.lowerLoopElement(pf, idx); err != nil {
		return err
	}

	fc.emit("br label %%%s", blockLabel(firstBlockID(fn)))

	if err := fc.emitBlocks(fn); err != nil {
		return err
	}

	fc.buf.AddString("body.end:")
	cur := fc.fresh()
	fc.buf.Add("  %s = load i64, i64* %s", cur, idxAddr)
	next := fc.fresh()
	fc.buf.Add("  %s = add i64 %s, %d", next, cur, strideWidth)
	fc.buf.Add("  store i64 %s, i64* %s", next, idxAddr)
	fc.buf.AddString("  br label %loop.head")
	fc.buf.AddString("loop.done:")
	fc.buf.AddString("  ret void")
	fc.buf.AddString("}")
	fc.buf.AddString("")

	g.mod.body.AddString(fc.buf.Result())
	return nil
}

// lowerLoopElement computes each iterator's element address, loads the
// element (aligned load + .vat for SIMD, .at otherwise), and stores the
// element tuple (or single element) and the index into the body's
// element and index symbols (spec section 4.4 steps 3-4).
func (fc *funcCtx) lowerLoopElement(pf sir.ParallelFor, idx string) error {
	elemTypes := make([]sir.IRType, len(pf.Iters))
	elemVals := make([]string, len(pf.Iters))
	for i1, it := range pf.Iters {
		b, err := fc.lowerIteratorBounds(it)
		if err != nil {
			return err
		}
		var arrIdx string
		switch {
		case it.Kind == sir.IterFringe:
			n := fc.fresh()
			fc.emit("%s = udiv i64 %s, %d", n, b.end, laneCount)
			base := fc.fresh()
			fc.emit("%s = mul i64 %s, %d", base, n, laneCount)
			ai := fc.fresh()
			fc.emit("%s = add i64 %s, %s", ai, base, idx)
			arrIdx = ai
		case it.HasBounds:
			scaled := fc.fresh()
			fc.emit("%s = mul i64 %s, %s", scaled, idx, b.stride)
			ai := fc.fresh()
			fc.emit("%s = add i64 %s, %s", ai, b.start, scaled)
			arrIdx = ai
		default:
			arrIdx = idx
		}

		dv, dtyp, err := fc.loadSym(it.Data)
		if err != nil {
			return err
		}
		vecTyp, ok := dtyp.(sir.Vector)
		if !ok {
			return fmt.Errorf("ParallelFor iterator data %s is not a Vector type", it.Data)
		}
		tn, err := fc.g.types.get(vecTyp)
		if err != nil {
			return err
		}
		elemName, err := fc.g.types.get(vecTyp.Elem)
		if err != nil {
			return err
		}
		short := strings.TrimPrefix(tn, "%")

		if it.Kind == sir.IterSimd {
			kind, _, ok := scalarKindOf(vecTyp.Elem)
			if !ok {
				return fmt.Errorf("SIMD iterator over %s requires a scalar element type", it.Data)
			}
			simdTyp := sir.Simd{Kind: kind}
			simdName := fmt.Sprintf("<%d x %s>", laneCount, elemName)
			ptr := fc.fresh()
			fc.emit("%s = call %s* @%s.vat(%s %s, i64 %s)", ptr, simdName, short, tn, dv, arrIdx)
			val := fc.fresh()
			align := bitWidth(kind) / 8
			if align == 0 {
				align = 1
			}
			fc.emit("%s = load %s, %s* %s, align %d", val, simdName, simdName, ptr, align)
			elemTypes[i1] = simdTyp
			elemVals[i1] = val
		} else {
			ptr := fc.fresh()
			fc.emit("%s = call %s* @%s.at(%s %s, i64 %s)", ptr, elemName, short, tn, dv, arrIdx)
			val := fc.fresh()
			fc.emit("%s = load %s, %s* %s", val, elemName, elemName, ptr)
			elemTypes[i1] = vecTyp.Elem
			elemVals[i1] = val
		}
	}

	var elemVal string
	var elemTyp sir.IRType
	if len(pf.Iters) == 1 {
		elemVal = elemVals[0]
		elemTyp = elemTypes[0]
	} else {
		declTyp, ok := fc.fn.LookupLocal(pf.ElemSym)
		if !ok {
			return fmt.Errorf("undeclared element symbol %s", pf.ElemSym)
		}
		tupleName, err := fc.g.types.get(declTyp)
		if err != nil {
			return err
		}
		acc := "undef"
		for i1, v := range elemVals {
			fieldName, err := fc.g.types.get(elemTypes[i1])
			if err != nil {
				return err
			}
			next := fc.fresh()
			fc.emit("%s = insertvalue %s %s, %s %s, %d", next, tupleName, acc, fieldName, v, i1)
			acc = next
		}
		elemVal = acc
		elemTyp = declTyp
	}
	if err := fc.storeSym(pf.ElemSym, elemTyp, elemVal); err != nil {
		return err
	}

	idxTyp, ok := fc.fn.LookupLocal(pf.IndexSym)
	if !ok {
		return fmt.Errorf("undeclared index symbol %s", pf.IndexSym)
	}
	return fc.storeSym(pf.IndexSym, idxTyp, idx)
}
