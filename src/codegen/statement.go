package codegen

import (
	"fmt"
	"strings"

	"sirgen/src/sir"
)

// statement.go lowers the closed set of SIR statements (spec section 4.7)
// within one block. Each case loads its operands from their stack slots,
// emits the LLIR instruction(s) computing the result, and stores the
// result back into the destination's slot, except Merge, which has no
// destination and just calls into the builder family.

// lowerStatement dispatches one SIR statement.
func (fc *funcCtx) lowerStatement(st sir.Statement) error {
	switch v := st.(type) {
	case sir.MakeStruct:
		return fc.lowerMakeStruct(v)
	case sir.MakeVector:
		return fc.lowerMakeVector(v)
	case sir.AssignLiteral:
		return fc.lowerAssignLiteral(v)
	case sir.Assign:
		return fc.lowerAssign(v)
	case sir.BinOp:
		return fc.lowerBinOp(v)
	case sir.UnaryOp:
		return fc.lowerUnaryOp(v)
	case sir.Negate:
		return fc.lowerNegate(v)
	case sir.Cast:
		return fc.lowerCast(v)
	case sir.Broadcast:
		return fc.lowerBroadcast(v)
	case sir.GetField:
		return fc.lowerGetField(v)
	case sir.Length:
		return fc.lowerLength(v)
	case sir.Lookup:
		return fc.lowerLookup(v)
	case sir.KeyExists:
		return fc.lowerKeyExists(v)
	case sir.Slice:
		return fc.lowerSlice(v)
	case sir.Select:
		return fc.lowerSelect(v)
	case sir.ToVec:
		return fc.lowerToVec(v)
	case sir.CUDF:
		return fc.lowerCUDF(v)
	case sir.NewBuilder:
		return fc.lowerNewBuilder(v)
	case sir.Merge:
		return fc.lowerMerge(v)
	case sir.Res:
		return fc.lowerRes(v)
	default:
		return fmt.Errorf("unknown statement type %T", st)
	}
}

func (fc *funcCtx) lowerMakeStruct(v sir.MakeStruct) error {
	fieldTypes := make([]sir.IRType, len(v.Fields))
	dstTyp, ok := fc.fn.LookupLocal(v.Dst)
	if !ok {
		return fmt.Errorf("undeclared symbol %s", v.Dst)
	}
	tn, err := fc.g.types.get(dstTyp)
	if err != nil {
		return err
	}
	acc := "undef"
	for i1, f := range v.Fields {
		val, typ, err := fc.loadSym(f)
		if err != nil {
			return err
		}
		fieldTypes[i1] = typ
		next := fc.fresh()
		fc.emit("%s = insertvalue %s %s, %s %s, %d", next, tn, acc, fieldTypes[i1].String(), val, i1)
		acc = next
	}
	return fc.storeSym(v.Dst, dstTyp, acc)
}

func (fc *funcCtx) lowerMakeVector(v sir.MakeVector) error {
	dstTyp, ok := fc.fn.LookupLocal(v.Dst)
	if !ok {
		return fmt.Errorf("undeclared symbol %s", v.Dst)
	}
	vecTyp, ok := dstTyp.(sir.Vector)
	if !ok {
		return fmt.Errorf("MakeVector destination %s is not a Vector type", v.Dst)
	}
	tn, err := fc.g.types.get(dstTyp)
	if err != nil {
		return err
	}
	elemName, err := fc.g.types.get(vecTyp.Elem)
	if err != nil {
		return err
	}
	short := strings.TrimPrefix(tn, "%")
	vv := fc.fresh()
	fc.emit("%s = call %s @%s.new(i64 %d, %%work_t* %s)", vv, tn, short, len(v.Elems), fc.workVar)
	for i1, e := range v.Elems {
		val, _, err := fc.loadSym(e)
		if err != nil {
			return err
		}
		ptr := fc.fresh()
		fc.emit("%s = call %s* @%s.at(%s %s, i64 %d)", ptr, elemName, short, tn, vv, i1)
		fc.emit("store %s %s, %s* %s", elemName, val, elemName, ptr)
	}
	return fc.storeSym(v.Dst, dstTyp, vv)
}

func (fc *funcCtx) lowerAssignLiteral(v sir.AssignLiteral) error {
	tn, err := fc.g.types.get(v.Typ)
	if err != nil {
		return err
	}
	lit := formatLiteral(v.Val)
	if simd, ok := v.Typ.(sir.Simd); ok {
		_ = simd
		scalarName := scalarPrimitive(simd.Kind)
		acc := "undef"
		for i1 := 0; i1 < laneCount; i1++ {
			next := fc.fresh()
			fc.emit("%s = insertelement %s %s, %s %s, i32 %d", next, tn, acc, scalarName, lit, i1)
			acc = next
		}
		return fc.storeSym(v.Dst, v.Typ, acc)
	}
	return fc.storeSym(v.Dst, v.Typ, lit)
}

func formatLiteral(val interface{}) string {
	switch t := val.(type) {
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", t)
	case int:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func (fc *funcCtx) lowerAssign(v sir.Assign) error {
	val, typ, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	return fc.storeSym(v.Dst, typ, val)
}

func (fc *funcCtx) lowerBinOp(v sir.BinOp) error {
	lv, _, err := fc.loadSym(v.Left)
	if err != nil {
		return err
	}
	rv, _, err := fc.loadSym(v.Right)
	if err != nil {
		return err
	}
	mnem, err := binopMnemonic(v.Op, v.Typ)
	if err != nil {
		return err
	}
	tn, err := fc.g.types.get(v.Typ)
	if err != nil {
		return err
	}
	dst := fc.fresh()
	fc.emit("%s = %s %s %s, %s", dst, mnem, tn, lv, rv)
	resultTyp := v.Typ
	if v.Op.IsComparison() {
		resultTyp = boolLikeOf(v.Typ)
	}
	return fc.storeSym(v.Dst, resultTyp, dst)
}

// boolLikeOf returns Bool for a Scalar operand type, Simd<Bool> for a Simd
// operand type, matching comparison results' shape to their operands'.
func boolLikeOf(operand sir.IRType) sir.IRType {
	if _, ok := operand.(sir.Simd); ok {
		return sir.Simd{Kind: sir.Bool}
	}
	return sir.Scalar{Kind: sir.Bool}
}

func (fc *funcCtx) lowerUnaryOp(v sir.UnaryOp) error {
	sv, _, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	kind, _, ok := scalarKindOf(v.Typ)
	if !ok {
		return fmt.Errorf("unsupported operand type for unary op %s: %s", v.Op, v.Typ)
	}
	name, err := unaryopMnemonic(v.Op, kind)
	if err != nil {
		return err
	}
	tn, err := fc.g.types.get(v.Typ)
	if err != nil {
		return err
	}
	dst := fc.fresh()
	fc.emit("%s = call %s %s(%s %s)", dst, tn, name, tn, sv)
	return fc.storeSym(v.Dst, v.Typ, dst)
}

func (fc *funcCtx) lowerNegate(v sir.Negate) error {
	sv, _, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	_, isFloat, ok := scalarKindOf(v.Typ)
	if !ok {
		return fmt.Errorf("unsupported operand type for negate: %s", v.Typ)
	}
	tn, err := fc.g.types.get(v.Typ)
	if err != nil {
		return err
	}
	dst := fc.fresh()
	if isFloat {
		fc.emit("%s = fneg %s %s", dst, tn, sv)
	} else {
		fc.emit("%s = sub %s 0, %s", dst, tn, sv)
	}
	return fc.storeSym(v.Dst, v.Typ, dst)
}

func (fc *funcCtx) lowerCast(v sir.Cast) error {
	sv, _, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	rule, err := classifyCast(v.From, v.To)
	if err != nil {
		return err
	}
	fromName, err := fc.g.types.get(v.From)
	if err != nil {
		return err
	}
	toName, err := fc.g.types.get(v.To)
	if err != nil {
		return err
	}
	dst := fc.fresh()
	if rule == castSelf {
		fc.emit("%s = bitcast %s %s to %s", dst, fromName, sv, toName)
	} else {
		fc.emit("%s = %s %s %s to %s", dst, castOpcode(rule), fromName, sv, toName)
	}
	return fc.storeSym(v.Dst, v.To, dst)
}

func (fc *funcCtx) lowerBroadcast(v sir.Broadcast) error {
	sv, _, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	kind, _, ok := scalarKindOf(v.Typ)
	if !ok {
		return fmt.Errorf("unsupported operand type for broadcast: %s", v.Typ)
	}
	simdTyp := sir.Simd{Kind: kind}
	tn, err := fc.g.types.get(simdTyp)
	if err != nil {
		return err
	}
	scalarName := scalarPrimitive(kind)
	acc := "undef"
	for i1 := 0; i1 < laneCount; i1++ {
		next := fc.fresh()
		fc.emit("%s = insertelement %s %s, %s %s, i32 %d", next, tn, acc, scalarName, sv, i1)
		acc = next
	}
	return fc.storeSym(v.Dst, simdTyp, acc)
}

func (fc *funcCtx) lowerGetField(v sir.GetField) error {
	sv, styp, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	structTyp, ok := styp.(sir.Struct)
	if !ok {
		return fmt.Errorf("GetField source %s is not a Struct type", v.Src)
	}
	if v.Index < 0 || v.Index >= len(structTyp.Fields) {
		return fmt.Errorf("GetField index %d out of range for %s", v.Index, structTyp)
	}
	dst := fc.fresh()
	fc.emit("%s = extractvalue %s %s, %d", dst, structTyp.String(), sv, v.Index)
	return fc.storeSym(v.Dst, structTyp.Fields[v.Index], dst)
}

func (fc *funcCtx) lowerLength(v sir.Length) error {
	sv, styp, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	switch t := styp.(type) {
	case sir.Vector:
		tn, err := fc.g.types.get(t)
		if err != nil {
			return err
		}
		dst := fc.fresh()
		fc.emit("%s = call i64 @%s.size(%s %s)", dst, strings.TrimPrefix(tn, "%"), tn, sv)
		return fc.storeSym(v.Dst, sir.Scalar{Kind: sir.I64}, dst)
	case sir.Dict:
		handle := fc.fresh()
		tn, err := fc.g.types.get(t)
		if err != nil {
			return err
		}
		fc.emit("%s = extractvalue %s %s, 0", handle, tn, sv)
		dst := fc.fresh()
		fc.emit("%s = call i64 @weld_rt_dict_size(i8* %s)", dst, handle)
		return fc.storeSym(v.Dst, sir.Scalar{Kind: sir.I64}, dst)
	default:
		return fmt.Errorf("Length source %s is neither Vector nor Dict", v.Src)
	}
}

func (fc *funcCtx) lowerLookup(v sir.Lookup) error {
	sv, styp, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	kv, _, err := fc.loadSym(v.Key)
	if err != nil {
		return err
	}
	switch t := styp.(type) {
	case sir.Vector:
		tn, err := fc.g.types.get(t)
		if err != nil {
			return err
		}
		elemName, err := fc.g.types.get(t.Elem)
		if err != nil {
			return err
		}
		ptr := fc.fresh()
		fc.emit("%s = call %s* @%s.at(%s %s, i64 %s)", ptr, elemName, strings.TrimPrefix(tn, "%"), tn, sv, kv)
		dst := fc.fresh()
		fc.emit("%s = load %s, %s* %s", dst, elemName, elemName, ptr)
		return fc.storeSym(v.Dst, t.Elem, dst)
	case sir.Dict:
		tn, err := fc.g.types.get(t)
		if err != nil {
			return err
		}
		short := strings.TrimPrefix(tn, "%")
		slot := fc.fresh()
		fc.emit("%s = call %s.slot* @%s.lookup(%s %s, %s %s)", slot, tn, short, tn, sv, t.Key_.String(), kv)
		valName, err := fc.g.types.get(t.Value)
		if err != nil {
			return err
		}
		dst := fc.fresh()
		fc.emit("%s = call %s @%s.slot.value(%s.slot* %s)", dst, valName, short, tn, slot)
		return fc.storeSym(v.Dst, t.Value, dst)
	default:
		return fmt.Errorf("Lookup source %s is neither Vector nor Dict", v.Src)
	}
}

func (fc *funcCtx) lowerKeyExists(v sir.KeyExists) error {
	sv, styp, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	dictTyp, ok := styp.(sir.Dict)
	if !ok {
		return fmt.Errorf("KeyExists source %s is not a Dict type", v.Src)
	}
	kv, _, err := fc.loadSym(v.Key)
	if err != nil {
		return err
	}
	tn, err := fc.g.types.get(dictTyp)
	if err != nil {
		return err
	}
	short := strings.TrimPrefix(tn, "%")
	slot := fc.fresh()
	fc.emit("%s = call %s.slot* @%s.lookup(%s %s, %s %s)", slot, tn, short, tn, sv, dictTyp.Key_.String(), kv)
	dst := fc.fresh()
	fc.emit("%s = call i1 @%s.slot.filled(%s.slot* %s)", dst, short, tn, slot)
	return fc.storeSym(v.Dst, sir.Scalar{Kind: sir.Bool}, dst)
}

func (fc *funcCtx) lowerSlice(v sir.Slice) error {
	sv, styp, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	vecTyp, ok := styp.(sir.Vector)
	if !ok {
		return fmt.Errorf("Slice source %s is not a Vector type", v.Src)
	}
	iv, _, err := fc.loadSym(v.Index)
	if err != nil {
		return err
	}
	szv, _, err := fc.loadSym(v.Size)
	if err != nil {
		return err
	}
	tn, err := fc.g.types.get(vecTyp)
	if err != nil {
		return err
	}
	short := strings.TrimPrefix(tn, "%")
	dst := fc.fresh()
	fc.emit("%s = call %s @%s.slice(%s %s, i64 %s, i64 %s)", dst, tn, short, tn, sv, iv, szv)
	return fc.storeSym(v.Dst, vecTyp, dst)
}

func (fc *funcCtx) lowerSelect(v sir.Select) error {
	cv, _, err := fc.loadSym(v.Cond)
	if err != nil {
		return err
	}
	tv, typ, err := fc.loadSym(v.OnTrue)
	if err != nil {
		return err
	}
	fv, _, err := fc.loadSym(v.OnFalse)
	if err != nil {
		return err
	}
	tn, err := fc.g.types.get(typ)
	if err != nil {
		return err
	}
	dst := fc.fresh()
	fc.emit("%s = select i1 %s, %s %s, %s %s", dst, cv, tn, tv, tn, fv)
	return fc.storeSym(v.Dst, typ, dst)
}

func (fc *funcCtx) lowerToVec(v sir.ToVec) error {
	sv, styp, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	dictTyp, ok := styp.(sir.Dict)
	if !ok {
		return fmt.Errorf("ToVec source %s is not a Dict type", v.Src)
	}
	tn, err := fc.g.types.get(dictTyp)
	if err != nil {
		return err
	}
	short := strings.TrimPrefix(tn, "%")
	pairTyp := sir.Struct{Fields: []sir.IRType{dictTyp.Key_, dictTyp.Value}}
	vecTyp := sir.Vector{Elem: pairTyp}
	vecName, err := fc.g.types.get(vecTyp)
	if err != nil {
		return err
	}
	dst := fc.fresh()
	fc.emit("%s = call %s @%s.tovec(%s %s)", dst, vecName, short, tn, sv)
	return fc.storeSym(v.Dst, vecTyp, dst)
}

func (fc *funcCtx) lowerCUDF(v sir.CUDF) error {
	args := make([]string, len(v.Args))
	for i1, a := range v.Args {
		av, atyp, err := fc.loadSym(a)
		if err != nil {
			return err
		}
		atn, err := fc.g.types.get(atyp)
		if err != nil {
			return err
		}
		args[i1] = fmt.Sprintf("%s %s", atn, av)
	}
	retName, err := fc.g.types.get(v.Typ)
	if err != nil {
		return err
	}
	fc.g.declareCUDF(v.Name, retName, v.Args, fc.fn)
	dst := fc.fresh()
	fc.emit("%s = call %s @%s(%s)", dst, retName, v.Name, joinComma(args))
	return fc.storeSym(v.Dst, v.Typ, dst)
}

// declareCUDF emits the external declaration for a user-defined function on
// first reference; repeats are skipped via cudfDeclared.
func (g *LlvmGenerator) declareCUDF(name, retName string, args []sir.Symbol, fn *sir.Function) {
	if g.cudfDeclared == nil {
		g.cudfDeclared = make(map[string]bool)
	}
	if g.cudfDeclared[name] {
		return
	}
	g.cudfDeclared[name] = true
	argTypes := make([]string, len(args))
	for i1, a := range args {
		typ, ok := fn.LookupLocal(a)
		if !ok {
			continue
		}
		tn, err := g.types.get(typ)
		if err != nil {
			continue
		}
		argTypes[i1] = tn
	}
	g.mod.prelude.Add("declare %s @%s(%s)", retName, name, joinComma(argTypes))
}

func (fc *funcCtx) lowerNewBuilder(v sir.NewBuilder) error {
	fam, err := builderFamilyFor(v.Typ.Kind)
	if err != nil {
		return err
	}
	var argVal string
	if v.HasArg {
		av, _, err := fc.loadSym(v.Arg)
		if err != nil {
			return err
		}
		argVal = av
	}
	dst := fc.fresh()
	if err := fam.lowerNew(fc, v.Typ, dst, argVal, v.HasArg); err != nil {
		return err
	}
	return fc.storeSym(v.Dst, v.Typ, dst)
}

func (fc *funcCtx) lowerMerge(v sir.Merge) error {
	bldVal, btyp, err := fc.loadSym(v.Bld)
	if err != nil {
		return err
	}
	bldTyp, ok := btyp.(sir.Builder)
	if !ok {
		return fmt.Errorf("Merge target %s is not a Builder type", v.Bld)
	}
	mergeVal, mergeTyp, err := fc.loadSym(v.Val)
	if err != nil {
		return err
	}
	fam, err := builderFamilyFor(bldTyp.Kind)
	if err != nil {
		return err
	}
	return fam.lowerMerge(fc, bldTyp, bldVal, mergeVal, mergeTyp)
}

func (fc *funcCtx) lowerRes(v sir.Res) error {
	bldVal, btyp, err := fc.loadSym(v.Src)
	if err != nil {
		return err
	}
	bldTyp, ok := btyp.(sir.Builder)
	if !ok {
		return fmt.Errorf("Res source %s is not a Builder type", v.Src)
	}
	fam, err := builderFamilyFor(bldTyp.Kind)
	if err != nil {
		return err
	}
	dst := fc.fresh()
	if err := fam.lowerResult(fc, bldTyp, dst, bldVal); err != nil {
		return err
	}
	resultTyp := resultTypeOf(bldTyp)
	return fc.storeSym(v.Dst, resultTyp, dst)
}

// resultTypeOf returns the IR type a builder finalizes to (spec section
// 4.2's table: Appender -> Vector Elem, Merger -> Elem, DictMerger ->
// Dict K V, GroupMerger -> Dict K (Vector V), VecMerger -> Vector Elem).
func resultTypeOf(b sir.Builder) sir.IRType {
	switch b.Kind {
	case sir.Appender, sir.VecMerger:
		return sir.Vector{Elem: b.Elem}
	case sir.Merger:
		return b.Elem
	case sir.DictMerger:
		return sir.Dict{Key_: b.Key_, Value: b.Value}
	case sir.GroupMerger:
		return sir.Dict{Key_: b.Key_, Value: sir.Vector{Elem: b.Value}}
	default:
		return b.Elem
	}
}
