package codegen

import (
	"fmt"
	"strings"

	"sirgen/src/sir"
)

// builders.go implements the builder family as a small tagged sum (spec
// section 9's design note: "model the five builder kinds behind one
// interface with lower_new / lower_merge / lower_result / lower_type,
// dispatched once on BuilderKind, rather than a five-way switch sprinkled
// through the statement lowerer"). Each kind's file-local type implements
// builderFamily; builderFamilyFor is the single dispatch point.

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// builderFamily is the per-kind builder lowering strategy.
type builderFamily interface {
	// lowerType assigns/derives the LLIR type name for b and emits any
	// helpers the registry needs, memoizing through r.
	lowerType(r *typeRegistry, b sir.Builder) (string, error)

	// lowerNew emits the code that materialises a fresh builder value of
	// type b into dst (an SSA register name, not a slot), given the
	// optional initial-value argument for NewBuilder(arg) (spec section
	// 4.7); argVal is "" when hasArg is false.
	lowerNew(fc *funcCtx, b sir.Builder, dst string, argVal string, hasArg bool) error

	// lowerMerge emits the code that merges a value of type b's element
	// (or key/value) type at bldVal (the builder's current SSA value) with
	// mergeVal, whose IR type is mergeTyp (Merger dispatches scalar vs.
	// SIMD merges on this; the other families ignore it).
	lowerMerge(fc *funcCtx, b sir.Builder, bldVal string, mergeVal string, mergeTyp sir.IRType) error

	// lowerResult emits the code that converts a builder value at bldVal
	// into its final result, leaving the result's SSA name in dst.
	lowerResult(fc *funcCtx, b sir.Builder, dst string, bldVal string) error
}

// ---------------------
// ----- functions -----
// ---------------------

// builderFamilyFor returns the strategy for kind, or an error for any value
// outside the closed BuilderKind set (spec section 7).
func builderFamilyFor(kind sir.BuilderKind) (builderFamily, error) {
	switch kind {
	case sir.Appender:
		return appenderFamily{}, nil
	case sir.Merger:
		return mergerFamily{}, nil
	case sir.DictMerger:
		return dictMergerFamily{}, nil
	case sir.GroupMerger:
		return groupMergerFamily{}, nil
	case sir.VecMerger:
		return vecMergerFamily{}, nil
	default:
		return nil, fmt.Errorf("unknown builder kind %v", kind)
	}
}

// -----------------------------------------------------------------------
// Appender: a thread-local growable vector. New pieces are requested from
// the runtime per work item (spec section 5's "new piece per thread"
// model); Res concatenates all pieces into one Vector T.
// -----------------------------------------------------------------------

type appenderFamily struct{}

func (appenderFamily) lowerType(r *typeRegistry, b sir.Builder) (string, error) {
	elemName, err := r.get(b.Elem)
	if err != nil {
		return "", err
	}
	name := "%bld.appender." + strings.TrimPrefix(elemName, "%")
	if _, already := r.names["__emitted__"+name]; already {
		return name, nil
	}
	r.names["__emitted__"+name] = name
	r.prelude.Add("%s = type { i8* }", name)
	short := strings.TrimPrefix(name, "%")
	r.prelude.Add("declare i8* @weld_rt_new_vb(i64, i64, %%work_t*)")
	r.prelude.Add("declare void @weld_rt_new_vb_piece(i8*, %%work_t*, i32)")
	r.prelude.Add("declare %%v.%s @weld_rt_cur_piece.%s(i8*, i32)", short, short)
	r.prelude.Add("declare %%v.%s @weld_rt_result_vb.%s(i8*)", short, short)
	return name, nil
}

func (appenderFamily) lowerNew(fc *funcCtx, b sir.Builder, dst string, argVal string, hasArg bool) error {
	cap := "16"
	raw := fc.fresh()
	fc.emit("%s = call i8* @weld_rt_new_vb(i64 %s, i64 8, %%work_t* %s)", raw, cap, fc.workVar)
	fc.emit("%s = insertvalue %s undef, i8* %s, 0", dst, fc.bldTypeName(b), raw)
	return nil
}

func (appenderFamily) lowerMerge(fc *funcCtx, b sir.Builder, bldVal string, mergeVal string, mergeTyp sir.IRType) error {
	handle := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 0", handle, fc.bldTypeName(b), bldVal)
	elemName, err := fc.g.types.get(b.Elem)
	if err != nil {
		return err
	}
	piece := fc.fresh()
	short := strings.TrimPrefix(fc.bldTypeName(b), "%")
	fc.emit("%s = call %%v.%s @weld_rt_cur_piece.%s(i8* %s, i32 %s)", piece, short, short, handle, fc.tid)
	slotPtr := fc.fresh()
	fc.emit("%s = call %s* @%s.at(%%v.%s %s, i64 0)", slotPtr, elemName, strings.TrimPrefix("%v."+short, "%"), short, piece)
	fc.emit("store %s %s, %s* %s", elemName, mergeVal, elemName, slotPtr)
	return nil
}

func (appenderFamily) lowerResult(fc *funcCtx, b sir.Builder, dst string, bldVal string) error {
	handle := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 0", handle, fc.bldTypeName(b), bldVal)
	short := strings.TrimPrefix(fc.bldTypeName(b), "%")
	fc.emit("%s = call %%v.%s @weld_rt_result_vb.%s(i8* %s)", dst, short, short, handle)
	return nil
}

// -----------------------------------------------------------------------
// Merger: a per-thread scalar cell plus a per-thread vector (SIMD) cell,
// each sized by the runtime's worker count, combined under Op at Res time
// (spec section 4.8/4.9/4.10). Merge dispatches on the merged value's IR
// type (scalar vs. SIMD) to pick the matching cell array; Res reduces both
// cell arrays sequentially over every worker, then folds the vector
// accumulator horizontally into the scalar one.
// -----------------------------------------------------------------------

type mergerFamily struct{}

func (mergerFamily) lowerType(r *typeRegistry, b sir.Builder) (string, error) {
	elemName, err := r.get(b.Elem)
	if err != nil {
		return "", err
	}
	key := "merger:" + elemName + ":" + b.Op.String()
	if name, ok := r.names[key]; ok {
		return name, nil
	}
	name := r.n.mergerName()
	r.names[key] = name
	simdName := fmt.Sprintf("<%d x %s>", laneCount, elemName)
	r.prelude.Add("%s = type { %s*, %s* }", name, elemName, simdName)
	return name, nil
}

// mergerSimdName returns b's vector-cell LLIR type name (<laneCount x elem>).
func mergerSimdName(fc *funcCtx, b sir.Builder) (string, sir.ScalarKind, error) {
	elemName, err := fc.g.types.get(b.Elem)
	if err != nil {
		return "", 0, err
	}
	kind, _, ok := scalarKindOf(b.Elem)
	if !ok {
		return "", 0, fmt.Errorf("merger element type %s has no scalar/SIMD form", b.Elem)
	}
	return fmt.Sprintf("<%d x %s>", laneCount, elemName), kind, nil
}

func (mergerFamily) lowerNew(fc *funcCtx, b sir.Builder, dst string, argVal string, hasArg bool) error {
	elemName, err := fc.g.types.get(b.Elem)
	if err != nil {
		return err
	}
	simdName, _, err := mergerSimdName(fc, b)
	if err != nil {
		return err
	}
	identity := mergerIdentity(b.Op, b.Elem)

	nworkers := fc.fresh()
	fc.emit("%s = call i32 @weld_rt_get_nworkers()", nworkers)
	nworkers64 := fc.fresh()
	fc.emit("%s = zext i32 %s to i64", nworkers64, nworkers)

	scalarBytes := fc.fresh()
	fc.emit("%s = mul i64 %s, ptrtoint (%s* getelementptr (%s, %s* null, i32 1) to i64)", scalarBytes, nworkers64, elemName, elemName, elemName)
	scalarRaw := fc.fresh()
	fc.emit("%s = call i8* @weld_rt_malloc(i64 %s, i64 %s)", scalarRaw, fc.runVar, scalarBytes)
	scalarPtr := fc.fresh()
	fc.emit("%s = bitcast i8* %s to %s*", scalarPtr, scalarRaw, elemName)

	vectorBytes := fc.fresh()
	fc.emit("%s = mul i64 %s, ptrtoint (%s* getelementptr (%s, %s* null, i32 1) to i64)", vectorBytes, nworkers64, simdName, simdName, simdName)
	vectorRaw := fc.fresh()
	fc.emit("%s = call i8* @weld_rt_malloc(i64 %s, i64 %s)", vectorRaw, fc.runVar, vectorBytes)
	vectorPtr := fc.fresh()
	fc.emit("%s = bitcast i8* %s to %s*", vectorPtr, vectorRaw, simdName)

	acc := "undef"
	for i1 := 0; i1 < laneCount; i1++ {
		next := fc.fresh()
		fc.emit("%s = insertelement %s %s, %s %s, i32 %d", next, simdName, acc, elemName, identity, i1)
		acc = next
	}
	simdIdentity := acc

	idxAddr := fc.fresh()
	fc.emit("%s = alloca i64", idxAddr)
	fc.emit("store i64 0, i64* %s", idxAddr)
	uid := strings.TrimPrefix(fc.fresh(), "%t")
	headLbl, bodyLbl, doneLbl := "merger.init.head"+uid, "merger.init.body"+uid, "merger.init.done"+uid
	fc.emit("br label %%%s", headLbl)
	fc.emitLabel(headLbl)
	cur := fc.fresh()
	fc.emit("%s = load i64, i64* %s", cur, idxAddr)
	cont := fc.fresh()
	fc.emit("%s = icmp slt i64 %s, %s", cont, cur, nworkers64)
	fc.emit("br i1 %s, label %%%s, label %%%s", cont, bodyLbl, doneLbl)
	fc.emitLabel(bodyLbl)
	sCell := fc.fresh()
	fc.emit("%s = getelementptr %s, %s* %s, i64 %s", sCell, elemName, elemName, scalarPtr, cur)
	fc.emit("store %s %s, %s* %s", elemName, identity, elemName, sCell)
	vCell := fc.fresh()
	fc.emit("%s = getelementptr %s, %s* %s, i64 %s", vCell, simdName, simdName, vectorPtr, cur)
	fc.emit("store %s %s, %s* %s", simdName, simdIdentity, simdName, vCell)
	nextIdx := fc.fresh()
	fc.emit("%s = add i64 %s, 1", nextIdx, cur)
	fc.emit("store i64 %s, i64* %s", nextIdx, idxAddr)
	fc.emit("br label %%%s", headLbl)
	fc.emitLabel(doneLbl)

	if hasArg {
		zeroCell := fc.fresh()
		fc.emit("%s = getelementptr %s, %s* %s, i64 0", zeroCell, elemName, elemName, scalarPtr)
		fc.emit("store %s %s, %s* %s", elemName, argVal, elemName, zeroCell)
	}

	dst0 := fc.fresh()
	fc.emit("%s = insertvalue %s undef, %s* %s, 0", dst0, fc.bldTypeName(b), elemName, scalarPtr)
	fc.emit("%s = insertvalue %s %s, %s* %s, 1", dst, fc.bldTypeName(b), dst0, simdName, vectorPtr)
	return nil
}

func (mergerFamily) lowerMerge(fc *funcCtx, b sir.Builder, bldVal string, mergeVal string, mergeTyp sir.IRType) error {
	elemName, err := fc.g.types.get(b.Elem)
	if err != nil {
		return err
	}
	simdName, _, err := mergerSimdName(fc, b)
	if err != nil {
		return err
	}
	mnem, err := binopMnemonic(b.Op, mergeTyp)
	if err != nil {
		return err
	}

	if isSimd(mergeTyp) {
		cellsPtr := fc.fresh()
		fc.emit("%s = extractvalue %s %s, 1", cellsPtr, fc.bldTypeName(b), bldVal)
		myCell := fc.fresh()
		fc.emit("%s = getelementptr %s, %s* %s, i64 %s", myCell, simdName, simdName, cellsPtr, fc.tid)
		old := fc.fresh()
		fc.emit("%s = load %s, %s* %s", old, simdName, simdName, myCell)
		result := fc.fresh()
		fc.emit("%s = %s %s %s, %s", result, mnem, simdName, old, mergeVal)
		fc.emit("store %s %s, %s* %s", simdName, result, simdName, myCell)
		return nil
	}

	cellsPtr := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 0", cellsPtr, fc.bldTypeName(b), bldVal)
	myCell := fc.fresh()
	fc.emit("%s = getelementptr %s, %s* %s, i64 %s", myCell, elemName, elemName, cellsPtr, fc.tid)
	old := fc.fresh()
	fc.emit("%s = load %s, %s* %s", old, elemName, elemName, myCell)
	result := fc.fresh()
	fc.emit("%s = %s %s %s, %s", result, mnem, elemName, old, mergeVal)
	fc.emit("store %s %s, %s* %s", elemName, result, elemName, myCell)
	return nil
}

func (mergerFamily) lowerResult(fc *funcCtx, b sir.Builder, dst string, bldVal string) error {
	elemName, err := fc.g.types.get(b.Elem)
	if err != nil {
		return err
	}
	simdName, kind, err := mergerSimdName(fc, b)
	if err != nil {
		return err
	}
	mnem, err := binopMnemonic(b.Op, b.Elem)
	if err != nil {
		return err
	}
	simdMnem, err := binopMnemonic(b.Op, sir.Simd{Kind: kind})
	if err != nil {
		return err
	}
	identity := mergerIdentity(b.Op, b.Elem)

	scalarCells := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 0", scalarCells, fc.bldTypeName(b), bldVal)
	vectorCells := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 1", vectorCells, fc.bldTypeName(b), bldVal)

	nworkers := fc.fresh()
	fc.emit("%s = call i32 @weld_rt_get_nworkers()", nworkers)
	nworkers64 := fc.fresh()
	fc.emit("%s = zext i32 %s to i64", nworkers64, nworkers)

	scalarAcc := fc.fresh()
	fc.emit("%s = alloca %s", scalarAcc, elemName)
	fc.emit("store %s %s, %s* %s", elemName, identity, elemName, scalarAcc)
	vectorAcc := fc.fresh()
	fc.emit("%s = alloca %s", vectorAcc, simdName)
	vacc := "undef"
	for i1 := 0; i1 < laneCount; i1++ {
		next := fc.fresh()
		fc.emit("%s = insertelement %s %s, %s %s, i32 %d", next, simdName, vacc, elemName, identity, i1)
		vacc = next
	}
	fc.emit("store %s %s, %s* %s", simdName, vacc, simdName, vectorAcc)

	idxAddr := fc.fresh()
	fc.emit("%s = alloca i64", idxAddr)
	fc.emit("store i64 0, i64* %s", idxAddr)
	uid := strings.TrimPrefix(fc.fresh(), "%t")
	headLbl, bodyLbl, doneLbl := "merger.res.head"+uid, "merger.res.body"+uid, "merger.res.done"+uid
	fc.emit("br label %%%s", headLbl)
	fc.emitLabel(headLbl)
	cur := fc.fresh()
	fc.emit("%s = load i64, i64* %s", cur, idxAddr)
	cont := fc.fresh()
	fc.emit("%s = icmp slt i64 %s, %s", cont, cur, nworkers64)
	fc.emit("br i1 %s, label %%%s, label %%%s", cont, bodyLbl, doneLbl)
	fc.emitLabel(bodyLbl)

	sCellPtr := fc.fresh()
	fc.emit("%s = getelementptr %s, %s* %s, i64 %s", sCellPtr, elemName, elemName, scalarCells, cur)
	sVal := fc.fresh()
	fc.emit("%s = load %s, %s* %s", sVal, elemName, elemName, sCellPtr)
	sAccCur := fc.fresh()
	fc.emit("%s = load %s, %s* %s", sAccCur, elemName, elemName, scalarAcc)
	sCombined := fc.fresh()
	fc.emit("%s = %s %s %s, %s", sCombined, mnem, elemName, sAccCur, sVal)
	fc.emit("store %s %s, %s* %s", elemName, sCombined, elemName, scalarAcc)

	vCellPtr := fc.fresh()
	fc.emit("%s = getelementptr %s, %s* %s, i64 %s", vCellPtr, simdName, simdName, vectorCells, cur)
	vVal := fc.fresh()
	fc.emit("%s = load %s, %s* %s", vVal, simdName, simdName, vCellPtr)
	vAccCur := fc.fresh()
	fc.emit("%s = load %s, %s* %s", vAccCur, simdName, simdName, vectorAcc)
	vCombined := fc.fresh()
	fc.emit("%s = %s %s %s, %s", vCombined, simdMnem, simdName, vAccCur, vVal)
	fc.emit("store %s %s, %s* %s", simdName, vCombined, simdName, vectorAcc)

	nextIdx := fc.fresh()
	fc.emit("%s = add i64 %s, 1", nextIdx, cur)
	fc.emit("store i64 %s, i64* %s", nextIdx, idxAddr)
	fc.emit("br label %%%s", headLbl)
	fc.emitLabel(doneLbl)

	finalScalar := fc.fresh()
	fc.emit("%s = load %s, %s* %s", finalScalar, elemName, elemName, scalarAcc)
	finalVector := fc.fresh()
	fc.emit("%s = load %s, %s* %s", finalVector, simdName, simdName, vectorAcc)

	acc := finalScalar
	for i1 := 0; i1 < laneCount; i1++ {
		lane := fc.fresh()
		fc.emit("%s = extractelement %s %s, i32 %d", lane, simdName, finalVector, i1)
		target := fc.fresh()
		if i1 == laneCount-1 {
			target = dst
		}
		fc.emit("%s = %s %s %s, %s", target, mnem, elemName, acc, lane)
		acc = target
	}
	return nil
}

// mergerIdentity returns the identity element for op over elem's scalar
// kind (0 for +, 1 for *, all-ones for &, 0 for | and ^).
func mergerIdentity(op sir.BinOpKind, elem sir.IRType) string {
	_, isFloat, ok := scalarKindOf(elem)
	switch op {
	case sir.Mul:
		if isFloat {
			return "1.0"
		}
		return "1"
	case sir.BitwiseAnd:
		return "-1"
	default:
		if ok && isFloat {
			return "0.0"
		}
		return "0"
	}
}

// -----------------------------------------------------------------------
// DictMerger: merges (key, value) pairs into a Dict K V, combining
// repeated keys under Op.
// -----------------------------------------------------------------------

type dictMergerFamily struct{}

func (dictMergerFamily) lowerType(r *typeRegistry, b sir.Builder) (string, error) {
	dictName, err := r.get(sir.Dict{Key_: b.Key_, Value: b.Value})
	if err != nil {
		return "", err
	}
	return "%bld.dictmerger." + strings.TrimPrefix(dictName, "%"), nil
}

func (dictMergerFamily) lowerNew(fc *funcCtx, b sir.Builder, dst string, argVal string, hasArg bool) error {
	dictName, err := fc.g.types.get(sir.Dict{Key_: b.Key_, Value: b.Value})
	if err != nil {
		return err
	}
	d := fc.fresh()
	fc.emit("%s = call %s @%s.new(i64 16)", d, dictName, strings.TrimPrefix(dictName, "%"))
	fc.emit("%s = insertvalue %s undef, %s %s, 0", dst, fc.bldTypeName(b), dictName, d)
	return nil
}

func (dictMergerFamily) lowerMerge(fc *funcCtx, b sir.Builder, bldVal string, mergeVal string, mergeTyp sir.IRType) error {
	dictName, err := fc.g.types.get(sir.Dict{Key_: b.Key_, Value: b.Value})
	if err != nil {
		return err
	}
	d := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 0", d, fc.bldTypeName(b), bldVal)
	slot := fc.fresh()
	fc.emit("%s = call %s.slot* @%s.lookup(%s %s, %s %%dm.key)", slot, dictName, strings.TrimPrefix(dictName, "%"), dictName, d, b.Key_)
	valName, err := fc.g.types.get(b.Value)
	if err != nil {
		return err
	}
	mnem, err := binopMnemonic(b.Op, b.Value)
	if err != nil {
		return err
	}
	old := fc.fresh()
	fc.emit("%s = call %s @%s.slot.value(%s.slot* %s)", old, valName, strings.TrimPrefix(dictName, "%"), dictName, slot)
	combined := fc.fresh()
	fc.emit("%s = %s %s %s, %s", combined, mnem, valName, old, mergeVal)
	valPtr := fc.fresh()
	fc.emit("%s = getelementptr %s.slot, %s.slot* %s, i32 0, i32 2", valPtr, dictName, dictName, slot)
	fc.emit("store %s %s, %s* %s", valName, combined, valName, valPtr)
	return nil
}

func (dictMergerFamily) lowerResult(fc *funcCtx, b sir.Builder, dst string, bldVal string) error {
	dictName, err := fc.g.types.get(sir.Dict{Key_: b.Key_, Value: b.Value})
	if err != nil {
		return err
	}
	d := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 0", d, fc.bldTypeName(b), bldVal)
	fc.emit("%s = bitcast %s %s to %s", dst, dictName, d, dictName)
	return nil
}

// -----------------------------------------------------------------------
// GroupMerger: merges (key, value) pairs, appending each value onto a
// per-key Vector Value rather than combining under an operator.
// -----------------------------------------------------------------------

type groupMergerFamily struct{}

func (groupMergerFamily) lowerType(r *typeRegistry, b sir.Builder) (string, error) {
	dictName, err := r.get(sir.Dict{Key_: b.Key_, Value: sir.Vector{Elem: b.Value}})
	if err != nil {
		return "", err
	}
	return "%bld.groupmerger." + strings.TrimPrefix(dictName, "%"), nil
}

func (groupMergerFamily) lowerNew(fc *funcCtx, b sir.Builder, dst string, argVal string, hasArg bool) error {
	dictName, err := fc.g.types.get(sir.Dict{Key_: b.Key_, Value: sir.Vector{Elem: b.Value}})
	if err != nil {
		return err
	}
	d := fc.fresh()
	fc.emit("%s = call %s @%s.new(i64 16)", d, dictName, strings.TrimPrefix(dictName, "%"))
	fc.emit("%s = insertvalue %s undef, %s %s, 0", dst, fc.bldTypeName(b), dictName, d)
	return nil
}

func (groupMergerFamily) lowerMerge(fc *funcCtx, b sir.Builder, bldVal string, mergeVal string, mergeTyp sir.IRType) error {
	dictName, err := fc.g.types.get(sir.Dict{Key_: b.Key_, Value: sir.Vector{Elem: b.Value}})
	if err != nil {
		return err
	}
	d := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 0", d, fc.bldTypeName(b), bldVal)
	slot := fc.fresh()
	fc.emit("%s = call %s.slot* @%s.lookup(%s %s, %s %%gm.key)", slot, dictName, strings.TrimPrefix(dictName, "%"), dictName, d, b.Key_)
	fc.emit("call void @weld_rt_group_append(%s.slot* %s)", dictName, slot)
	return nil
}

func (groupMergerFamily) lowerResult(fc *funcCtx, b sir.Builder, dst string, bldVal string) error {
	dictName, err := fc.g.types.get(sir.Dict{Key_: b.Key_, Value: sir.Vector{Elem: b.Value}})
	if err != nil {
		return err
	}
	d := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 0", d, fc.bldTypeName(b), bldVal)
	fc.emit("%s = bitcast %s %s to %s", dst, dictName, d, dictName)
	return nil
}

// -----------------------------------------------------------------------
// VecMerger: a thread-local copy-on-write Vector T, merged positionally
// under Op at Res time.
// -----------------------------------------------------------------------

type vecMergerFamily struct{}

func (vecMergerFamily) lowerType(r *typeRegistry, b sir.Builder) (string, error) {
	vecName, err := r.get(sir.Vector{Elem: b.Elem})
	if err != nil {
		return "", err
	}
	return "%bld.vecmerger." + strings.TrimPrefix(vecName, "%"), nil
}

func (vecMergerFamily) lowerNew(fc *funcCtx, b sir.Builder, dst string, argVal string, hasArg bool) error {
	vecName, err := fc.g.types.get(sir.Vector{Elem: b.Elem})
	if err != nil {
		return err
	}
	handle := fc.fresh()
	fc.emit("%s = call i8* @weld_rt_new_merger(%s %s, i32 %s)", handle, vecName, argVal, fc.tid)
	fc.emit("%s = insertvalue %s undef, i8* %s, 0", dst, fc.bldTypeName(b), handle)
	return nil
}

func (vecMergerFamily) lowerMerge(fc *funcCtx, b sir.Builder, bldVal string, mergeVal string, mergeTyp sir.IRType) error {
	handle := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 0", handle, fc.bldTypeName(b), bldVal)
	fc.emit("call void @weld_rt_merger_merge(i8* %s, i32 %s, i64 %%vm.idx, i8* %s)", handle, fc.tid, mergeVal)
	return nil
}

func (vecMergerFamily) lowerResult(fc *funcCtx, b sir.Builder, dst string, bldVal string) error {
	vecName, err := fc.g.types.get(sir.Vector{Elem: b.Elem})
	if err != nil {
		return err
	}
	handle := fc.fresh()
	fc.emit("%s = extractvalue %s %s, 0", handle, fc.bldTypeName(b), bldVal)
	mnem, err := binopMnemonic(b.Op, b.Elem)
	if err != nil {
		return err
	}
	fc.emit("%s = call %s @weld_rt_merger_result_%s(i8* %s)", dst, vecName, strings.ToLower(mnem), handle)
	return nil
}
