package codegen

import (
	"fmt"
	"strings"

	"sirgen/src/sir"
	"sirgen/src/util"
)

// loop.go lowers a ParallelFor terminator (spec sections 4.4/4.5): a
// bounds check across all iterators, a runtime grain-size dispatch between
// an in-place serial call and a @pl_start_loop parallel dispatch, and the
// two trampolines (body, continuation) that give the loop body and
// continuation functions the fixed void(%work_t*) calling convention the
// runtime invokes them with.

// innermostGrain/serialGrain are the two fixed grain sizes spec section
// 4.5 names: 4096 for the innermost loop of a nest, 1 otherwise (so an
// outer loop of a nest takes the parallel path whenever it has more than
// one iteration and lets the innermost loop do the serial/parallel split).
const (
	innermostGrain = 4096
	serialGrain    = 1
)

// loopBound holds the resolved [start, end) and stride SSA values for one
// iterator, after defaulting an unbounded iterator to the whole vector.
type loopBound struct {
	start, end, stride string
}

// lowerParallelFor emits the bounds check and dispatch for pf at the
// current point in the block, then ends the block (the continuation
// function, already enqueued by the caller, carries on after the loop
// completes at runtime).
func (fc *funcCtx) lowerParallelFor(pf sir.ParallelFor) error {
	bounds := make([]loopBound, len(pf.Iters))
	for i1, it := range pf.Iters {
		b, err := fc.lowerIteratorBounds(it)
		if err != nil {
			return err
		}
		bounds[i1] = b
	}
	if err := fc.emitBoundsCheck(bounds); err != nil {
		return err
	}

	numIters, err := fc.numItersOf(pf, bounds[0])
	if err != nil {
		return err
	}

	grain := serialGrain
	if pf.Innermost {
		grain = innermostGrain
	}
	useSerial := fc.fresh()
	fc.emit("%s = icmp sle i64 %s, %d", useSerial, numIters, grain)
	uid := strings.TrimPrefix(fc.fresh(), "%t")
	serLbl, parLbl := "for.ser"+uid, "for.par"+uid
	fc.emit("br i1 %s, label %%%s, label %%%s", useSerial, serLbl, parLbl)

	fc.emitLabel(serLbl)
	if err := fc.emitSerialCall(pf, numIters); err != nil {
		return err
	}
	fc.emit("br label %%body.end")

	fc.emitLabel(parLbl)
	if err := fc.emitParallelDispatch(pf, numIters, grain); err != nil {
		return err
	}
	fc.emit("br label %%body.end")

	return fc.g.emitTrampolines(pf)
}

// simdStrideOf resolves the SIMD lane stride for pf as the minimum lane
// count across all Simd iterators (spec section 9's resolved open
// question: minimum, not first-seen), or 1 if pf has no Simd iterators.
func (fc *funcCtx) simdStrideOf(pf sir.ParallelFor) (int, error) {
	stride := 0
	for _, it := range pf.Iters {
		if it.Kind != sir.IterSimd {
			continue
		}
		if stride == 0 || laneCount < stride {
			stride = laneCount
		}
	}
	if stride == 0 {
		return 1, nil
	}
	return stride, nil
}

// numItersOf computes the first iterator's iteration count (spec section
// 4.5 step 1): the whole-vector size when unbounded, (end-start)/stride
// for explicit bounds, or the fringe remainder past the last full SIMD
// lane group.
func (fc *funcCtx) numItersOf(pf sir.ParallelFor, first loopBound) (string, error) {
	if len(pf.Iters) == 0 {
		return "", fmt.Errorf("ParallelFor has no iterators")
	}
	if pf.Iters[0].Kind == sir.IterFringe {
		n := fc.fresh()
		fc.emit("%s = udiv i64 %s, %d", n, first.end, laneCount)
		base := fc.fresh()
		fc.emit("%s = mul i64 %s, %d", base, n, laneCount)
		rem := fc.fresh()
		fc.emit("%s = sub i64 %s, %s", rem, first.end, base)
		return rem, nil
	}
	span := fc.fresh()
	fc.emit("%s = sub i64 %s, %s", span, first.end, first.start)
	if first.stride == "1" || first.stride == "" {
		return span, nil
	}
	n := fc.fresh()
	fc.emit("%s = sdiv i64 %s, %s", n, span, first.stride)
	return n, nil
}

// lowerIteratorBounds resolves one iterator's [start, end) and stride,
// defaulting to the data symbol's whole length when HasBounds is false.
func (fc *funcCtx) lowerIteratorBounds(it sir.Iterator) (loopBound, error) {
	dv, dtyp, err := fc.loadSym(it.Data)
	if err != nil {
		return loopBound{}, err
	}
	vecTyp, ok := dtyp.(sir.Vector)
	if !ok {
		return loopBound{}, fmt.Errorf("ParallelFor iterator data %s is not a Vector type", it.Data)
	}
	tn, err := fc.g.types.get(vecTyp)
	if err != nil {
		return loopBound{}, err
	}

	if !it.HasBounds {
		size := fc.fresh()
		fc.emit("%s = call i64 @%s.size(%s %s)", size, strings.TrimPrefix(tn, "%"), tn, dv)
		return loopBound{start: "0", end: size, stride: "1"}, nil
	}
	if it.Kind == sir.IterFringe {
		return loopBound{}, fmt.Errorf("fringe iterator on %s may not specify an explicit start (spec section 3.2)", it.Data)
	}

	sv, _, err := fc.loadSym(it.Start)
	if err != nil {
		return loopBound{}, err
	}
	ev, _, err := fc.loadSym(it.End)
	if err != nil {
		return loopBound{}, err
	}
	stv, _, err := fc.loadSym(it.Stride)
	if err != nil {
		return loopBound{}, err
	}
	if it.Kind == sir.IterSimd {
		check := fc.fresh()
		fc.emit("%s = icmp eq i64 %s, 1", check, stv)
	}
	return loopBound{start: sv, end: ev, stride: stv}, nil
}

// emitBoundsCheck compares every iterator's item count against the first
// and, on mismatch, sets BadIteratorLength and aborts the run rather than
// reading out of bounds.
func (fc *funcCtx) emitBoundsCheck(bounds []loopBound) error {
	if len(bounds) < 2 {
		return nil
	}
	ref := fc.fresh()
	fc.emit("%s = sub i64 %s, %s", ref, bounds[0].end, bounds[0].start)
	for i1 := 1; i1 < len(bounds); i1++ {
		n := fc.fresh()
		fc.emit("%s = sub i64 %s, %s", n, bounds[i1].end, bounds[i1].start)
		eq := fc.fresh()
		fc.emit("%s = icmp eq i64 %s, %s", eq, n, ref)
		next := strings.TrimPrefix(fc.fresh(), "%t") + ".boundsok"
		fc.emit("br i1 %s, label %%%s, label %%fn.boundcheckfailed", eq, next)
		fc.emitLabel(next)
	}
	fc.g.emitBoundCheckFailedBlockOnce(fc)
	return nil
}

// emitSerialCall runs the body function in-place over [0, numIters) then
// calls the continuation, both using the native argument values already
// live in the enclosing function's scope (spec section 4.5 step 3's
// "call the body in-place" path — no work descriptor population needed
// since this runs on the calling thread with its own stack frame).
func (fc *funcCtx) emitSerialCall(pf sir.ParallelFor, numIters string) error {
	if err := fc.callFunctionWithRange(pf.Body, "0", numIters, fc.bodyProvider(pf)); err != nil {
		return err
	}
	return fc.callFunctionWithRange(pf.Cont, "", "", fc.loadSym)
}

// bodyProvider returns an argProvider that resolves the loop body's
// per-iteration builder-arg symbol to the enclosing scope's builder
// symbol: the body function's own declared parameter is named
// pf.BuilderArg, but the only value the caller's scope actually has under
// that name is pf.Builder's (spec section 4.4's "Builder symbol merged
// into by the body" vs. "per-iteration builder-arg symbol bound inside
// the body" — two names for the same value across the call boundary).
func (fc *funcCtx) bodyProvider(pf sir.ParallelFor) argProvider {
	return func(sym sir.Symbol) (string, sir.IRType, error) {
		if pf.BuilderArg != (sir.Symbol{}) && sym == pf.BuilderArg && pf.Builder != (sir.Symbol{}) {
			sym = pf.Builder
		}
		return fc.loadSym(sym)
	}
}

// callFunctionWithRange calls a SIR function directly (not through a
// trampoline), passing the enclosing function's current %work_t* and, for
// every sorted parameter, the value get resolves for that symbol; when
// lower/upper are non-empty the loop body's two extra range parameters
// are appended.
func (fc *funcCtx) callFunctionWithRange(id int, lower, upper string, get argProvider) error {
	fn := fc.g.prog.FuncByID(id)
	if fn == nil {
		return fmt.Errorf("reference to undefined function %d", id)
	}
	params := sir.SortSymbols(fn.Params)
	args := make([]string, 0, len(params)+3)
	args = append(args, "%work_t* "+fc.workVar)
	for _, p := range params {
		val, typ, err := get(p.Sym)
		if err != nil {
			return err
		}
		tn, err := fc.g.types.get(typ)
		if err != nil {
			return err
		}
		args = append(args, tn+" "+val)
	}
	if lower != "" {
		args = append(args, "i64 "+lower, "i64 "+upper)
	}
	fc.emit("call void %s(%s)", funcName(id), joinComma(args))
	return nil
}

func (fc *funcCtx) emitParallelDispatch(pf sir.ParallelFor, numIters string, grain int) error {
	bodyArgs, err := fc.buildArgStruct(pf.Body, fc.bodyProvider(pf))
	if err != nil {
		return err
	}
	contArgs, err := fc.buildArgStruct(pf.Cont, fc.loadSym)
	if err != nil {
		return err
	}
	fc.emit("call void @pl_start_loop(%%work_t* %s, i8* %s, i8* %s, void (%%work_t*)* %s, void (%%work_t*)* %s, i64 0, i64 %s, i32 %d)",
		fc.workVar, bodyArgs, contArgs, trampolineName(pf.Body), trampolineName(pf.Cont), numIters, grain)
	return nil
}

// argProvider returns the current LLIR value and IR type for sym; both
// fc.loadSym (ordinary in-scope symbols) and the top driver's own
// already-unpacked register map satisfy this shape.
type argProvider func(sir.Symbol) (string, sir.IRType, error)

// buildArgStruct heap-allocates and populates (spec section 4.5: "the
// argument struct is heap-allocated with @malloc ... populated by
// insertvalue in sorted parameter order") the struct the trampoline for
// fn recovers its real call arguments from, returning an i8* to it.
func (fc *funcCtx) buildArgStruct(id int, get argProvider) (string, error) {
	fn := fc.g.prog.FuncByID(id)
	if fn == nil {
		return "", fmt.Errorf("reference to undefined function %d", id)
	}
	params := sir.SortSymbols(fn.Params)
	name, fieldNames, err := fc.g.argStructFor(id)
	if err != nil {
		return "", err
	}
	acc := "undef"
	for i1, p := range params {
		val, _, err := get(p.Sym)
		if err != nil {
			return "", err
		}
		next := fc.fresh()
		fc.emit("%s = insertvalue %s %s, %s %s, %d", next, name, acc, fieldNames[i1], val, i1)
		acc = next
	}
	raw := fc.fresh()
	fc.emit("%s = call i8* @malloc(i64 ptrtoint (%s* getelementptr (%s, %s* null, i32 1) to i64))", raw, name, name, name)
	typed := fc.fresh()
	fc.emit("%s = bitcast i8* %s to %s*", typed, raw, name)
	fc.emit("store %s %s, %s* %s", name, acc, name, typed)
	return raw, nil
}

// argStructFor returns the memoized bare argument-struct type for a
// function's sorted parameters, minting it once via declareArgStruct so
// buildArgStruct's call site and emitTrampoline's unpacking agree on the
// same concrete struct name for a given function id.
func (g *LlvmGenerator) argStructFor(id int) (string, []string, error) {
	if info, ok := g.argStructs[id]; ok {
		return info.name, info.fieldNames, nil
	}
	fn := g.prog.FuncByID(id)
	if fn == nil {
		return "", nil, fmt.Errorf("reference to undefined function %d", id)
	}
	params := sir.SortSymbols(fn.Params)
	name, fieldNames, err := g.declareArgStruct(params)
	if err != nil {
		return "", nil, err
	}
	if g.argStructs == nil {
		g.argStructs = make(map[int]argStructInfo)
	}
	g.argStructs[id] = argStructInfo{name: name, fieldNames: fieldNames}
	return name, fieldNames, nil
}

// declareArgStruct assigns a fresh bare struct type (no hash/cmp helpers
// — it exists only to give @malloc/insertvalue/extractvalue a fixed
// layout for one function's stashed call arguments, not to participate
// in IR-type memoization) with one field per sorted parameter.
func (g *LlvmGenerator) declareArgStruct(params []sir.SymbolType) (string, []string, error) {
	fieldNames := make([]string, len(params))
	for i1, p := range params {
		tn, err := g.types.get(p.Typ)
		if err != nil {
			return "", nil, err
		}
		fieldNames[i1] = tn
	}
	name := g.n.argStructName()
	g.mod.prelude.Add("%s = type { %s }", name, joinComma(fieldNames))
	return name, fieldNames, nil
}

// trampolineName returns the LLIR symbol for a SIR function's
// void(%work_t*) trampoline wrapper.
func trampolineName(id int) string {
	return fmt.Sprintf("@f%d_par", id)
}

// emitBoundCheckFailedBlockOnce emits the shared fn.boundcheckfailed block
// into the current function body the first time a loop in fn needs it.
func (g *LlvmGenerator) emitBoundCheckFailedBlockOnce(fc *funcCtx) {
	if g.boundCheckEmitted == nil {
		g.boundCheckEmitted = make(map[int]bool)
	}
	if g.boundCheckEmitted[fc.fn.Id] {
		return
	}
	g.boundCheckEmitted[fc.fn.Id] = true
	fc.buf.AddString("fn.boundcheckfailed:")
	fc.buf.Add("  call void @weld_rt_set_errno(i64 %s, i64 %d)", fc.runVar, errnoBadIteratorLength)
	fc.buf.AddString("  call void @weld_abort_thread()")
	fc.buf.AddString("  unreachable")
}

// emitTrampolines defines the body and continuation trampolines for pf.
func (g *LlvmGenerator) emitTrampolines(pf sir.ParallelFor) error {
	if err := g.emitTrampoline(pf.Body, true); err != nil {
		return err
	}
	return g.emitTrampoline(pf.Cont, false)
}

// emitTrampoline defines one void(%work_t*) wrapper that unpacks the real
// argument struct stashed behind the work descriptor's args pointer (spec
// section 4.5), invokes .newPiece on every Appender parameter's real
// handle, and calls the wrapped SIR function. isLoopBody selects between
// the body's gated-on-"full"-flag newPiece plus lower/upper range
// parameters, and the continuation's unconditional newPiece with no range
// (spec section 4.5: "identical except it unconditionally creates new
// pieces").
func (g *LlvmGenerator) emitTrampoline(id int, isLoopBody bool) error {
	if g.trampolineEmitted == nil {
		g.trampolineEmitted = make(map[int]bool)
	}
	if g.trampolineEmitted[id] {
		return nil
	}
	g.trampolineEmitted[id] = true

	fn := g.prog.FuncByID(id)
	if fn == nil {
		return fmt.Errorf("reference to undefined function %d", id)
	}
	params := sir.SortSymbols(fn.Params)
	argsName, fieldNames, err := g.argStructFor(id)
	if err != nil {
		return err
	}

	var buf util.Buffer
	buf.Add("define void %s(%%work_t* %%w) {", trampolineName(id))
	buf.AddString("entry:")
	buf.AddString("  %args.ptr.ptr = getelementptr %work_t, %work_t* %w, i32 0, i32 0")
	buf.AddString("  %args.raw = load i8*, i8** %args.ptr.ptr")
	buf.Add("  %%args = bitcast i8* %%args.raw to %s*", argsName)
	buf.Add("  %%args.val = load %s, %s* %%args", argsName, argsName)
	buf.AddString("  %lower.ptr = getelementptr %work_t, %work_t* %w, i32 0, i32 1")
	buf.AddString("  %lower = load i64, i64* %lower.ptr")
	buf.AddString("  %upper.ptr = getelementptr %work_t, %work_t* %w, i32 0, i32 2")
	buf.AddString("  %upper = load i64, i64* %upper.ptr")

	argVals := make([]string, len(params))
	for i1 := range params {
		v := fmt.Sprintf("%%arg%d", i1)
		buf.Add("  %s = extractvalue %s %%args.val, %d", v, argsName, i1)
		argVals[i1] = v
	}

	if isLoopBody {
		buf.AddString("  %full.ptr = getelementptr %work_t, %work_t* %w, i32 0, i32 4")
		buf.AddString("  %full = load i32, i32* %full.ptr")
		buf.AddString("  %isfull = icmp ne i32 %full, 0")
		buf.AddString("  br i1 %isfull, label %newpiece, label %call")
		buf.AddString("newpiece:")
		emitNewPieces(&buf, params, fieldNames, argVals)
		buf.AddString("  br label %call")
	} else {
		emitNewPieces(&buf, params, fieldNames, argVals)
		buf.AddString("  br label %call")
	}
	buf.AddString("call:")

	args := make([]string, 0, len(params)+3)
	args = append(args, "%work_t* %w")
	for i1, p := range params {
		tn, err := g.types.get(p.Typ)
		if err != nil {
			return err
		}
		args = append(args, tn+" "+argVals[i1])
	}
	if isLoopBody {
		args = append(args, "i64 %lower", "i64 %upper")
	}
	buf.Add("  call void %s(%s)", funcName(id), joinComma(args))
	buf.AddString("  ret void")
	buf.AddString("}")
	buf.AddString("")

	g.mod.body.AddString(buf.Result())
	return nil
}

// emitNewPieces invokes @weld_rt_new_vb_piece on every real Appender
// parameter's extracted handle (spec section 4.5/4.9) rather than a
// single hardcoded null-handle call.
func emitNewPieces(buf *util.Buffer, params []sir.SymbolType, fieldNames, argVals []string) {
	for i1, p := range params {
		bt, ok := p.Typ.(sir.Builder)
		if !ok || bt.Kind != sir.Appender {
			continue
		}
		handle := fmt.Sprintf("%%piece.handle%d", i1)
		buf.Add("  %s = extractvalue %s %s, 0", handle, fieldNames[i1], argVals[i1])
		buf.Add("  call void @weld_rt_new_vb_piece(i8* %s, %%work_t* %%w, i32 %d)", handle, laneCount)
	}
}
