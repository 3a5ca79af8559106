package codegen

import (
	"fmt"

	"sirgen/src/sir"
)

// top.go lowers the module's public entry point (spec section 4.6): a
// function taking the single packed %input_arg_t the JIT driver
// constructs, unpacking it into the program's own top-level parameters
// (declaration order, not the canonical ascending-symbol order
// lowerFunction uses for ordinary functions), configuring the runtime,
// invoking @execute on function 0 through its trampoline, and packing the
// result into a heap-allocated %output_arg_t.

// entryName is the fixed external symbol the JIT driver calls.
const entryName = "@run"

// lowerTopDriver emits @run(i64) and the thin body-trampoline wiring for
// SIR function 0, the program's entry function.
func (g *LlvmGenerator) lowerTopDriver(prog *sir.Program) error {
	argsName, err := g.topArgsStruct(prog)
	if err != nil {
		return err
	}

	fc := &funcCtx{g: g}
	fc.buf.Add("define i64 %s(i64 %%args.ptr) {", entryName)
	fc.buf.AddString("entry:")
	fc.emit("%%input = inttoptr i64 %%args.ptr to %%input_arg_t*")
	fc.emit("%%input.val = load %%input_arg_t, %%input_arg_t* %%input")
	fc.emit("%%top.args.i64 = extractvalue %%input_arg_t %%input.val, 0")
	fc.emit("%%top.nworkers = extractvalue %%input_arg_t %%input.val, 1")
	fc.emit("%%top.memlimit = extractvalue %%input_arg_t %%input.val, 2")
	fc.runVar = "%run.id"
	fc.emit("%s = call i64 @get_runid()", fc.runVar)
	fc.emit("call void @set_nworkers(i32 %%top.nworkers)")
	fc.emit("call void @weld_rt_init(i64 %%top.memlimit)")

	// Top-level parameters are unpacked in *declaration* order (spec
	// section 4.6): the external %input_arg_t's args field is an i64
	// pointer to the program's own arguments, packed by the JIT driver in
	// source order, which is independent of any codegen-internal ordering.
	fc.emit("%%top.args = inttoptr i64 %%top.args.i64 to %s*", argsName)
	values := make(map[sir.Symbol]string, len(prog.TopParams))
	types := make(map[sir.Symbol]sir.IRType, len(prog.TopParams))
	for i1, p := range prog.TopParams {
		tn, err := g.types.get(p.Typ)
		if err != nil {
			return err
		}
		fieldPtr := fmt.Sprintf("%%top.f%d.ptr", i1)
		fieldVal := fmt.Sprintf("%%top.f%d", i1)
		fc.emit("%s = getelementptr %s, %s* %%top.args, i32 0, i32 %d", fieldPtr, argsName, argsName, i1)
		fc.emit("%s = load %s, %s* %s", fieldVal, tn, tn, fieldPtr)
		values[p.Sym] = fieldVal
		types[p.Sym] = p.Typ
	}
	provider := func(sym sir.Symbol) (string, sir.IRType, error) {
		val, ok := values[sym]
		if !ok {
			return "", nil, fmt.Errorf("function 0 parameter %s is not a declared top-level parameter", sym)
		}
		return val, types[sym], nil
	}

	bodyArgs, err := fc.buildArgStruct(0, provider)
	if err != nil {
		return err
	}
	fc.emit("%%top.work = alloca %%work_t")
	fc.emit("%%top.args.field = getelementptr %%work_t, %%work_t* %%top.work, i32 0, i32 0")
	fc.emit("store i8* %s, i8** %%top.args.field", bodyArgs)
	fc.emit("call void @execute(void (%%work_t*)* %s, i64 %s)", trampolineName(0), fc.runVar)

	fc.emit("%%result.raw = call i8* @get_result(i64 %s)", fc.runVar)
	fc.emit("%%result.i64 = ptrtoint i8* %%result.raw to i64")
	fc.emit("%%errno.i64 = call i64 @weld_rt_get_errno(i64 %s)", fc.runVar)
	fc.emit("%%errno.i32 = trunc i64 %%errno.i64 to i32")

	fc.emit("%%out0 = insertvalue %%output_arg_t undef, i64 %%result.i64, 0")
	fc.emit("%%out1 = insertvalue %%output_arg_t %%out0, i64 %s, 1", fc.runVar)
	fc.emit("%%out2 = insertvalue %%output_arg_t %%out1, i32 %%errno.i32, 2")
	fc.emit("%%out.raw = call i8* @malloc(i64 ptrtoint (%%output_arg_t* getelementptr (%%output_arg_t, %%output_arg_t* null, i32 1) to i64))")
	fc.emit("%%out.ptr = bitcast i8* %%out.raw to %%output_arg_t*")
	fc.emit("store %%output_arg_t %%out2, %%output_arg_t* %%out.ptr")
	fc.emit("%%out.i64 = ptrtoint %%output_arg_t* %%out.ptr to i64")
	fc.emit("ret i64 %%out.i64")
	fc.buf.AddString("}")
	fc.buf.AddString("")

	g.mod.body.AddString(fc.buf.Result())
	return g.emitTrampoline(0, false)
}

// topArgsStruct assigns and emits the declaration for the program's own
// argument layout, one field per top-level parameter in declaration
// order: this is what the JIT driver's %input_arg_t.args pointer actually
// points at.
func (g *LlvmGenerator) topArgsStruct(prog *sir.Program) (string, error) {
	fieldNames := make([]string, len(prog.TopParams))
	for i1, p := range prog.TopParams {
		tn, err := g.types.get(p.Typ)
		if err != nil {
			return "", err
		}
		fieldNames[i1] = tn
	}
	name := "%top.args"
	g.mod.prelude.Add("%s = type { %s }", name, joinComma(fieldNames))
	return name, nil
}
