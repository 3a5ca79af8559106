package codegen

// runtime.go declares the fixed set of symbols the emitted module assumes
// are provided by the parallel runtime and the JIT driver's calling
// convention (spec section 6). None of these are defined by this core;
// the core only ever emits a `declare`.

// laneCount is the SIMD lane count the type registry pins for every
// primitive element type's Simd form (spec section 4.2 / design note in
// section 9: "the registry must pin one N per element type for the
// module's lifetime").
const laneCount = 4

// Work descriptor field indices (spec section 6 / glossary "Work descriptor").
const (
	workFieldArgs  = 0 // i8*  stashed args
	workFieldLower = 1 // i64  lower index
	workFieldUpper = 2 // i64  upper index
	workFieldOuter = 3 // i64  outer index
	workFieldFull  = 4 // i32  full-task flag
)

// errno values. BadIteratorLength (set by the loop bounds check) and Unknown
// (set by the Crash terminator, spec section 9's resolved open question) are
// the only ones this core sets directly. All other values are reserved for
// the runtime.
const (
	errnoSuccess          = 0
	errnoUnknown          = 1
	errnoBadIteratorLength = 2
)

// runtimeDecls are the fixed external declarations every module needs,
// emitted once into the prelude by (*LlvmGenerator).Generate.
var runtimeDecls = []string{
	"%work_t = type { i8*, i64, i64, i64, i32 }",
	"%input_arg_t = type { i64, i32, i64 }",
	"%output_arg_t = type { i64, i64, i32 }",
	"",
	"declare i32 @my_id_public()",
	"declare i64 @get_runid()",
	"declare i8* @get_result(i64)",
	"declare void @set_result(i64, i8*)",
	"declare void @set_nworkers(i32)",
	"declare i32 @weld_rt_get_nworkers()",
	"declare void @weld_rt_init(i64)",
	"declare i8* @weld_rt_malloc(i64, i64)",
	"declare void @weld_rt_set_errno(i64, i64)",
	"declare i64 @weld_rt_get_errno(i64)",
	"declare void @weld_abort_thread()",
	"declare void @execute(void (%work_t*)*, i64)",
	"declare void @pl_start_loop(%work_t*, i8*, i8*, void (%work_t*)*, void (%work_t*)*, i64, i64, i32)",
	"declare i8* @malloc(i64)",
}
