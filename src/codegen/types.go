package codegen

import (
	"fmt"
	"strings"

	"sirgen/src/sir"
	"sirgen/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// typeRegistry memoizes the LLIR name and helper-function family for each
// IR type (spec section 4.2). The first request for a structurally new IR
// type instantiates its helpers into the prelude; every later request for
// a structurally equal type (regardless of whether it is the same Go
// value) returns the same name without emitting anything further — this is
// the type-memoization property spec section 8 requires to be tested.
type typeRegistry struct {
	n                   *naming
	prelude             *util.Buffer
	names               map[string]string // IRType.Key() -> LLIR type/primitive name.
	dictRuntimeDeclared bool              // Guards the one-time @weld_rt_dict_* declares.
}

// ---------------------
// ----- functions -----
// ---------------------

func newTypeRegistry(n *naming, prelude *util.Buffer) *typeRegistry {
	return &typeRegistry{n: n, prelude: prelude, names: make(map[string]string, 32)}
}

// get returns the memoized LLIR name for t, instantiating it on first request.
func (r *typeRegistry) get(t sir.IRType) (string, error) {
	key := t.Key()
	if name, ok := r.names[key]; ok {
		return name, nil
	}
	name, err := r.instantiate(t)
	if err != nil {
		return "", err
	}
	r.names[key] = name
	return name, nil
}

func (r *typeRegistry) instantiate(t sir.IRType) (string, error) {
	switch v := t.(type) {
	case sir.Scalar:
		return scalarPrimitive(v.Kind), nil
	case sir.Simd:
		return fmt.Sprintf("<%d x %s>", laneCount, scalarPrimitive(v.Kind)), nil
	case sir.Struct:
		return r.instantiateStruct(v)
	case sir.Vector:
		return r.instantiateVector(v)
	case sir.Dict:
		return r.instantiateDict(v)
	case sir.Builder:
		return r.instantiateBuilder(v)
	default:
		return "", fmt.Errorf("unknown IR type %T", t)
	}
}

// scalarPrimitive maps a ScalarKind to its LLIR primitive name.
func scalarPrimitive(k sir.ScalarKind) string {
	switch k {
	case sir.Bool:
		return "i1"
	case sir.I8:
		return "i8"
	case sir.I32:
		return "i32"
	case sir.I64:
		return "i64"
	case sir.F32:
		return "float"
	case sir.F64:
		return "double"
	default:
		return "i64"
	}
}

// instantiateStruct assigns a fresh struct type name and emits the type
// declaration plus the hash and cmp helpers (aggregated via hash-combine
// and short-circuit compare; SIMD fields are skipped, per spec section 4.2).
func (r *typeRegistry) instantiateStruct(t sir.Struct) (string, error) {
	fieldNames := make([]string, len(t.Fields))
	for i1, f := range t.Fields {
		fn, err := r.get(f)
		if err != nil {
			return "", err
		}
		fieldNames[i1] = fn
	}
	name := r.n.structName()
	r.prelude.Add("%s = type { %s }", name, strings.Join(fieldNames, ", "))
	r.emitStructHash(name, t.Fields, fieldNames)
	r.emitStructCmp(name, t.Fields, fieldNames)
	return name, nil
}

func (r *typeRegistry) emitStructHash(name string, fields []sir.IRType, fieldNames []string) {
	r.prelude.Add("define i32 @%s.hash(%s* %%p) {", strings.TrimPrefix(name, "%"), name)
	r.prelude.AddString("entry:")
	r.prelude.AddString("  %acc.addr = alloca i32")
	r.prelude.AddString("  store i32 0, i32* %acc.addr")
	for i1, ft := range fields {
		if isSimd(ft) {
			continue // SIMD fields are skipped, spec section 4.2.
		}
		fptr := fmt.Sprintf("%%f%d.ptr", i1)
		fval := fmt.Sprintf("%%f%d.val", i1)
		fhash := fmt.Sprintf("%%f%d.hash", i1)
		acc := fmt.Sprintf("%%acc%d", i1)
		r.prelude.Add("  %s = getelementptr %s, %s* %%p, i32 0, i32 %d", fptr, name, name, i1)
		r.prelude.Add("  %s = load %s, %s* %s", fval, fieldNames[i1], fieldNames[i1], fptr)
		if _, _, ok := scalarKindOf(ft); ok {
			r.prelude.Add("  %s = bitcast %s %s to i32", fhash, fieldNames[i1], fval)
		} else {
			r.prelude.Add("  %s = call i32 %s.hash(%s* %s)", fhash, fieldNames[i1], fieldNames[i1], fptr)
		}
		r.prelude.Add("  %s0 = load i32, i32* %%acc.addr", acc)
		r.prelude.Add("  %s1 = mul i32 %s0, 1000003", acc, acc)
		r.prelude.Add("  %s2 = xor i32 %s1, %s", acc, acc, fhash)
		r.prelude.Add("  store i32 %s2, i32* %%acc.addr", acc)
	}
	r.prelude.AddString("  %result = load i32, i32* %acc.addr")
	r.prelude.AddString("  ret i32 %result")
	r.prelude.AddString("}")
	r.prelude.AddString("")
}

func (r *typeRegistry) emitStructCmp(name string, fields []sir.IRType, fieldNames []string) {
	r.prelude.Add("define i32 @%s.cmp(%s* %%a, %s* %%b) {", strings.TrimPrefix(name, "%"), name, name)
	r.prelude.AddString("entry:")
	for i1, ft := range fields {
		if isSimd(ft) {
			continue
		}
		aptr := fmt.Sprintf("%%a%d.ptr", i1)
		bptr := fmt.Sprintf("%%b%d.ptr", i1)
		aval := fmt.Sprintf("%%a%d.val", i1)
		bval := fmt.Sprintf("%%b%d.val", i1)
		c := fmt.Sprintf("%%c%d", i1)
		next := fmt.Sprintf("cmp.next%d", i1)
		r.prelude.Add("  %s = getelementptr %s, %s* %%a, i32 0, i32 %d", aptr, name, name, i1)
		r.prelude.Add("  %s = getelementptr %s, %s* %%b, i32 0, i32 %d", bptr, name, name, i1)
		r.prelude.Add("  %s = load %s, %s* %s", aval, fieldNames[i1], fieldNames[i1], aptr)
		r.prelude.Add("  %s = load %s, %s* %s", bval, fieldNames[i1], fieldNames[i1], bptr)
		if _, _, ok := scalarKindOf(ft); ok {
			eq := fmt.Sprintf("%%eq%d", i1)
			r.prelude.Add("  %s = icmp eq %s %s, %s", eq, fieldNames[i1], aval, bval)
			r.prelude.Add("  br i1 %s, label %%%s, label %%cmp.neq%d", eq, next, i1)
		} else {
			r.prelude.Add("  %s = call i32 %s.cmp(%s* %s, %s* %s)", c, fieldNames[i1], fieldNames[i1], aptr, fieldNames[i1], bptr)
			eq := fmt.Sprintf("%%iseq%d", i1)
			r.prelude.Add("  %s = icmp eq i32 %s, 0", eq, c)
			r.prelude.Add("  br i1 %s, label %%%s, label %%cmp.neq%d", eq, next, i1)
		}
		r.prelude.Add("cmp.neq%d:", i1)
		r.prelude.AddString("  ret i32 1")
		r.prelude.Add("%s:", next)
	}
	r.prelude.AddString("  ret i32 0")
	r.prelude.AddString("}")
	r.prelude.AddString("")
}

// instantiateVector assigns a fresh vector type name and emits the
// new/size/at/slice family; a scalar-elemented vector additionally gets
// the SIMD extension (vat, aligned loads).
func (r *typeRegistry) instantiateVector(t sir.Vector) (string, error) {
	elemName, err := r.get(t.Elem)
	if err != nil {
		return "", err
	}
	name := r.n.vectorName()
	r.prelude.Add("%s = type { %s*, i64 }", name, elemName)
	short := strings.TrimPrefix(name, "%")

	r.prelude.Add("define %s @%s.new(i64 %%cap, %%work_t* %%cur.work) {", name, short)
	r.prelude.AddString("entry:")
	r.prelude.Add("  %%bytes = mul i64 %%cap, ptrtoint (%s* getelementptr (%s, %s* null, i32 1) to i64)", elemName, elemName, elemName)
	r.prelude.Add("  %%tid.new = call i32 @my_id_public()")
	r.prelude.Add("  %%run.new = call i64 @get_runid()")
	r.prelude.AddString("  %raw = call i8* @weld_rt_malloc(i64 %run.new, i64 %bytes)")
	r.prelude.Add("  %%data = bitcast i8* %%raw to %s*", elemName)
	r.prelude.Add("  %%v0 = insertvalue %s undef, %s* %%data, 0", name, elemName)
	r.prelude.Add("  %%v1 = insertvalue %s %%v0, i64 %%cap, 1", name)
	r.prelude.Add("  ret %s %%v1", name)
	r.prelude.AddString("}")
	r.prelude.AddString("")

	r.prelude.Add("define i64 @%s.size(%s %%v) {", short, name)
	r.prelude.AddString("entry:")
	r.prelude.AddString("  %n = extractvalue " + name + " %v, 1")
	r.prelude.AddString("  ret i64 %n")
	r.prelude.AddString("}")
	r.prelude.AddString("")

	r.prelude.Add("define %s* @%s.at(%s %%v, i64 %%idx) {", elemName, short, name)
	r.prelude.AddString("entry:")
	r.prelude.Add("  %%data = extractvalue %s %%v, 0", name)
	r.prelude.Add("  %%p = getelementptr %s, %s* %%data, i64 %%idx", elemName, elemName)
	r.prelude.AddString("  ret " + elemName + "* %p")
	r.prelude.AddString("}")
	r.prelude.AddString("")

	r.prelude.Add("define %s @%s.slice(%s %%v, i64 %%idx, i64 %%size) {", name, short, name)
	r.prelude.AddString("entry:")
	r.prelude.Add("  %%data = extractvalue %s %%v, 0", name)
	r.prelude.Add("  %%p = getelementptr %s, %s* %%data, i64 %%idx", elemName, elemName)
	r.prelude.Add("  %%s0 = insertvalue %s undef, %s* %%p, 0", name, elemName)
	r.prelude.Add("  %%s1 = insertvalue %s %%s0, i64 %%size, 1", name)
	r.prelude.Add("  ret %s %%s1", name)
	r.prelude.AddString("}")
	r.prelude.AddString("")

	if _, _, ok := scalarKindOf(t.Elem); ok {
		simdName := fmt.Sprintf("<%d x %s>", laneCount, elemName)
		r.prelude.Add("define %s* @%s.vat(%s %%v, i64 %%idx) {", simdName, short, name)
		r.prelude.AddString("entry:")
		r.prelude.Add("  %%data = extractvalue %s %%v, 0", name)
		r.prelude.Add("  %%p = getelementptr %s, %s* %%data, i64 %%idx", elemName, elemName)
		r.prelude.Add("  %%vp = bitcast %s* %%p to %s*", elemName, simdName)
		r.prelude.Add("  ret %s* %%vp", simdName)
		r.prelude.AddString("}")
		r.prelude.AddString("")
	}
	return name, nil
}

// instantiateDict assigns a fresh dict type name and emits the
// new/lookup/slot/slot.value/slot.filled/tovec family templated on K/V.
// The dict's internal hash table is maintained by the runtime (declared,
// not defined here, the same way the fixed symbols of spec section 6 are)
// — these helpers are thin typed wrappers over that untyped handle.
func (r *typeRegistry) instantiateDict(t sir.Dict) (string, error) {
	keyName, err := r.get(t.Key_)
	if err != nil {
		return "", err
	}
	valName, err := r.get(t.Value)
	if err != nil {
		return "", err
	}
	name := r.n.dictName()
	slotName := name + ".slot"
	r.prelude.Add("%s = type { i8* }", name)
	r.prelude.Add("%s = type { i1, %s, %s }", slotName, keyName, valName)
	short := strings.TrimPrefix(name, "%")

	r.declareDictRuntime(keyName, valName)

	r.prelude.Add("define %s @%s.new(i64 %%cap) {", name, short)
	r.prelude.AddString("entry:")
	r.prelude.AddString("  %h = call i8* @weld_rt_dict_new(i64 %cap)")
	r.prelude.Add("  %%d0 = insertvalue %s undef, i8* %%h, 0", name)
	r.prelude.Add("  ret %s %%d0", name)
	r.prelude.AddString("}")
	r.prelude.AddString("")

	r.prelude.Add("define %s* @%s.lookup(%s %%d, %s %%k) {", slotName, short, name, keyName)
	r.prelude.AddString("entry:")
	r.prelude.Add("  %%h = extractvalue %s %%d, 0", name)
	r.prelude.Add("  %%kptr = alloca %s", keyName)
	r.prelude.Add("  store %s %%k, %s* %%kptr", keyName, keyName)
	r.prelude.Add("  %%kraw = bitcast %s* %%kptr to i8*", keyName)
	r.prelude.Add("  %%raw = call i8* @weld_rt_dict_lookup(i8* %%h, i8* %%kraw)")
	r.prelude.Add("  %%slot = bitcast i8* %%raw to %s*", slotName)
	r.prelude.Add("  ret %s* %%slot", slotName)
	r.prelude.AddString("}")
	r.prelude.AddString("")

	r.prelude.Add("define %s @%s.slot.value(%s* %%s) {", valName, short, slotName)
	r.prelude.AddString("entry:")
	r.prelude.Add("  %%p = getelementptr %s, %s* %%s, i32 0, i32 2", slotName, slotName)
	r.prelude.Add("  %%v = load %s, %s* %%p", valName, valName)
	r.prelude.Add("  ret %s %%v", valName)
	r.prelude.AddString("}")
	r.prelude.AddString("")

	r.prelude.Add("define i1 @%s.slot.filled(%s* %%s) {", short, slotName)
	r.prelude.AddString("entry:")
	r.prelude.Add("  %%p = getelementptr %s, %s* %%s, i32 0, i32 0", slotName, slotName)
	r.prelude.AddString("  %f = load i1, i1* %p")
	r.prelude.AddString("  ret i1 %f")
	r.prelude.AddString("}")
	r.prelude.AddString("")

	r.prelude.Add("define %%vec.%s @%s.tovec(%s %%d) {", short, short, name)
	r.prelude.AddString("entry:")
	r.prelude.Add("  %%h = extractvalue %s %%d, 0", name)
	r.prelude.Add("  %%raw = call i8* @weld_rt_dict_tovec(i8* %%h)")
	r.prelude.Add("  %%v = bitcast i8* %%raw to %%vec.%s", short)
	r.prelude.Add("  ret %%vec.%s %%v", short)
	r.prelude.AddString("}")
	r.prelude.AddString("")
	return name, nil
}

// declareDictRuntime guards the one-time @weld_rt_dict_* declares on this
// registry, so a second Dict K V request does not duplicate `declare` lines
// for the same underlying runtime entry points. This flag lives on the
// registry (one per generator instance) rather than as a package-level
// variable: a package-level flag would leak across separate generator
// instances lowering different modules in the same process, silently
// skipping the declares a later module's own dict calls still need.
func (r *typeRegistry) declareDictRuntime(keyName, valName string) {
	if r.dictRuntimeDeclared {
		return
	}
	r.dictRuntimeDeclared = true
	r.prelude.AddString("declare i8* @weld_rt_dict_new(i64)")
	r.prelude.AddString("declare i8* @weld_rt_dict_lookup(i8*, i8*)")
	r.prelude.AddString("declare i8* @weld_rt_dict_tovec(i8*)")
	r.prelude.AddString("")
}

// instantiateBuilder dispatches to the tagged builder family (see
// builders.go) for type-level lowering: Appender/DictMerger/GroupMerger/
// VecMerger derive their LLIR name by prefixing "%bld.<kind>." to their
// element type's name (Appender) or their underlying Dict/Vector's name
// (the others); Merger gets a fresh "%mN.bld" name of its own.
func (r *typeRegistry) instantiateBuilder(t sir.Builder) (string, error) {
	fam, err := builderFamilyFor(t.Kind)
	if err != nil {
		return "", err
	}
	return fam.lowerType(r, t)
}
