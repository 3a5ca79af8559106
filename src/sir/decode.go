package sir

import (
	"encoding/json"
	"fmt"
)

// decode.go implements a JSON wire format for sir.Program, the shape the
// cmd/sirgen driver reads from a file or stdin. encoding/json round-trips
// IRType/Statement/Terminator's closed-set interfaces badly on its own
// (concrete type information isn't part of a Go interface value), so each
// is given a tagged-union wire struct with a "kind" discriminator,
// following the iota+String() naming already used for the enums
// themselves. No pack example repo handles compiler-IR serialization, so
// this is plain stdlib encoding/json rather than something grounded on a
// third-party schema library.

// --------------------------
// ----- wire IR types -----
// --------------------------

type wireType struct {
	Kind   string      `json:"kind"`
	Scalar string      `json:"scalar,omitempty"`
	Fields []wireType  `json:"fields,omitempty"`
	Elem   *wireType   `json:"elem,omitempty"`
	Key    *wireType   `json:"key,omitempty"`
	Value  *wireType   `json:"value,omitempty"`
	Op     string      `json:"op,omitempty"`
	BldKind string     `json:"bldKind,omitempty"`
}

var scalarKindByName = map[string]ScalarKind{
	"bool": Bool, "i8": I8, "i32": I32, "i64": I64, "f32": F32, "f64": F64,
}

var binOpByName = map[string]BinOpKind{
	"+": Add, "-": Sub, "*": Mul, "/": Div, "%": Rem,
	"&": BitwiseAnd, "|": BitwiseOr, "^": Xor, "&&": LogicalAnd, "||": LogicalOr,
	"==": Eq, "!=": Neq, "<": LessThan, "<=": LessThanOrEqual, ">": GreaterThan, ">=": GreaterThanOrEqual,
}

var unaryOpByName = map[string]UnaryOpKind{
	"log": Log, "exp": Exp, "sqrt": Sqrt, "erf": Erf, "sin": Sin, "cos": Cos,
	"tan": Tan, "asin": ASin, "acos": ACos, "atan": ATan, "sinh": Sinh, "cosh": Cosh, "tanh": Tanh,
}

var builderKindByName = map[string]BuilderKind{
	"appender": Appender, "merger": Merger, "dictmerger": DictMerger,
	"groupmerger": GroupMerger, "vecmerger": VecMerger,
}

func decodeScalarKind(s string) (ScalarKind, error) {
	k, ok := scalarKindByName[s]
	if !ok {
		return 0, fmt.Errorf("unknown scalar kind %q", s)
	}
	return k, nil
}

// toIRType converts a decoded wireType into the concrete IRType it denotes.
func (w wireType) toIRType() (IRType, error) {
	switch w.Kind {
	case "scalar":
		k, err := decodeScalarKind(w.Scalar)
		if err != nil {
			return nil, err
		}
		return Scalar{Kind: k}, nil
	case "simd":
		k, err := decodeScalarKind(w.Scalar)
		if err != nil {
			return nil, err
		}
		return Simd{Kind: k}, nil
	case "struct":
		fields := make([]IRType, len(w.Fields))
		for i1, f := range w.Fields {
			ft, err := f.toIRType()
			if err != nil {
				return nil, err
			}
			fields[i1] = ft
		}
		return Struct{Fields: fields}, nil
	case "vector":
		if w.Elem == nil {
			return nil, fmt.Errorf("vector type missing elem")
		}
		et, err := w.Elem.toIRType()
		if err != nil {
			return nil, err
		}
		return Vector{Elem: et}, nil
	case "dict":
		if w.Key == nil || w.Value == nil {
			return nil, fmt.Errorf("dict type missing key/value")
		}
		kt, err := w.Key.toIRType()
		if err != nil {
			return nil, err
		}
		vt, err := w.Value.toIRType()
		if err != nil {
			return nil, err
		}
		return Dict{Key_: kt, Value: vt}, nil
	case "builder":
		bk, ok := builderKindByName[w.BldKind]
		if !ok {
			return nil, fmt.Errorf("unknown builder kind %q", w.BldKind)
		}
		b := Builder{Kind: bk}
		if w.Elem != nil {
			et, err := w.Elem.toIRType()
			if err != nil {
				return nil, err
			}
			b.Elem = et
		}
		if w.Key != nil {
			kt, err := w.Key.toIRType()
			if err != nil {
				return nil, err
			}
			b.Key_ = kt
		}
		if w.Value != nil {
			vt, err := w.Value.toIRType()
			if err != nil {
				return nil, err
			}
			b.Value = vt
		}
		if w.Op != "" {
			op, ok := binOpByName[w.Op]
			if !ok {
				return nil, fmt.Errorf("unknown operator %q", w.Op)
			}
			b.Op = op
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown IR type kind %q", w.Kind)
	}
}

// -----------------------------
// ----- wire symbol/block -----
// -----------------------------

type wireSymbol struct {
	Name string `json:"name"`
	Id   int    `json:"id"`
}

func (w wireSymbol) toSymbol() Symbol { return Symbol{Name: w.Name, Id: w.Id} }

type wireSymbolType struct {
	Sym wireSymbol `json:"sym"`
	Typ wireType   `json:"typ"`
}

func (w wireSymbolType) toSymbolType() (SymbolType, error) {
	t, err := w.Typ.toIRType()
	if err != nil {
		return SymbolType{}, err
	}
	return SymbolType{Sym: w.Sym.toSymbol(), Typ: t}, nil
}

// wireStatement carries every statement field; unused fields for a given
// Kind are simply absent from the source JSON.
type wireStatement struct {
	Kind    string       `json:"kind"`
	Dst     wireSymbol   `json:"dst,omitempty"`
	Fields  []wireSymbol `json:"fields,omitempty"`
	Elems   []wireSymbol `json:"elems,omitempty"`
	Typ     *wireType    `json:"typ,omitempty"`
	Val     interface{}  `json:"val,omitempty"`
	Src     wireSymbol   `json:"src,omitempty"`
	Op      string       `json:"op,omitempty"`
	Left    wireSymbol   `json:"left,omitempty"`
	Right   wireSymbol   `json:"right,omitempty"`
	From    *wireType    `json:"from,omitempty"`
	To      *wireType    `json:"to,omitempty"`
	Index   int          `json:"index,omitempty"`
	IndexSym wireSymbol  `json:"indexSym,omitempty"`
	Key     wireSymbol   `json:"key,omitempty"`
	Size    wireSymbol   `json:"size,omitempty"`
	Cond    wireSymbol   `json:"cond,omitempty"`
	OnTrue  wireSymbol   `json:"onTrue,omitempty"`
	OnFalse wireSymbol   `json:"onFalse,omitempty"`
	Name    string       `json:"name,omitempty"`
	Args    []wireSymbol `json:"args,omitempty"`
	Arg     wireSymbol   `json:"arg,omitempty"`
	HasArg  bool         `json:"hasArg,omitempty"`
	Bld     wireSymbol   `json:"bld,omitempty"`
}

func syms(ws []wireSymbol) []Symbol {
	out := make([]Symbol, len(ws))
	for i1, s := range ws {
		out[i1] = s.toSymbol()
	}
	return out
}

func (w wireStatement) toStatement() (Statement, error) {
	switch w.Kind {
	case "MakeStruct":
		return MakeStruct{Dst: w.Dst.toSymbol(), Fields: syms(w.Fields)}, nil
	case "MakeVector":
		return MakeVector{Dst: w.Dst.toSymbol(), Elems: syms(w.Elems)}, nil
	case "AssignLiteral":
		t, err := w.Typ.toIRType()
		if err != nil {
			return nil, err
		}
		return AssignLiteral{Dst: w.Dst.toSymbol(), Typ: t, Val: w.Val}, nil
	case "Assign":
		return Assign{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol()}, nil
	case "BinOp":
		t, err := w.Typ.toIRType()
		if err != nil {
			return nil, err
		}
		op, ok := binOpByName[w.Op]
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", w.Op)
		}
		return BinOp{Dst: w.Dst.toSymbol(), Op: op, Left: w.Left.toSymbol(), Right: w.Right.toSymbol(), Typ: t}, nil
	case "UnaryOp":
		t, err := w.Typ.toIRType()
		if err != nil {
			return nil, err
		}
		op, ok := unaryOpByName[w.Op]
		if !ok {
			return nil, fmt.Errorf("unknown unary operator %q", w.Op)
		}
		return UnaryOp{Dst: w.Dst.toSymbol(), Op: op, Src: w.Src.toSymbol(), Typ: t}, nil
	case "Negate":
		t, err := w.Typ.toIRType()
		if err != nil {
			return nil, err
		}
		return Negate{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol(), Typ: t}, nil
	case "Cast":
		ft, err := w.From.toIRType()
		if err != nil {
			return nil, err
		}
		tt, err := w.To.toIRType()
		if err != nil {
			return nil, err
		}
		return Cast{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol(), From: ft, To: tt}, nil
	case "Broadcast":
		t, err := w.Typ.toIRType()
		if err != nil {
			return nil, err
		}
		return Broadcast{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol(), Typ: t}, nil
	case "GetField":
		return GetField{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol(), Index: w.Index}, nil
	case "Length":
		return Length{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol()}, nil
	case "Lookup":
		return Lookup{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol(), Key: w.Key.toSymbol()}, nil
	case "KeyExists":
		return KeyExists{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol(), Key: w.Key.toSymbol()}, nil
	case "Slice":
		return Slice{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol(), Index: w.IndexSym.toSymbol(), Size: w.Size.toSymbol()}, nil
	case "Select":
		return Select{Dst: w.Dst.toSymbol(), Cond: w.Cond.toSymbol(), OnTrue: w.OnTrue.toSymbol(), OnFalse: w.OnFalse.toSymbol()}, nil
	case "ToVec":
		return ToVec{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol()}, nil
	case "CUDF":
		t, err := w.Typ.toIRType()
		if err != nil {
			return nil, err
		}
		return CUDF{Dst: w.Dst.toSymbol(), Name: w.Name, Args: syms(w.Args), Typ: t}, nil
	case "NewBuilder":
		t, err := w.Typ.toIRType()
		if err != nil {
			return nil, err
		}
		bt, ok := t.(Builder)
		if !ok {
			return nil, fmt.Errorf("NewBuilder typ is not a builder type")
		}
		return NewBuilder{Dst: w.Dst.toSymbol(), Typ: bt, Arg: w.Arg.toSymbol(), HasArg: w.HasArg}, nil
	case "Merge":
		return Merge{Bld: w.Bld.toSymbol(), Val: w.Val2(w.Val)}, nil
	case "Res":
		return Res{Dst: w.Dst.toSymbol(), Src: w.Src.toSymbol()}, nil
	default:
		return nil, fmt.Errorf("unknown statement kind %q", w.Kind)
	}
}

// Val2 is a tiny adapter: Merge's Val field is a Symbol, not a literal, but
// the shared wireStatement struct reuses the Val JSON key (as
// interface{}) for AssignLiteral's constant. Decoding a Merge statement
// re-reads the same raw value as a symbol object.
func (w wireStatement) Val2(raw interface{}) Symbol {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return Symbol{}
	}
	name, _ := m["name"].(string)
	id, _ := m["id"].(float64)
	return Symbol{Name: name, Id: int(id)}
}

type wireIterator struct {
	Data      wireSymbol `json:"data"`
	Start     wireSymbol `json:"start"`
	End       wireSymbol `json:"end"`
	Stride    wireSymbol `json:"stride"`
	HasBounds bool       `json:"hasBounds"`
	Kind      string     `json:"kind"`
}

var iterKindByName = map[string]IterKind{"scalar": IterScalar, "simd": IterSimd, "fringe": IterFringe}

func (w wireIterator) toIterator() (Iterator, error) {
	k, ok := iterKindByName[w.Kind]
	if !ok {
		return Iterator{}, fmt.Errorf("unknown iterator kind %q", w.Kind)
	}
	return Iterator{
		Data: w.Data.toSymbol(), Start: w.Start.toSymbol(), End: w.End.toSymbol(),
		Stride: w.Stride.toSymbol(), HasBounds: w.HasBounds, Kind: k,
	}, nil
}

type wireParallelFor struct {
	Body       int            `json:"body"`
	Cont       int            `json:"cont"`
	Iters      []wireIterator `json:"iters"`
	Builder    wireSymbol     `json:"builder"`
	BuilderArg wireSymbol     `json:"builderArg"`
	IndexSym   wireSymbol     `json:"indexSym"`
	ElemSym    wireSymbol     `json:"elemSym"`
	Innermost  bool           `json:"innermost"`
}

func (w wireParallelFor) toParallelFor() (ParallelFor, error) {
	iters := make([]Iterator, len(w.Iters))
	for i1, it := range w.Iters {
		r, err := it.toIterator()
		if err != nil {
			return ParallelFor{}, err
		}
		iters[i1] = r
	}
	return ParallelFor{
		Body: w.Body, Cont: w.Cont, Iters: iters,
		Builder: w.Builder.toSymbol(), BuilderArg: w.BuilderArg.toSymbol(),
		IndexSym: w.IndexSym.toSymbol(), ElemSym: w.ElemSym.toSymbol(), Innermost: w.Innermost,
	}, nil
}

type wireTerminator struct {
	Kind  string           `json:"kind"`
	Cond  wireSymbol       `json:"cond,omitempty"`
	True  int              `json:"true,omitempty"`
	False int              `json:"false,omitempty"`
	Block int              `json:"block,omitempty"`
	Func  int              `json:"func,omitempty"`
	PF    *wireParallelFor `json:"pf,omitempty"`
	Sym   wireSymbol       `json:"sym,omitempty"`
}

func (w wireTerminator) toTerminator() (Terminator, error) {
	switch w.Kind {
	case "Branch":
		return Branch{Cond: w.Cond.toSymbol(), True: w.True, False: w.False}, nil
	case "JumpBlock":
		return JumpBlock{Block: w.Block}, nil
	case "JumpFunction":
		return JumpFunction{Func: w.Func}, nil
	case "ParallelFor":
		if w.PF == nil {
			return nil, fmt.Errorf("ParallelFor terminator missing pf")
		}
		pf, err := w.PF.toParallelFor()
		if err != nil {
			return nil, err
		}
		return ParallelForTerm{PF: pf}, nil
	case "ProgramReturn":
		return ProgramReturn{Sym: w.Sym.toSymbol()}, nil
	case "EndFunction":
		return EndFunction{}, nil
	case "Crash":
		return Crash{}, nil
	default:
		return nil, fmt.Errorf("unknown terminator kind %q", w.Kind)
	}
}

type wireBlock struct {
	Id         int             `json:"id"`
	Statements []wireStatement `json:"statements"`
	Term       wireTerminator  `json:"term"`
}

func (w wireBlock) toBlock() (Block, error) {
	stmts := make([]Statement, len(w.Statements))
	for i1, s := range w.Statements {
		st, err := s.toStatement()
		if err != nil {
			return Block{}, err
		}
		stmts[i1] = st
	}
	term, err := w.Term.toTerminator()
	if err != nil {
		return Block{}, err
	}
	return Block{Id: w.Id, Statements: stmts, Term: term}, nil
}

type wireFunction struct {
	Id     int              `json:"id"`
	Params []wireSymbolType `json:"params"`
	Locals []wireSymbolType `json:"locals"`
	Blocks []wireBlock      `json:"blocks"`
}

func (w wireFunction) toFunction() (Function, error) {
	params, err := symbolTypes(w.Params)
	if err != nil {
		return Function{}, err
	}
	locals, err := symbolTypes(w.Locals)
	if err != nil {
		return Function{}, err
	}
	blocks := make([]Block, len(w.Blocks))
	for i1, b := range w.Blocks {
		blk, err := b.toBlock()
		if err != nil {
			return Function{}, err
		}
		blocks[i1] = blk
	}
	return Function{Id: w.Id, Params: params, Locals: locals, Blocks: blocks}, nil
}

func symbolTypes(ws []wireSymbolType) ([]SymbolType, error) {
	out := make([]SymbolType, len(ws))
	for i1, w := range ws {
		st, err := w.toSymbolType()
		if err != nil {
			return nil, err
		}
		out[i1] = st
	}
	return out, nil
}

type wireProgram struct {
	Functions []wireFunction   `json:"functions"`
	TopParams []wireSymbolType `json:"topParams"`
}

// DecodeProgram parses the JSON wire format produced by whatever upstream
// SIR builder feeds this core (spec section 1: "takes SIR as input") into
// a Program value.
func DecodeProgram(data []byte) (*Program, error) {
	var w wireProgram
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding SIR program: %w", err)
	}
	funcs := make([]Function, len(w.Functions))
	for i1, f := range w.Functions {
		fn, err := f.toFunction()
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", f.Id, err)
		}
		funcs[i1] = fn
	}
	topParams, err := symbolTypes(w.TopParams)
	if err != nil {
		return nil, fmt.Errorf("top params: %w", err)
	}
	return &Program{Functions: funcs, TopParams: topParams}, nil
}
