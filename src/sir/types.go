// Package sir defines the typed, optimized intermediate representation that
// the codegen package lowers to a textual LLIR module. The data model
// mirrors spec section 3.1: a closed set of IR types, a closed set of
// statements, and a closed set of terminators, organised into numbered
// functions made of basic blocks.
package sir

import (
	"fmt"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ScalarKind enumerates the primitive element kinds.
type ScalarKind uint

// BuilderKind enumerates the five kinds of builder.
type BuilderKind uint

// BinOpKind enumerates binary arithmetic, comparison, bitwise and logical operators.
type BinOpKind uint

// UnaryOpKind enumerates the transcendental unary operators available to CUDF-free programs.
type UnaryOpKind uint

// IRType is the closed set
// {Scalar k, Simd k, Struct [T...], Vector T, Dict K V, Builder B}.
// Implementations must be comparable by Key(), not by Go equality, since
// two independently constructed values describing the same structural type
// must compare equal for the type registry's memoization invariant (spec §8).
type IRType interface {
	// Key returns a canonical, structural string that is identical for any
	// two IRType values describing the same type and differs for any two
	// describing different types.
	Key() string
	// String returns a human readable rendering, used only in diagnostics.
	String() string
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	Bool ScalarKind = iota
	I8
	I32
	I64
	F32
	F64
)

const (
	Appender BuilderKind = iota
	Merger
	DictMerger
	GroupMerger
	VecMerger
)

const (
	Add BinOpKind = iota
	Sub
	Mul
	Div
	Rem
	BitwiseAnd
	BitwiseOr
	Xor
	LogicalAnd
	LogicalOr
	Eq
	Neq
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
)

const (
	Log UnaryOpKind = iota
	Exp
	Sqrt
	Erf
	Sin
	Cos
	Tan
	ASin
	ACos
	ATan
	Sinh
	Cosh
	Tanh
)

// -------------------
// ----- globals -----
// -------------------

var scalarNames = [...]string{"bool", "i8", "i32", "i64", "f32", "f64"}
var builderNames = [...]string{"appender", "merger", "dictmerger", "groupmerger", "vecmerger"}
var binOpNames = [...]string{
	"+", "-", "*", "/", "%", "&", "|", "^", "&&", "||", "==", "!=", "<", "<=", ">", ">=",
}
var unaryOpNames = [...]string{
	"log", "exp", "sqrt", "erf", "sin", "cos", "tan", "asin", "acos", "atan", "sinh", "cosh", "tanh",
}

// ---------------------
// ----- functions -----
// ---------------------

// String returns the print-friendly name of the ScalarKind.
func (k ScalarKind) String() string { return scalarNames[k] }

// String returns the print-friendly name of the BuilderKind.
func (k BuilderKind) String() string { return builderNames[k] }

// String returns the operator symbol of the BinOpKind.
func (k BinOpKind) String() string { return binOpNames[k] }

// String returns the function name of the UnaryOpKind.
func (k UnaryOpKind) String() string { return unaryOpNames[k] }

// IsComparison reports whether the operator produces a Bool result rather than a result of the operand type.
func (k BinOpKind) IsComparison() bool {
	return k >= Eq && k <= GreaterThanOrEqual
}

// Scalar is a primitive, non-vectorised element type.
type Scalar struct{ Kind ScalarKind }

// Key implements IRType.
func (t Scalar) Key() string { return "s:" + t.Kind.String() }

// String implements IRType.
func (t Scalar) String() string { return t.Kind.String() }

// Simd is the SIMD-vectorised form of a primitive element type.
type Simd struct{ Kind ScalarKind }

// Key implements IRType.
func (t Simd) Key() string { return "v:" + t.Kind.String() }

// String implements IRType.
func (t Simd) String() string { return "simd<" + t.Kind.String() + ">" }

// Struct is an ordered tuple of fields.
type Struct struct{ Fields []IRType }

// Key implements IRType.
func (t Struct) Key() string {
	parts := make([]string, len(t.Fields))
	for i1, f := range t.Fields {
		parts[i1] = f.Key()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// String implements IRType.
func (t Struct) String() string {
	parts := make([]string, len(t.Fields))
	for i1, f := range t.Fields {
		parts[i1] = f.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Vector is a homogeneous, dynamically sized sequence.
type Vector struct{ Elem IRType }

// Key implements IRType.
func (t Vector) Key() string { return "vec<" + t.Elem.Key() + ">" }

// String implements IRType.
func (t Vector) String() string { return "vec[" + t.Elem.String() + "]" }

// Dict is a hash map from Key to Value.
type Dict struct{ Key_, Value IRType }

// Key implements IRType.
func (t Dict) Key() string { return "dict<" + t.Key_.Key() + "," + t.Value.Key() + ">" }

// String implements IRType.
func (t Dict) String() string { return "dict[" + t.Key_.String() + "," + t.Value.String() + "]" }

// Builder is one of the five builder kinds. Elem is used by Appender,
// Merger and VecMerger; Key_/Value are used by DictMerger and GroupMerger.
// Op is meaningful for Merger, DictMerger and VecMerger.
type Builder struct {
	Kind  BuilderKind
	Elem  IRType
	Key_  IRType
	Value IRType
	Op    BinOpKind
}

// Key implements IRType.
func (t Builder) Key() string {
	switch t.Kind {
	case Appender:
		return "bld<appender," + t.Elem.Key() + ">"
	case Merger:
		return fmt.Sprintf("bld<merger,%s,%s>", t.Elem.Key(), t.Op)
	case DictMerger:
		return fmt.Sprintf("bld<dictmerger,%s,%s,%s>", t.Key_.Key(), t.Value.Key(), t.Op)
	case GroupMerger:
		return fmt.Sprintf("bld<groupmerger,%s,%s>", t.Key_.Key(), t.Value.Key())
	case VecMerger:
		return fmt.Sprintf("bld<vecmerger,%s,%s>", t.Elem.Key(), t.Op)
	default:
		return "bld<unknown>"
	}
}

// String implements IRType.
func (t Builder) String() string { return t.Key() }
