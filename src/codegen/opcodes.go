package codegen

import (
	"fmt"
	"strings"

	"sirgen/src/sir"
)

// opcodes.go implements the fixed (op, type) -> LLIR mnemonic tables spec
// section 4.7 calls for at the design level. The exact mnemonics (e.g.
// that Simd operands reuse the scalar opcode, since LLVM vector
// instructions share opcodes with their scalar form) are pinned from
// original_source/weld/llvm.rs's llvm_binop/llvm_unaryop/llvm_castop, per
// SPEC_FULL.md's "supplemented features".

// binopMnemonic returns the LLIR instruction mnemonic for op applied to
// operands of IR type typ, or an error naming the unsupported (op, type)
// pair (spec section 7).
func binopMnemonic(op sir.BinOpKind, typ sir.IRType) (string, error) {
	kind, isFloat, ok := scalarKindOf(typ)
	if !ok {
		return "", fmt.Errorf("unsupported operand type for binary op %s: %s", op, typ)
	}
	switch op {
	case sir.Add:
		if isFloat {
			return "fadd", nil
		}
		return "add", nil
	case sir.Sub:
		if isFloat {
			return "fsub", nil
		}
		return "sub", nil
	case sir.Mul:
		if isFloat {
			return "fmul", nil
		}
		return "mul", nil
	case sir.Div:
		if isFloat {
			return "fdiv", nil
		}
		return "sdiv", nil
	case sir.Rem:
		if isFloat {
			return "frem", nil
		}
		return "srem", nil
	case sir.BitwiseAnd, sir.LogicalAnd:
		if kind == sir.Bool || !isFloat {
			return "and", nil
		}
	case sir.BitwiseOr, sir.LogicalOr:
		if kind == sir.Bool || !isFloat {
			return "or", nil
		}
	case sir.Xor:
		if kind == sir.Bool || !isFloat {
			return "xor", nil
		}
	case sir.Eq:
		if isFloat {
			return "fcmp oeq", nil
		}
		return "icmp eq", nil
	case sir.Neq:
		if isFloat {
			return "fcmp one", nil
		}
		return "icmp ne", nil
	case sir.LessThan:
		if isFloat {
			return "fcmp olt", nil
		}
		return "icmp slt", nil
	case sir.LessThanOrEqual:
		if isFloat {
			return "fcmp ole", nil
		}
		return "icmp sle", nil
	case sir.GreaterThan:
		if isFloat {
			return "fcmp ogt", nil
		}
		return "icmp sgt", nil
	case sir.GreaterThanOrEqual:
		if isFloat {
			return "fcmp oge", nil
		}
		return "icmp sge", nil
	}
	return "", fmt.Errorf("unsupported binary op %s on %s", op, typ)
}

// unaryopMnemonic returns the LLIR intrinsic or external function name for
// a transcendental unary op on a scalar of the given kind.
func unaryopMnemonic(op sir.UnaryOpKind, kind sir.ScalarKind) (string, error) {
	suffix := ""
	switch kind {
	case sir.F32:
		suffix = "f32"
	case sir.F64:
		suffix = "f64"
	default:
		return "", fmt.Errorf("unsupported operand kind for unary op %s: %s", op, kind)
	}
	switch op {
	case sir.Log:
		return "@llvm.log." + suffix, nil
	case sir.Exp:
		return "@llvm.exp." + suffix, nil
	case sir.Sqrt:
		return "@llvm.sqrt." + suffix, nil
	case sir.Sin:
		return "@llvm.sin." + suffix, nil
	case sir.Cos:
		return "@llvm.cos." + suffix, nil
	case sir.Erf:
		if kind == sir.F32 {
			return "@erff", nil
		}
		return "@erf", nil
	default:
		// Tan/ASin/ACos/ATan/Sinh/Cosh/Tanh have no LLVM intrinsic form and
		// are declared as plain external calls, named after the libm
		// function: tan/tanf, asin/asinf, and so on.
		name := strings.ToLower(op.String())
		if kind == sir.F32 {
			return "@" + name + "f", nil
		}
		return "@" + name, nil
	}
}

// castRule identifies which conversion family a Cast statement falls into.
type castRule int

const (
	castFloatToBool castRule = iota
	castBoolToFloat
	castFloatNarrow
	castFloatWiden
	castFloatToInt
	castIntToFloat
	castBoolToInt
	castIntWiden
	castIntNarrow
	castSelf
)

// classifyCast picks the fixed rule (spec section 4.7) for converting from
// to.
func classifyCast(from, to sir.IRType) (castRule, error) {
	fk, fIsFloat, fok := scalarKindOf(from)
	tk, tIsFloat, tok := scalarKindOf(to)
	if !fok || !tok {
		return 0, fmt.Errorf("unsupported cast from %s to %s", from, to)
	}
	if fk == tk {
		return castSelf, nil
	}
	if fIsFloat && tk == sir.Bool {
		return castFloatToBool, nil
	}
	if fk == sir.Bool && tIsFloat {
		return castBoolToFloat, nil
	}
	if fIsFloat && tIsFloat {
		if bitWidth(fk) > bitWidth(tk) {
			return castFloatNarrow, nil
		}
		return castFloatWiden, nil
	}
	if fIsFloat && !tIsFloat {
		return castFloatToInt, nil
	}
	if !fIsFloat && tIsFloat {
		return castIntToFloat, nil
	}
	if fk == sir.Bool {
		return castBoolToInt, nil
	}
	if bitWidth(fk) < bitWidth(tk) {
		return castIntWiden, nil
	}
	return castIntNarrow, nil
}

// castOpcode returns the LLIR conversion opcode for a classified cast rule.
func castOpcode(r castRule) string {
	switch r {
	case castFloatToBool:
		return "fptoui"
	case castBoolToFloat:
		return "uitofp"
	case castFloatNarrow:
		return "fptrunc"
	case castFloatWiden:
		return "fpext"
	case castFloatToInt:
		return "fptosi"
	case castIntToFloat:
		return "sitofp"
	case castBoolToInt:
		return "zext"
	case castIntWiden:
		return "sext"
	default:
		return "trunc"
	}
}

// scalarKindOf unwraps a Scalar or Simd IRType into its element kind and
// whether it is a floating-point kind.
func scalarKindOf(typ sir.IRType) (kind sir.ScalarKind, isFloat bool, ok bool) {
	switch t := typ.(type) {
	case sir.Scalar:
		return t.Kind, t.Kind == sir.F32 || t.Kind == sir.F64, true
	case sir.Simd:
		return t.Kind, t.Kind == sir.F32 || t.Kind == sir.F64, true
	default:
		return 0, false, false
	}
}

// bitWidth orders scalar kinds by width for widen/narrow decisions
// (I8 < I32 < I64 and F32 < F64). Casts to or from Bool are classified by
// their own rules before this is consulted; loopbody.go also uses it to
// derive a SIMD load's alignment.
func bitWidth(k sir.ScalarKind) int {
	switch k {
	case sir.Bool:
		return 1
	case sir.I8:
		return 8
	case sir.I32, sir.F32:
		return 32
	case sir.I64, sir.F64:
		return 64
	default:
		return 0
	}
}

// isSimd reports whether typ is a Simd IR type.
func isSimd(typ sir.IRType) bool {
	_, ok := typ.(sir.Simd)
	return ok
}
