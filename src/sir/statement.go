package sir

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Statement is the closed set of SIR statements (spec section 3.1). Every
// statement computes a value into a stack slot named after its Output
// symbol, except Merge, which contributes to a builder and has no
// destination.
type Statement interface {
	// Output returns the destination symbol, or false if the statement has
	// no destination (Merge).
	Output() (Symbol, bool)
}

// MakeStruct builds a tuple from the given field symbols.
type MakeStruct struct {
	Dst    Symbol
	Fields []Symbol
}

// MakeVector builds a fixed-length vector literal from the given element symbols.
type MakeVector struct {
	Dst   Symbol
	Elems []Symbol
}

// AssignLiteral assigns a constant literal value to Dst. Val holds a Go
// int64/float64/bool matching the scalar kind of Typ, or, for a Simd Typ, a
// single scalar literal broadcast to every lane.
type AssignLiteral struct {
	Dst Symbol
	Typ IRType
	Val interface{}
}

// Assign copies the value of Src into Dst.
type Assign struct {
	Dst Symbol
	Src Symbol
}

// BinOp applies a binary operator to two operands of identical IR type.
type BinOp struct {
	Dst   Symbol
	Op    BinOpKind
	Left  Symbol
	Right Symbol
	Typ   IRType // operand type; result type is Bool/Simd<Bool> for comparisons
}

// UnaryOp applies a transcendental unary operator to a scalar or SIMD operand.
type UnaryOp struct {
	Dst Symbol
	Op  UnaryOpKind
	Src Symbol
	Typ IRType
}

// Negate computes the additive inverse of Src.
type Negate struct {
	Dst Symbol
	Src Symbol
	Typ IRType
}

// Cast converts Src from From to To.
type Cast struct {
	Dst  Symbol
	Src  Symbol
	From IRType
	To   IRType
}

// Broadcast splats a scalar Src into every lane of a Simd Dst.
type Broadcast struct {
	Dst Symbol
	Src Symbol
	Typ IRType // scalar type being broadcast
}

// GetField extracts the Index'th field of a Struct-typed Src.
type GetField struct {
	Dst   Symbol
	Src   Symbol
	Index int
}

// Length computes the element count of a Vector or Dict typed Src.
type Length struct {
	Dst Symbol
	Src Symbol
}

// Lookup retrieves an element: Src[Key] for a Vector (Key is an index) or a Dict (Key is a key).
type Lookup struct {
	Dst Symbol
	Src Symbol
	Key Symbol
}

// KeyExists reports whether Key is present in a Dict-typed Src.
type KeyExists struct {
	Dst Symbol
	Src Symbol
	Key Symbol
}

// Slice extracts Src[Index:Index+Size] from a Vector.
type Slice struct {
	Dst   Symbol
	Src   Symbol
	Index Symbol
	Size  Symbol
}

// Select evaluates to OnTrue if Cond is true, else OnFalse.
type Select struct {
	Dst     Symbol
	Cond    Symbol
	OnTrue  Symbol
	OnFalse Symbol
}

// ToVec converts a Dict into a Vector of {Key, Value} structs.
type ToVec struct {
	Dst Symbol
	Src Symbol
}

// CUDF calls an externally defined function by name.
type CUDF struct {
	Dst  Symbol
	Name string
	Args []Symbol
	Typ  IRType // CUDF return type
}

// NewBuilder instantiates a builder. Arg is the optional initializer (the
// Merger's seed scalar, or the VecMerger's required initial vector); it is
// the zero Symbol when absent.
type NewBuilder struct {
	Dst  Symbol
	Typ  Builder
	Arg  Symbol
	HasArg bool
}

// Merge contributes Val to builder Bld. Merge has no destination symbol.
type Merge struct {
	Bld Symbol
	Val Symbol
}

// Res finalizes builder Src into Dst.
type Res struct {
	Dst Symbol
	Src Symbol
}

// ---------------------
// ----- functions -----
// ---------------------

func (s MakeStruct) Output() (Symbol, bool)    { return s.Dst, true }
func (s MakeVector) Output() (Symbol, bool)    { return s.Dst, true }
func (s AssignLiteral) Output() (Symbol, bool) { return s.Dst, true }
func (s Assign) Output() (Symbol, bool)        { return s.Dst, true }
func (s BinOp) Output() (Symbol, bool)         { return s.Dst, true }
func (s UnaryOp) Output() (Symbol, bool)       { return s.Dst, true }
func (s Negate) Output() (Symbol, bool)        { return s.Dst, true }
func (s Cast) Output() (Symbol, bool)          { return s.Dst, true }
func (s Broadcast) Output() (Symbol, bool)     { return s.Dst, true }
func (s GetField) Output() (Symbol, bool)      { return s.Dst, true }
func (s Length) Output() (Symbol, bool)        { return s.Dst, true }
func (s Lookup) Output() (Symbol, bool)        { return s.Dst, true }
func (s KeyExists) Output() (Symbol, bool)     { return s.Dst, true }
func (s Slice) Output() (Symbol, bool)         { return s.Dst, true }
func (s Select) Output() (Symbol, bool)        { return s.Dst, true }
func (s ToVec) Output() (Symbol, bool)         { return s.Dst, true }
func (s CUDF) Output() (Symbol, bool)          { return s.Dst, true }
func (s NewBuilder) Output() (Symbol, bool)    { return s.Dst, true }
func (s Merge) Output() (Symbol, bool)         { return Symbol{}, false }
func (s Res) Output() (Symbol, bool)           { return s.Dst, true }
