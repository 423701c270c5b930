// Package ast defines the typed expression tree consumed by the compiler.
//
// The tree is produced by an external frontend (parser plus type checker).
// The compiler trusts the annotations recorded here and never re-derives
// them: nodes whose static type cannot be read off the node itself
// (identifiers, calls, accesses) carry the checker's verdict in a Typ field.
package ast

import "fmt"

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// TypeKind discriminates the Type variants.
type TypeKind int

const (
	Unit TypeKind = iota
	I32
	Bool
	TupleType
	ArrayType
	StructType
)

// Type is the checker-assigned static type of an expression.
// Tuple, array and record values all lower to a single i32 memory handle;
// the compiler uses the shape recorded here only to resolve offsets and
// to check pattern arity.
type Type struct {
	Kind  TypeKind
	Name  string // StructType: record type name
	Elems []Type // TupleType: element types in order
	Elem  *Type  // ArrayType: element type
	Len   int    // ArrayType: element count
}

// IsComposite reports whether values of this type are memory handles.
func (t Type) IsComposite() bool {
	switch t.Kind {
	case TupleType, ArrayType, StructType:
		return true
	}
	return false
}

func I32T() Type  { return Type{Kind: I32} }
func BoolT() Type { return Type{Kind: Bool} }
func UnitT() Type { return Type{Kind: Unit} }

// TupleOf builds a tuple type from its element types.
func TupleOf(elems ...Type) Type { return Type{Kind: TupleType, Elems: elems} }

// ArrayOf builds an array type of n elements of type elem.
func ArrayOf(elem Type, n int) Type { return Type{Kind: ArrayType, Elem: &elem, Len: n} }

// StructOf builds a record type reference by name.
func StructOf(name string) Type { return Type{Kind: StructType, Name: name} }

// StructDef is a record type declaration: a name and its ordered fields.
type StructDef struct {
	At     Pos
	Name   string
	Fields []string
}

// Param is a function parameter. All parameters occupy one i32 slot.
type Param struct {
	Name string
	Typ  Type
}

// FuncDef is one function: name, parameters, result type, and body.
// A Unit result means the function returns nothing.
type FuncDef struct {
	At     Pos
	Name   string
	Params []Param
	Result Type
	Body   Expr
}

// Program is one compilation unit.
type Program struct {
	Structs []StructDef
	Funcs   []FuncDef
}

// Expr is any expression node.
type Expr interface {
	Pos() Pos
	Type() Type
}

// UnOp is a unary operator.
type UnOp int

const (
	Neg UnOp = iota
	Not
)

// BinOp is a binary operator.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Rem
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	And
	Or
)

// IntLit is a 32-bit integer literal.
type IntLit struct {
	At    Pos
	Value int32
}

func (e *IntLit) Pos() Pos   { return e.At }
func (e *IntLit) Type() Type { return Type{Kind: I32} }

// BoolLit is a boolean literal, lowered to i32 0 or 1.
type BoolLit struct {
	At    Pos
	Value bool
}

func (e *BoolLit) Pos() Pos   { return e.At }
func (e *BoolLit) Type() Type { return Type{Kind: Bool} }

// Ident is a variable reference. Typ is the checker-resolved type of the
// binding, needed when the variable holds a composite handle.
type Ident struct {
	At   Pos
	Name string
	Typ  Type
}

func (e *Ident) Pos() Pos   { return e.At }
func (e *Ident) Type() Type { return e.Typ }

// Unary applies a unary operator.
type Unary struct {
	At Pos
	Op UnOp
	X  Expr
}

func (e *Unary) Pos() Pos { return e.At }
func (e *Unary) Type() Type {
	if e.Op == Not {
		return Type{Kind: Bool}
	}
	return Type{Kind: I32}
}

// Binary applies a binary operator to two operands.
type Binary struct {
	At   Pos
	Op   BinOp
	X, Y Expr
}

func (e *Binary) Pos() Pos { return e.At }
func (e *Binary) Type() Type {
	switch e.Op {
	case Eq, Ne, Lt, Gt, Le, Ge, And, Or:
		return Type{Kind: Bool}
	}
	return Type{Kind: I32}
}

// If is a conditional. Else may be nil for statement-position ifs.
// Typ is Unit unless both branches produce the same value type.
type If struct {
	At   Pos
	Cond Expr
	Then Expr
	Else Expr
	Typ  Type
}

func (e *If) Pos() Pos   { return e.At }
func (e *If) Type() Type { return e.Typ }

// While is a pre-tested loop. Loops never produce a value.
type While struct {
	At   Pos
	Cond Expr
	Body Expr
}

func (e *While) Pos() Pos   { return e.At }
func (e *While) Type() Type { return Type{Kind: Unit} }

// Block is a sequence of expressions; its value is the last one's.
type Block struct {
	At   Pos
	List []Expr
}

func (e *Block) Pos() Pos { return e.At }
func (e *Block) Type() Type {
	if len(e.List) == 0 {
		return Type{Kind: Unit}
	}
	return e.List[len(e.List)-1].Type()
}

// Let binds one name to a value.
type Let struct {
	At    Pos
	Name  string
	Value Expr
}

func (e *Let) Pos() Pos   { return e.At }
func (e *Let) Type() Type { return Type{Kind: Unit} }

// LetPattern destructures a composite value into new bindings.
type LetPattern struct {
	At    Pos
	Pat   Pattern
	Value Expr
}

func (e *LetPattern) Pos() Pos   { return e.At }
func (e *LetPattern) Type() Type { return Type{Kind: Unit} }

// Assign writes a value to an lvalue: an identifier, a field, or an index.
type Assign struct {
	At     Pos
	Target Expr
	Value  Expr
}

func (e *Assign) Pos() Pos   { return e.At }
func (e *Assign) Type() Type { return Type{Kind: Unit} }

// Call invokes a function by name. Typ is the callee's result type.
type Call struct {
	At   Pos
	Name string
	Args []Expr
	Typ  Type
}

func (e *Call) Pos() Pos   { return e.At }
func (e *Call) Type() Type { return e.Typ }

// Return exits the enclosing function. Value may be nil.
type Return struct {
	At    Pos
	Value Expr
}

func (e *Return) Pos() Pos   { return e.At }
func (e *Return) Type() Type { return Type{Kind: Unit} }

// Tuple is a fixed-size tuple constructor.
type Tuple struct {
	At    Pos
	Elems []Expr
}

func (e *Tuple) Pos() Pos { return e.At }
func (e *Tuple) Type() Type {
	elems := make([]Type, len(e.Elems))
	for i, el := range e.Elems {
		elems[i] = el.Type()
	}
	return Type{Kind: TupleType, Elems: elems}
}

// Array is a fixed-size array constructor.
type Array struct {
	At    Pos
	Elems []Expr
}

func (e *Array) Pos() Pos { return e.At }
func (e *Array) Type() Type {
	elem := Type{Kind: I32}
	if len(e.Elems) > 0 {
		elem = e.Elems[0].Type()
	}
	return Type{Kind: ArrayType, Elem: &elem, Len: len(e.Elems)}
}

// FieldInit is one field of a record literal, in source order.
type FieldInit struct {
	Name  string
	Value Expr
}

// StructLit constructs a record value. Field offsets come from the
// registry's declaration order, not from the order written here.
type StructLit struct {
	At     Pos
	Name   string
	Fields []FieldInit
}

func (e *StructLit) Pos() Pos   { return e.At }
func (e *StructLit) Type() Type { return Type{Kind: StructType, Name: e.Name} }

// FieldAccess reads a named record field or a literal tuple position
// (Field "0", "1", ...). Typ is the accessed element's type.
type FieldAccess struct {
	At    Pos
	X     Expr
	Field string
	Typ   Type
}

func (e *FieldAccess) Pos() Pos   { return e.At }
func (e *FieldAccess) Type() Type { return e.Typ }

// IndexAccess reads an element at a dynamically computed index.
type IndexAccess struct {
	At    Pos
	X     Expr
	Index Expr
	Typ   Type
}

func (e *IndexAccess) Pos() Pos   { return e.At }
func (e *IndexAccess) Type() Type { return e.Typ }

// MatchArm is one arm of a match expression.
type MatchArm struct {
	Pat  Pattern
	Body Expr
}

// Match compares a subject against literal arms in order. Arms that
// bind variables are not supported by the backend.
type Match struct {
	At      Pos
	Subject Expr
	Arms    []MatchArm
	Typ     Type
}

func (e *Match) Pos() Pos   { return e.At }
func (e *Match) Type() Type { return e.Typ }

// PatternKind discriminates the Pattern variants.
type PatternKind int

const (
	PatWildcard PatternKind = iota
	PatIdent
	PatLit
	PatTuple
)

// Pattern is a destructuring shape: wildcard, identifier, integer
// literal (match arms only), or nested tuple pattern.
type Pattern struct {
	At    Pos
	Kind  PatternKind
	Name  string    // PatIdent
	Value int32     // PatLit
	Elems []Pattern // PatTuple
}
