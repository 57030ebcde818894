package syntax

import "strings"

// Type is a type expression. The set of implementations is closed; consumers switch
// over it exhaustively.
type Type interface {
	Pos() Position
	typeNode()
}

// PredefinedType is a keyword type such as string, number, any or void.
type PredefinedType struct {
	Name     string
	Position Position
}

// TypeReference is a (possibly qualified, possibly generic) named type: A, ns.A, A<B>.
type TypeReference struct {
	Name      string
	Qualifier []string
	TypeArgs  []Type
	Position  Position
}

// QualifiedName renders the reference as written, without type arguments.
func (t *TypeReference) QualifiedName() string {
	if len(t.Qualifier) == 0 {
		return t.Name
	}
	return strings.Join(t.Qualifier, ".") + "." + t.Name
}

type ObjectType struct {
	Members  []TypeMember
	Position Position
}

type ArrayType struct {
	Elem     Type
	Position Position
}

type TupleType struct {
	Elements []Type
	Position Position
}

// RestType is a `...T` tuple member.
type RestType struct {
	Elem     Type
	Position Position
}

// OptionalType is a `T?` tuple member.
type OptionalType struct {
	Elem     Type
	Position Position
}

type UnionType struct {
	Types    []Type
	Position Position
}

type IntersectionType struct {
	Types    []Type
	Position Position
}

type ParenthesizedType struct {
	Inner    Type
	Position Position
}

type LiteralKind string

const (
	LiteralString    LiteralKind = "string"
	LiteralNumber    LiteralKind = "number"
	LiteralBoolean   LiteralKind = "boolean"
	LiteralNull      LiteralKind = "null"
	LiteralUndefined LiteralKind = "undefined"
)

// LiteralType is a literal used as a type. Value holds a string, float64 or bool.
type LiteralType struct {
	Kind     LiteralKind
	Value    any
	Text     string
	Position Position
}

// LookupType is an indexed access type: T[K].
type LookupType struct {
	Object   Type
	Index    Type
	Position Position
}

// KeyofType is `keyof T`.
type KeyofType struct {
	Operand  Type
	Position Position
}

// TypeQuery is `typeof x` or `typeof ns.x`.
type TypeQuery struct {
	Name      string
	Qualifier []string
	Position  Position
}

type FunctionType struct {
	Position Position
}

type ConstructorType struct {
	Position Position
}

// UnsupportedType covers type-level computation that is recognized but not modeled:
// mapped, conditional, template literal, infer and this types.
type UnsupportedType struct {
	Kind     string
	Text     string
	Position Position
}

func (t *PredefinedType) Pos() Position    { return t.Position }
func (t *TypeReference) Pos() Position     { return t.Position }
func (t *ObjectType) Pos() Position        { return t.Position }
func (t *ArrayType) Pos() Position         { return t.Position }
func (t *TupleType) Pos() Position         { return t.Position }
func (t *RestType) Pos() Position          { return t.Position }
func (t *OptionalType) Pos() Position      { return t.Position }
func (t *UnionType) Pos() Position         { return t.Position }
func (t *IntersectionType) Pos() Position  { return t.Position }
func (t *ParenthesizedType) Pos() Position { return t.Position }
func (t *LiteralType) Pos() Position       { return t.Position }
func (t *LookupType) Pos() Position        { return t.Position }
func (t *KeyofType) Pos() Position         { return t.Position }
func (t *TypeQuery) Pos() Position         { return t.Position }
func (t *FunctionType) Pos() Position      { return t.Position }
func (t *ConstructorType) Pos() Position   { return t.Position }
func (t *UnsupportedType) Pos() Position   { return t.Position }

func (*PredefinedType) typeNode()    {}
func (*TypeReference) typeNode()     {}
func (*ObjectType) typeNode()        {}
func (*ArrayType) typeNode()         {}
func (*TupleType) typeNode()         {}
func (*RestType) typeNode()          {}
func (*OptionalType) typeNode()      {}
func (*UnionType) typeNode()         {}
func (*IntersectionType) typeNode()  {}
func (*ParenthesizedType) typeNode() {}
func (*LiteralType) typeNode()       {}
func (*LookupType) typeNode()        {}
func (*KeyofType) typeNode()         {}
func (*TypeQuery) typeNode()         {}
func (*FunctionType) typeNode()      {}
func (*ConstructorType) typeNode()   {}
func (*UnsupportedType) typeNode()   {}

// Unwrap strips parentheses around a type.
func Unwrap(t Type) Type {
	for {
		p, ok := t.(*ParenthesizedType)
		if !ok {
			return t
		}
		t = p.Inner
	}
}
