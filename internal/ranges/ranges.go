package ranges

import (
	"compgen/internal/entity"
	"compgen/internal/syntax"
)

// Unresolved is a range as read from a type node, before references are followed.
type Unresolved interface {
	unresolved()
}

// Resolved is a range whose references have all been expanded or classified. It never
// contains an InterfaceRef or a Hash.
type Resolved interface {
	resolved()
}

// Raw is a scalar: boolean, number or string.
type Raw struct {
	Value string
}

// Literal is a literal value: string, float64, bool, or nil for null.
type Literal struct {
	Value any
}

// Override is a range forced by an @range annotation.
type Override struct {
	Value string
}

// Wildcard stands in for anything the generator does not model.
type Wildcard struct{}

// Undefined is undefined, void or null.
type Undefined struct{}

// InterfaceRef is a named type still to be looked up from Origin's file.
type InterfaceRef struct {
	Name          string
	QualifiedPath []string
	TypeArgs      []Unresolved
	Origin        *entity.Loaded
}

// GenericRef is a use of one of Origin's type parameters.
type GenericRef struct {
	Name   string
	Origin *entity.Loaded
}

// Hash is an inline object type to expand field by field.
type Hash struct {
	Object *syntax.ObjectType
	Origin *entity.Loaded
}

// TypeofRef is `typeof Name`.
type TypeofRef struct {
	Name          string
	QualifiedPath []string
	Origin        *entity.Loaded
}

type UnresolvedUnion struct{ Elements []Unresolved }
type UnresolvedIntersection struct{ Elements []Unresolved }
type UnresolvedTuple struct{ Elements []Unresolved }
type UnresolvedArray struct{ Elem Unresolved }
type UnresolvedRest struct{ Elem Unresolved }
type UnresolvedIndexed struct{ Object, Index Unresolved }
type UnresolvedKeyof struct{ Value Unresolved }

// Class is a reference to a class, or to an interface treated as one.
type Class struct {
	Entity                        *entity.Loaded
	GenericTypeParameterInstances []Resolved
}

// Nested is an object expanded into its fields.
type Nested struct {
	Fields []*Parameter[Resolved]
}

// GenericTypeReference is an unbound type parameter of Origin.
type GenericTypeReference struct {
	Name   string
	Origin *entity.Loaded
}

type Union struct{ Elements []Resolved }
type Intersection struct{ Elements []Resolved }
type Tuple struct{ Elements []Resolved }
type Array struct{ Elem Resolved }
type Rest struct{ Elem Resolved }
type Indexed struct{ Object, Index Resolved }
type Keyof struct{ Value Resolved }

func (*Raw) unresolved()                    {}
func (*Literal) unresolved()                {}
func (*Override) unresolved()               {}
func (*Wildcard) unresolved()               {}
func (*Undefined) unresolved()              {}
func (*InterfaceRef) unresolved()           {}
func (*GenericRef) unresolved()             {}
func (*Hash) unresolved()                   {}
func (*TypeofRef) unresolved()              {}
func (*UnresolvedUnion) unresolved()        {}
func (*UnresolvedIntersection) unresolved() {}
func (*UnresolvedTuple) unresolved()        {}
func (*UnresolvedArray) unresolved()        {}
func (*UnresolvedRest) unresolved()         {}
func (*UnresolvedIndexed) unresolved()      {}
func (*UnresolvedKeyof) unresolved()        {}

func (*Raw) resolved()                  {}
func (*Literal) resolved()              {}
func (*Override) resolved()             {}
func (*Wildcard) resolved()             {}
func (*Undefined) resolved()            {}
func (*Class) resolved()                {}
func (*Nested) resolved()               {}
func (*GenericTypeReference) resolved() {}
func (*Union) resolved()                {}
func (*Intersection) resolved()         {}
func (*Tuple) resolved()                {}
func (*Array) resolved()                {}
func (*Rest) resolved()                 {}
func (*Indexed) resolved()              {}
func (*Keyof) resolved()                {}

// ParameterKind distinguishes named fields from index signatures.
type ParameterKind string

const (
	KindField ParameterKind = "field"
	KindIndex ParameterKind = "index"
)

// Parameter describes one constructor argument or member.
type Parameter[R any] struct {
	Kind ParameterKind
	// Name is set for fields.
	Name string
	// Domain is the key range of an index signature.
	Domain   R
	Range    R
	Unique   bool
	Required bool
	Defaults []Default
	Comment  string
}

// DefaultKind tells whether a default is a literal value or an IRI.
type DefaultKind string

const (
	DefaultRaw DefaultKind = "raw"
	DefaultIRI DefaultKind = "iri"
)

type Default struct {
	Kind  DefaultKind
	Value string
}

// GenericTypeParameter is a declared type parameter with its resolved constraint.
type GenericTypeParameter struct {
	Name  string
	Range Resolved
}
