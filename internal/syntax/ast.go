package syntax

// Position is a 1-based line/column location in a source file.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// File is a parsed declaration file.
type File struct {
	// Name is the file path without extension.
	Name       string
	Path       string
	Statements []Statement
}

// Statement is a top-level (or namespace-level) statement the symbol table understands.
// Anything else in the source is dropped during conversion.
type Statement interface {
	Pos() Position
	statement()
}

// Declaration is a named declaration that can become a loaded entity.
type Declaration interface {
	Statement
	DeclName() string
	declaration()
}

// TypeParam is a declared generic type parameter.
type TypeParam struct {
	Name       string
	Constraint Type
	Default    Type
	Position   Position
}

// HeritageKind classifies the expression in a class extends clause.
type HeritageKind int

const (
	HeritageIdentifier HeritageKind = iota
	HeritageNamespaced
	HeritageClassExpression
	HeritageOther
)

// Heritage is the superclass expression of a class.
type Heritage struct {
	Kind     HeritageKind
	Name     string
	Text     string
	TypeArgs []Type
	Position Position
}

type ClassDecl struct {
	Name       string
	Abstract   bool
	Declare    bool
	TypeParams []*TypeParam
	Extends    *Heritage
	Implements []Type
	Members    []ClassMember
	Comment    string
	Position   Position
}

type InterfaceDecl struct {
	Name       string
	Declare    bool
	TypeParams []*TypeParam
	Extends    []Type
	Members    []TypeMember
	Comment    string
	Position   Position
}

type TypeAliasDecl struct {
	Name       string
	Declare    bool
	TypeParams []*TypeParam
	Type       Type
	Comment    string
	Position   Position
}

type EnumDecl struct {
	Name     string
	Declare  bool
	Members  []*EnumMember
	Comment  string
	Position Position
}

// EnumMember is one enum key. Value is nil when the member has no literal initializer.
type EnumMember struct {
	Name     string
	Value    *LiteralType
	Position Position
}

type NamespaceDecl struct {
	// Path holds every segment of a dotted namespace name (namespace A.B {}).
	Path     []string
	Declare  bool
	Body     []Statement
	Comment  string
	Position Position
}

// ExportDecl wraps a declaration preceded by the export keyword.
type ExportDecl struct {
	Declaration Declaration
	Position    Position
}

// ExportSpecifier is one `X as Y` entry of an export clause.
type ExportSpecifier struct {
	Local    string
	Exported string
}

// ExportNamed is `export { X as Y }`, with Source set for `export { X } from './m'`.
type ExportNamed struct {
	Specifiers []ExportSpecifier
	Source     string
	Position   Position
}

// ExportAll is `export * from './m'` or, with As set, `export * as N from './m'`.
type ExportAll struct {
	Source   string
	As       string
	Position Position
}

// ExportAssign is `export = X`.
type ExportAssign struct {
	Name     string
	Position Position
}

// ImportSpecifier is one `X as Y` entry of a named import.
type ImportSpecifier struct {
	Imported string
	Local    string
}

// ImportDecl is `import { X as Y } from './m'` or `import * as N from './m'`.
type ImportDecl struct {
	Source    string
	Named     []ImportSpecifier
	Namespace string
	Position  Position
}

func (d *ClassDecl) Pos() Position     { return d.Position }
func (d *InterfaceDecl) Pos() Position { return d.Position }
func (d *TypeAliasDecl) Pos() Position { return d.Position }
func (d *EnumDecl) Pos() Position      { return d.Position }
func (d *NamespaceDecl) Pos() Position { return d.Position }
func (s *ExportDecl) Pos() Position    { return s.Position }
func (s *ExportNamed) Pos() Position   { return s.Position }
func (s *ExportAll) Pos() Position     { return s.Position }
func (s *ExportAssign) Pos() Position  { return s.Position }
func (s *ImportDecl) Pos() Position    { return s.Position }

func (*ClassDecl) statement()     {}
func (*InterfaceDecl) statement() {}
func (*TypeAliasDecl) statement() {}
func (*EnumDecl) statement()      {}
func (*NamespaceDecl) statement() {}
func (*ExportDecl) statement()    {}
func (*ExportNamed) statement()   {}
func (*ExportAll) statement()     {}
func (*ExportAssign) statement()  {}
func (*ImportDecl) statement()    {}

func (d *ClassDecl) DeclName() string     { return d.Name }
func (d *InterfaceDecl) DeclName() string { return d.Name }
func (d *TypeAliasDecl) DeclName() string { return d.Name }
func (d *EnumDecl) DeclName() string      { return d.Name }
func (d *NamespaceDecl) DeclName() string { return d.Path[0] }

func (*ClassDecl) declaration()     {}
func (*InterfaceDecl) declaration() {}
func (*TypeAliasDecl) declaration() {}
func (*EnumDecl) declaration()      {}
func (*NamespaceDecl) declaration() {}

// Parameter is a constructor parameter.
type Parameter struct {
	Name string
	// Destructured is set for object or array binding patterns, which cannot be named.
	Destructured  bool
	Rest          bool
	Optional      bool
	Accessibility string
	Readonly      bool
	Type          Type
	Comment       string
	Position      Position
}

// ClassMember is a member of a class body.
type ClassMember interface {
	Pos() Position
	classMember()
}

type Constructor struct {
	Params   []*Parameter
	Comment  string
	Position Position
}

type PropertyMember struct {
	Name     string
	Computed bool
	Optional bool
	Static   bool
	Private  bool
	Type     Type
	Comment  string
	Position Position
}

type MethodMember struct {
	Name     string
	Static   bool
	Position Position
}

type ClassIndexSignature struct {
	Signature *IndexSignature
}

func (m *Constructor) Pos() Position         { return m.Position }
func (m *PropertyMember) Pos() Position      { return m.Position }
func (m *MethodMember) Pos() Position        { return m.Position }
func (m *ClassIndexSignature) Pos() Position { return m.Signature.Position }

func (*Constructor) classMember()         {}
func (*PropertyMember) classMember()      {}
func (*MethodMember) classMember()        {}
func (*ClassIndexSignature) classMember() {}

// TypeMember is a member of an object type literal or interface body.
type TypeMember interface {
	Pos() Position
	typeMember()
}

type PropertySignature struct {
	Name     string
	Computed bool
	Optional bool
	Type     Type
	Comment  string
	Position Position
}

type MethodSignature struct {
	Name     string
	Position Position
}

type ConstructSignature struct {
	Position Position
}

type CallSignature struct {
	Position Position
}

type IndexSignature struct {
	ParamName string
	ParamType Type
	Type      Type
	Comment   string
	Position  Position
}

func (m *PropertySignature) Pos() Position  { return m.Position }
func (m *MethodSignature) Pos() Position    { return m.Position }
func (m *ConstructSignature) Pos() Position { return m.Position }
func (m *CallSignature) Pos() Position      { return m.Position }
func (m *IndexSignature) Pos() Position     { return m.Position }

func (*PropertySignature) typeMember()  {}
func (*MethodSignature) typeMember()    {}
func (*ConstructSignature) typeMember() {}
func (*CallSignature) typeMember()      {}
func (*IndexSignature) typeMember()     {}
