package entity

import (
	"fmt"
	"strings"

	"compgen/internal/syntax"
)

// Kind classifies a loaded declaration.
type Kind string

const (
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindEnum      Kind = "enum"
)

// Reference points at a named declaration before it is known to exist.
// For `ns.A.B`, QualifiedPath is [ns A] and LocalName is B.
type Reference struct {
	PackageName string
	// FileName is the path of the file to look in, without extension.
	FileName      string
	LocalName     string
	QualifiedPath []string
	// FileNameReferenced is the file the reference was written in.
	FileNameReferenced string
}

// QualifiedName renders the reference name as it appears in source.
func (r Reference) QualifiedName() string {
	if len(r.QualifiedPath) == 0 {
		return r.LocalName
	}
	return strings.Join(r.QualifiedPath, ".") + "." + r.LocalName
}

// Key identifies the reference for memoization.
func (r Reference) Key() string {
	return r.PackageName + "\x00" + r.FileName + "\x00" + r.QualifiedName()
}

func (r Reference) String() string {
	return r.QualifiedName() + " in " + r.FileName + " (" + r.PackageName + ")"
}

// GenericParam is a declared type parameter.
type GenericParam struct {
	Name       string
	Constraint syntax.Type
	Default    syntax.Type
}

// Super is an inheritance edge together with the type arguments written on it.
type Super struct {
	Entity   *Loaded
	TypeArgs []syntax.Type
}

// Loaded is a located declaration with its inheritance edges. Edges are attached
// once by the chain indexer.
type Loaded struct {
	Reference
	Kind        Kind
	Declaration syntax.Declaration
	File        *syntax.File
	Generics    []GenericParam

	SuperClass           *Super
	ImplementsInterfaces []*Super
	SuperInterfaces      []*Super
}

// New creates a loaded entity for a declaration found in file.
func New(ref Reference, decl syntax.Declaration, file *syntax.File) *Loaded {
	e := &Loaded{Reference: ref, Declaration: decl, File: file}
	switch d := decl.(type) {
	case *syntax.ClassDecl:
		e.Kind = KindClass
		e.Generics = genericParams(d.TypeParams)
	case *syntax.InterfaceDecl:
		e.Kind = KindInterface
		e.Generics = genericParams(d.TypeParams)
	case *syntax.TypeAliasDecl:
		e.Kind = KindType
		e.Generics = genericParams(d.TypeParams)
	case *syntax.EnumDecl:
		e.Kind = KindEnum
	}
	return e
}

func genericParams(params []*syntax.TypeParam) []GenericParam {
	if len(params) == 0 {
		return nil
	}
	out := make([]GenericParam, len(params))
	for i, p := range params {
		out[i] = GenericParam{Name: p.Name, Constraint: p.Constraint, Default: p.Default}
	}
	return out
}

// HasGeneric reports whether the entity declares a type parameter named name.
func (e *Loaded) HasGeneric(name string) bool {
	for _, g := range e.Generics {
		if g.Name == name {
			return true
		}
	}
	return false
}

func (e *Loaded) Class() (*syntax.ClassDecl, bool) {
	d, ok := e.Declaration.(*syntax.ClassDecl)
	return d, ok
}

func (e *Loaded) Interface() (*syntax.InterfaceDecl, bool) {
	d, ok := e.Declaration.(*syntax.InterfaceDecl)
	return d, ok
}

func (e *Loaded) TypeAlias() (*syntax.TypeAliasDecl, bool) {
	d, ok := e.Declaration.(*syntax.TypeAliasDecl)
	return d, ok
}

func (e *Loaded) Enum() (*syntax.EnumDecl, bool) {
	d, ok := e.Declaration.(*syntax.EnumDecl)
	return d, ok
}

// Comment returns the JSDoc comment attached to the declaration.
func (e *Loaded) Comment() string {
	switch d := e.Declaration.(type) {
	case *syntax.ClassDecl:
		return d.Comment
	case *syntax.InterfaceDecl:
		return d.Comment
	case *syntax.TypeAliasDecl:
		return d.Comment
	case *syntax.EnumDecl:
		return d.Comment
	}
	return ""
}

// Line returns the 1-based declaration line.
func (e *Loaded) Line() int {
	if e.Declaration == nil {
		return 0
	}
	return e.Declaration.Pos().Line
}

// Identity names the declaration itself, so that two references reaching the same
// declaration agree on it.
func (e *Loaded) Identity() string {
	file := e.FileName
	if e.File != nil {
		file = e.File.Name
	}
	name := e.LocalName
	var pos syntax.Position
	if e.Declaration != nil {
		name = e.Declaration.DeclName()
		pos = e.Declaration.Pos()
	}
	return fmt.Sprintf("%s#%s@%d:%d", file, name, pos.Line, pos.Column)
}
