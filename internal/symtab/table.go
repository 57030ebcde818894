package symtab

import (
	"context"
	"sync"

	"compgen/internal/diag"
	"compgen/internal/pkgmeta"
	"compgen/internal/syntax"
)

// ImportResolver maps an import specifier to the file it designates.
type ImportResolver interface {
	Resolve(ctx context.Context, packageName, fromFile, specifier string) (pkgmeta.Target, error)
}

// Link points at a name exported by another file.
type Link struct {
	PackageName string
	FileName    string
	// LocalName is the name in the target file. It is empty for wildcard links.
	LocalName string
}

// Table holds the categorized declarations, imports and exports of one file or
// namespace body.
type Table struct {
	PackageName string
	FileName    string
	File        *syntax.File

	DeclaredClasses    map[string]*syntax.ClassDecl
	DeclaredInterfaces map[string]*syntax.InterfaceDecl
	DeclaredTypes      map[string]*syntax.TypeAliasDecl
	DeclaredEnums      map[string]*syntax.EnumDecl
	DeclaredNamespaces map[string]*Namespace

	ExportedClasses    map[string]*syntax.ClassDecl
	ExportedInterfaces map[string]*syntax.InterfaceDecl
	ExportedTypes      map[string]*syntax.TypeAliasDecl
	ExportedEnums      map[string]*syntax.EnumDecl
	ExportedNamespaces map[string]*Namespace

	// ExportedImportedElements maps an exported name to the element it re-exports.
	ExportedImportedElements map[string]Link
	// ExportedImportedAll maps the N of `export * as N from` to the target file.
	ExportedImportedAll map[string]Link
	// ExportedImportedAllUnnamed lists `export * from` targets in declaration order.
	ExportedImportedAllUnnamed []Link

	ImportedElements map[string]Link
	ImportedAll      map[string]Link

	// ExportAssignment is the X of `export = X`.
	ExportAssignment string
}

// Namespace collects the bodies of every declaration merging into one namespace name.
type Namespace struct {
	Name   string
	Bodies [][]syntax.Statement
	Decl   *syntax.NamespaceDecl

	once  sync.Once
	table *Table
}

func newTable(packageName, fileName string, file *syntax.File) *Table {
	return &Table{
		PackageName:              packageName,
		FileName:                 fileName,
		File:                     file,
		DeclaredClasses:          map[string]*syntax.ClassDecl{},
		DeclaredInterfaces:       map[string]*syntax.InterfaceDecl{},
		DeclaredTypes:            map[string]*syntax.TypeAliasDecl{},
		DeclaredEnums:            map[string]*syntax.EnumDecl{},
		DeclaredNamespaces:       map[string]*Namespace{},
		ExportedClasses:          map[string]*syntax.ClassDecl{},
		ExportedInterfaces:       map[string]*syntax.InterfaceDecl{},
		ExportedTypes:            map[string]*syntax.TypeAliasDecl{},
		ExportedEnums:            map[string]*syntax.EnumDecl{},
		ExportedNamespaces:       map[string]*Namespace{},
		ExportedImportedElements: map[string]Link{},
		ExportedImportedAll:      map[string]Link{},
		ImportedElements:         map[string]Link{},
		ImportedAll:              map[string]Link{},
	}
}

// Build extracts the symbol table of a parsed file. Imports that cannot be resolved
// are recorded as warnings on collector and dropped.
func Build(ctx context.Context, file *syntax.File, packageName string, imports ImportResolver, collector *diag.Collector) (*Table, error) {
	b := &builder{ctx: ctx, imports: imports, collector: collector, fromFile: file.Name}
	t := newTable(packageName, file.Name, file)
	if err := b.fill(t, file.Statements); err != nil {
		return nil, err
	}
	return t, nil
}

// Namespace returns the table of a declared or exported namespace body, or nil.
func (t *Table) Namespace(name string) *Table {
	ns := t.ExportedNamespaces[name]
	if ns == nil {
		ns = t.DeclaredNamespaces[name]
	}
	if ns == nil {
		return nil
	}
	return ns.Table(t)
}

// Table returns the symbol table of the namespace body, built once. Imports are not
// allowed inside namespace bodies, so no resolver is needed.
func (ns *Namespace) Table(parent *Table) *Table {
	ns.once.Do(func() {
		b := &builder{fromFile: parent.FileName}
		t := newTable(parent.PackageName, parent.FileName, parent.File)
		for _, body := range ns.Bodies {
			// fill never fails without imports
			_ = b.fill(t, body)
		}
		ns.table = t
	})
	return ns.table
}

// Empty reports whether the table holds no symbol at all.
func (t *Table) Empty() bool {
	return len(t.DeclaredClasses)+len(t.DeclaredInterfaces)+len(t.DeclaredTypes)+len(t.DeclaredEnums)+
		len(t.DeclaredNamespaces)+len(t.ExportedClasses)+len(t.ExportedInterfaces)+len(t.ExportedTypes)+
		len(t.ExportedEnums)+len(t.ExportedNamespaces)+len(t.ExportedImportedElements)+
		len(t.ExportedImportedAll)+len(t.ExportedImportedAllUnnamed) == 0 && t.ExportAssignment == ""
}
