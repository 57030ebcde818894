package symtab

import (
	"context"

	"compgen/internal/diag"
	"compgen/internal/syntax"
)

type builder struct {
	ctx       context.Context
	imports   ImportResolver
	collector *diag.Collector
	fromFile  string
}

func (b *builder) fill(t *Table, statements []syntax.Statement) error {
	var clauses []*syntax.ExportNamed

	// Declarations and imports first, so export clauses can refer to either
	// regardless of source order.
	for _, stmt := range statements {
		switch s := stmt.(type) {
		case *syntax.ExportDecl:
			b.declare(t, s.Declaration, true)
		case *syntax.ExportNamed:
			clauses = append(clauses, s)
		case *syntax.ExportAll:
			link, ok := b.resolve(t, s.Source)
			if !ok {
				continue
			}
			if s.As != "" {
				t.ExportedImportedAll[s.As] = link
			} else {
				t.ExportedImportedAllUnnamed = append(t.ExportedImportedAllUnnamed, link)
			}
		case *syntax.ExportAssign:
			t.ExportAssignment = s.Name
		case *syntax.ImportDecl:
			link, ok := b.resolve(t, s.Source)
			if !ok {
				continue
			}
			if s.Namespace != "" {
				t.ImportedAll[s.Namespace] = link
			}
			for _, spec := range s.Named {
				element := link
				element.LocalName = spec.Imported
				t.ImportedElements[spec.Local] = element
			}
		case syntax.Declaration:
			b.declare(t, s, false)
		}
	}

	for _, clause := range clauses {
		if clause.Source != "" {
			link, ok := b.resolve(t, clause.Source)
			if !ok {
				continue
			}
			for _, spec := range clause.Specifiers {
				element := link
				element.LocalName = spec.Local
				t.ExportedImportedElements[spec.Exported] = element
			}
			continue
		}
		for _, spec := range clause.Specifiers {
			b.exportLocal(t, spec)
		}
	}
	return nil
}

// exportLocal handles `export { X as Y }` without a source.
func (b *builder) exportLocal(t *Table, spec syntax.ExportSpecifier) {
	local, exported := spec.Local, spec.Exported
	found := false
	if d, ok := t.DeclaredClasses[local]; ok {
		t.ExportedClasses[exported] = d
		found = true
	}
	if d, ok := t.DeclaredInterfaces[local]; ok {
		t.ExportedInterfaces[exported] = d
		found = true
	}
	if d, ok := t.DeclaredTypes[local]; ok {
		t.ExportedTypes[exported] = d
		found = true
	}
	if d, ok := t.DeclaredEnums[local]; ok {
		t.ExportedEnums[exported] = d
		found = true
	}
	if ns, ok := t.DeclaredNamespaces[local]; ok {
		t.ExportedNamespaces[exported] = ns
		found = true
	}
	if found {
		return
	}
	if link, ok := t.ImportedElements[local]; ok {
		t.ExportedImportedElements[exported] = link
		return
	}
	if link, ok := t.ImportedAll[local]; ok {
		t.ExportedImportedAll[exported] = link
	}
}

func (b *builder) declare(t *Table, decl syntax.Declaration, exported bool) {
	switch d := decl.(type) {
	case *syntax.ClassDecl:
		t.DeclaredClasses[d.Name] = d
		if exported {
			t.ExportedClasses[d.Name] = d
		}
	case *syntax.InterfaceDecl:
		if prev, ok := t.DeclaredInterfaces[d.Name]; ok {
			d = mergeInterfaces(prev, d)
		}
		t.DeclaredInterfaces[d.Name] = d
		if _, ok := t.ExportedInterfaces[d.Name]; ok || exported {
			t.ExportedInterfaces[d.Name] = d
		}
	case *syntax.TypeAliasDecl:
		t.DeclaredTypes[d.Name] = d
		if exported {
			t.ExportedTypes[d.Name] = d
		}
	case *syntax.EnumDecl:
		t.DeclaredEnums[d.Name] = d
		if exported {
			t.ExportedEnums[d.Name] = d
		}
	case *syntax.NamespaceDecl:
		ns := namespaceFor(t.DeclaredNamespaces, d)
		if exported {
			t.ExportedNamespaces[ns.Name] = ns
		}
	}
}

// namespaceFor merges d into the namespace of its head segment. Dotted names become
// nested namespace declarations.
func namespaceFor(namespaces map[string]*Namespace, d *syntax.NamespaceDecl) *Namespace {
	head := d.Path[0]
	ns, ok := namespaces[head]
	if !ok {
		ns = &Namespace{Name: head, Decl: d}
		namespaces[head] = ns
	}
	body := d.Body
	if len(d.Path) > 1 {
		inner := &syntax.NamespaceDecl{
			Path:     d.Path[1:],
			Declare:  d.Declare,
			Body:     d.Body,
			Comment:  d.Comment,
			Position: d.Position,
		}
		body = []syntax.Statement{&syntax.ExportDecl{Declaration: inner, Position: d.Position}}
	}
	ns.Bodies = append(ns.Bodies, body)
	return ns
}

func (b *builder) resolve(t *Table, specifier string) (Link, bool) {
	if b.imports == nil {
		return Link{}, false
	}
	target, err := b.imports.Resolve(b.ctx, t.PackageName, b.fromFile, specifier)
	if err != nil {
		b.collector.Warn(diag.Warning{
			Kind:    "import",
			Entity:  b.fromFile,
			Message: "dropping unresolvable import " + specifier,
			Err:     err,
		})
		return Link{}, false
	}
	return Link{PackageName: target.PackageName, FileName: target.FileName}, true
}

// mergeInterfaces combines two declarations of the same interface. The parsed
// declarations are shared through the parse cache and stay untouched.
func mergeInterfaces(prev, next *syntax.InterfaceDecl) *syntax.InterfaceDecl {
	merged := *prev
	merged.Declare = prev.Declare || next.Declare
	merged.Extends = append(append([]syntax.Type{}, prev.Extends...), next.Extends...)
	merged.Members = append(append([]syntax.TypeMember{}, prev.Members...), next.Members...)
	if len(merged.TypeParams) == 0 {
		merged.TypeParams = next.TypeParams
	}
	if merged.Comment == "" {
		merged.Comment = next.Comment
	}
	return &merged
}
