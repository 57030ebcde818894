package param

import (
	"fmt"

	"compgen/internal/comment"
	"compgen/internal/diag"
	"compgen/internal/entity"
	"compgen/internal/ranges"
	"compgen/internal/syntax"
)

// FindConstructor returns the first constructor declared in a class body.
func FindConstructor(class *syntax.ClassDecl) *syntax.Constructor {
	for _, m := range class.Members {
		if ctor, ok := m.(*syntax.Constructor); ok {
			return ctor
		}
	}
	return nil
}

// LoadConstructorFields loads the parameters of ctor, declared in owner. JSDoc
// @param blocks on the constructor apply to the parameter they name.
func (l *Loader) LoadConstructorFields(owner *entity.Loaded, ctor *syntax.Constructor) ([]*Unresolved, error) {
	if ctor == nil {
		return nil, nil
	}
	docs := comment.Parse(ctor.Comment)

	out := make([]*Unresolved, 0, len(ctor.Params))
	for i, p := range ctor.Params {
		if p.Destructured {
			err := &diag.ShapeError{
				Kind:    diag.ShapeUnsupportedParameter,
				Entity:  owner.QualifiedName(),
				File:    owner.FileName,
				Line:    p.Position.Line,
				Subject: fmt.Sprintf("parameter %d", i),
				Message: "destructured constructor parameters cannot be named",
			}
			if _, shapeErr := l.shape(err); shapeErr != nil {
				return nil, shapeErr
			}
			out = append(out, &Unresolved{
				Kind:   ranges.KindField,
				Name:   fmt.Sprintf("arg%d", i),
				Unique: true,
				Range:  &ranges.Wildcard{},
			})
			continue
		}

		annotations := docs.Param(p.Name).Merge(nonEmpty(p.Comment))
		field := Field{
			Name:     p.Name,
			Optional: p.Optional,
			Type:     p.Type,
			Rest:     p.Rest,
			Comment:  p.Comment,
			Position: p.Position,
		}
		if annotations.Ignored {
			// positions matter for constructor arguments
			out = append(out, &Unresolved{Kind: ranges.KindField, Name: p.Name, Unique: true, Range: &ranges.Wildcard{}})
			continue
		}
		param, ok, err := l.LoadField(owner, field, annotations)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, param)
		}
	}
	return out, nil
}

func nonEmpty(text string) *comment.Annotations {
	if text == "" {
		return nil
	}
	return comment.Parse(text)
}

// LoadClassFields loads the public instance properties and index signatures of a class.
func (l *Loader) LoadClassFields(owner *entity.Loaded, class *syntax.ClassDecl) ([]*Unresolved, error) {
	var out []*Unresolved
	for _, m := range class.Members {
		var field Field
		switch m := m.(type) {
		case *syntax.PropertyMember:
			if m.Static || m.Private {
				continue
			}
			field = Field{Name: m.Name, Computed: m.Computed, Optional: m.Optional, Type: m.Type, Comment: m.Comment, Position: m.Position}
		case *syntax.ClassIndexSignature:
			field = Field{Index: m.Signature, Comment: m.Signature.Comment, Position: m.Signature.Position}
		default:
			continue
		}
		p, ok, err := l.LoadField(owner, field, nil)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// LoadInterfaceFields loads the property and index members of an interface body.
func (l *Loader) LoadInterfaceFields(owner *entity.Loaded, iface *syntax.InterfaceDecl) ([]*Unresolved, error) {
	return l.LoadMembers(owner, iface.Members)
}

// LoadMembers loads property and index members of an interface body or object literal.
func (l *Loader) LoadMembers(owner *entity.Loaded, members []syntax.TypeMember) ([]*Unresolved, error) {
	var out []*Unresolved
	for _, m := range members {
		var field Field
		switch m := m.(type) {
		case *syntax.PropertySignature:
			field = Field{Name: m.Name, Computed: m.Computed, Optional: m.Optional, Type: m.Type, Comment: m.Comment, Position: m.Position}
		case *syntax.IndexSignature:
			field = Field{Index: m, Comment: m.Comment, Position: m.Position}
		default:
			continue
		}
		p, ok, err := l.LoadField(owner, field, nil)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Generic is a declared type parameter with unresolved constraint and default.
type Generic struct {
	Name       string
	Constraint ranges.Unresolved
	Default    ranges.Unresolved
}

// LoadGenerics loads the declared type parameters of owner.
func (l *Loader) LoadGenerics(owner *entity.Loaded) ([]Generic, error) {
	out := make([]Generic, 0, len(owner.Generics))
	for _, g := range owner.Generics {
		gen := Generic{Name: g.Name}
		if g.Constraint != nil {
			r, err := l.LoadRange(owner, g.Constraint, g.Name, false)
			if err != nil {
				return nil, err
			}
			gen.Constraint = r
		}
		if g.Default != nil {
			r, err := l.LoadRange(owner, g.Default, g.Name, false)
			if err != nil {
				return nil, err
			}
			gen.Default = r
		}
		out = append(out, gen)
	}
	return out, nil
}

// IsImplicitClass reports whether an interface carries behavior: a method signature,
// a construct signature, or a function-typed property.
func IsImplicitClass(iface *syntax.InterfaceDecl) bool {
	for _, m := range iface.Members {
		switch m := m.(type) {
		case *syntax.MethodSignature, *syntax.ConstructSignature:
			return true
		case *syntax.PropertySignature:
			if _, ok := syntax.Unwrap(m.Type).(*syntax.FunctionType); ok {
				return true
			}
		}
	}
	return false
}
