package param

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"compgen/internal/comment"
	"compgen/internal/diag"
	"compgen/internal/entity"
	"compgen/internal/ranges"
	"compgen/internal/syntax"
)

// Loader reads unresolved parameter ranges from type nodes.
type Loader struct {
	collector *diag.Collector
	lenient   bool
}

// NewLoader creates a range loader. In lenient mode unsupported shapes become a
// wildcard plus a warning instead of an error.
func NewLoader(collector *diag.Collector, lenient bool) *Loader {
	return &Loader{collector: collector, lenient: lenient}
}

// Field is a named or index member as seen by the range loader.
type Field struct {
	Name     string
	Computed bool
	Optional bool
	Type     syntax.Type
	// Index is set for index signatures; Name and Type are then unused.
	Index *syntax.IndexSignature
	// Rest marks a rest constructor parameter.
	Rest     bool
	Comment  string
	Position syntax.Position
}

type Unresolved = ranges.Parameter[ranges.Unresolved]

// LoadField converts one member into parameter data. It reports false for members
// that cannot be named or are marked @ignored.
func (l *Loader) LoadField(owner *entity.Loaded, field Field, annotations *comment.Annotations) (*Unresolved, bool, error) {
	if annotations == nil {
		annotations = comment.Parse(field.Comment)
	}
	if field.Computed || annotations.Ignored {
		return nil, false, nil
	}

	p := &Unresolved{
		Kind:     ranges.KindField,
		Name:     field.Name,
		Unique:   true,
		Required: !field.Optional,
		Defaults: annotations.Defaults,
		Comment:  annotations.Description,
	}

	if field.Index != nil {
		p.Kind = ranges.KindIndex
		p.Name = ""
		p.Required = true
		domain, err := l.LoadRange(owner, field.Index.ParamType, field.Index.ParamName, false)
		if err != nil {
			return nil, false, err
		}
		p.Domain = domain
		field.Type = field.Index.Type
		field.Name = "[" + field.Index.ParamName + "]"
	}

	if annotations.Range != "" {
		p.Range = &ranges.Override{Value: annotations.Range}
		return p, true, nil
	}

	t := syntax.Unwrap(field.Type)
	if field.Rest {
		// `...xs: T[]` takes any number of T
		p.Unique = false
		if elem, ok := arrayElement(t); ok {
			t = elem
		}
	} else if elem, ok := arrayElement(t); ok {
		// only T[] marks a field as multi-valued; Array<T> contributes its element range alone
		if _, direct := t.(*syntax.ArrayType); direct {
			p.Unique = false
		}
		r, err := l.LoadRange(owner, elem, field.Name, true)
		if err != nil {
			return nil, false, err
		}
		p.Range = r
		return p, true, nil
	}

	r, err := l.LoadRange(owner, t, field.Name, false)
	if err != nil {
		return nil, false, err
	}
	p.Range = r
	return p, true, nil
}

// arrayElement returns the element of T[] or Array<T>.
func arrayElement(t syntax.Type) (syntax.Type, bool) {
	switch t := syntax.Unwrap(t).(type) {
	case *syntax.ArrayType:
		return t.Elem, true
	case *syntax.TypeReference:
		if len(t.Qualifier) == 0 && (t.Name == "Array" || t.Name == "ReadonlyArray") && len(t.TypeArgs) == 1 {
			return t.TypeArgs[0], true
		}
	}
	return nil, false
}

var rawAliases = map[string]string{
	"boolean": "boolean",
	"Boolean": "boolean",
	"number":  "number",
	"Number":  "number",
	"string":  "string",
	"String":  "string",
}

// LoadRange classifies a type node. errorIdentifier names the field in errors;
// nestedInArray is set when t is the element of an array.
func (l *Loader) LoadRange(owner *entity.Loaded, t syntax.Type, errorIdentifier string, nestedInArray bool) (ranges.Unresolved, error) {
	switch t := syntax.Unwrap(t).(type) {
	case nil:
		return &ranges.Wildcard{}, nil
	case *syntax.PredefinedType:
		if raw, ok := rawAliases[t.Name]; ok {
			return &ranges.Raw{Value: raw}, nil
		}
		switch t.Name {
		case "undefined", "void", "null":
			return &ranges.Undefined{}, nil
		}
		return &ranges.Wildcard{}, nil
	case *syntax.TypeReference:
		return l.loadReference(owner, t, errorIdentifier, nestedInArray)
	case *syntax.ArrayType:
		if nestedInArray {
			return l.nestedArray(owner, t, errorIdentifier)
		}
		elem, err := l.LoadRange(owner, t.Elem, errorIdentifier, true)
		if err != nil {
			return nil, err
		}
		return &ranges.UnresolvedArray{Elem: elem}, nil
	case *syntax.ObjectType:
		return &ranges.Hash{Object: t, Origin: owner}, nil
	case *syntax.UnionType:
		elements, err := l.loadAll(owner, t.Types, errorIdentifier, nestedInArray)
		if err != nil {
			return nil, err
		}
		return &ranges.UnresolvedUnion{Elements: elements}, nil
	case *syntax.IntersectionType:
		elements, err := l.loadAll(owner, t.Types, errorIdentifier, nestedInArray)
		if err != nil {
			return nil, err
		}
		return &ranges.UnresolvedIntersection{Elements: elements}, nil
	case *syntax.TupleType:
		elements, err := l.loadAll(owner, t.Elements, errorIdentifier, nestedInArray)
		if err != nil {
			return nil, err
		}
		return &ranges.UnresolvedTuple{Elements: elements}, nil
	case *syntax.RestType:
		inner := t.Elem
		if elem, ok := arrayElement(inner); ok {
			inner = elem
		}
		elem, err := l.LoadRange(owner, inner, errorIdentifier, nestedInArray)
		if err != nil {
			return nil, err
		}
		return &ranges.UnresolvedRest{Elem: elem}, nil
	case *syntax.OptionalType:
		return l.LoadRange(owner, t.Elem, errorIdentifier, nestedInArray)
	case *syntax.LiteralType:
		switch t.Kind {
		case syntax.LiteralUndefined, syntax.LiteralNull:
			return &ranges.Undefined{}, nil
		}
		return &ranges.Literal{Value: t.Value}, nil
	case *syntax.LookupType:
		object, err := l.LoadRange(owner, t.Object, errorIdentifier, nestedInArray)
		if err != nil {
			return nil, err
		}
		index, err := l.LoadRange(owner, t.Index, errorIdentifier, nestedInArray)
		if err != nil {
			return nil, err
		}
		return &ranges.UnresolvedIndexed{Object: object, Index: index}, nil
	case *syntax.KeyofType:
		value, err := l.LoadRange(owner, t.Operand, errorIdentifier, nestedInArray)
		if err != nil {
			return nil, err
		}
		return &ranges.UnresolvedKeyof{Value: value}, nil
	case *syntax.TypeQuery:
		return &ranges.TypeofRef{Name: t.Name, QualifiedPath: t.Qualifier, Origin: owner}, nil
	case *syntax.FunctionType, *syntax.ConstructorType:
		return &ranges.Wildcard{}, nil
	case *syntax.UnsupportedType:
		return l.shape(&diag.ShapeError{
			Kind:    diag.ShapeUnsupportedType,
			Entity:  owner.QualifiedName(),
			File:    owner.FileName,
			Line:    t.Position.Line,
			Subject: errorIdentifier,
			Message: fmt.Sprintf("unsupported %s %s", strings.ReplaceAll(t.Kind, "_", " "), t.Text),
		})
	}
	return nil, errors.Newf("unknown type node %T", t)
}

func (l *Loader) loadReference(owner *entity.Loaded, t *syntax.TypeReference, errorIdentifier string, nestedInArray bool) (ranges.Unresolved, error) {
	if len(t.Qualifier) == 0 {
		if raw, ok := rawAliases[t.Name]; ok && len(t.TypeArgs) == 0 {
			return &ranges.Raw{Value: raw}, nil
		}
		if elem, ok := arrayElement(t); ok {
			if nestedInArray {
				return l.nestedArray(owner, t, errorIdentifier)
			}
			r, err := l.LoadRange(owner, elem, errorIdentifier, true)
			if err != nil {
				return nil, err
			}
			return &ranges.UnresolvedArray{Elem: r}, nil
		}
		if t.Name == "undefined" {
			return &ranges.Undefined{}, nil
		}
		if owner != nil && owner.HasGeneric(t.Name) && len(t.TypeArgs) == 0 {
			return &ranges.GenericRef{Name: t.Name, Origin: owner}, nil
		}
	}

	args, err := l.loadAll(owner, t.TypeArgs, errorIdentifier, false)
	if err != nil {
		return nil, err
	}
	return &ranges.InterfaceRef{
		Name:          t.Name,
		QualifiedPath: t.Qualifier,
		TypeArgs:      args,
		Origin:        owner,
	}, nil
}

func (l *Loader) nestedArray(owner *entity.Loaded, t syntax.Type, errorIdentifier string) (ranges.Unresolved, error) {
	return l.shape(&diag.ShapeError{
		Kind:    diag.ShapeNestedArray,
		Entity:  owner.QualifiedName(),
		File:    owner.FileName,
		Line:    t.Pos().Line,
		Subject: errorIdentifier,
		Message: "nested arrays are not supported",
	})
}

func (l *Loader) loadAll(owner *entity.Loaded, types []syntax.Type, errorIdentifier string, nestedInArray bool) ([]ranges.Unresolved, error) {
	out := make([]ranges.Unresolved, 0, len(types))
	for _, t := range types {
		r, err := l.LoadRange(owner, t, errorIdentifier, nestedInArray)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// shape fails with err, or in lenient mode records it and yields a wildcard.
func (l *Loader) shape(err *diag.ShapeError) (ranges.Unresolved, error) {
	if !l.lenient {
		return nil, err
	}
	l.collector.Warn(diag.Warning{Kind: string(err.Kind), Entity: err.Entity, Message: "using wildcard for unsupported shape", Err: err})
	return &ranges.Wildcard{}, nil
}
