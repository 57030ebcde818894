// Package registry renders resolved components into the registry document consumed
// by the dependency injection runtime.
package registry

import (
	"sort"

	"compgen/internal/comment"
	"compgen/internal/entity"
	"compgen/internal/ranges"
)

const registrySchemaVersion = "v1.0.0"

type Registry struct {
	SchemaVersion    string      `json:"schema_version"`
	Package          string      `json:"package"`
	Version          string      `json:"version,omitempty"`
	Components       []Component `json:"components"`
	ExternalPackages []string    `json:"external_packages"`
}

type Component struct {
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	File       string             `json:"file"`
	Comment    string             `json:"comment,omitempty"`
	Extends    []Ref              `json:"extends,omitempty"`
	Implements []Ref              `json:"implements,omitempty"`
	Generics   []GenericParameter `json:"generic_type_parameters,omitempty"`
	Parameters []Parameter        `json:"parameters"`
	MemberKeys []string           `json:"member_keys,omitempty"`
}

// Ref names an entity declared in some package.
type Ref struct {
	Name    string `json:"name"`
	Package string `json:"package"`
	File    string `json:"file"`
}

type GenericParameter struct {
	Name  string `json:"name"`
	Range *Range `json:"range,omitempty"`
}

type Parameter struct {
	Name     string    `json:"name,omitempty"`
	Kind     string    `json:"kind"`
	Unique   bool      `json:"unique"`
	Required bool      `json:"required"`
	Domain   *Range    `json:"domain,omitempty"`
	Range    *Range    `json:"range"`
	Defaults []Default `json:"defaults,omitempty"`
	Comment  string    `json:"comment,omitempty"`
}

type Default struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Range is the serialized form of a resolved range. Value holds the scalar payload
// of raw, literal, override, class and generic ranges.
type Range struct {
	Type          string      `json:"type"`
	Value         any         `json:"value,omitempty"`
	Class         *Ref        `json:"class,omitempty"`
	Origin        string      `json:"origin,omitempty"`
	Elements      []*Range    `json:"elements,omitempty"`
	Fields        []Parameter `json:"fields,omitempty"`
	GenericInputs []*Range    `json:"generic_type_instances,omitempty"`
}

// Input is everything generated for one package.
type Input struct {
	Package      string
	Version      string
	Classes      map[string]*entity.Loaded
	Constructors map[string][]*ranges.Parameter[ranges.Resolved]
	Generics     map[string][]ranges.GenericTypeParameter
	Members      map[string][]*ranges.Parameter[ranges.Resolved]
	External     []string
}

// Build assembles the registry of one package. Components are ordered by exported name.
func Build(in Input) *Registry {
	names := make([]string, 0, len(in.Classes))
	for name := range in.Classes {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := &Registry{
		SchemaVersion:    registrySchemaVersion,
		Package:          in.Package,
		Version:          in.Version,
		Components:       make([]Component, 0, len(names)),
		ExternalPackages: append([]string{}, in.External...),
	}
	for _, name := range names {
		e := in.Classes[name]
		c := Component{
			Name:       name,
			Type:       componentType(e),
			File:       e.FileName,
			Comment:    comment.Parse(e.Comment()).Description,
			Parameters: parameters(in.Constructors[name]),
		}
		if e.SuperClass != nil {
			c.Extends = append(c.Extends, ref(e.SuperClass.Entity))
		}
		for _, s := range e.SuperInterfaces {
			c.Extends = append(c.Extends, ref(s.Entity))
		}
		for _, s := range e.ImplementsInterfaces {
			c.Implements = append(c.Implements, ref(s.Entity))
		}
		for _, g := range in.Generics[name] {
			c.Generics = append(c.Generics, GenericParameter{Name: g.Name, Range: render(g.Range)})
		}
		for _, m := range in.Members[name] {
			if m.Kind == ranges.KindField {
				c.MemberKeys = append(c.MemberKeys, m.Name)
			}
		}
		reg.Components = append(reg.Components, c)
	}
	return reg
}

func componentType(e *entity.Loaded) string {
	if class, ok := e.Class(); ok {
		if class.Abstract {
			return "AbstractClass"
		}
		return "Class"
	}
	return "Interface"
}

func ref(e *entity.Loaded) Ref {
	return Ref{Name: e.QualifiedName(), Package: e.PackageName, File: e.FileName}
}

func parameters(params []*ranges.Parameter[ranges.Resolved]) []Parameter {
	out := make([]Parameter, 0, len(params))
	for _, p := range params {
		rp := Parameter{
			Name:     p.Name,
			Kind:     string(p.Kind),
			Unique:   p.Unique,
			Required: p.Required,
			Domain:   render(p.Domain),
			Range:    render(p.Range),
			Comment:  p.Comment,
		}
		for _, d := range p.Defaults {
			rp.Defaults = append(rp.Defaults, Default{Type: string(d.Kind), Value: d.Value})
		}
		out = append(out, rp)
	}
	return out
}

func render(r ranges.Resolved) *Range {
	switch r := r.(type) {
	case nil:
		return nil
	case *ranges.Raw:
		return &Range{Type: "raw", Value: r.Value}
	case *ranges.Literal:
		return &Range{Type: "literal", Value: r.Value}
	case *ranges.Override:
		return &Range{Type: "override", Value: r.Value}
	case *ranges.Wildcard:
		return &Range{Type: "wildcard"}
	case *ranges.Undefined:
		return &Range{Type: "undefined"}
	case *ranges.Class:
		c := ref(r.Entity)
		return &Range{Type: "class", Value: c.Name, Class: &c, GenericInputs: renderAll(r.GenericTypeParameterInstances)}
	case *ranges.Nested:
		return &Range{Type: "nested", Fields: parameters(r.Fields)}
	case *ranges.GenericTypeReference:
		out := &Range{Type: "genericTypeReference", Value: r.Name}
		if r.Origin != nil {
			out.Origin = r.Origin.QualifiedName()
		}
		return out
	case *ranges.Union:
		return &Range{Type: "union", Elements: renderAll(r.Elements)}
	case *ranges.Intersection:
		return &Range{Type: "intersection", Elements: renderAll(r.Elements)}
	case *ranges.Tuple:
		return &Range{Type: "tuple", Elements: renderAll(r.Elements)}
	case *ranges.Array:
		return &Range{Type: "array", Elements: []*Range{render(r.Elem)}}
	case *ranges.Rest:
		return &Range{Type: "rest", Elements: []*Range{render(r.Elem)}}
	case *ranges.Indexed:
		return &Range{Type: "indexed", Elements: []*Range{render(r.Object), render(r.Index)}}
	case *ranges.Keyof:
		return &Range{Type: "keyof", Elements: []*Range{render(r.Value)}}
	}
	return &Range{Type: "wildcard"}
}

func renderAll(list []ranges.Resolved) []*Range {
	if len(list) == 0 {
		return nil
	}
	out := make([]*Range, 0, len(list))
	for _, r := range list {
		out = append(out, render(r))
	}
	return out
}
