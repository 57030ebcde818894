package ranges

import (
	"fmt"
	"strings"
)

// Key renders a resolved range canonically. Equal keys mean structurally equal ranges;
// entities are identified by their declaration.
func Key(r Resolved) string {
	var b strings.Builder
	writeKey(&b, r)
	return b.String()
}

func writeKey(b *strings.Builder, r Resolved) {
	switch r := r.(type) {
	case nil:
		b.WriteString("nil")
	case *Raw:
		b.WriteString("raw:" + r.Value)
	case *Literal:
		fmt.Fprintf(b, "lit:%T:%v", r.Value, r.Value)
	case *Override:
		b.WriteString("override:" + r.Value)
	case *Wildcard:
		b.WriteString("*")
	case *Undefined:
		b.WriteString("undefined")
	case *Class:
		b.WriteString("class:" + r.Entity.Identity())
		writeList(b, r.GenericTypeParameterInstances)
	case *Nested:
		b.WriteString("nested{")
		for i, f := range r.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(b, "%s:%s:%t:%t:", f.Kind, f.Name, f.Unique, f.Required)
			if f.Domain != nil {
				writeKey(b, f.Domain)
				b.WriteByte('=')
			}
			writeKey(b, f.Range)
		}
		b.WriteByte('}')
	case *GenericTypeReference:
		b.WriteString("generic:" + r.Name)
		if r.Origin != nil {
			b.WriteString("@" + r.Origin.Identity())
		}
	case *Union:
		b.WriteString("union")
		writeList(b, r.Elements)
	case *Intersection:
		b.WriteString("intersection")
		writeList(b, r.Elements)
	case *Tuple:
		b.WriteString("tuple")
		writeList(b, r.Elements)
	case *Array:
		b.WriteString("array(")
		writeKey(b, r.Elem)
		b.WriteByte(')')
	case *Rest:
		b.WriteString("rest(")
		writeKey(b, r.Elem)
		b.WriteByte(')')
	case *Indexed:
		b.WriteString("indexed(")
		writeKey(b, r.Object)
		b.WriteByte(',')
		writeKey(b, r.Index)
		b.WriteByte(')')
	case *Keyof:
		b.WriteString("keyof(")
		writeKey(b, r.Value)
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "%T", r)
	}
}

func writeList(b *strings.Builder, list []Resolved) {
	b.WriteByte('[')
	for i, r := range list {
		if i > 0 {
			b.WriteByte(',')
		}
		writeKey(b, r)
	}
	b.WriteByte(']')
}

// Walk calls fn for r and every range nested in it, depth first. Returning false
// from fn skips the children of that range. Class ranges are not entered beyond
// their generic instances.
func Walk(r Resolved, fn func(Resolved) bool) {
	if r == nil || !fn(r) {
		return
	}
	switch r := r.(type) {
	case *Class:
		for _, g := range r.GenericTypeParameterInstances {
			Walk(g, fn)
		}
	case *Nested:
		for _, f := range r.Fields {
			Walk(f.Domain, fn)
			Walk(f.Range, fn)
		}
	case *Union:
		walkAll(r.Elements, fn)
	case *Intersection:
		walkAll(r.Elements, fn)
	case *Tuple:
		walkAll(r.Elements, fn)
	case *Array:
		Walk(r.Elem, fn)
	case *Rest:
		Walk(r.Elem, fn)
	case *Indexed:
		Walk(r.Object, fn)
		Walk(r.Index, fn)
	case *Keyof:
		Walk(r.Value, fn)
	}
}

func walkAll(list []Resolved, fn func(Resolved) bool) {
	for _, r := range list {
		Walk(r, fn)
	}
}
