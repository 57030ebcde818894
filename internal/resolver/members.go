package resolver

import (
	"context"

	"github.com/cockroachdb/errors"

	"compgen/internal/diag"
	"compgen/internal/entity"
	"compgen/internal/param"
	"compgen/internal/ranges"
)

// ResolveConstructor resolves the constructor parameters of a class. A class without
// its own constructor inherits the closest one up its superclass chain, with the
// superclass generics bound to the arguments written in the extends clause.
func (r *Resolver) ResolveConstructor(ctx context.Context, class *entity.Loaded) ([]*ranges.Parameter[ranges.Resolved], error) {
	w := newWalk()
	seen := make(map[*entity.Loaded]struct{})
	var bindings Bindings
	for e := class; e != nil; {
		if _, ok := seen[e]; ok {
			break
		}
		seen[e] = struct{}{}

		decl, ok := e.Class()
		if !ok {
			return nil, &diag.ClassificationError{
				Entity:   e.QualifiedName(),
				Target:   class.QualifiedName(),
				Expected: entity.KindClass,
				Actual:   e.Kind,
				File:     e.FileName,
			}
		}
		if ctor := param.FindConstructor(decl); ctor != nil {
			fields, err := r.params.LoadConstructorFields(e, ctor)
			if err != nil {
				return nil, errors.Wrapf(err, "loading constructor of %s", class.QualifiedName())
			}
			out, err := r.resolveParams(ctx, w, fields, e, bindings, true)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving constructor of %s", class.QualifiedName())
			}
			return out, nil
		}

		if err := r.indexer.LoadClassChain(ctx, e); err != nil {
			return nil, err
		}
		if e.SuperClass == nil {
			break
		}
		args, err := r.edgeArgs(ctx, w, e, e.SuperClass, bindings)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving superclass arguments of %s", e.QualifiedName())
		}
		bindings, err = r.bind(ctx, w, e.SuperClass.Entity, args)
		if err != nil {
			return nil, err
		}
		e = e.SuperClass.Entity
	}
	return []*ranges.Parameter[ranges.Resolved]{}, nil
}

// ResolveGenerics resolves the constraints of the generic parameters e declares.
func (r *Resolver) ResolveGenerics(ctx context.Context, e *entity.Loaded) ([]ranges.GenericTypeParameter, error) {
	generics, err := r.params.LoadGenerics(e)
	if err != nil {
		return nil, err
	}
	out := make([]ranges.GenericTypeParameter, 0, len(generics))
	for _, g := range generics {
		gp := ranges.GenericTypeParameter{Name: g.Name}
		if g.Constraint != nil {
			constraint, err := r.ResolveRange(ctx, g.Constraint, e, nil, true)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving constraint of %s in %s", g.Name, e.QualifiedName())
			}
			gp.Range = constraint
		}
		out = append(out, gp)
	}
	return out, nil
}

// ResolveMembers resolves the public members of a class or interface. Referenced
// interfaces are kept as class ranges instead of being expanded.
func (r *Resolver) ResolveMembers(ctx context.Context, e *entity.Loaded) ([]*ranges.Parameter[ranges.Resolved], error) {
	var members []*param.Unresolved
	var err error
	if class, ok := e.Class(); ok {
		members, err = r.params.LoadClassFields(e, class)
	} else if iface, ok := e.Interface(); ok {
		members, err = r.params.LoadInterfaceFields(e, iface)
	}
	if err != nil {
		return nil, err
	}
	return r.resolveParams(ctx, newWalk(), members, e, nil, false)
}
