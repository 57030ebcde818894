package resolver

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"

	"compgen/internal/diag"
	"compgen/internal/entity"
	"compgen/internal/index"
	"compgen/internal/loader"
	"compgen/internal/param"
	"compgen/internal/ranges"
)

// Options configure a Resolver.
type Options struct {
	// Ignore holds qualified names that resolve to a wildcard without being looked up.
	Ignore  map[string]struct{}
	Lenient bool
}

// Bindings maps the generic parameter names of one entity to their instances.
type Bindings map[string]ranges.Resolved

// Stats counts what a resolver did during one run.
type Stats struct {
	Resolved    int64
	CacheHits   int64
	CycleBreaks int64
	Ignored     int64
}

// Resolver turns unresolved ranges into resolved ones, following references through
// the symbol loader. It is safe for concurrent use; its cache lives as long as the
// resolver, which is one generation run.
type Resolver struct {
	loader  *loader.Loader
	indexer *index.Indexer
	params  *param.Loader
	options Options

	mu    sync.Mutex
	cache map[cacheKey]*entry

	resolved    atomic.Int64
	cacheHits   atomic.Int64
	cycleBreaks atomic.Int64
	ignored     atomic.Int64
}

func New(l *loader.Loader, indexer *index.Indexer, params *param.Loader, options Options) *Resolver {
	return &Resolver{
		loader:  l,
		indexer: indexer,
		params:  params,
		options: options,
		cache:   make(map[cacheKey]*entry),
	}
}

// Stats returns a snapshot of the counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		Resolved:    r.resolved.Load(),
		CacheHits:   r.cacheHits.Load(),
		CycleBreaks: r.cycleBreaks.Load(),
		Ignored:     r.ignored.Load(),
	}
}

type cacheKey struct {
	name     string
	path     string
	generics uint64
	scope    string
	nested   bool
}

// entry is a cached interface range together with every key its computation
// visited. It is only reused by walks that have none of those keys in progress.
type entry struct {
	value ranges.Resolved
	deps  map[cacheKey]struct{}
}

// walk is the state of one top-level resolution: the keys currently being computed,
// with their entities, the keys visited below each of them, and the entities being
// expanded with the key that started the expansion.
type walk struct {
	trail     map[cacheKey]*entity.Loaded
	deps      []map[cacheKey]struct{}
	expanding map[expansion]cacheKey
}

// expansion is an entity being turned into its range, under one nested mode.
type expansion struct {
	entity *entity.Loaded
	nested bool
}

func newWalk() *walk {
	return &walk{
		trail:     make(map[cacheKey]*entity.Loaded),
		expanding: make(map[expansion]cacheKey),
	}
}

func (w *walk) touch(key cacheKey) {
	if n := len(w.deps); n > 0 {
		w.deps[n-1][key] = struct{}{}
	}
}

func (w *walk) touchAll(deps map[cacheKey]struct{}) {
	if n := len(w.deps); n > 0 {
		for k := range deps {
			w.deps[n-1][k] = struct{}{}
		}
	}
}

// independent reports whether none of deps is currently in progress.
func (w *walk) independent(deps map[cacheKey]struct{}) bool {
	for k := range deps {
		if _, ok := w.trail[k]; ok {
			return false
		}
	}
	return true
}

// ResolveRange resolves u as written inside owner. bindings instantiate owner's generic
// parameters; nested selects whether plain interfaces expand into their fields.
func (r *Resolver) ResolveRange(ctx context.Context, u ranges.Unresolved, owner *entity.Loaded, bindings Bindings, nested bool) (ranges.Resolved, error) {
	return r.resolve(ctx, newWalk(), u, owner, bindings, nested)
}

func (r *Resolver) resolve(ctx context.Context, w *walk, u ranges.Unresolved, owner *entity.Loaded, bindings Bindings, nested bool) (ranges.Resolved, error) {
	switch u := u.(type) {
	case nil:
		return nil, nil
	case *ranges.Raw, *ranges.Literal, *ranges.Override, *ranges.Wildcard, *ranges.Undefined:
		return u.(ranges.Resolved), nil
	case *ranges.Hash:
		origin := originOr(u.Origin, owner)
		members, err := r.params.LoadMembers(origin, u.Object.Members)
		if err != nil {
			return nil, err
		}
		fields, err := r.resolveParams(ctx, w, members, origin, bindings, true)
		if err != nil {
			return nil, err
		}
		return &ranges.Nested{Fields: fields}, nil
	case *ranges.InterfaceRef:
		return r.resolveInterface(ctx, w, u, owner, bindings, nested)
	case *ranges.GenericRef:
		if bound, ok := bindings[u.Name]; ok && bound != nil {
			return bound, nil
		}
		return &ranges.GenericTypeReference{Name: u.Name, Origin: originOr(u.Origin, owner)}, nil
	case *ranges.TypeofRef:
		origin := originOr(u.Origin, owner)
		return r.shape(typeofError(origin, u, "typeof is only supported as keyof typeof Enum"))
	case *ranges.UnresolvedUnion:
		elements, err := r.resolveAll(ctx, w, u.Elements, owner, bindings, nested)
		if err != nil {
			return nil, err
		}
		return &ranges.Union{Elements: elements}, nil
	case *ranges.UnresolvedIntersection:
		elements, err := r.resolveAll(ctx, w, u.Elements, owner, bindings, nested)
		if err != nil {
			return nil, err
		}
		return &ranges.Intersection{Elements: elements}, nil
	case *ranges.UnresolvedTuple:
		elements, err := r.resolveAll(ctx, w, u.Elements, owner, bindings, nested)
		if err != nil {
			return nil, err
		}
		return &ranges.Tuple{Elements: elements}, nil
	case *ranges.UnresolvedArray:
		elem, err := r.resolve(ctx, w, u.Elem, owner, bindings, nested)
		if err != nil {
			return nil, err
		}
		return &ranges.Array{Elem: elem}, nil
	case *ranges.UnresolvedRest:
		elem, err := r.resolve(ctx, w, u.Elem, owner, bindings, nested)
		if err != nil {
			return nil, err
		}
		return &ranges.Rest{Elem: elem}, nil
	case *ranges.UnresolvedIndexed:
		object, err := r.resolve(ctx, w, u.Object, owner, bindings, nested)
		if err != nil {
			return nil, err
		}
		idx, err := r.resolve(ctx, w, u.Index, owner, bindings, nested)
		if err != nil {
			return nil, err
		}
		return &ranges.Indexed{Object: object, Index: idx}, nil
	case *ranges.UnresolvedKeyof:
		return r.resolveKeyof(ctx, w, u, owner, bindings, nested)
	}
	return nil, errors.Newf("unknown range %T", u)
}

func (r *Resolver) resolveAll(ctx context.Context, w *walk, list []ranges.Unresolved, owner *entity.Loaded, bindings Bindings, nested bool) ([]ranges.Resolved, error) {
	out := make([]ranges.Resolved, 0, len(list))
	for _, u := range list {
		res, err := r.resolve(ctx, w, u, owner, bindings, nested)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *Resolver) isIgnored(name string) bool {
	if _, ok := r.options.Ignore[name]; ok {
		r.ignored.Add(1)
		return true
	}
	return false
}

func (r *Resolver) resolveInterface(ctx context.Context, w *walk, u *ranges.InterfaceRef, owner *entity.Loaded, bindings Bindings, nested bool) (ranges.Resolved, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from := originOr(u.Origin, owner)
	if r.isIgnored(qualify(u.QualifiedPath, u.Name)) {
		return &ranges.Wildcard{}, nil
	}

	args, err := r.resolveAll(ctx, w, u.TypeArgs, owner, bindings, nested)
	if err != nil {
		return nil, err
	}
	key := cacheKey{
		name:     u.Name,
		path:     strings.Join(u.QualifiedPath, "."),
		generics: instancesHash(args),
		scope:    from.FileName + "#" + strings.Join(from.QualifiedPath, "."),
		nested:   nested,
	}

	if target, ok := w.trail[key]; ok {
		r.cycleBreaks.Add(1)
		w.touch(key)
		return classRange(target, args), nil
	}
	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok && w.independent(cached.deps) {
		r.cacheHits.Add(1)
		w.touchAll(cached.deps)
		return cached.value, nil
	}

	target, err := r.loader.ResolveFrom(ctx, from, u.Name, u.QualifiedPath, true, true)
	if err != nil {
		return nil, err
	}
	if r.isIgnored(target.QualifiedName()) {
		return &ranges.Wildcard{}, nil
	}

	// A generic entity reached again with other arguments (Node<T> referring to
	// Node<Node<T>>) would expand forever; it is cut like a same-key cycle.
	ex := expansion{entity: target, nested: nested}
	if outer, ok := w.expanding[ex]; ok {
		r.cycleBreaks.Add(1)
		w.touch(outer)
		return classRange(target, args), nil
	}

	w.trail[key] = target
	w.expanding[ex] = key
	w.deps = append(w.deps, map[cacheKey]struct{}{key: {}})

	result, err := r.classify(ctx, w, target, args, nested)

	deps := w.deps[len(w.deps)-1]
	w.deps = w.deps[:len(w.deps)-1]
	delete(w.trail, key)
	delete(w.expanding, ex)
	w.touchAll(deps)
	if err != nil {
		return nil, err
	}
	r.resolved.Add(1)

	// a result that closed a cycle on an outer key depends on how it was reached
	if !w.independent(deps) {
		return result, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[key]; ok {
		return existing.value, nil
	}
	r.cache[key] = &entry{value: result, deps: deps}
	return result, nil
}

// classify turns a located entity into its range.
func (r *Resolver) classify(ctx context.Context, w *walk, target *entity.Loaded, args []ranges.Resolved, nested bool) (ranges.Resolved, error) {
	switch target.Kind {
	case entity.KindClass:
		r.linkChain(ctx, target)
		return classRange(target, args), nil
	case entity.KindInterface:
		iface, _ := target.Interface()
		if !nested || param.IsImplicitClass(iface) {
			r.linkChain(ctx, target)
			return classRange(target, args), nil
		}
		bindings, err := r.bind(ctx, w, target, args)
		if err != nil {
			return nil, err
		}
		fields, err := r.interfaceFields(ctx, w, target, bindings, make(map[*entity.Loaded]struct{}))
		if err != nil {
			return nil, err
		}
		return &ranges.Nested{Fields: fields}, nil
	case entity.KindType:
		alias, _ := target.TypeAlias()
		bindings, err := r.bind(ctx, w, target, args)
		if err != nil {
			return nil, err
		}
		u, err := r.params.LoadRange(target, alias.Type, target.LocalName, false)
		if err != nil {
			return nil, err
		}
		return r.resolve(ctx, w, u, target, bindings, nested)
	case entity.KindEnum:
		return r.enumValues(target)
	}
	return nil, errors.Newf("cannot classify %s of kind %q", target.QualifiedName(), target.Kind)
}

// linkChain attaches the inheritance edges of an entity referenced as a class so its
// ancestors are visible to later walks. A chain that cannot be linked only loses edges.
func (r *Resolver) linkChain(ctx context.Context, target *entity.Loaded) {
	if err := r.indexer.LoadClassChain(ctx, target); err != nil {
		r.loader.Collector().Warn(diag.Warning{
			Kind:    "chain",
			Entity:  target.QualifiedName(),
			Message: "could not link inheritance chain of referenced class",
			Err:     err,
		})
	}
}

func classRange(target *entity.Loaded, args []ranges.Resolved) *ranges.Class {
	c := &ranges.Class{Entity: target}
	if len(target.Generics) > 0 && len(args) > 0 {
		c.GenericTypeParameterInstances = args
	}
	return c
}

// bind maps the generic parameters of target to args. Omitted arguments fall back to
// the parameter's default; parameters with neither stay unbound.
func (r *Resolver) bind(ctx context.Context, w *walk, target *entity.Loaded, args []ranges.Resolved) (Bindings, error) {
	bindings := make(Bindings, len(target.Generics))
	for i, g := range target.Generics {
		if i < len(args) {
			bindings[g.Name] = args[i]
			continue
		}
		if g.Default == nil {
			continue
		}
		u, err := r.params.LoadRange(target, g.Default, g.Name, false)
		if err != nil {
			return nil, err
		}
		def, err := r.resolve(ctx, w, u, target, bindings, true)
		if err != nil {
			return nil, err
		}
		bindings[g.Name] = def
	}
	return bindings, nil
}

// interfaceFields flattens the fields of e and of its super interfaces. Own fields
// shadow inherited ones of the same name.
func (r *Resolver) interfaceFields(ctx context.Context, w *walk, e *entity.Loaded, bindings Bindings, seen map[*entity.Loaded]struct{}) ([]*ranges.Parameter[ranges.Resolved], error) {
	if _, ok := seen[e]; ok {
		return nil, nil
	}
	seen[e] = struct{}{}
	iface, ok := e.Interface()
	if !ok {
		return nil, nil
	}
	if err := r.indexer.LoadClassChain(ctx, e); err != nil {
		return nil, err
	}

	members, err := r.params.LoadInterfaceFields(e, iface)
	if err != nil {
		return nil, err
	}
	fields, err := r.resolveParams(ctx, w, members, e, bindings, true)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Kind == ranges.KindField {
			names[f.Name] = struct{}{}
		}
	}

	for _, edge := range e.SuperInterfaces {
		args, err := r.edgeArgs(ctx, w, e, edge, bindings)
		if err != nil {
			return nil, err
		}
		superBindings, err := r.bind(ctx, w, edge.Entity, args)
		if err != nil {
			return nil, err
		}
		inherited, err := r.interfaceFields(ctx, w, edge.Entity, superBindings, seen)
		if err != nil {
			return nil, err
		}
		for _, f := range inherited {
			if f.Kind == ranges.KindField {
				if _, ok := names[f.Name]; ok {
					continue
				}
				names[f.Name] = struct{}{}
			}
			fields = append(fields, f)
		}
	}
	return fields, nil
}

// edgeArgs resolves the type arguments written on a heritage edge of e.
func (r *Resolver) edgeArgs(ctx context.Context, w *walk, e *entity.Loaded, edge *entity.Super, bindings Bindings) ([]ranges.Resolved, error) {
	args := make([]ranges.Resolved, 0, len(edge.TypeArgs))
	for _, t := range edge.TypeArgs {
		u, err := r.params.LoadRange(e, t, e.LocalName, false)
		if err != nil {
			return nil, err
		}
		arg, err := r.resolve(ctx, w, u, e, bindings, true)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func (r *Resolver) resolveParams(ctx context.Context, w *walk, params []*param.Unresolved, owner *entity.Loaded, bindings Bindings, nested bool) ([]*ranges.Parameter[ranges.Resolved], error) {
	out := make([]*ranges.Parameter[ranges.Resolved], 0, len(params))
	for _, p := range params {
		resolved := &ranges.Parameter[ranges.Resolved]{
			Kind:     p.Kind,
			Name:     p.Name,
			Unique:   p.Unique,
			Required: p.Required,
			Defaults: p.Defaults,
			Comment:  p.Comment,
		}
		if p.Domain != nil {
			domain, err := r.resolve(ctx, w, p.Domain, owner, bindings, nested)
			if err != nil {
				return nil, err
			}
			resolved.Domain = domain
		}
		rng, err := r.resolve(ctx, w, p.Range, owner, bindings, nested)
		if err != nil {
			return nil, err
		}
		resolved.Range = rng
		out = append(out, resolved)
	}
	return out, nil
}

func (r *Resolver) enumValues(target *entity.Loaded) (ranges.Resolved, error) {
	enum, _ := target.Enum()
	elements := make([]ranges.Resolved, 0, len(enum.Members))
	for _, m := range enum.Members {
		if m.Value == nil {
			wildcard, err := r.shape(&diag.ShapeError{
				Kind:    diag.ShapeEnumMember,
				Entity:  target.QualifiedName(),
				File:    target.FileName,
				Line:    m.Position.Line,
				Subject: m.Name,
				Message: "enum member has no literal initializer",
			})
			if err != nil {
				return nil, err
			}
			elements = append(elements, wildcard)
			continue
		}
		elements = append(elements, &ranges.Literal{Value: m.Value.Value})
	}
	return &ranges.Union{Elements: elements}, nil
}

// resolveKeyof collapses keyof typeof Enum into the union of the enum's keys.
func (r *Resolver) resolveKeyof(ctx context.Context, w *walk, u *ranges.UnresolvedKeyof, owner *entity.Loaded, bindings Bindings, nested bool) (ranges.Resolved, error) {
	query, ok := u.Value.(*ranges.TypeofRef)
	if !ok {
		value, err := r.resolve(ctx, w, u.Value, owner, bindings, nested)
		if err != nil {
			return nil, err
		}
		return &ranges.Keyof{Value: value}, nil
	}

	origin := originOr(query.Origin, owner)
	target, err := r.loader.ResolveFrom(ctx, origin, query.Name, query.QualifiedPath, true, true)
	if err != nil {
		return nil, err
	}
	enum, ok := target.Enum()
	if !ok {
		return r.shape(typeofError(origin, query, "keyof typeof only supports enums, found "+string(target.Kind)))
	}
	keys := make([]ranges.Resolved, 0, len(enum.Members))
	for _, m := range enum.Members {
		keys = append(keys, &ranges.Literal{Value: m.Name})
	}
	return &ranges.Union{Elements: keys}, nil
}

func typeofError(origin *entity.Loaded, q *ranges.TypeofRef, message string) *diag.ShapeError {
	return &diag.ShapeError{
		Kind:    diag.ShapeUnsupportedTypeof,
		Entity:  origin.QualifiedName(),
		File:    origin.FileName,
		Line:    origin.Line(),
		Subject: qualify(q.QualifiedPath, q.Name),
		Message: message,
	}
}

// shape fails with err, or in lenient mode records it and yields a wildcard.
func (r *Resolver) shape(err *diag.ShapeError) (ranges.Resolved, error) {
	if !r.options.Lenient {
		return nil, err
	}
	r.loader.Collector().Warn(diag.Warning{Kind: string(err.Kind), Entity: err.Entity, Message: "using wildcard for unsupported shape", Err: err})
	return &ranges.Wildcard{}, nil
}

func originOr(origin, owner *entity.Loaded) *entity.Loaded {
	if origin != nil {
		return origin
	}
	return owner
}

func qualify(path []string, name string) string {
	if len(path) == 0 {
		return name
	}
	return strings.Join(path, ".") + "." + name
}

func instancesHash(args []ranges.Resolved) uint64 {
	d := xxhash.New()
	for _, a := range args {
		_, _ = d.WriteString(ranges.Key(a))
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
