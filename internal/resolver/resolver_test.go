package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compgen/internal/diag"
	"compgen/internal/entity"
	"compgen/internal/index"
	"compgen/internal/loader"
	"compgen/internal/param"
	"compgen/internal/pkgmeta"
	"compgen/internal/ranges"
	"compgen/internal/source"
	"compgen/internal/syntax"
)

type fixture struct {
	resolver  *Resolver
	loader    *loader.Loader
	collector *diag.Collector
}

func newFixture(t *testing.T, files map[string]string, options Options) *fixture {
	t.Helper()
	mem := source.NewMemory(files)
	cache, err := syntax.NewCache(mem, 0)
	require.NoError(t, err)
	collector := diag.NewCollector()
	l := loader.New(cache, pkgmeta.NewResolver(mem), collector)
	idx := index.NewIndexer(l, index.Options{Ignore: options.Ignore, Lenient: options.Lenient})
	return &fixture{
		resolver:  New(l, idx, param.NewLoader(collector, options.Lenient), options),
		loader:    l,
		collector: collector,
	}
}

func (f *fixture) entity(t *testing.T, name string) *entity.Loaded {
	t.Helper()
	e, err := f.loader.Resolve(context.Background(), entity.Reference{PackageName: "pkg", FileName: "pkg/index", LocalName: name}, true, true)
	require.NoError(t, err)
	return e
}

func (f *fixture) constructor(t *testing.T, name string) []*ranges.Parameter[ranges.Resolved] {
	t.Helper()
	params, err := f.resolver.ResolveConstructor(context.Background(), f.entity(t, name))
	require.NoError(t, err)
	return params
}

func nested(t *testing.T, r ranges.Resolved) map[string]ranges.Resolved {
	t.Helper()
	n, ok := r.(*ranges.Nested)
	require.True(t, ok, "expected nested, got %T", r)
	out := map[string]ranges.Resolved{}
	for _, f := range n.Fields {
		out[f.Name] = f.Range
	}
	return out
}

func TestResolveRange_Memoized(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export interface Box<T> { value: T; }
export declare class Owner {}
`,
	}, Options{})
	ctx := context.Background()
	owner := f.entity(t, "Owner")

	boxOf := func(raw string) *ranges.InterfaceRef {
		return &ranges.InterfaceRef{Name: "Box", TypeArgs: []ranges.Unresolved{&ranges.Raw{Value: raw}}, Origin: owner}
	}

	first, err := f.resolver.ResolveRange(ctx, boxOf("string"), owner, nil, true)
	require.NoError(t, err)
	second, err := f.resolver.ResolveRange(ctx, boxOf("string"), owner, nil, true)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, &ranges.Raw{Value: "string"}, nested(t, first)["value"])

	other, err := f.resolver.ResolveRange(ctx, boxOf("number"), owner, nil, true)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, &ranges.Raw{Value: "number"}, nested(t, other)["value"])

	asClass, err := f.resolver.ResolveRange(ctx, boxOf("string"), owner, nil, false)
	require.NoError(t, err)
	assert.IsType(t, &ranges.Class{}, asClass)

	assert.Equal(t, int64(1), f.resolver.Stats().CacheHits)
}

func TestResolveConstructor_SelfRecursiveInterface(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export interface Node { next: Node; }
export declare class List { constructor(head: Node); }
`,
	}, Options{})

	params := f.constructor(t, "List")
	require.Len(t, params, 1)
	fields := nested(t, params[0].Range)
	class, ok := fields["next"].(*ranges.Class)
	require.True(t, ok)
	assert.Same(t, f.entity(t, "Node"), class.Entity)
}

func TestResolveRange_MutualRecursionIsOrderIndependent(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export interface A { b: B; }
export interface B { a: A; }
export declare class Owner {}
`,
	}, Options{})
	ctx := context.Background()
	owner := f.entity(t, "Owner")

	a, err := f.resolver.ResolveRange(ctx, &ranges.InterfaceRef{Name: "A", Origin: owner}, owner, nil, true)
	require.NoError(t, err)
	b, err := f.resolver.ResolveRange(ctx, &ranges.InterfaceRef{Name: "B", Origin: owner}, owner, nil, true)
	require.NoError(t, err)

	inner := nested(t, nested(t, a)["b"])
	assert.Same(t, f.entity(t, "A"), inner["a"].(*ranges.Class).Entity)

	inner = nested(t, nested(t, b)["a"])
	assert.Same(t, f.entity(t, "B"), inner["b"].(*ranges.Class).Entity)

	fresh := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export interface A { b: B; }
export interface B { a: A; }
export declare class Owner {}
`,
	}, Options{})
	freshOwner := fresh.entity(t, "Owner")
	freshB, err := fresh.resolver.ResolveRange(ctx, &ranges.InterfaceRef{Name: "B", Origin: freshOwner}, freshOwner, nil, true)
	require.NoError(t, err)
	assert.Equal(t, ranges.Key(b), ranges.Key(freshB))
}

func TestResolveConstructor_GenericOrigin(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export interface IFace<A, B> { fieldA: A; fieldB: B; }
export declare class Owner<AOuter, BOuter> {
  constructor(value: IFace<AOuter, BOuter>);
}
`,
	}, Options{})

	owner := f.entity(t, "Owner")
	params := f.constructor(t, "Owner")
	require.Len(t, params, 1)
	fields := nested(t, params[0].Range)

	a := fields["fieldA"].(*ranges.GenericTypeReference)
	assert.Equal(t, "AOuter", a.Name)
	assert.Same(t, owner, a.Origin)
	b := fields["fieldB"].(*ranges.GenericTypeReference)
	assert.Equal(t, "BOuter", b.Name)
	assert.Same(t, owner, b.Origin)
}

func TestResolveConstructor_SuperInterfaceBindings(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export interface Base<S> { inherited: S; shadowed: string; }
export interface Middle<M> extends Base<M> { middle: M[]; }
export interface Leaf<X> extends Middle<X> { own: boolean; shadowed: number; }
export interface WithDefault<T = string> { value: T; }
export declare class Owner {
  constructor(leaf: Leaf<number>, defaulted: WithDefault);
}
`,
	}, Options{})

	params := f.constructor(t, "Owner")
	require.Len(t, params, 2)

	leaf := params[0].Range.(*ranges.Nested)
	names := make([]string, 0, len(leaf.Fields))
	for _, field := range leaf.Fields {
		names = append(names, field.Name)
	}
	assert.Equal(t, []string{"own", "shadowed", "middle", "inherited"}, names)

	fields := nested(t, leaf)
	assert.Equal(t, &ranges.Raw{Value: "boolean"}, fields["own"])
	assert.Equal(t, &ranges.Raw{Value: "number"}, fields["shadowed"])
	assert.Equal(t, &ranges.Raw{Value: "number"}, fields["middle"])
	assert.Equal(t, &ranges.Raw{Value: "number"}, fields["inherited"])

	assert.Equal(t, &ranges.Raw{Value: "string"}, nested(t, params[1].Range)["value"])
}

func TestResolveConstructor_ImplicitClass(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export interface Plain { a: string; }
export interface WithMethod { a: string; run(): void; }
export interface WithCallback { cb: () => void; }
export declare class Owner {
  constructor(plain: Plain, method: WithMethod, callback: WithCallback, other: Other);
}
export declare class Other {}
`,
	}, Options{})

	params := f.constructor(t, "Owner")
	require.Len(t, params, 4)
	assert.IsType(t, &ranges.Nested{}, params[0].Range)
	assert.Same(t, f.entity(t, "WithMethod"), params[1].Range.(*ranges.Class).Entity)
	assert.Same(t, f.entity(t, "WithCallback"), params[2].Range.(*ranges.Class).Entity)
	assert.Same(t, f.entity(t, "Other"), params[3].Range.(*ranges.Class).Entity)
}

func TestResolveConstructor_IgnoreSet(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export declare class Owner {
  constructor(options: { deep: { items: MyClass[] } }, direct: MyClass);
}
`,
	}, Options{Ignore: map[string]struct{}{"MyClass": {}}})

	params := f.constructor(t, "Owner")
	require.Len(t, params, 2)
	deep := nested(t, nested(t, params[0].Range)["deep"])
	assert.Equal(t, &ranges.Wildcard{}, deep["items"])
	assert.Equal(t, &ranges.Wildcard{}, params[1].Range)
	assert.Equal(t, int64(2), f.resolver.Stats().Ignored)
}

func TestResolveConstructor_EnumsAndAliases(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export enum Enum { a = 'A', b = 'B' }
export type Pair<T> = [T, T];
export type Name = string;
export declare class Owner {
  constructor(key: keyof typeof Enum, value: Enum, member: Enum.b, pair: Pair<number>, name: Name);
}
`,
	}, Options{})

	params := f.constructor(t, "Owner")
	require.Len(t, params, 5)
	assert.Equal(t, &ranges.Union{Elements: []ranges.Resolved{
		&ranges.Literal{Value: "a"},
		&ranges.Literal{Value: "b"},
	}}, params[0].Range)
	assert.Equal(t, &ranges.Union{Elements: []ranges.Resolved{
		&ranges.Literal{Value: "A"},
		&ranges.Literal{Value: "B"},
	}}, params[1].Range)
	assert.Equal(t, &ranges.Literal{Value: "B"}, params[2].Range)
	assert.Equal(t, &ranges.Tuple{Elements: []ranges.Resolved{
		&ranges.Raw{Value: "number"},
		&ranges.Raw{Value: "number"},
	}}, params[3].Range)
	assert.Equal(t, &ranges.Raw{Value: "string"}, params[4].Range)
}

func TestResolveConstructor_Typeof(t *testing.T) {
	files := map[string]string{
		"pkg/index.d.ts": `
export declare class Thing {}
export declare class Owner { constructor(value: typeof Thing); }
export declare class KeyOwner { constructor(value: keyof typeof Thing); }
`,
	}

	f := newFixture(t, files, Options{})
	for _, name := range []string{"Owner", "KeyOwner"} {
		_, err := f.resolver.ResolveConstructor(context.Background(), f.entity(t, name))
		var shape *diag.ShapeError
		require.ErrorAs(t, err, &shape, name)
		assert.Equal(t, diag.ShapeUnsupportedTypeof, shape.Kind)
		assert.Contains(t, err.Error(), "UnsupportedTypeofTarget")
	}

	lenient := newFixture(t, files, Options{Lenient: true})
	params := lenient.constructor(t, "Owner")
	assert.Equal(t, &ranges.Wildcard{}, params[0].Range)
	assert.Len(t, lenient.collector.Warnings(), 1)
}

func TestResolveConstructor_Errors(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export declare class Missing { constructor(value: Nowhere); }
export enum Bare { a, b }
export declare class BadEnum { constructor(value: Bare); }
`,
	}, Options{})
	ctx := context.Background()

	_, err := f.resolver.ResolveConstructor(ctx, f.entity(t, "Missing"))
	var notFound *diag.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Nowhere", notFound.Reference.LocalName)
	assert.Contains(t, err.Error(), "resolving constructor of Missing")

	_, err = f.resolver.ResolveConstructor(ctx, f.entity(t, "BadEnum"))
	var shape *diag.ShapeError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, diag.ShapeEnumMember, shape.Kind)
	assert.Equal(t, "a", shape.Subject)
}

func TestResolveConstructor_Inherited(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export declare class Base<T> { constructor(value: T, label: string); }
export declare class Middle<U> extends Base<U[]> {}
export declare class Child extends Middle<number> {}
export declare class Empty {}
`,
	}, Options{})

	params := f.constructor(t, "Child")
	require.Len(t, params, 2)
	assert.Equal(t, "value", params[0].Name)
	assert.Equal(t, &ranges.Array{Elem: &ranges.Raw{Value: "number"}}, params[0].Range)
	assert.Equal(t, &ranges.Raw{Value: "string"}, params[1].Range)

	assert.Empty(t, f.constructor(t, "Empty"))
}

func TestResolveGenericsAndMembers(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export interface Settings { level: number; }
export declare class Owner<T extends Settings, U> {
  settings: Settings;
  count: number;
}
`,
	}, Options{})
	ctx := context.Background()
	owner := f.entity(t, "Owner")

	generics, err := f.resolver.ResolveGenerics(ctx, owner)
	require.NoError(t, err)
	require.Len(t, generics, 2)
	assert.Equal(t, "T", generics[0].Name)
	assert.IsType(t, &ranges.Nested{}, generics[0].Range)
	assert.Nil(t, generics[1].Range)

	members, err := f.resolver.ResolveMembers(ctx, owner)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Same(t, f.entity(t, "Settings"), members[0].Range.(*ranges.Class).Entity)
	assert.Equal(t, &ranges.Raw{Value: "number"}, members[1].Range)
}

func TestResolveRange_Composites(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export interface Box { v: string; }
export declare class Thing {}
export declare class Owner {}
`,
	}, Options{})
	ctx := context.Background()
	owner := f.entity(t, "Owner")
	thing := f.entity(t, "Thing")

	ref := func(name string) *ranges.InterfaceRef {
		return &ranges.InterfaceRef{Name: name, Origin: owner}
	}
	isBox := func(t *testing.T, r ranges.Resolved) {
		assert.Equal(t, &ranges.Raw{Value: "string"}, nested(t, r)["v"])
	}
	isThing := func(t *testing.T, r ranges.Resolved) {
		c, ok := r.(*ranges.Class)
		require.True(t, ok, "expected class, got %T", r)
		assert.Same(t, thing, c.Entity)
	}

	tests := []struct {
		name  string
		input ranges.Unresolved
		check func(t *testing.T, r ranges.Resolved)
	}{
		{
			name:  "union",
			input: &ranges.UnresolvedUnion{Elements: []ranges.Unresolved{ref("Box"), ref("Thing")}},
			check: func(t *testing.T, r ranges.Resolved) {
				u, ok := r.(*ranges.Union)
				require.True(t, ok)
				require.Len(t, u.Elements, 2)
				isBox(t, u.Elements[0])
				isThing(t, u.Elements[1])
			},
		},
		{
			name:  "intersection",
			input: &ranges.UnresolvedIntersection{Elements: []ranges.Unresolved{ref("Thing"), ref("Box")}},
			check: func(t *testing.T, r ranges.Resolved) {
				i, ok := r.(*ranges.Intersection)
				require.True(t, ok)
				require.Len(t, i.Elements, 2)
				isThing(t, i.Elements[0])
				isBox(t, i.Elements[1])
			},
		},
		{
			name:  "indexed",
			input: &ranges.UnresolvedIndexed{Object: ref("Box"), Index: ref("Thing")},
			check: func(t *testing.T, r ranges.Resolved) {
				i, ok := r.(*ranges.Indexed)
				require.True(t, ok)
				isBox(t, i.Object)
				isThing(t, i.Index)
			},
		},
		{
			name: "rest in tuple",
			input: &ranges.UnresolvedTuple{Elements: []ranges.Unresolved{
				&ranges.Raw{Value: "number"},
				&ranges.UnresolvedRest{Elem: ref("Thing")},
			}},
			check: func(t *testing.T, r ranges.Resolved) {
				tuple, ok := r.(*ranges.Tuple)
				require.True(t, ok)
				require.Len(t, tuple.Elements, 2)
				assert.Equal(t, &ranges.Raw{Value: "number"}, tuple.Elements[0])
				rest, ok := tuple.Elements[1].(*ranges.Rest)
				require.True(t, ok)
				isThing(t, rest.Elem)
			},
		},
		{
			name:  "array",
			input: &ranges.UnresolvedArray{Elem: ref("Box")},
			check: func(t *testing.T, r ranges.Resolved) {
				a, ok := r.(*ranges.Array)
				require.True(t, ok)
				isBox(t, a.Elem)
			},
		},
		{
			name:  "keyof reference",
			input: &ranges.UnresolvedKeyof{Value: ref("Box")},
			check: func(t *testing.T, r ranges.Resolved) {
				k, ok := r.(*ranges.Keyof)
				require.True(t, ok)
				isBox(t, k.Value)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := f.resolver.ResolveRange(ctx, tt.input, owner, nil, true)
			require.NoError(t, err)
			tt.check(t, r)
		})
	}
}

// resolveWithin fails the test instead of hanging when resolution does not terminate.
func resolveWithin(t *testing.T, f *fixture, name string) []*ranges.Parameter[ranges.Resolved] {
	t.Helper()
	e := f.entity(t, name)
	type outcome struct {
		params []*ranges.Parameter[ranges.Resolved]
		err    error
	}
	done := make(chan outcome, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		params, err := f.resolver.ResolveConstructor(ctx, e)
		done <- outcome{params, err}
	}()
	select {
	case o := <-done:
		require.NoError(t, o.err)
		return o.params
	case <-time.After(5 * time.Second):
		t.Fatalf("resolving %s did not terminate; stats=%+v", name, f.resolver.Stats())
		return nil
	}
}

func TestResolveConstructor_GrowingGenericRecursionTerminates(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export interface Node<T> { value: T; next: Node<Node<T>>; }
export type Chain<T> = { item: T; rest: Chain<Chain<T>> };
export declare class List { constructor(head: Node<string>, chain: Chain<number>); }
`,
	}, Options{})

	params := resolveWithin(t, f, "List")
	require.Len(t, params, 2)

	head := nested(t, params[0].Range)
	assert.Equal(t, &ranges.Raw{Value: "string"}, head["value"])
	next, ok := head["next"].(*ranges.Class)
	require.True(t, ok, "expected class, got %T", head["next"])
	assert.Same(t, f.entity(t, "Node"), next.Entity)
	require.Len(t, next.GenericTypeParameterInstances, 1)
	inner, ok := next.GenericTypeParameterInstances[0].(*ranges.Class)
	require.True(t, ok)
	assert.Same(t, f.entity(t, "Node"), inner.Entity)
	assert.Equal(t, []ranges.Resolved{&ranges.Raw{Value: "string"}}, inner.GenericTypeParameterInstances)

	chain := nested(t, params[1].Range)
	assert.Equal(t, &ranges.Raw{Value: "number"}, chain["item"])
	rest, ok := chain["rest"].(*ranges.Class)
	require.True(t, ok, "expected class, got %T", chain["rest"])
	assert.Equal(t, "Chain", rest.Entity.LocalName)

	assert.Equal(t, int64(4), f.resolver.Stats().CycleBreaks)
}

func TestResolveConstructor_SelfRecursiveInterfaceFromOtherFile(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/node.d.ts": `export interface Node { value: string; next: Node; }`,
		"pkg/index.d.ts": `
import { Node } from './node';
export declare class List { constructor(head: Node); }
`,
	}, Options{})

	params := resolveWithin(t, f, "List")
	require.Len(t, params, 1)
	head := nested(t, params[0].Range)
	assert.Equal(t, &ranges.Raw{Value: "string"}, head["value"])
	next, ok := head["next"].(*ranges.Class)
	require.True(t, ok, "expected class, got %T", head["next"])
	assert.Equal(t, "pkg/node", next.Entity.FileName)
}

func TestResolveConstructor_LinksReferencedClasses(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/index.d.ts": `
export declare class Base {}
export interface Marker {}
export declare class Widget extends Base implements Marker {}
export declare class Orphan extends Gone {}
export declare class Owner { constructor(widget: Widget, orphan: Orphan); }
`,
	}, Options{})

	params := f.constructor(t, "Owner")
	require.Len(t, params, 2)

	widget := params[0].Range.(*ranges.Class).Entity
	require.NotNil(t, widget.SuperClass)
	assert.Same(t, f.entity(t, "Base"), widget.SuperClass.Entity)
	require.Len(t, widget.ImplementsInterfaces, 1)

	orphan := params[1].Range.(*ranges.Class).Entity
	assert.Nil(t, orphan.SuperClass)
	warnings := f.collector.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "chain", warnings[0].Kind)
	assert.True(t, diag.IsNotFound(warnings[0].Err))
}
