package param

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compgen/internal/comment"
	"compgen/internal/diag"
	"compgen/internal/entity"
	"compgen/internal/ranges"
	"compgen/internal/syntax"
)

// load parses src and returns the entity declared under name.
func load(t *testing.T, src, name string) *entity.Loaded {
	t.Helper()
	file, err := syntax.Parse(context.Background(), "pkg/index", "pkg/index.d.ts", []byte(src))
	require.NoError(t, err)
	for _, stmt := range file.Statements {
		if exp, ok := stmt.(*syntax.ExportDecl); ok {
			stmt = exp.Declaration
		}
		if decl, ok := stmt.(syntax.Declaration); ok && decl.DeclName() == name {
			return entity.New(entity.Reference{PackageName: "pkg", FileName: "pkg/index", LocalName: name}, decl, file)
		}
	}
	t.Fatalf("declaration %s not found", name)
	return nil
}

func interfaceFields(t *testing.T, l *Loader, src string) map[string]*Unresolved {
	t.Helper()
	owner := load(t, src, "I")
	iface, ok := owner.Interface()
	require.True(t, ok)
	fields, err := l.LoadInterfaceFields(owner, iface)
	require.NoError(t, err)
	out := map[string]*Unresolved{}
	for _, f := range fields {
		key := f.Name
		if f.Kind == ranges.KindIndex {
			key = "[index]"
		}
		out[key] = f
	}
	return out
}

func TestLoadField_Classification(t *testing.T) {
	l := NewLoader(diag.NewCollector(), false)
	fields := interfaceFields(t, l, `
export interface I<T> {
  a: string;
  b: Number;
  c?: boolean;
  d: T;
  e: Other<T, string>;
  f: { inner: string };
  g: 'x' | 1 | undefined;
  h: [string, ...number[]];
  i: keyof typeof E;
  j: Other['key'];
  k: () => void;
  l: any;
  m: void;
  n: ns.Deep;
  o: A & B;
  [key: string]: number;
}
`)

	assert.Equal(t, &ranges.Raw{Value: "string"}, fields["a"].Range)
	assert.True(t, fields["a"].Unique)
	assert.True(t, fields["a"].Required)
	assert.Equal(t, &ranges.Raw{Value: "number"}, fields["b"].Range)
	assert.False(t, fields["c"].Required)

	generic := fields["d"].Range.(*ranges.GenericRef)
	assert.Equal(t, "T", generic.Name)
	assert.Equal(t, "I", generic.Origin.LocalName)

	ref := fields["e"].Range.(*ranges.InterfaceRef)
	assert.Equal(t, "Other", ref.Name)
	require.Len(t, ref.TypeArgs, 2)
	assert.IsType(t, &ranges.GenericRef{}, ref.TypeArgs[0])
	assert.Equal(t, &ranges.Raw{Value: "string"}, ref.TypeArgs[1])

	assert.IsType(t, &ranges.Hash{}, fields["f"].Range)

	union := fields["g"].Range.(*ranges.UnresolvedUnion)
	require.Len(t, union.Elements, 3)
	assert.Equal(t, &ranges.Literal{Value: "x"}, union.Elements[0])
	assert.Equal(t, &ranges.Literal{Value: float64(1)}, union.Elements[1])
	assert.Equal(t, &ranges.Undefined{}, union.Elements[2])

	tuple := fields["h"].Range.(*ranges.UnresolvedTuple)
	require.Len(t, tuple.Elements, 2)
	assert.Equal(t, &ranges.UnresolvedRest{Elem: &ranges.Raw{Value: "number"}}, tuple.Elements[1])

	keyof := fields["i"].Range.(*ranges.UnresolvedKeyof)
	assert.Equal(t, "E", keyof.Value.(*ranges.TypeofRef).Name)

	indexed := fields["j"].Range.(*ranges.UnresolvedIndexed)
	assert.IsType(t, &ranges.InterfaceRef{}, indexed.Object)
	assert.Equal(t, &ranges.Literal{Value: "key"}, indexed.Index)

	assert.Equal(t, &ranges.Wildcard{}, fields["k"].Range)
	assert.Equal(t, &ranges.Wildcard{}, fields["l"].Range)
	assert.Equal(t, &ranges.Undefined{}, fields["m"].Range)

	deep := fields["n"].Range.(*ranges.InterfaceRef)
	assert.Equal(t, []string{"ns"}, deep.QualifiedPath)
	assert.IsType(t, &ranges.UnresolvedIntersection{}, fields["o"].Range)

	index := fields["[index]"]
	require.NotNil(t, index)
	assert.Equal(t, &ranges.Raw{Value: "string"}, index.Domain)
	assert.Equal(t, &ranges.Raw{Value: "number"}, index.Range)
}

func TestLoadField_Arrays(t *testing.T) {
	l := NewLoader(diag.NewCollector(), false)
	fields := interfaceFields(t, l, `
export interface I {
  fieldA: string[];
  fieldB: Array<Other>;
  fieldC: (string[]) | number;
}
`)
	assert.Equal(t, &ranges.Raw{Value: "string"}, fields["fieldA"].Range)
	assert.False(t, fields["fieldA"].Unique)
	assert.IsType(t, &ranges.InterfaceRef{}, fields["fieldB"].Range)
	assert.True(t, fields["fieldB"].Unique)

	union := fields["fieldC"].Range.(*ranges.UnresolvedUnion)
	assert.True(t, fields["fieldC"].Unique)
	assert.Equal(t, &ranges.UnresolvedArray{Elem: &ranges.Raw{Value: "string"}}, union.Elements[0])

	for _, src := range []string{
		`export interface I { fieldA: string[][]; }`,
		`export interface I { fieldA: Array<Array<string>>; }`,
		`export interface I { fieldA: Array<string[]>; }`,
	} {
		owner := load(t, src, "I")
		iface, _ := owner.Interface()
		_, err := l.LoadInterfaceFields(owner, iface)
		var shape *diag.ShapeError
		require.ErrorAs(t, err, &shape, src)
		assert.Equal(t, diag.ShapeNestedArray, shape.Kind)
		assert.Equal(t, "fieldA", shape.Subject)
		assert.Contains(t, err.Error(), "DetectedIllegalNestedArray")
	}
}

func TestLoadField_LenientDowngradesShapes(t *testing.T) {
	collector := diag.NewCollector()
	l := NewLoader(collector, true)
	fields := interfaceFields(t, l, `
export interface I {
  nested: string[][];
  mapped: { [K in keyof T]: string };
}
`)
	assert.Equal(t, &ranges.Wildcard{}, fields["nested"].Range)
	assert.Equal(t, &ranges.Wildcard{}, fields["mapped"].Range)
	assert.Len(t, collector.Warnings(), 2)

	strict := NewLoader(diag.NewCollector(), false)
	owner := load(t, `export interface I { mapped: { [K in keyof T]: string }; }`, "I")
	iface, _ := owner.Interface()
	_, err := strict.LoadInterfaceFields(owner, iface)
	var shape *diag.ShapeError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, diag.ShapeUnsupportedType, shape.Kind)
}

func TestLoadField_Annotations(t *testing.T) {
	l := NewLoader(diag.NewCollector(), false)
	fields := interfaceFields(t, l, `
export interface I {
  /**
   * Overridden.
   * @range {json}
   * @default {<urn:default>}
   */
  a: string[];
  /**
   * @ignored
   */
  b: string;
  [computed]: string;
}
`)
	require.Len(t, fields, 1)
	a := fields["a"]
	assert.Equal(t, &ranges.Override{Value: "json"}, a.Range)
	assert.True(t, a.Unique)
	assert.Equal(t, "Overridden.", a.Comment)
	assert.Equal(t, []ranges.Default{{Kind: ranges.DefaultIRI, Value: "urn:default"}}, a.Defaults)
}

func TestLoadConstructorFields(t *testing.T) {
	l := NewLoader(diag.NewCollector(), false)
	owner := load(t, `
export declare class C {
  /**
   * @param name - The name @range {number}
   * @param skipped @ignored
   */
  constructor(name: string, skipped: Foo, /** Extra values */ ...extras: number[]);
}
`, "C")
	class, _ := owner.Class()
	fields, err := l.LoadConstructorFields(owner, FindConstructor(class))
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Equal(t, "name", fields[0].Name)
	assert.Equal(t, &ranges.Override{Value: "number"}, fields[0].Range)
	assert.Equal(t, "The name", fields[0].Comment)

	assert.Equal(t, "skipped", fields[1].Name)
	assert.Equal(t, &ranges.Wildcard{}, fields[1].Range)

	assert.Equal(t, "extras", fields[2].Name)
	assert.Equal(t, &ranges.Raw{Value: "number"}, fields[2].Range)
	assert.False(t, fields[2].Unique)
	assert.Equal(t, "Extra values", fields[2].Comment)

	destructured := load(t, `export declare class D { constructor({ a }: { a: string }); }`, "D")
	class, _ = destructured.Class()
	_, err = l.LoadConstructorFields(destructured, FindConstructor(class))
	var shape *diag.ShapeError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, diag.ShapeUnsupportedParameter, shape.Kind)
}

func TestLoadClassFields(t *testing.T) {
	l := NewLoader(diag.NewCollector(), false)
	owner := load(t, `
export declare class C {
  public a: string;
  private b: string;
  static c: string;
  d?: number[];
  method(): void;
}
`, "C")
	class, _ := owner.Class()
	fields, err := l.LoadClassFields(owner, class)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "a", fields[0].Name)
	assert.Equal(t, "d", fields[1].Name)
	assert.False(t, fields[1].Unique)
	assert.False(t, fields[1].Required)
}

func TestLoadGenerics(t *testing.T) {
	l := NewLoader(diag.NewCollector(), false)
	owner := load(t, `export declare class C<A extends string, B = number, D = A> {}`, "C")
	generics, err := l.LoadGenerics(owner)
	require.NoError(t, err)
	require.Len(t, generics, 3)
	assert.Equal(t, &ranges.Raw{Value: "string"}, generics[0].Constraint)
	assert.Nil(t, generics[0].Default)
	assert.Equal(t, &ranges.Raw{Value: "number"}, generics[1].Default)
	assert.Equal(t, &ranges.GenericRef{Name: "A", Origin: owner}, generics[2].Default)
}

func TestIsImplicitClass(t *testing.T) {
	cases := map[string]bool{
		`export interface I { a: string; }`:             false,
		`export interface I { a: string; run(): void; }`: true,
		`export interface I { new (x: string): I; }`:     true,
		`export interface I { cb: (x: string) => void; }`: true,
		`export interface I { (x: string): void; }`:      false,
	}
	for src, want := range cases {
		iface, _ := load(t, src, "I").Interface()
		assert.Equal(t, want, IsImplicitClass(iface), src)
	}
}

func TestLoadField_ExplicitAnnotations(t *testing.T) {
	l := NewLoader(diag.NewCollector(), false)
	owner := load(t, `export interface I { a: string; }`, "I")
	p, ok, err := l.LoadField(owner, Field{Name: "a", Type: &syntax.PredefinedType{Name: "string"}}, &comment.Annotations{Ignored: true})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, p)
}
