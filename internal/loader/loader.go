package loader

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"compgen/internal/diag"
	"compgen/internal/entity"
	"compgen/internal/source"
	"compgen/internal/symtab"
	"compgen/internal/syntax"
)

// errNotFound marks a lookup branch that found nothing; callers turn it into a
// diag.NotFoundError for the reference they were asked about.
var errNotFound = errors.New("not found")

// Loader resolves symbolic references to loaded entities. One Loader serves one
// generation run; its tables and entities must not outlive it.
type Loader struct {
	cache     *syntax.Cache
	imports   symtab.ImportResolver
	collector *diag.Collector

	mu        sync.Mutex
	tables    map[string]*symtab.Table
	byRef     map[string]*entity.Loaded
	byDecl    map[string]*entity.Loaded
	synthetic map[string]*syntax.TypeAliasDecl
}

func New(cache *syntax.Cache, imports symtab.ImportResolver, collector *diag.Collector) *Loader {
	return &Loader{
		cache:     cache,
		imports:   imports,
		collector: collector,
		tables:    make(map[string]*symtab.Table),
		byRef:     make(map[string]*entity.Loaded),
		byDecl:    make(map[string]*entity.Loaded),
		synthetic: make(map[string]*syntax.TypeAliasDecl),
	}
}

// Collector returns the diagnostics collector of the run.
func (l *Loader) Collector() *diag.Collector {
	return l.collector
}

// Table returns the symbol table of a file, building it on first use.
func (l *Loader) Table(ctx context.Context, packageName, fileName string) (*symtab.Table, error) {
	key := packageName + "\x00" + fileName
	l.mu.Lock()
	t, ok := l.tables[key]
	l.mu.Unlock()
	if ok {
		return t, nil
	}

	file, err := l.cache.Parse(ctx, fileName)
	if err != nil {
		return nil, err
	}
	t, err = symtab.Build(ctx, file, packageName, l.imports, l.collector)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to index %s", fileName)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.tables[key]; ok {
		return existing, nil
	}
	l.tables[key] = t
	return t, nil
}

// Resolve follows imports and exports from ref until it reaches a declaration.
// Classes are always considered; interfaces and type aliases or enums only when asked.
func (l *Loader) Resolve(ctx context.Context, ref entity.Reference, considerInterfaces, considerOthers bool) (*entity.Loaded, error) {
	memoKey := ref.Key() + "\x00" + string(diag.TargetFor(considerInterfaces, considerOthers))
	l.mu.Lock()
	e, ok := l.byRef[memoKey]
	l.mu.Unlock()
	if ok {
		return e, nil
	}

	if ref.FileNameReferenced == "" {
		ref.FileNameReferenced = ref.FileName
	}
	q := &query{
		loader:             l,
		origin:             ref,
		considerInterfaces: considerInterfaces,
		considerOthers:     considerOthers,
		visited:            make(map[string]struct{}),
	}
	e, err := q.lookup(ctx, ref.PackageName, ref.FileName, nil, nil, ref.QualifiedPath, ref.LocalName)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, &diag.NotFoundError{Reference: ref, Target: diag.TargetFor(considerInterfaces, considerOthers)}
		}
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.byRef[memoKey]; ok {
		return existing, nil
	}
	l.byRef[memoKey] = e
	return e, nil
}

// ResolveFrom resolves a name written inside owner. Names are first looked up in the
// namespaces enclosing owner, innermost first, then at file level.
func (l *Loader) ResolveFrom(ctx context.Context, owner *entity.Loaded, name string, qualifiedPath []string, considerInterfaces, considerOthers bool) (*entity.Loaded, error) {
	ref := entity.Reference{
		PackageName:        owner.PackageName,
		FileName:           owner.FileName,
		LocalName:          name,
		QualifiedPath:      qualifiedPath,
		FileNameReferenced: owner.FileName,
	}
	for i := len(owner.QualifiedPath); i > 0; i-- {
		scoped := ref
		scoped.QualifiedPath = append(append([]string{}, owner.QualifiedPath[:i]...), qualifiedPath...)
		e, err := l.Resolve(ctx, scoped, considerInterfaces, considerOthers)
		if err == nil {
			return e, nil
		}
		if !diag.IsNotFound(err) {
			return nil, err
		}
	}
	return l.Resolve(ctx, ref, considerInterfaces, considerOthers)
}

// entityFor returns the unique entity of a declaration.
func (l *Loader) entityFor(ref entity.Reference, decl syntax.Declaration, file *syntax.File) *entity.Loaded {
	e := entity.New(ref, decl, file)
	id := e.Identity()

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.byDecl[id]; ok {
		return existing
	}
	l.byDecl[id] = e
	return e
}

// enumMemberDecl returns the synthetic alias standing for enum member access E.m.
func (l *Loader) enumMemberDecl(fileName string, enum *syntax.EnumDecl, member *syntax.EnumMember) *syntax.TypeAliasDecl {
	key := fileName + "\x00" + enum.Name + "." + member.Name
	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := l.synthetic[key]; ok {
		return d
	}
	d := &syntax.TypeAliasDecl{
		Name:     enum.Name + "." + member.Name,
		Declare:  enum.Declare,
		Type:     member.Value,
		Position: member.Position,
	}
	l.synthetic[key] = d
	return d
}

type query struct {
	loader             *Loader
	origin             entity.Reference
	considerInterfaces bool
	considerOthers     bool
	visited            map[string]struct{}
}

func (q *query) table(ctx context.Context, packageName, fileName string, scope *symtab.Table) (*symtab.Table, error) {
	if scope != nil {
		return scope, nil
	}
	t, err := q.loader.Table(ctx, packageName, fileName)
	if err != nil {
		if errors.Is(err, source.ErrNotExist) {
			return nil, errNotFound
		}
		return nil, err
	}
	return t, nil
}

// lookup resolves name behind qualifiedPath in a file, or in the namespace table
// scope reached through nsPath.
func (q *query) lookup(ctx context.Context, packageName, fileName string, scope *symtab.Table, nsPath, qualifiedPath []string, name string) (*entity.Loaded, error) {
	key := packageName + "\x00" + fileName + "\x00" + strings.Join(nsPath, ".") + "\x00" + strings.Join(qualifiedPath, ".") + "\x00" + name
	if _, seen := q.visited[key]; seen {
		return nil, errNotFound
	}
	q.visited[key] = struct{}{}

	t, err := q.table(ctx, packageName, fileName, scope)
	if err != nil {
		return nil, err
	}
	if len(qualifiedPath) > 0 {
		return q.lookupQualified(ctx, t, nsPath, qualifiedPath, name)
	}
	return q.lookupLocal(ctx, t, nsPath, name)
}

func (q *query) found(t *symtab.Table, nsPath []string, name string, decl syntax.Declaration) *entity.Loaded {
	ref := entity.Reference{
		PackageName:        t.PackageName,
		FileName:           t.FileName,
		LocalName:          name,
		QualifiedPath:      append([]string(nil), nsPath...),
		FileNameReferenced: q.origin.FileNameReferenced,
	}
	return q.loader.entityFor(ref, decl, t.File)
}

func (q *query) lookupLocal(ctx context.Context, t *symtab.Table, nsPath []string, name string) (*entity.Loaded, error) {
	if d, ok := t.ExportedClasses[name]; ok {
		return q.found(t, nsPath, name, d), nil
	}
	if d, ok := t.DeclaredClasses[name]; ok {
		return q.found(t, nsPath, name, d), nil
	}
	if q.considerInterfaces {
		if d, ok := t.ExportedInterfaces[name]; ok {
			return q.found(t, nsPath, name, d), nil
		}
		if d, ok := t.DeclaredInterfaces[name]; ok {
			return q.found(t, nsPath, name, d), nil
		}
	}
	if q.considerOthers {
		if d, ok := t.ExportedTypes[name]; ok {
			return q.found(t, nsPath, name, d), nil
		}
		if d, ok := t.DeclaredTypes[name]; ok {
			return q.found(t, nsPath, name, d), nil
		}
		if d, ok := t.ExportedEnums[name]; ok {
			return q.found(t, nsPath, name, d), nil
		}
		if d, ok := t.DeclaredEnums[name]; ok {
			return q.found(t, nsPath, name, d), nil
		}
	}

	if link, ok := t.ImportedElements[name]; ok {
		return q.lookup(ctx, link.PackageName, link.FileName, nil, nil, nil, link.LocalName)
	}
	if link, ok := t.ExportedImportedElements[name]; ok {
		return q.lookup(ctx, link.PackageName, link.FileName, nil, nil, nil, link.LocalName)
	}

	if e, err := q.throughWildcards(ctx, t, nil, name); err == nil || !errors.Is(err, errNotFound) {
		return e, err
	}
	return q.throughExportAssignment(ctx, t, nil, name)
}

func (q *query) lookupQualified(ctx context.Context, t *symtab.Table, nsPath, qualifiedPath []string, name string) (*entity.Loaded, error) {
	head, rest := qualifiedPath[0], qualifiedPath[1:]

	if ns := t.Namespace(head); ns != nil {
		e, err := q.lookup(ctx, t.PackageName, t.FileName, ns, append(append([]string{}, nsPath...), head), rest, name)
		if err == nil || !errors.Is(err, errNotFound) {
			return e, err
		}
	}

	if len(rest) == 0 && q.considerOthers {
		enum, ok := t.ExportedEnums[head]
		if !ok {
			enum, ok = t.DeclaredEnums[head]
		}
		if ok {
			return q.enumMember(t, nsPath, enum, name)
		}
	}

	if link, ok := t.ImportedAll[head]; ok {
		return q.lookup(ctx, link.PackageName, link.FileName, nil, nil, rest, name)
	}
	if link, ok := t.ExportedImportedAll[head]; ok {
		return q.lookup(ctx, link.PackageName, link.FileName, nil, nil, rest, name)
	}
	if link, ok := t.ImportedElements[head]; ok {
		return q.lookup(ctx, link.PackageName, link.FileName, nil, nil, append([]string{link.LocalName}, rest...), name)
	}
	if link, ok := t.ExportedImportedElements[head]; ok {
		return q.lookup(ctx, link.PackageName, link.FileName, nil, nil, append([]string{link.LocalName}, rest...), name)
	}

	if e, err := q.throughWildcards(ctx, t, qualifiedPath, name); err == nil || !errors.Is(err, errNotFound) {
		return e, err
	}
	return q.throughExportAssignment(ctx, t, qualifiedPath, name)
}

func (q *query) enumMember(t *symtab.Table, nsPath []string, enum *syntax.EnumDecl, name string) (*entity.Loaded, error) {
	for _, member := range enum.Members {
		if member.Name != name {
			continue
		}
		if member.Value == nil {
			return nil, &diag.ShapeError{
				Kind:    diag.ShapeEnumMember,
				Entity:  enum.Name,
				File:    t.FileName,
				Line:    member.Position.Line,
				Subject: enum.Name + "." + name,
				Message: "enum member has no literal initializer",
			}
		}
		decl := q.loader.enumMemberDecl(t.FileName, enum, member)
		return q.found(t, append(append([]string{}, nsPath...), enum.Name), name, decl), nil
	}
	return nil, errNotFound
}

// throughWildcards tries each `export * from` target in declaration order,
// skipping targets where the name is not found.
func (q *query) throughWildcards(ctx context.Context, t *symtab.Table, qualifiedPath []string, name string) (*entity.Loaded, error) {
	for _, link := range t.ExportedImportedAllUnnamed {
		e, err := q.lookup(ctx, link.PackageName, link.FileName, nil, nil, qualifiedPath, name)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, errNotFound) && !diag.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, errNotFound
}

// throughExportAssignment looks inside the namespace named by `export = N`.
func (q *query) throughExportAssignment(ctx context.Context, t *symtab.Table, qualifiedPath []string, name string) (*entity.Loaded, error) {
	if t.ExportAssignment == "" {
		return nil, errNotFound
	}
	ns := t.Namespace(t.ExportAssignment)
	if ns == nil {
		return nil, errNotFound
	}
	return q.lookup(ctx, t.PackageName, t.FileName, ns, []string{t.ExportAssignment}, qualifiedPath, name)
}
