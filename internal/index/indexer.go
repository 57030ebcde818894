package index

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"compgen/internal/diag"
	"compgen/internal/entity"
	"compgen/internal/loader"
	"compgen/internal/logging"
	"compgen/internal/syntax"
)

// Options tune how the chain indexer treats unsupported input.
type Options struct {
	// Ignore holds names that are never indexed.
	Ignore map[string]struct{}
	// Lenient drops unsupported superclass expressions with a warning instead of failing.
	Lenient bool
}

// Indexer links classes and interfaces to their supertypes. Linking is serialized;
// each entity is linked at most once.
type Indexer struct {
	loader  *loader.Loader
	options Options

	mu         sync.Mutex
	linked     map[*entity.Loaded]struct{}
	inProgress map[*entity.Loaded]struct{}
}

// NewIndexer creates a new indexer.
func NewIndexer(l *loader.Loader, options Options) *Indexer {
	return &Indexer{
		loader:     l,
		options:    options,
		linked:     make(map[*entity.Loaded]struct{}),
		inProgress: make(map[*entity.Loaded]struct{}),
	}
}

// BuildIndex resolves every exported name to a linked class or interface. Names that
// are ignored, or that are not classes or interfaces, are left out.
func (i *Indexer) BuildIndex(ctx context.Context, exports map[string]entity.Reference) (map[string]*entity.Loaded, error) {
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]*entity.Loaded)
	for _, name := range names {
		if i.Ignored(name) {
			continue
		}
		e, err := i.loader.Resolve(ctx, exports[name], true, false)
		if err != nil {
			if diag.IsNotFound(err) {
				// functions, constants and type aliases are not components
				logging.Logger.Debugw("skipping export", "name", name, "error", err)
				continue
			}
			return nil, errors.Wrapf(err, "failed to index %s", name)
		}
		if err := i.LoadClassChain(ctx, e); err != nil {
			return nil, diag.WithIgnoreHint(errors.Wrapf(err, "failed to index %s", name), name)
		}
		out[name] = e
	}
	return out, nil
}

// Ignored reports whether name is in the ignore set.
func (i *Indexer) Ignored(name string) bool {
	_, ok := i.options.Ignore[name]
	return ok
}

// LoadClassChain attaches the superclass, implemented interfaces and super interfaces
// of e and of every ancestor.
func (i *Indexer) LoadClassChain(ctx context.Context, e *entity.Loaded) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.link(ctx, e)
}

// Linked reports whether e has been fully linked.
func (i *Indexer) Linked(e *entity.Loaded) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.linked[e]
	return ok
}

func (i *Indexer) link(ctx context.Context, e *entity.Loaded) error {
	if _, ok := i.linked[e]; ok {
		return nil
	}
	if _, ok := i.inProgress[e]; ok {
		return nil
	}
	i.inProgress[e] = struct{}{}
	defer delete(i.inProgress, e)

	switch d := e.Declaration.(type) {
	case *syntax.ClassDecl:
		if err := i.linkSuperClass(ctx, e, d); err != nil {
			return err
		}
		i.linkImplements(ctx, e, d)
	case *syntax.InterfaceDecl:
		if err := i.linkSuperInterfaces(ctx, e, d); err != nil {
			return err
		}
	}
	i.linked[e] = struct{}{}
	return nil
}

func (i *Indexer) linkSuperClass(ctx context.Context, e *entity.Loaded, d *syntax.ClassDecl) error {
	h := d.Extends
	if h == nil {
		return nil
	}
	if h.Kind != syntax.HeritageIdentifier {
		err := heritageError(e, h)
		if i.options.Lenient {
			i.loader.Collector().Warn(diag.Warning{Kind: string(err.Kind), Entity: e.LocalName, Message: "dropping superclass", Err: err})
			return nil
		}
		return err
	}

	super, err := i.loader.ResolveFrom(ctx, e, h.Name, nil, true, false)
	if err != nil {
		return err
	}
	if super.Kind != entity.KindClass {
		return &diag.ClassificationError{
			Entity:   e.LocalName,
			Target:   super.LocalName,
			Expected: entity.KindClass,
			Actual:   super.Kind,
			File:     e.FileName,
		}
	}
	if err := i.link(ctx, super); err != nil {
		return err
	}
	e.SuperClass = &entity.Super{Entity: super, TypeArgs: h.TypeArgs}
	return nil
}

func heritageError(e *entity.Loaded, h *syntax.Heritage) *diag.ShapeError {
	shape := &diag.ShapeError{
		Kind:    diag.ShapeAnonymousSuperclass,
		Entity:  e.LocalName,
		File:    e.FileName,
		Line:    h.Position.Line,
		Subject: h.Text,
		Message: "superclass must be a plain identifier",
	}
	switch h.Kind {
	case syntax.HeritageNamespaced:
		shape.Kind = diag.ShapeNamespacedSuperclass
		shape.Message = "namespaced superclasses are not supported"
	case syntax.HeritageClassExpression:
		shape.Message = "anonymous class expressions are not supported as superclass"
	}
	return shape
}

// linkImplements keeps the implemented interfaces that resolve and link; the others
// are dropped with a warning.
func (i *Indexer) linkImplements(ctx context.Context, e *entity.Loaded, d *syntax.ClassDecl) {
	for _, t := range d.Implements {
		ref, ok := syntax.Unwrap(t).(*syntax.TypeReference)
		if !ok {
			continue
		}
		iface, err := i.loader.ResolveFrom(ctx, e, ref.Name, ref.Qualifier, true, false)
		if err == nil {
			err = i.link(ctx, iface)
		}
		if err != nil {
			i.loader.Collector().Warn(diag.Warning{
				Kind:    "implements",
				Entity:  e.LocalName,
				Message: "dropping implemented interface " + ref.QualifiedName(),
				Err:     err,
			})
			continue
		}
		e.ImplementsInterfaces = append(e.ImplementsInterfaces, &entity.Super{Entity: iface, TypeArgs: ref.TypeArgs})
	}
}

func (i *Indexer) linkSuperInterfaces(ctx context.Context, e *entity.Loaded, d *syntax.InterfaceDecl) error {
	for _, t := range d.Extends {
		ref, ok := syntax.Unwrap(t).(*syntax.TypeReference)
		if !ok {
			continue
		}
		super, err := i.loader.ResolveFrom(ctx, e, ref.Name, ref.Qualifier, true, false)
		if err != nil {
			if !diag.IsNotFound(err) {
				return err
			}
			i.loader.Collector().Warn(diag.Warning{
				Kind:    "extends",
				Entity:  e.LocalName,
				Message: "dropping super interface " + ref.QualifiedName(),
				Err:     err,
			})
			continue
		}
		if super.Kind != entity.KindInterface {
			return &diag.ClassificationError{
				Entity:   e.LocalName,
				Target:   super.LocalName,
				Expected: entity.KindInterface,
				Actual:   super.Kind,
				File:     e.FileName,
			}
		}
		if err := i.link(ctx, super); err != nil {
			return err
		}
		e.SuperInterfaces = append(e.SuperInterfaces, &entity.Super{Entity: super, TypeArgs: ref.TypeArgs})
	}
	return nil
}

// ChainSummary is the serializable view of one indexed entity.
type ChainSummary struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	File       string   `json:"file"`
	SuperClass string   `json:"superClass,omitempty"`
	Implements []string `json:"implements,omitempty"`
	Extends    []string `json:"extends,omitempty"`
}

// Summarize flattens an index into summaries sorted by name.
func Summarize(index map[string]*entity.Loaded) []ChainSummary {
	out := make([]ChainSummary, 0, len(index))
	for name, e := range index {
		s := ChainSummary{Name: name, Kind: string(e.Kind), File: e.FileName}
		if e.SuperClass != nil {
			s.SuperClass = e.SuperClass.Entity.QualifiedName()
		}
		for _, sup := range e.ImplementsInterfaces {
			s.Implements = append(s.Implements, sup.Entity.QualifiedName())
		}
		for _, sup := range e.SuperInterfaces {
			s.Extends = append(s.Extends, sup.Entity.QualifiedName())
		}
		out = append(out, s)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// SaveIndex persists the index summary to a JSON file.
func SaveIndex(index map[string]*entity.Loaded, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create index file")
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Summarize(index)); err != nil {
		return errors.Wrap(err, "failed to encode index")
	}
	return nil
}
