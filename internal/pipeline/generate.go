package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"compgen/internal/diag"
	"compgen/internal/entity"
	"compgen/internal/external"
	"compgen/internal/index"
	"compgen/internal/loader"
	"compgen/internal/logging"
	"compgen/internal/param"
	"compgen/internal/pkgmeta"
	"compgen/internal/ranges"
	"compgen/internal/registry"
	"compgen/internal/resolver"
	"compgen/internal/syntax"
)

// DefaultConcurrency bounds the number of components resolved at the same time.
const DefaultConcurrency = 8

type Options struct {
	// Ignore holds class and interface names that are neither indexed nor resolved.
	Ignore  map[string]struct{}
	Lenient bool
	// ContinueOnError skips a failing component instead of aborting the package.
	ContinueOnError bool
	Concurrency     int
	// Batch names the packages generated together; they are never reported as external.
	Batch []string
}

// Context is the resolution state of one generation run. Nothing in it outlives
// the run except the parse cache it was created from.
type Context struct {
	Collector *diag.Collector
	Loader    *loader.Loader
	Indexer   *index.Indexer
	Params    *param.Loader
	Resolver  *resolver.Resolver
}

// NewContext creates a fresh resolution context on top of a shared parse cache.
func NewContext(cache *syntax.Cache, options Options) *Context {
	collector := diag.NewCollector()
	l := loader.New(cache, pkgmeta.NewResolver(cache.Provider()), collector)
	indexer := index.NewIndexer(l, index.Options{Ignore: options.Ignore, Lenient: options.Lenient})
	params := param.NewLoader(collector, options.Lenient)
	return &Context{
		Collector: collector,
		Loader:    l,
		Indexer:   indexer,
		Params:    params,
		Resolver:  resolver.New(l, indexer, params, resolver.Options{Ignore: options.Ignore, Lenient: options.Lenient}),
	}
}

// Result is everything generated for one package.
type Result struct {
	Package      *pkgmeta.Package
	Classes      map[string]*entity.Loaded
	Constructors map[string][]*ranges.Parameter[ranges.Resolved]
	Generics     map[string][]ranges.GenericTypeParameter
	Members      map[string][]*ranges.Parameter[ranges.Resolved]
	External     []string
	// Skipped holds the components dropped under ContinueOnError, with their error.
	Skipped  map[string]error
	Warnings []diag.Warning
	Stats    resolver.Stats
	Registry *registry.Registry
}

// Generator turns packages into registries.
type Generator struct {
	cache   *syntax.Cache
	options Options
}

func NewGenerator(cache *syntax.Cache, options Options) *Generator {
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	return &Generator{cache: cache, options: options}
}

// Run generates one package with its own resolution context.
func (g *Generator) Run(ctx context.Context, pkg *pkgmeta.Package) (*Result, error) {
	start := time.Now()
	rc := NewContext(g.cache, g.options)
	result := &Result{
		Package:      pkg,
		Constructors: make(map[string][]*ranges.Parameter[ranges.Resolved]),
		Generics:     make(map[string][]ranges.GenericTypeParameter),
		Members:      make(map[string][]*ranges.Parameter[ranges.Resolved]),
		Skipped:      make(map[string]error),
	}

	exports, err := rc.Loader.ExportSurface(ctx, pkg.Name, pkg.Types)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compute exports of %s", pkg.Name)
	}

	classes, err := g.indexStage(ctx, rc, exports, result)
	if err != nil {
		return nil, err
	}
	result.Classes = classes

	if err := g.resolveStage(ctx, rc, result); err != nil {
		return nil, err
	}

	result.External = external.FindExternalPackages(pkg.Name, g.options.Batch, result.Classes, result.Constructors)
	result.Warnings = rc.Collector.Warnings()
	result.Stats = rc.Resolver.Stats()
	result.Registry = registry.Build(registry.Input{
		Package:      pkg.Name,
		Version:      pkg.Version,
		Classes:      result.Classes,
		Constructors: result.Constructors,
		Generics:     result.Generics,
		Members:      result.Members,
		External:     result.External,
	})

	logging.Logger.Infow("generated package",
		"package", pkg.Name,
		"components", len(result.Classes),
		"skipped", len(result.Skipped),
		"external", len(result.External),
		"warnings", len(result.Warnings),
		"cache_hits", result.Stats.CacheHits,
		"elapsed", time.Since(start))
	return result, nil
}

func (g *Generator) indexStage(ctx context.Context, rc *Context, exports map[string]entity.Reference, result *Result) (map[string]*entity.Loaded, error) {
	if !g.options.ContinueOnError {
		return rc.Indexer.BuildIndex(ctx, exports)
	}

	classes := make(map[string]*entity.Loaded)
	for name, ref := range exports {
		single, err := rc.Indexer.BuildIndex(ctx, map[string]entity.Reference{name: ref})
		if err != nil {
			g.skip(result, name, err)
			continue
		}
		for k, e := range single {
			classes[k] = e
		}
	}
	return classes, nil
}

// resolveStage resolves every component concurrently. Without ContinueOnError the
// first failure cancels the others and is returned.
func (g *Generator) resolveStage(ctx context.Context, rc *Context, result *Result) error {
	names := make([]string, 0, len(result.Classes))
	for name := range result.Classes {
		names = append(names, name)
	}
	sort.Strings(names)

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.options.Concurrency)
	for _, name := range names {
		name := name
		e := result.Classes[name]
		eg.Go(func() error {
			resolved, err := resolveComponent(egCtx, rc.Resolver, e)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				err = diag.WithIgnoreHint(errors.Wrapf(err, "failed to generate %s", name), name)
				if g.options.ContinueOnError {
					g.skip(result, name, err)
					return nil
				}
				return err
			}
			if e.Kind == entity.KindClass {
				result.Constructors[name] = resolved.constructor
			}
			result.Generics[name] = resolved.generics
			result.Members[name] = resolved.members
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for name := range result.Skipped {
		delete(result.Classes, name)
	}
	return nil
}

func (g *Generator) skip(result *Result, name string, err error) {
	logging.Logger.Warnw("skipping component", "name", name, "error", err)
	result.Skipped[name] = err
}

type component struct {
	constructor []*ranges.Parameter[ranges.Resolved]
	generics    []ranges.GenericTypeParameter
	members     []*ranges.Parameter[ranges.Resolved]
}

func resolveComponent(ctx context.Context, r *resolver.Resolver, e *entity.Loaded) (*component, error) {
	var out component
	var err error
	if e.Kind == entity.KindClass {
		if out.constructor, err = r.ResolveConstructor(ctx, e); err != nil {
			return nil, err
		}
	}
	if out.generics, err = r.ResolveGenerics(ctx, e); err != nil {
		return nil, err
	}
	if out.members, err = r.ResolveMembers(ctx, e); err != nil {
		return nil, err
	}
	return &out, nil
}
