// Package external finds the packages outside the current batch that generated
// metadata refers to.
package external

import (
	"sort"

	"compgen/internal/entity"
	"compgen/internal/ranges"
)

// FindExternalPackages walks the inheritance chains of entities and every class
// reachable from the constructor ranges, and returns the sorted names of the packages
// that are neither current nor part of batch.
func FindExternalPackages(current string, batch []string, entities map[string]*entity.Loaded, constructors map[string][]*ranges.Parameter[ranges.Resolved]) []string {
	f := &finder{
		skip:    map[string]struct{}{current: {}},
		found:   map[string]struct{}{},
		visited: map[*entity.Loaded]struct{}{},
	}
	for _, name := range batch {
		f.skip[name] = struct{}{}
	}

	for _, e := range entities {
		f.chain(e)
	}
	for _, params := range constructors {
		for _, p := range params {
			f.walk(p.Domain)
			f.walk(p.Range)
		}
	}

	out := make([]string, 0, len(f.found))
	for name := range f.found {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type finder struct {
	skip    map[string]struct{}
	found   map[string]struct{}
	visited map[*entity.Loaded]struct{}
}

func (f *finder) add(e *entity.Loaded) {
	if e.PackageName == "" {
		return
	}
	if _, ok := f.skip[e.PackageName]; ok {
		return
	}
	f.found[e.PackageName] = struct{}{}
}

// chain records e and everything it extends or implements.
func (f *finder) chain(e *entity.Loaded) {
	if e == nil {
		return
	}
	if _, ok := f.visited[e]; ok {
		return
	}
	f.visited[e] = struct{}{}
	f.add(e)

	if e.SuperClass != nil {
		f.chain(e.SuperClass.Entity)
	}
	for _, s := range e.ImplementsInterfaces {
		f.chain(s.Entity)
	}
	for _, s := range e.SuperInterfaces {
		f.chain(s.Entity)
	}
}

func (f *finder) walk(r ranges.Resolved) {
	ranges.Walk(r, func(r ranges.Resolved) bool {
		if c, ok := r.(*ranges.Class); ok {
			f.chain(c.Entity)
		}
		return true
	})
}
