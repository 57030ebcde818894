package main

import (
	"context"
	"strings"

	"compgen/internal/git"
	"compgen/internal/pkgmeta"
	"compgen/internal/source"
	"compgen/internal/storage"
)

// filterChanged keeps the packages owning a changed declaration file. With a store,
// packages whose stored registry names the file as a component origin are kept too,
// which catches files reached through node_modules symlinks.
func filterChanged(ctx context.Context, store storage.RegistryStore, packages []*pkgmeta.Package, changes []git.Change) ([]*pkgmeta.Package, error) {
	stale := make(map[string]struct{})
	for _, c := range changes {
		fileName := source.TrimDeclarationExtension(c.Path)
		for _, pkg := range packages {
			if pkg.Root == "." || strings.HasPrefix(fileName, pkg.Root+"/") {
				stale[pkg.Name] = struct{}{}
			}
		}
		if store == nil {
			continue
		}
		records, err := store.FindComponentsByFile(ctx, fileName)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			stale[r.Package] = struct{}{}
		}
	}

	var out []*pkgmeta.Package
	for _, pkg := range packages {
		if _, ok := stale[pkg.Name]; ok {
			out = append(out, pkg)
		}
	}
	return out, nil
}
