package loader

import (
	"context"

	"github.com/cockroachdb/errors"

	"compgen/internal/diag"
	"compgen/internal/entity"
	"compgen/internal/source"
)

// ExportSurface lists every name a package exports from its entry file, following
// named and wildcard re-exports. Local exports shadow wildcard ones, and earlier
// wildcards shadow later ones.
func (l *Loader) ExportSurface(ctx context.Context, packageName, entryFile string) (map[string]entity.Reference, error) {
	out := make(map[string]entity.Reference)
	if err := l.collectExports(ctx, packageName, entryFile, entryFile, out, map[string]struct{}{}); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Loader) collectExports(ctx context.Context, packageName, fileName, entryFile string, out map[string]entity.Reference, visited map[string]struct{}) error {
	key := packageName + "\x00" + fileName
	if _, ok := visited[key]; ok {
		return nil
	}
	visited[key] = struct{}{}

	t, err := l.Table(ctx, packageName, fileName)
	if err != nil {
		return errors.Wrapf(err, "failed to collect exports of %s", fileName)
	}

	add := func(name string, ref entity.Reference) {
		if _, ok := out[name]; ok {
			return
		}
		ref.FileNameReferenced = entryFile
		out[name] = ref
	}
	local := func(name string) {
		add(name, entity.Reference{PackageName: packageName, FileName: fileName, LocalName: name})
	}

	for name := range t.ExportedClasses {
		local(name)
	}
	for name := range t.ExportedInterfaces {
		local(name)
	}
	for name := range t.ExportedTypes {
		local(name)
	}
	for name := range t.ExportedEnums {
		local(name)
	}
	for name, link := range t.ExportedImportedElements {
		add(name, entity.Reference{PackageName: link.PackageName, FileName: link.FileName, LocalName: link.LocalName})
	}

	if t.ExportAssignment != "" {
		if ns := t.Namespace(t.ExportAssignment); ns != nil {
			for name := range ns.ExportedClasses {
				add(name, entity.Reference{PackageName: packageName, FileName: fileName, LocalName: name, QualifiedPath: []string{t.ExportAssignment}})
			}
			for name := range ns.DeclaredClasses {
				add(name, entity.Reference{PackageName: packageName, FileName: fileName, LocalName: name, QualifiedPath: []string{t.ExportAssignment}})
			}
		}
	}

	for _, link := range t.ExportedImportedAllUnnamed {
		if link.PackageName != packageName {
			continue
		}
		err := l.collectExports(ctx, link.PackageName, link.FileName, entryFile, out, visited)
		if errors.Is(err, source.ErrNotExist) {
			l.collector.Warn(diag.Warning{Kind: "export", Entity: fileName, Message: "skipping missing re-export target " + link.FileName})
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
