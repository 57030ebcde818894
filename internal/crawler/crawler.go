package crawler

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"compgen/internal/logging"
	"compgen/internal/pkgmeta"
	"compgen/internal/source"
)

// Crawler scans a directory tree for packages.
type Crawler struct {
	provider source.Provider
	ignored  []string
}

// NewCrawler creates a new crawler instance reading manifests through provider.
func NewCrawler(provider source.Provider) *Crawler {
	return &Crawler{
		provider: provider,
		ignored:  []string{".git", "node_modules", "testdata"},
	}
}

// ScanPackages walks root and calls onPackage for every directory holding a readable
// package.json. Unreadable manifests are logged and skipped.
func (c *Crawler) ScanPackages(ctx context.Context, root string, onPackage func(*pkgmeta.Package)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if d.Name() != "package.json" {
			return nil
		}

		pkg, err := pkgmeta.LoadPackage(ctx, c.provider, filepath.ToSlash(filepath.Dir(path)))
		if err != nil {
			logging.Logger.Warnw("skipping package", "manifest", path, "error", err)
			return nil
		}
		onPackage(pkg)
		return nil
	})
}

// FindPackages returns every package under root, ordered by directory.
func (c *Crawler) FindPackages(ctx context.Context, root string) ([]*pkgmeta.Package, error) {
	var pkgs []*pkgmeta.Package
	if err := c.ScanPackages(ctx, root, func(p *pkgmeta.Package) {
		pkgs = append(pkgs, p)
	}); err != nil {
		return nil, err
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Root < pkgs[j].Root })
	return pkgs, nil
}
