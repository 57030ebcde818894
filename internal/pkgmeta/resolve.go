package pkgmeta

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"compgen/internal/source"
)

// ErrUnresolved is returned when a bare import specifier matches no installed package.
var ErrUnresolved = errors.New("unresolved package import")

// Target is where an import specifier points.
type Target struct {
	PackageName string
	// FileName is the target file without extension.
	FileName string
}

// Resolver maps import specifiers to declaration files.
type Resolver struct {
	provider source.Provider

	mu       sync.Mutex
	packages map[string]*Package
}

func NewResolver(provider source.Provider) *Resolver {
	return &Resolver{provider: provider, packages: make(map[string]*Package)}
}

// Resolve maps specifier, written in fromFile of packageName, to a target file.
func (r *Resolver) Resolve(ctx context.Context, packageName, fromFile, specifier string) (Target, error) {
	if strings.HasPrefix(specifier, ".") {
		return Target{
			PackageName: packageName,
			FileName:    r.relative(ctx, path.Dir(fromFile), specifier),
		}, nil
	}
	return r.bare(ctx, fromFile, specifier)
}

func (r *Resolver) relative(ctx context.Context, dir, specifier string) string {
	target := StripExtension(path.Join(dir, specifier))
	if source.HasDeclaration(ctx, r.provider, target) {
		return target
	}
	if index := path.Join(target, "index"); source.HasDeclaration(ctx, r.provider, index) {
		return index
	}
	return target
}

// SplitSpecifier separates a bare specifier into package name and subpath.
func SplitSpecifier(specifier string) (name, subpath string) {
	parts := strings.Split(specifier, "/")
	n := 1
	if strings.HasPrefix(specifier, "@") && len(parts) > 1 {
		n = 2
	}
	if len(parts) <= n {
		return specifier, ""
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/")
}

// TypesPackageName returns the DefinitelyTyped package for name: @a/b becomes @types/a__b.
func TypesPackageName(name string) string {
	if strings.HasPrefix(name, "@") {
		return "@types/" + strings.Replace(strings.TrimPrefix(name, "@"), "/", "__", 1)
	}
	return "@types/" + name
}

func (r *Resolver) bare(ctx context.Context, fromFile, specifier string) (Target, error) {
	module := strings.TrimPrefix(specifier, "node:")
	name, subpath := SplitSpecifier(module)

	for _, dir := range ancestors(path.Dir(fromFile)) {
		modules := path.Join(dir, "node_modules")
		for _, candidate := range []string{name, TypesPackageName(name)} {
			if target, ok := r.inPackage(ctx, path.Join(modules, candidate), subpath); ok {
				return target, nil
			}
		}
		// built-in modules are typed by @types/node
		nodeTypes := path.Join(modules, "@types", "node")
		if file := path.Join(nodeTypes, module); source.HasDeclaration(ctx, r.provider, file) {
			return Target{PackageName: "@types/node", FileName: file}, nil
		}
	}
	return Target{}, errors.Wrapf(ErrUnresolved, "%s imported from %s", specifier, fromFile)
}

func (r *Resolver) inPackage(ctx context.Context, root, subpath string) (Target, bool) {
	pkg := r.load(ctx, root)
	if pkg == nil {
		if index := path.Join(root, "index"); subpath == "" && source.HasDeclaration(ctx, r.provider, index) {
			return Target{PackageName: path.Base(root), FileName: index}, true
		}
		return Target{}, false
	}
	if subpath != "" {
		return Target{PackageName: pkg.Name, FileName: r.relative(ctx, root, "./"+subpath)}, true
	}
	if source.HasDeclaration(ctx, r.provider, pkg.Types) {
		return Target{PackageName: pkg.Name, FileName: pkg.Types}, true
	}
	if index := path.Join(root, "index"); source.HasDeclaration(ctx, r.provider, index) {
		return Target{PackageName: pkg.Name, FileName: index}, true
	}
	return Target{}, false
}

// load returns the package at root, or nil when root has no readable package.json.
func (r *Resolver) load(ctx context.Context, root string) *Package {
	r.mu.Lock()
	pkg, ok := r.packages[root]
	r.mu.Unlock()
	if ok {
		return pkg
	}
	if r.provider.Exists(ctx, path.Join(root, "package.json")) {
		pkg, _ = LoadPackage(ctx, r.provider, root)
	}
	r.mu.Lock()
	r.packages[root] = pkg
	r.mu.Unlock()
	return pkg
}

// ancestors lists dir and every parent directory, nearest first.
func ancestors(dir string) []string {
	dir = path.Clean(dir)
	out := []string{dir}
	for dir != "." && dir != "/" {
		dir = path.Dir(dir)
		out = append(out, dir)
	}
	return out
}
