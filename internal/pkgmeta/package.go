package pkgmeta

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/cockroachdb/errors"

	"compgen/internal/source"
)

// Package is the subset of package.json the generator needs.
type Package struct {
	Name string
	// Root is the package directory.
	Root string
	// Types is the declaration entry point without extension.
	Types string
	Version string
}

type packageJSON struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Types   string `json:"types"`
	Typings string `json:"typings"`
	Main    string `json:"main"`
}

// LoadPackage reads root/package.json.
func LoadPackage(ctx context.Context, p source.Provider, root string) (*Package, error) {
	manifest := path.Join(root, "package.json")
	data, err := p.ReadFile(ctx, manifest)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", manifest)
	}
	var raw packageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", manifest)
	}
	if raw.Name == "" {
		return nil, errors.Newf("%s has no name", manifest)
	}

	entry := raw.Types
	if entry == "" {
		entry = raw.Typings
	}
	if entry == "" {
		entry = raw.Main
	}
	if entry == "" {
		entry = "index"
	}
	return &Package{
		Name:    raw.Name,
		Root:    path.Clean(root),
		Types:   StripExtension(path.Join(root, entry)),
		Version: raw.Version,
	}, nil
}

var lightweightExtensions = []string{".d.ts", ".d.mts", ".d.cts", ".ts", ".js", ".mjs", ".cjs"}

// StripExtension removes a script or declaration extension from a path.
func StripExtension(p string) string {
	for _, ext := range lightweightExtensions {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}
