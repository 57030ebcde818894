package storage

import (
	"context"

	"compgen/internal/registry"
)

// Store persists generated registries.
type Store interface {
	RegistryStore
	Close() error
}

// RegistryStore defines operations for persisting published component registries.
type RegistryStore interface {
	// SaveRegistry replaces everything stored for the registry's package.
	SaveRegistry(ctx context.Context, reg *registry.Registry) error

	// LoadRegistry returns the stored registry of a package, or ErrNotFound.
	LoadRegistry(ctx context.Context, packageName string) (*registry.Registry, error)

	// HasPackage reports whether a registry is stored for a package.
	HasPackage(ctx context.Context, packageName string) (bool, error)

	// PublishedPackages returns the subset of names that have a stored registry, sorted.
	PublishedPackages(ctx context.Context, names []string) ([]string, error)

	// FindComponentsByFile returns the components declared in a declaration file.
	FindComponentsByFile(ctx context.Context, file string) ([]ComponentRecord, error)
}

// ComponentRecord is the indexed row of one stored component.
type ComponentRecord struct {
	Package string
	Name    string
	Type    string
	File    string
}
