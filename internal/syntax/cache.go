package syntax

import (
	"context"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"compgen/internal/source"
)

// DefaultCacheSize bounds the number of parsed files kept in memory.
const DefaultCacheSize = 2048

// Cache parses declaration files on demand and memoizes the result per file name.
// It is safe for concurrent use and may be shared across generation runs.
type Cache struct {
	provider source.Provider
	files    *lru.Cache
	group    singleflight.Group
}

// NewCache creates a parse cache on top of a content provider. A size <= 0 uses
// DefaultCacheSize.
func NewCache(provider source.Provider, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	files, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create parse cache")
	}
	return &Cache{provider: provider, files: files}, nil
}

// Provider returns the content provider the cache reads from.
func (c *Cache) Provider() source.Provider {
	return c.provider
}

// Parse returns the parsed file for a path without extension.
func (c *Cache) Parse(ctx context.Context, fileName string) (*File, error) {
	if cached, ok := c.files.Get(fileName); ok {
		return cached.(*File), nil
	}

	v, err, _ := c.group.Do(fileName, func() (interface{}, error) {
		if cached, ok := c.files.Get(fileName); ok {
			return cached, nil
		}
		data, path, err := source.ReadDeclaration(ctx, c.provider, fileName)
		if err != nil {
			return nil, err
		}
		file, err := Parse(ctx, fileName, path, data)
		if err != nil {
			return nil, err
		}
		c.files.Add(fileName, file)
		return file, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*File), nil
}

// Exists reports whether a declaration file exists for fileName without parsing it.
func (c *Cache) Exists(ctx context.Context, fileName string) bool {
	if c.files.Contains(fileName) {
		return true
	}
	return source.HasDeclaration(ctx, c.provider, fileName)
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	return c.files.Len()
}
