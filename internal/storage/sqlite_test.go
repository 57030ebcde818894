package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compgen/internal/registry"
)

func testRegistry(pkg string, components ...string) *registry.Registry {
	reg := &registry.Registry{
		SchemaVersion:    "v1.0.0",
		Package:          pkg,
		Version:          "1.0.0",
		ExternalPackages: []string{"dep"},
	}
	for _, name := range components {
		reg.Components = append(reg.Components, registry.Component{
			Name:       name,
			Type:       "Class",
			File:       pkg + "/index",
			Parameters: []registry.Parameter{{Name: "a", Kind: "field", Unique: true, Required: true, Range: &registry.Range{Type: "raw", Value: "string"}}},
		})
	}
	return reg
}

func TestSQLiteStore_SaveRegistry_SnapshotSync(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.SaveRegistry(ctx, testRegistry("pkg", "A", "B")))
	require.NoError(t, store.SaveRegistry(ctx, testRegistry("pkg", "B", "C")))

	loaded, err := store.LoadRegistry(ctx, "pkg")
	require.NoError(t, err)
	require.Len(t, loaded.Components, 2)
	assert.Equal(t, "B", loaded.Components[0].Name)
	assert.Equal(t, "C", loaded.Components[1].Name)
	assert.Equal(t, &registry.Range{Type: "raw", Value: "string"}, loaded.Components[0].Parameters[0].Range)

	records, err := store.FindComponentsByFile(ctx, "pkg/index")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ComponentRecord{Package: "pkg", Name: "B", Type: "Class", File: "pkg/index"}, records[0])
}

func TestSQLiteStore_PublishedPackages(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveRegistry(ctx, testRegistry("b-pkg", "X")))
	require.NoError(t, store.SaveRegistry(ctx, testRegistry("a-pkg")))

	ok, err := store.HasPackage(ctx, "a-pkg")
	require.NoError(t, err)
	assert.True(t, ok)

	published, err := store.PublishedPackages(ctx, []string{"b-pkg", "missing", "a-pkg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a-pkg", "b-pkg"}, published)

	_, err = store.LoadRegistry(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
