package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compgen/internal/diag"
	"compgen/internal/pkgmeta"
	"compgen/internal/ranges"
	"compgen/internal/registry"
	"compgen/internal/source"
	"compgen/internal/syntax"
)

var packageFiles = map[string]string{
	"pkg/package.json": `{"name":"pkg","version":"0.1.0","types":"index.d.ts"}`,
	"pkg/index.d.ts": `
import { Dep } from 'dep';
import { Options } from './options';
export * from './options';
/**
 * Does the work.
 */
export declare class Service extends Dep {
  constructor(name: string, options: Options, dep: Dep);
  enabled: boolean;
}
export declare class Broken { constructor(value: Nowhere); }
export declare function helper(): void;
`,
	"pkg/options.d.ts": `export interface Options { level: number; tags?: string[]; }`,
	"pkg/node_modules/dep/package.json": `{"name":"dep","types":"index.d.ts"}`,
	"pkg/node_modules/dep/index.d.ts": `export declare class Dep { constructor(id: number); }`,
}

func generate(t *testing.T, provider source.Provider, options Options) (*Result, error) {
	t.Helper()
	cache, err := syntax.NewCache(provider, 0)
	require.NoError(t, err)
	pkg, err := pkgmeta.LoadPackage(context.Background(), provider, "pkg")
	require.NoError(t, err)
	return NewGenerator(cache, options).Run(context.Background(), pkg)
}

func TestRun_ContinueOnError(t *testing.T) {
	result, err := generate(t, source.NewMemory(packageFiles), Options{ContinueOnError: true})
	require.NoError(t, err)

	assert.Contains(t, result.Classes, "Service")
	assert.Contains(t, result.Classes, "Options")
	assert.NotContains(t, result.Classes, "Broken")
	require.Contains(t, result.Skipped, "Broken")
	assert.True(t, diag.IsNotFound(result.Skipped["Broken"]))

	params := result.Constructors["Service"]
	require.Len(t, params, 3)
	assert.Equal(t, &ranges.Raw{Value: "string"}, params[0].Range)
	assert.IsType(t, &ranges.Nested{}, params[1].Range)
	assert.Equal(t, "dep", params[2].Range.(*ranges.Class).Entity.PackageName)
	assert.NotContains(t, result.Constructors, "Options")

	assert.Equal(t, []string{"dep"}, result.External)

	require.NotNil(t, result.Registry)
	assert.Equal(t, "0.1.0", result.Registry.Version)
	data, err := registry.Marshal(result.Registry)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Does the work."`)
}

func TestRun_FailsOnFirstError(t *testing.T) {
	_, err := generate(t, source.NewMemory(packageFiles), Options{})
	require.Error(t, err)
	assert.True(t, diag.IsNotFound(err))
	assert.Contains(t, errors.FlattenHints(err), `add "Broken" to ignore_classes`)
}

func TestRun_IgnoreSet(t *testing.T) {
	result, err := generate(t, source.NewMemory(packageFiles), Options{Ignore: map[string]struct{}{"Broken": {}, "Dep": {}}})
	require.NoError(t, err)
	assert.NotContains(t, result.Classes, "Broken")
	assert.Equal(t, &ranges.Wildcard{}, result.Constructors["Service"][2].Range)
}

func TestRun_BatchPackagesAreNotExternal(t *testing.T) {
	result, err := generate(t, source.NewMemory(packageFiles), Options{ContinueOnError: true, Batch: []string{"dep"}})
	require.NoError(t, err)
	assert.Empty(t, result.External)
}

// blockingProvider holds reads of one file until the caller's context is done.
type blockingProvider struct {
	*source.Memory
	path string
}

func (p *blockingProvider) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if path == p.path {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Second):
		}
	}
	return p.Memory.ReadFile(ctx, path)
}

func TestRun_FirstErrorCancelsSiblings(t *testing.T) {
	provider := &blockingProvider{
		Memory: source.NewMemory(map[string]string{
			"pkg/package.json": `{"name":"pkg","types":"index.d.ts"}`,
			"pkg/index.d.ts": `
import { SlowType } from './slow';
export declare class Bad { constructor(value: Nowhere); }
export declare class Slow { constructor(value: SlowType); }
`,
			"pkg/slow.d.ts": `export interface SlowType { a: string; }`,
		}),
		path: "pkg/slow.d.ts",
	}

	start := time.Now()
	_, err := generate(t, provider, Options{Concurrency: 2})
	require.Error(t, err)
	assert.True(t, diag.IsNotFound(err))
	assert.False(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_ExternalPackagesOfReferencedAncestors(t *testing.T) {
	provider := source.NewMemory(map[string]string{
		"pkg/package.json": `{"name":"pkg","types":"index.d.ts"}`,
		"pkg/index.d.ts": `
import { Tool } from 'tool';
export declare class App { constructor(tool: Tool); }
`,
		"pkg/node_modules/tool/package.json": `{"name":"tool","types":"index.d.ts"}`,
		"pkg/node_modules/tool/index.d.ts": `
import { Base } from 'base';
export declare class Tool extends Base {}
`,
		"pkg/node_modules/base/package.json": `{"name":"base","types":"index.d.ts"}`,
		"pkg/node_modules/base/index.d.ts":   `export declare class Base {}`,
	})

	result, err := generate(t, provider, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "tool"}, result.External)
}
