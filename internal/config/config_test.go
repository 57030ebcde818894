package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.CacheSize)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, "components", cfg.Output)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Lenient)
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
packages: [./a, ./b]
ignore_classes: [Internal]
continue_on_error: true
concurrency: 0
db: from-file.db
log:
  level: debug
`), 0o644))

	t.Setenv("COMPGEN_DB", "from-env.db")
	t.Setenv("COMPGEN_LENIENT", "true")
	t.Setenv("COMPGEN_LOG_JSON", "1")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"./a", "./b"}, cfg.Packages)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, "from-env.db", cfg.DB)
	assert.True(t, cfg.Lenient)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Contains(t, cfg.IgnoreSet(), "Internal")
}

func TestLoadConfig_InvalidInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("packages: [unterminated"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)

	t.Setenv("COMPGEN_LENIENT", "maybe")
	_, err = LoadConfig("")
	assert.Error(t, err)
}
