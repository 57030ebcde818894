package config

import (
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Packages lists package roots to generate for when none are given on the command line.
	Packages        []string `yaml:"packages"`
	IgnoreClasses   []string `yaml:"ignore_classes"`
	Lenient         bool     `yaml:"lenient"`
	ContinueOnError bool     `yaml:"continue_on_error"`
	CacheSize       int      `yaml:"cache_size"`
	Concurrency     int      `yaml:"concurrency"`
	DB              string   `yaml:"db"`
	Output          string   `yaml:"output"`
	Log             struct {
		JSON  bool   `yaml:"json"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		CacheSize:   2048,
		Concurrency: 8,
		Output:      "components",
	}
	cfg.Log.Level = "info"
	return cfg
}

// LoadConfig reads .env, then the YAML file at path (if it exists), then environment
// overrides.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, errors.Wrapf(err, "failed to parse config %s", path)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
	}

	// 3. Override with Environment Variables if present
	if db := os.Getenv("COMPGEN_DB"); db != "" {
		cfg.DB = db
	}
	if v := os.Getenv("COMPGEN_LENIENT"); v != "" {
		lenient, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid COMPGEN_LENIENT %q", v)
		}
		cfg.Lenient = lenient
	}
	if v := os.Getenv("COMPGEN_LOG_JSON"); v != "" {
		jsonOutput, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid COMPGEN_LOG_JSON %q", v)
		}
		cfg.Log.JSON = jsonOutput
	}

	if cfg.CacheSize <= 0 {
		cfg.CacheSize = Default().CacheSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}

// IgnoreSet returns the ignored class names as a set.
func (c *Config) IgnoreSet() map[string]struct{} {
	out := make(map[string]struct{}, len(c.IgnoreClasses))
	for _, name := range c.IgnoreClasses {
		out[name] = struct{}{}
	}
	return out
}
