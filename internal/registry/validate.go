package registry

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "https://compgen.local/registry.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = errors.Wrap(err, "failed to load registry schema")
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = errors.Wrap(schemaErr, "failed to compile registry schema")
		}
	})
	return compiledSchema, schemaErr
}

// Validate checks a serialized registry document against the registry schema.
func Validate(doc []byte) error {
	schema, err := loadCompiledSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return errors.Wrap(err, "registry document is not valid JSON")
	}
	if err := schema.Validate(v); err != nil {
		return errors.Wrap(err, "registry schema validation failed")
	}
	return nil
}

// Marshal serializes reg and validates the result.
func Marshal(reg *Registry) ([]byte, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal registry")
	}
	if err := Validate(data); err != nil {
		return nil, errors.Wrapf(err, "registry of %s", reg.Package)
	}
	return data, nil
}
