// Package validation compiles embedded JSON schemas and validates Go values against them.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const baseURL = "https://inquiryflow.local/schemas/"

// Set is a group of compiled schemas addressed by file base name
type Set struct {
	schemas map[string]*jsonschema.Schema
}

// Compile loads every *.json file under dir in fsys. A schema named
// "contact.json" is addressed as "contact".
func Compile(fsys fs.FS, dir string) (*Set, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.AssertFormat()

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", e.Name(), err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse schema %s: %w", e.Name(), err)
		}
		if err := c.AddResource(baseURL+e.Name(), doc); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", e.Name(), err)
		}
		names = append(names, e.Name())
	}

	set := &Set{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		sch, err := c.Compile(baseURL + name)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		set.schemas[strings.TrimSuffix(name, ".json")] = sch
	}
	return set, nil
}

// MustCompile is Compile for package-level schema sets
func MustCompile(fsys fs.FS, dir string) *Set {
	set, err := Compile(fsys, dir)
	if err != nil {
		panic(err)
	}
	return set
}

// Has reports whether a schema is registered under name
func (s *Set) Has(name string) bool {
	_, ok := s.schemas[name]
	return ok
}

// Validate checks v against the named schema. v is round-tripped through
// JSON so structs and maps validate the same way.
func (s *Set) Validate(name string, v any) error {
	sch, ok := s.schemas[name]
	if !ok {
		return fmt.Errorf("no schema named %q", name)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	return sch.Validate(inst)
}
