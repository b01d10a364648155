// Package schema validates parsed XML documents against declarative
// structural schemas. Schema definitions live in embedded YAML files,
// are loaded once, and the resulting Schema values are immutable and
// safe for concurrent use.
package schema

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// Element describes one element in a structural schema.
type Element struct {
	// Name is the element's local name.
	Name string `yaml:"name"`

	// Namespace constrains the element's namespace URI. Only enforced
	// when non-empty; in practice set on the root element.
	Namespace string `yaml:"namespace,omitempty"`

	// Optional marks an element that may be absent.
	Optional bool `yaml:"optional,omitempty"`

	// Repeated allows more than one occurrence.
	Repeated bool `yaml:"repeated,omitempty"`

	// Any marks an opaque subtree whose children are not validated.
	Any bool `yaml:"any,omitempty"`

	// Choice names a mutually-exclusive group: of all sibling elements
	// sharing a Choice value, exactly one must be present.
	Choice string `yaml:"choice,omitempty"`

	// Children lists the allowed child elements.
	Children []*Element `yaml:"children,omitempty"`
}

// Schema is an immutable structural schema.
type Schema struct {
	root *Element
}

// Root returns the schema's root element definition.
func (s *Schema) Root() *Element { return s.root }

type schemaFile struct {
	Root *Element `yaml:"root"`
}

// Load parses a schema definition from YAML bytes.
func Load(data []byte) (*Schema, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schema definition: %w", err)
	}
	if file.Root == nil || file.Root.Name == "" {
		return nil, fmt.Errorf("schema definition has no root element")
	}
	return &Schema{root: file.Root}, nil
}

func mustLoad(path string) *Schema {
	data, err := schemaFS.ReadFile(path)
	if err != nil {
		panic(err)
	}
	s, err := Load(data)
	if err != nil {
		panic(err)
	}
	return s
}

var (
	dteOnce   sync.Once
	dteSchema *Schema

	aecOnce   sync.Once
	aecSchema *Schema
)

// DTE returns the process-wide schema for DTE documents. The schema is
// loaded on first use and never mutated.
func DTE() *Schema {
	dteOnce.Do(func() { dteSchema = mustLoad("schemas/dte.yaml") })
	return dteSchema
}

// AEC returns the process-wide schema for AEC assignment envelopes.
func AEC() *Schema {
	aecOnce.Do(func() { aecSchema = mustLoad("schemas/aec.yaml") })
	return aecSchema
}
