// Package docmapper builds a search.DocMapper from an index's
// doc_mapping source, the way the teacher's pkg/coordination/parser
// compiles a query against a known schema, generalized from the
// teacher's SQL-ish expression grammar down to the spec's narrower
// "is this field indexed" check. A DocMapper is built fresh per
// request from the index descriptor and is never cached across
// requests by the root.
package docmapper

import (
	"fmt"

	"github.com/quidditch/quidditch/pkg/search"
	"gopkg.in/yaml.v3"
)

// FieldMapping describes one indexed field in the schema.
type FieldMapping struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Indexed bool   `yaml:"indexed"`
}

// Schema is the compiled set of indexed fields.
type Schema struct {
	Fields []FieldMapping `yaml:"fields"`
}

// IsIndexed reports whether fieldName is a known, indexed field.
func (s Schema) IsIndexed(fieldName string) bool {
	for _, f := range s.Fields {
		if f.Name == fieldName && f.Indexed {
			return true
		}
	}
	return false
}

// DocMapper implements search.DocMapper over a YAML-compiled Schema.
type DocMapper struct {
	schema Schema
}

// Schema returns the compiled schema.
func (m *DocMapper) Schema() Schema {
	return m.schema
}

// ValidateQuery checks that every search field named by req is known
// and indexed. It does not attempt to parse req.Query itself — full
// query-language compilation belongs to the leaf/query-compiler
// collaborator, out of scope for the root.
func (m *DocMapper) ValidateQuery(req search.SearchRequest) error {
	for _, field := range req.SearchFields {
		if !m.schema.IsIndexed(field) {
			return fmt.Errorf("field %q is not indexed or unknown", field)
		}
	}
	return nil
}

// ValidateListTermsField checks that field is known and indexed.
func (m *DocMapper) ValidateListTermsField(field string) error {
	if !m.schema.IsIndexed(field) {
		return fmt.Errorf("field %q doesn't exist or isn't indexed", field)
	}
	return nil
}

// Serialize returns the DocMapper's deterministic, portable string
// form, transmitted to leaves alongside each leaf request.
func (m *DocMapper) Serialize() (string, error) {
	b, err := yaml.Marshal(m.schema)
	if err != nil {
		return "", fmt.Errorf("failed to serialize doc mapper: %w", err)
	}
	return string(b), nil
}

var _ search.DocMapper = (*DocMapper)(nil)

// Builder implements search.DocMapperBuilder, compiling a DocMapper
// from an index descriptor's doc_mapping source, which is YAML, the
// same format Quickwit itself uses for index configs.
type Builder struct{}

// NewBuilder returns a DocMapperBuilder backed by the YAML compiler.
func NewBuilder() Builder {
	return Builder{}
}

func (Builder) Build(desc search.IndexDescriptor) (search.DocMapper, error) {
	var schema Schema
	if err := yaml.Unmarshal([]byte(desc.DocMapping), &schema); err != nil {
		return nil, fmt.Errorf("failed to parse doc_mapping: %w", err)
	}
	return &DocMapper{schema: schema}, nil
}

var _ search.DocMapperBuilder = Builder{}
