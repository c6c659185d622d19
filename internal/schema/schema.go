// Package schema declares named, immutable input schemas and validates raw
// request input against them.
//
// A Schema is an ordered set of Field constraints. Schemas are built once at
// process start, registered by name in a Registry and never modified after
// that; derived schemas (Partial) and composed schemas (Object fields) are new
// values. Validation is a pure function of the schema, the raw input and the
// input source, and reports every violation it finds in field-declaration
// order instead of stopping at the first.
package schema

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidSchema is returned when a schema declaration is malformed
var ErrInvalidSchema = errors.New("invalid schema")

// Schema is a named, ordered and immutable set of field constraints
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
}

// New builds a schema from an ordered field list. Field names must be unique
// and non-empty.
func New(name string, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: schema name cannot be empty", ErrInvalidSchema)
	}

	s := &Schema{
		name:   name,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.name == "" {
			return nil, fmt.Errorf("%w: schema %s has a field without a name", ErrInvalidSchema, name)
		}
		if _, dup := s.index[f.name]; dup {
			return nil, fmt.Errorf("%w: schema %s declares field %q twice", ErrInvalidSchema, name, f.name)
		}
		if f.kind == KindObject && f.object == nil {
			return nil, fmt.Errorf("%w: object field %q in schema %s has no schema", ErrInvalidSchema, f.name, name)
		}
		s.index[f.name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustNew is New for package-level declarations; it panics on error
func MustNew(name string, fields ...Field) *Schema {
	s, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name
func (s *Schema) Name() string { return s.name }

// Fields returns a copy of the ordered field list
func (s *Schema) Fields() []Field { return slices.Clone(s.fields) }

// Field looks up a field by name
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Len returns the number of declared fields
func (s *Schema) Len() int { return len(s.fields) }

// Partial derives a schema with the same fields in the same order, every
// top-level field optional and all other rules and defaults preserved.
// Nested object schemas are kept as they are.
func (s *Schema) Partial(name string) *Schema {
	p := &Schema{
		name:   name,
		fields: make([]Field, len(s.fields)),
		index:  make(map[string]int, len(s.index)),
	}
	for i, f := range s.fields {
		f.required = false
		p.fields[i] = f
		p.index[f.name] = i
	}
	return p
}
