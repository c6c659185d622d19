package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrSchemaNotFound is returned when a schema name has not been registered
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrSchemaConflict is returned when a schema name is registered twice
	ErrSchemaConflict = errors.New("schema already defined")
)

// Registry holds schemas by name. Definitions normally happen once at startup;
// lookups are safe from any number of goroutines.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*Schema),
	}
}

// Define builds a schema from fields and registers it under name
func (r *Registry) Define(name string, fields ...Field) (*Schema, error) {
	s, err := New(name, fields...)
	if err != nil {
		return nil, err
	}
	if err := r.Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Register adds an already built schema. Registering a second schema under an
// existing name fails with ErrSchemaConflict and leaves the first in place.
func (r *Registry) Register(s *Schema) error {
	if s == nil {
		return fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[s.name]; exists {
		return fmt.Errorf("%w: %s", ErrSchemaConflict, s.name)
	}
	r.schemas[s.name] = s
	return nil
}

// MustRegister is Register that panics on error
func (r *Registry) MustRegister(s *Schema) *Schema {
	if err := r.Register(s); err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the schema registered under name
func (r *Registry) Lookup(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}
	return s, nil
}

// Names returns the registered schema names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate looks up a schema and runs the validation gate on input. The error
// is only set when the schema does not exist; malformed input is reported
// through the returned Result.
func (r *Registry) Validate(name string, input map[string]any, source Source) (Result, error) {
	s, err := r.Lookup(name)
	if err != nil {
		return Result{}, err
	}
	return Validate(s, input, source), nil
}
