package schema

import (
	"fmt"
	"strings"
)

// Value is a validated input narrowed to the declared fields of a schema
type Value map[string]any

// Violation is a single constraint failure keyed by its field path
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of validating one input. Exactly one of Value and
// Violations is set.
type Result struct {
	Schema     string
	Value      Value
	Violations []Violation
}

// OK reports whether the input satisfied every constraint
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Err returns a *ValidationError for a failed result and nil otherwise
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Schema: r.Schema, Violations: r.Violations}
}

// ValidationError carries all violations of a failed validation
type ValidationError struct {
	Schema     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Schema, strings.Join(parts, "; "))
}

// Fields returns the distinct violated field paths in report order
func (e *ValidationError) Fields() []string {
	seen := make(map[string]bool, len(e.Violations))
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if !seen[v.Field] {
			seen[v.Field] = true
			fields = append(fields, v.Field)
		}
	}
	return fields
}
