package schema

import (
	"regexp"
	"slices"
)

// Kind is the primitive type a field value must have after coercion
type Kind int

const (
	// KindString accepts string values
	KindString Kind = iota
	// KindNumber accepts numeric values (integral or not)
	KindNumber
	// KindBoolean accepts true/false
	KindBoolean
	// KindDate accepts RFC 3339 timestamps and time.Time values
	KindDate
	// KindArray accepts lists whose elements match an element field
	KindArray
	// KindObject accepts nested objects described by an embedded schema
	KindObject
)

// String returns the lowercase name used in violation messages
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

type ruleKind int

const (
	ruleMin ruleKind = iota
	ruleMax
	rulePositive
	ruleInteger
	rulePattern
	ruleOneOf
	ruleEmail
	ruleURL
)

// rule is a single declared validator. The bound n is a length for strings,
// an item count for arrays and a numeric bound for numbers.
type rule struct {
	kind    ruleKind
	n       float64
	pattern *regexp.Regexp
	values  []string
	message string
}

// Field is the constraint set for one named input field. Fields are values:
// every builder method returns a modified copy and never mutates the receiver.
type Field struct {
	name     string
	kind     Kind
	required bool
	def      any
	hasDef   bool
	rules    []rule
	elem     *Field
	object   *Schema
}

// String declares a required string field
func String(name string) Field {
	return Field{name: name, kind: KindString, required: true}
}

// Number declares a required numeric field
func Number(name string) Field {
	return Field{name: name, kind: KindNumber, required: true}
}

// MaxSafeInteger is the largest integer a float64 holds exactly (2^53-1).
// Int fields reject larger magnitudes.
const MaxSafeInteger = 1<<53 - 1

// Int declares a required numeric field that must be integral
func Int(name string) Field {
	return Number(name).withRule(rule{kind: ruleInteger})
}

// Boolean declares a required boolean field
func Boolean(name string) Field {
	return Field{name: name, kind: KindBoolean, required: true}
}

// Date declares a required timestamp field
func Date(name string) Field {
	return Field{name: name, kind: KindDate, required: true}
}

// Enum declares a required string field restricted to the given values
func Enum(name string, values ...string) Field {
	return String(name).OneOf(values...)
}

// Array declares a required list field whose elements must satisfy elem.
// The element's name is ignored; element paths are reported by index.
func Array(name string, elem Field) Field {
	elem.name = ""
	elem.required = true
	return Field{name: name, kind: KindArray, required: true, elem: &elem}
}

// Object declares a required nested object field validated by sub
func Object(name string, sub *Schema) Field {
	return Field{name: name, kind: KindObject, required: true, object: sub}
}

// Optional clears the required flag
func (f Field) Optional() Field {
	f.required = false
	return f
}

// Default sets the value used when the field is absent. A field with a
// default is optional.
func (f Field) Default(v any) Field {
	f.def = v
	f.hasDef = true
	f.required = false
	return f
}

// Min sets an inclusive lower bound: minimum length for strings, minimum
// item count for arrays, minimum value for numbers.
func (f Field) Min(n float64) Field {
	return f.withRule(rule{kind: ruleMin, n: n})
}

// Max sets an inclusive upper bound with the same meaning per kind as Min
func (f Field) Max(n float64) Field {
	return f.withRule(rule{kind: ruleMax, n: n})
}

// Positive requires a number strictly greater than zero
func (f Field) Positive() Field {
	return f.withRule(rule{kind: rulePositive})
}

// Pattern requires a string to match expr. It panics on an invalid
// expression since schemas are declared at process start.
func (f Field) Pattern(expr, message string) Field {
	return f.withRule(rule{kind: rulePattern, pattern: regexp.MustCompile(expr), message: message})
}

// OneOf restricts a string to the given values
func (f Field) OneOf(values ...string) Field {
	return f.withRule(rule{kind: ruleOneOf, values: slices.Clone(values)})
}

// Email requires a string to be a well-formed email address
func (f Field) Email() Field {
	return f.withRule(rule{kind: ruleEmail})
}

// URL requires a string to be an absolute URL
func (f Field) URL() Field {
	return f.withRule(rule{kind: ruleURL})
}

// Message replaces the message of the most recently added rule
func (f Field) Message(msg string) Field {
	if len(f.rules) == 0 {
		return f
	}
	f.rules = slices.Clone(f.rules)
	f.rules[len(f.rules)-1].message = msg
	return f
}

func (f Field) withRule(r rule) Field {
	f.rules = append(slices.Clone(f.rules), r)
	return f
}

// Name returns the field name
func (f Field) Name() string { return f.name }

// Kind returns the declared primitive type
func (f Field) Kind() Kind { return f.kind }

// Required reports whether the field must be present
func (f Field) Required() bool { return f.required }

// DefaultValue returns the default applied when the field is absent
func (f Field) DefaultValue() (any, bool) { return f.def, f.hasDef }

// Elem returns the element constraint of an array field
func (f Field) Elem() (Field, bool) {
	if f.elem == nil {
		return Field{}, false
	}
	return *f.elem, true
}

// Schema returns the embedded schema of an object field
func (f Field) Schema() *Schema { return f.object }
