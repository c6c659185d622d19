package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Source identifies where a raw input came from. Query string and path
// values always arrive as strings and are coerced to the declared kind;
// body values must already have the declared kind.
type Source int

const (
	// SourceBody is a decoded JSON request body
	SourceBody Source = iota
	// SourceQuery is a parsed query string
	SourceQuery
	// SourcePath is the set of route path parameters
	SourcePath
)

// String returns the source name used in logs and metrics
func (s Source) String() string {
	switch s {
	case SourceBody:
		return "body"
	case SourceQuery:
		return "query"
	case SourcePath:
		return "path"
	default:
		return "unknown"
	}
}

func (s Source) coerces() bool {
	return s == SourceQuery || s == SourcePath
}

// Validate checks input against every field of s. On success the result value
// holds exactly the declared fields that were present or defaulted, with
// unknown keys dropped. On failure it holds every violation in field
// declaration order. Validate has no side effects and never panics on
// malformed input.
func Validate(s *Schema, input map[string]any, source Source) Result {
	var violations []Violation
	value := s.validate("", input, source, &violations)
	if len(violations) > 0 {
		return Result{Schema: s.name, Violations: violations}
	}
	return Result{Schema: s.name, Value: value}
}

func (s *Schema) validate(prefix string, input map[string]any, source Source, out *[]Violation) Value {
	value := make(Value, len(s.fields))
	for _, f := range s.fields {
		path := joinPath(prefix, f.name)

		raw, present := input[f.name]
		if present && source.coerces() {
			if list, ok := raw.([]string); ok && len(list) == 0 {
				present = false
			}
		}

		if !present {
			if f.hasDef {
				value[f.name] = f.def
			} else if f.required {
				*out = append(*out, Violation{Field: path, Message: "required"})
			}
			continue
		}

		if v, ok := f.check(path, raw, source, out); ok {
			value[f.name] = v
		}
	}
	return value
}

// check coerces raw to the field kind and applies every rule, appending all
// violations found. The returned value is only meaningful when ok is true.
func (f Field) check(path string, raw any, source Source, out *[]Violation) (any, bool) {
	v, ok := f.coerce(raw, source)
	if !ok {
		*out = append(*out, Violation{Field: path, Message: typeMessage(f.kind, raw)})
		return nil, false
	}

	before := len(*out)
	switch f.kind {
	case KindString:
		f.checkString(path, v.(string), out)
	case KindNumber:
		f.checkNumber(path, v.(float64), out)
	case KindArray:
		v = f.checkArray(path, v.([]any), source, out)
	case KindObject:
		v = f.object.validate(path, v.(map[string]any), source, out)
	}
	return v, len(*out) == before
}

func (f Field) coerce(raw any, source Source) (any, bool) {
	if source.coerces() && f.kind != KindArray {
		if list, ok := raw.([]string); ok && len(list) > 0 {
			raw = list[0]
		}
	}

	switch f.kind {
	case KindString:
		s, ok := raw.(string)
		return s, ok
	case KindNumber:
		if n, ok := toFloat(raw); ok {
			return n, true
		}
		if s, ok := raw.(string); ok && source.coerces() {
			n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
				return n, true
			}
		}
		return nil, false
	case KindBoolean:
		if b, ok := raw.(bool); ok {
			return b, true
		}
		if s, ok := raw.(string); ok && source.coerces() {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "1":
				return true, true
			case "false", "0":
				return false, true
			}
		}
		return nil, false
	case KindDate:
		switch t := raw.(type) {
		case time.Time:
			return t, true
		case string:
			if parsed, err := time.Parse(time.RFC3339, t); err == nil {
				return parsed, true
			}
		}
		return nil, false
	case KindArray:
		return toList(raw, source)
	case KindObject:
		m, ok := raw.(map[string]any)
		return m, ok
	}
	return nil, false
}

func (f Field) checkString(path, s string, out *[]Violation) {
	length := utf8.RuneCountInString(s)
	for _, r := range f.rules {
		switch r.kind {
		case ruleMin:
			if float64(length) < r.n {
				*out = append(*out, Violation{Field: path, Message: r.or(fmt.Sprintf("must be at least %s", countOf(r.n, "character")))})
			}
		case ruleMax:
			if float64(length) > r.n {
				*out = append(*out, Violation{Field: path, Message: r.or(fmt.Sprintf("must be at most %s", countOf(r.n, "character")))})
			}
		case rulePattern:
			if !r.pattern.MatchString(s) {
				*out = append(*out, Violation{Field: path, Message: r.or("invalid format")})
			}
		case ruleOneOf:
			if !slices.Contains(r.values, s) {
				*out = append(*out, Violation{Field: path, Message: r.or("must be one of: " + strings.Join(r.values, ", "))})
			}
		case ruleEmail:
			if !isEmail(s) {
				*out = append(*out, Violation{Field: path, Message: r.or("invalid email address")})
			}
		case ruleURL:
			if !isURL(s) {
				*out = append(*out, Violation{Field: path, Message: r.or("invalid URL")})
			}
		}
	}
}

func (f Field) checkNumber(path string, n float64, out *[]Violation) {
	for _, r := range f.rules {
		switch r.kind {
		case ruleInteger:
			if n != math.Trunc(n) {
				*out = append(*out, Violation{Field: path, Message: r.or("must be an integer")})
			} else if math.Abs(n) > MaxSafeInteger {
				*out = append(*out, Violation{Field: path, Message: r.or("must be a safe integer")})
			}
		case rulePositive:
			if n <= 0 {
				*out = append(*out, Violation{Field: path, Message: r.or("must be greater than 0")})
			}
		case ruleMin:
			if n < r.n {
				*out = append(*out, Violation{Field: path, Message: r.or("must be at least " + formatNumber(r.n))})
			}
		case ruleMax:
			if n > r.n {
				*out = append(*out, Violation{Field: path, Message: r.or("must be at most " + formatNumber(r.n))})
			}
		}
	}
}

func (f Field) checkArray(path string, items []any, source Source, out *[]Violation) []any {
	for _, r := range f.rules {
		switch r.kind {
		case ruleMin:
			if float64(len(items)) < r.n {
				*out = append(*out, Violation{Field: path, Message: r.or(fmt.Sprintf("must contain at least %s", countOf(r.n, "item")))})
			}
		case ruleMax:
			if float64(len(items)) > r.n {
				*out = append(*out, Violation{Field: path, Message: r.or(fmt.Sprintf("must contain at most %s", countOf(r.n, "item")))})
			}
		}
	}

	result := make([]any, 0, len(items))
	for i, item := range items {
		if v, ok := f.elem.check(path+"."+strconv.Itoa(i), item, source, out); ok {
			result = append(result, v)
		}
	}
	return result
}

func (r rule) or(fallback string) string {
	if r.message != "" {
		return r.message
	}
	return fallback
}

func toFloat(raw any) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int8:
		n = float64(v)
	case int16:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint:
		n = float64(v)
	case uint8:
		n = float64(v)
	case uint16:
		n = float64(v)
	case uint32:
		n = float64(v)
	case uint64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toList(raw any, source Source) ([]any, bool) {
	switch l := raw.(type) {
	case []any:
		return l, true
	case []string:
		items := make([]any, len(l))
		for i, s := range l {
			items[i] = s
		}
		return items, true
	case string:
		if source.coerces() {
			return []any{l}, true
		}
		return nil, false
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// typeMessage describes a value that could not be coerced to kind
func typeMessage(kind Kind, raw any) string {
	if s, ok := raw.(string); ok && kind == KindDate {
		if s == "" {
			return "expected date, received empty string"
		}
		return "invalid date, expected an RFC 3339 timestamp"
	}
	return fmt.Sprintf("expected %s, received %s", kind, describe(raw))
}

func describe(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case string, []string:
		return "string"
	case bool:
		return "boolean"
	case time.Time:
		return "date"
	case map[string]any:
		return "object"
	case json.Number:
		return "number"
	}
	if _, ok := toFloat(raw); ok {
		return "number"
	}
	switch reflect.ValueOf(raw).Kind() {
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	}
	return fmt.Sprintf("%T", raw)
}

func countOf(n float64, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return formatNumber(n) + " " + noun + "s"
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
