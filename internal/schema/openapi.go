package schema

import "github.com/getkin/kin-openapi/openapi3"

// OpenAPI renders the schema as an OpenAPI 3 object schema. Unknown
// properties stay allowed because the gate drops them instead of rejecting.
func (s *Schema) OpenAPI() *openapi3.Schema {
	obj := openapi3.NewObjectSchema()
	obj.Title = s.name

	required := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		obj.WithProperty(f.name, f.openAPI())
		if f.required {
			required = append(required, f.name)
		}
	}
	if len(required) > 0 {
		obj.WithRequired(required)
	}
	return obj
}

func (f Field) openAPI() *openapi3.Schema {
	var s *openapi3.Schema
	switch f.kind {
	case KindString:
		s = openapi3.NewStringSchema()
	case KindNumber:
		if f.hasRule(ruleInteger) {
			s = openapi3.NewIntegerSchema()
		} else {
			s = openapi3.NewFloat64Schema()
		}
	case KindBoolean:
		s = openapi3.NewBoolSchema()
	case KindDate:
		s = openapi3.NewDateTimeSchema()
	case KindArray:
		s = openapi3.NewArraySchema().WithItems(f.elem.openAPI())
	case KindObject:
		s = f.object.OpenAPI()
	default:
		s = openapi3.NewSchema()
	}

	for _, r := range f.rules {
		switch r.kind {
		case ruleMin:
			switch f.kind {
			case KindString:
				s.WithMinLength(int64(r.n))
			case KindArray:
				s.WithMinItems(int64(r.n))
			default:
				s.WithMin(r.n)
			}
		case ruleMax:
			switch f.kind {
			case KindString:
				s.WithMaxLength(int64(r.n))
			case KindArray:
				s.WithMaxItems(int64(r.n))
			default:
				s.WithMax(r.n)
			}
		case rulePositive:
			s.WithMin(0).WithExclusiveMin(true)
		case rulePattern:
			s.WithPattern(r.pattern.String())
		case ruleOneOf:
			values := make([]any, len(r.values))
			for i, v := range r.values {
				values[i] = v
			}
			s.WithEnum(values...)
		case ruleEmail:
			s.WithFormat("email")
		case ruleURL:
			s.WithFormat("uri")
		}
	}

	if f.hasDef {
		s.WithDefault(f.def)
	}
	return s
}

func (f Field) hasRule(kind ruleKind) bool {
	for _, r := range f.rules {
		if r.kind == kind {
			return true
		}
	}
	return false
}
