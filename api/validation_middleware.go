package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericfitz/storefront/internal/models"
	"github.com/ericfitz/storefront/internal/schema"
	"github.com/ericfitz/storefront/internal/slogging"
)

// Context keys for validated values
const (
	ValidatedBodyKey   = "validatedBody"
	ValidatedQueryKey  = "validatedQuery"
	ValidatedParamsKey = "validatedParams"
)

// ValidationRecorder observes every gate decision
type ValidationRecorder interface {
	RecordValidation(ctx context.Context, schemaName, source string, violations int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordValidation(context.Context, string, string, int, time.Duration) {}

// Gate runs registered schemas against request bodies, query strings and
// path parameters
type Gate struct {
	registry *schema.Registry
	recorder ValidationRecorder
}

// NewGate returns a gate over reg. A nil recorder discards observations.
func NewGate(reg *schema.Registry, recorder ValidationRecorder) *Gate {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Gate{registry: reg, recorder: recorder}
}

// ValidateBody validates the JSON body against the named schema
func ValidateBody(reg *schema.Registry, name string) gin.HandlerFunc {
	return NewGate(reg, nil).Body(name)
}

// ValidateQuery validates the query string against the named schema
func ValidateQuery(reg *schema.Registry, name string) gin.HandlerFunc {
	return NewGate(reg, nil).Query(name)
}

// ValidateParams validates the route parameters against the named schema
func ValidateParams(reg *schema.Registry, name string) gin.HandlerFunc {
	return NewGate(reg, nil).Params(name)
}

// Body returns middleware validating the JSON body. The schema is resolved
// now, so an unknown name panics while routes are being built.
func (g *Gate) Body(name string) gin.HandlerFunc {
	s := g.mustLookup(name)
	return func(c *gin.Context) {
		input, err := readJSONObject(c)
		if err != nil {
			HandleRequestError(c, err)
			return
		}
		g.gate(c, s, schema.SourceBody, input, ValidatedBodyKey)
	}
}

// Query returns middleware validating the query string
func (g *Gate) Query(name string) gin.HandlerFunc {
	s := g.mustLookup(name)
	return func(c *gin.Context) {
		g.gate(c, s, schema.SourceQuery, queryInput(c), ValidatedQueryKey)
	}
}

// Params returns middleware validating the route parameters
func (g *Gate) Params(name string) gin.HandlerFunc {
	s := g.mustLookup(name)
	return func(c *gin.Context) {
		g.gate(c, s, schema.SourcePath, paramsInput(c), ValidatedParamsKey)
	}
}

func (g *Gate) mustLookup(name string) *schema.Schema {
	s, err := g.registry.Lookup(name)
	if err != nil {
		panic(fmt.Sprintf("validation middleware: %v", err))
	}
	return s
}

// gate stores the narrowed value under key and continues, or aborts with
// the validation failure
func (g *Gate) gate(c *gin.Context, s *schema.Schema, source schema.Source, input map[string]any, key string) {
	value, ok := g.Check(c, s, source, input)
	if !ok {
		return
	}
	c.Set(key, value)
	c.Next()
}

// Check validates input and records the decision. On failure the 400
// response has already been written and ok is false.
func (g *Gate) Check(c *gin.Context, s *schema.Schema, source schema.Source, input map[string]any) (schema.Value, bool) {
	start := time.Now()
	result := schema.Validate(s, input, source)
	g.recorder.RecordValidation(c.Request.Context(), s.Name(), source.String(), len(result.Violations), time.Since(start))

	logger := slogging.FromGin(c)
	if !result.OK() {
		var verr *schema.ValidationError
		if errors.As(result.Err(), &verr) {
			logger.DebugCtx("Validation failed",
				slog.String("schema", s.Name()),
				slog.String("source", source.String()),
				slog.Any("fields", verr.Fields()),
			)
		}
		HandleRequestError(c, result.Err())
		return nil, false
	}

	logger.DebugCtx("Validation passed",
		slog.String("schema", s.Name()),
		slog.String("source", source.String()),
	)
	return result.Value, true
}

// readJSONObject decodes the body as one JSON object. An empty body is an
// empty object so required fields are reported individually. The body is
// restored for later readers.
func readJSONObject(c *gin.Context) (map[string]any, error) {
	if c.Request.Body == nil {
		return map[string]any{}, nil
	}
	data, err := io.ReadAll(c.Request.Body)
	_ = c.Request.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &RequestError{
				Status:  http.StatusRequestEntityTooLarge,
				Code:    "request_too_large",
				Message: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
			}
		}
		return nil, InvalidInputError("Failed to read request body")
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(data))

	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, InvalidInputError(fmt.Sprintf("Invalid JSON syntax at position %d", syntaxErr.Offset))
		}
		return nil, InvalidInputError("Invalid JSON body")
	}
	if decoder.More() {
		return nil, InvalidInputError("Request body must contain a single JSON object")
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, InvalidInputError("Request body must be a JSON object")
	}
	return obj, nil
}

// queryInput keeps repeated keys as lists and single keys as strings
func queryInput(c *gin.Context) map[string]any {
	query := c.Request.URL.Query()
	input := make(map[string]any, len(query))
	for key, values := range query {
		if len(values) == 1 {
			input[key] = values[0]
			continue
		}
		input[key] = values
	}
	return input
}

func paramsInput(c *gin.Context) map[string]any {
	input := make(map[string]any, len(c.Params))
	for _, p := range c.Params {
		input[p.Key] = p.Value
	}
	return input
}

// ValidatedBody returns the value stored by a body gate
func ValidatedBody(c *gin.Context) (schema.Value, bool) {
	return validated(c, ValidatedBodyKey)
}

// ValidatedQuery returns the value stored by a query gate
func ValidatedQuery(c *gin.Context) (schema.Value, bool) {
	return validated(c, ValidatedQueryKey)
}

// ValidatedParams returns the value stored by a params gate
func ValidatedParams(c *gin.Context) (schema.Value, bool) {
	return validated(c, ValidatedParamsKey)
}

func validated(c *gin.Context, key string) (schema.Value, bool) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	value, ok := v.(schema.Value)
	return value, ok
}

// Bind decodes the validated value of source into a typed request
func Bind[T any](c *gin.Context, source schema.Source) (T, error) {
	var zero T

	var key string
	switch source {
	case schema.SourceBody:
		key = ValidatedBodyKey
	case schema.SourceQuery:
		key = ValidatedQueryKey
	case schema.SourcePath:
		key = ValidatedParamsKey
	default:
		return zero, ServerError(fmt.Sprintf("unknown validation source %s", source))
	}

	value, ok := validated(c, key)
	if !ok {
		return zero, ServerError(fmt.Sprintf("no validated %s value on request", source))
	}
	out, err := models.Decode[T](value)
	if err != nil {
		slogging.FromGin(c).Error("Binding validated %s value failed: %v", source, err)
		return zero, ServerError("Failed to process validated request")
	}
	return out, nil
}
