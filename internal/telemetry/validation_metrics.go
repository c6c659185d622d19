package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome attribute values
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
)

// ValidationMetrics counts gate decisions per schema and source
type ValidationMetrics struct {
	requests   metric.Int64Counter
	violations metric.Int64Histogram
	duration   metric.Float64Histogram
}

// NewValidationMetrics creates the validation instruments on meter
func NewValidationMetrics(meter metric.Meter) (*ValidationMetrics, error) {
	mb := newMetricBuilder(meter)
	m := &ValidationMetrics{
		requests: mb.Int64Counter(
			"storefront.validation.requests",
			"Validation gate decisions",
			"{request}",
		),
		violations: mb.Int64Histogram(
			"storefront.validation.violations",
			"Violations reported per rejected input",
			"{violation}",
			[]float64{1, 2, 3, 5, 8, 13},
		),
		duration: mb.Float64Histogram(
			"storefront.validation.duration",
			"Time spent validating one input",
			"s",
			[]float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		),
	}
	if err := mb.Error(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordValidation records one gate decision
func (m *ValidationMetrics) RecordValidation(ctx context.Context, schemaName, source string, violations int, elapsed time.Duration) {
	outcome := OutcomeValid
	if violations > 0 {
		outcome = OutcomeInvalid
	}

	attrs := metric.WithAttributes(
		attribute.String("schema", schemaName),
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if violations > 0 {
		m.violations.Record(ctx, int64(violations), metric.WithAttributes(
			attribute.String("schema", schemaName),
			attribute.String("source", source),
		))
	}
}
