// Package telemetry wires OpenTelemetry metrics and tracing for the storefront
// server. Metrics are scraped through a Prometheus handler; traces optionally go
// to a console exporter.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Service manages OpenTelemetry providers and configuration
type Service struct {
	config *Config

	resource *resource.Resource

	registry       *promclient.Registry
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// NewService creates a new telemetry service
func NewService(config *Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	service := &Service{config: config}

	if err := service.initResource(); err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}

	if config.ConsoleTracing {
		if err := service.initTracing(); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if config.MetricsEnabled {
		if err := service.initMetrics(); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return service, nil
}

// initResource creates the OpenTelemetry resource
func (s *Service) initResource() error {
	attrMap := s.config.GetResourceAttributes()
	keys := make([]string, 0, len(attrMap))
	for k := range attrMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, attrMap[k]))
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(resource.Default().SchemaURL(), attrs...),
	)
	if err != nil {
		return fmt.Errorf("failed to merge with default resource: %w", err)
	}

	s.resource = res
	return nil
}

// initTracing exports spans synchronously to the console writer
func (s *Service) initTracing() error {
	writer := s.config.TraceWriter
	if writer == nil {
		writer = os.Stdout
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(writer)}
	if s.config.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create console trace exporter: %w", err)
	}

	s.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(s.resource),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSyncer(exporter),
	)
	return nil
}

// initMetrics registers the Prometheus exporter on a dedicated registry so
// the scrape output only carries this service's instruments
func (s *Service) initMetrics() error {
	s.registry = promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(s.registry))
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	s.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(s.resource),
		sdkmetric.WithReader(exporter),
	)
	return nil
}

// MeterProvider returns the SDK meter provider, or a no-op provider when
// metrics are disabled
func (s *Service) MeterProvider() metric.MeterProvider {
	if s.meterProvider == nil {
		return metricnoop.NewMeterProvider()
	}
	return s.meterProvider
}

// TracerProvider returns the SDK tracer provider, or a no-op provider when
// tracing is disabled
func (s *Service) TracerProvider() trace.TracerProvider {
	if s.tracerProvider == nil {
		return tracenoop.NewTracerProvider()
	}
	return s.tracerProvider
}

// Meter returns the service meter
func (s *Service) Meter() metric.Meter {
	return s.MeterProvider().Meter(
		s.config.ServiceName,
		metric.WithInstrumentationVersion(s.config.ServiceVersion),
	)
}

// MetricsHandler serves the Prometheus exposition format. It returns nil when
// metrics are disabled.
func (s *Service) MetricsHandler() http.Handler {
	if s.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops all providers
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error

	if s.tracerProvider != nil {
		if err := s.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}

	if s.meterProvider != nil {
		if err := s.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	return errors.Join(errs...)
}

// HealthStatus represents the health status of the telemetry service
type HealthStatus struct {
	Healthy bool           `json:"healthy"`
	Details map[string]any `json:"details"`
}

// Health reports which providers are active
func (s *Service) Health() HealthStatus {
	return HealthStatus{
		Healthy: true,
		Details: map[string]any{
			"service_name":    s.config.ServiceName,
			"service_version": s.config.ServiceVersion,
			"metrics_enabled": s.meterProvider != nil,
			"tracing_enabled": s.tracerProvider != nil,
		},
	}
}
