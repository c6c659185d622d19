package telemetry

import (
	"fmt"
	"io"
)

// Config holds configuration options for OpenTelemetry
type Config struct {
	ServiceName    string
	ServiceVersion string

	// MetricsEnabled exposes a Prometheus scrape handler backed by the SDK meter provider
	MetricsEnabled bool

	// ConsoleTracing writes spans to TraceWriter (stdout when nil)
	ConsoleTracing bool
	TraceWriter    io.Writer
	PrettyPrint    bool

	// ResourceAttributes are added to the service resource
	ResourceAttributes map[string]string
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	return nil
}

// GetResourceAttributes returns the resource attributes including service identity
func (c *Config) GetResourceAttributes() map[string]string {
	attrs := make(map[string]string, len(c.ResourceAttributes)+2)
	for k, v := range c.ResourceAttributes {
		attrs[k] = v
	}
	attrs["service.name"] = c.ServiceName
	if c.ServiceVersion != "" {
		attrs["service.version"] = c.ServiceVersion
	}
	return attrs
}
