package telemetry

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// untracedPaths are probe and scrape endpoints
var untracedPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Middleware returns otelgin instrumentation bound to this service's providers
func (s *Service) Middleware() gin.HandlerFunc {
	return otelgin.Middleware(s.config.ServiceName,
		otelgin.WithTracerProvider(s.TracerProvider()),
		otelgin.WithMeterProvider(s.MeterProvider()),
		otelgin.WithFilter(func(r *http.Request) bool {
			return !untracedPaths[r.URL.Path]
		}),
	)
}
