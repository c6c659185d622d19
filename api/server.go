package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericfitz/storefront/internal/catalog"
	"github.com/ericfitz/storefront/internal/identity"
	"github.com/ericfitz/storefront/internal/models"
	"github.com/ericfitz/storefront/internal/schema"
	"github.com/ericfitz/storefront/internal/slogging"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	Registry *schema.Registry

	// Credentials enables bearer authentication and the token endpoints.
	// With AuthRequired unset, anonymous callers may still use /v1.
	Credentials  identity.Credentials
	AuthRequired bool

	// Recorder observes gate decisions; nil discards them
	Recorder ValidationRecorder

	// Tracing is installed ahead of the logger when set
	Tracing gin.HandlerFunc
	// MetricsHandler is served at /metrics when set
	MetricsHandler http.Handler

	MaxBodyBytes   int64
	RequestTimeout time.Duration
	TrustedProxies []string
}

// NewRouter builds the gin engine for the validation service
func NewRouter(opts RouterOptions) (*gin.Engine, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("router requires a schema registry")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	if opts.Tracing != nil {
		r.Use(opts.Tracing)
	}
	r.Use(slogging.LoggerMiddleware())
	r.Use(slogging.Recoverer())
	r.Use(CORS())
	r.Use(ContextTimeout(opts.RequestTimeout))
	r.Use(DuplicateHeaderValidationMiddleware())
	r.Use(MaxBodySize(opts.MaxBodyBytes))
	r.Use(UnicodeNormalizationMiddleware())

	gate := NewGate(opts.Registry, opts.Recorder)
	h := NewHandlers(opts.Registry, gate, opts.Credentials)

	r.GET("/health", h.GetHealth)
	if opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	v1 := r.Group("/v1")
	if opts.Credentials != nil {
		v1.Use(identity.Authenticate(opts.Credentials, opts.AuthRequired))
	}

	v1.GET("/schemas", gate.Query(catalog.Pagination), h.ListSchemas)
	v1.GET("/schemas/:schema", h.GetSchema)
	v1.POST("/validate/:schema", h.ValidateBody)
	v1.GET("/validate/:schema", h.ValidateQuery)

	if opts.Credentials != nil {
		// refresh must work with an expired access token, so it sits outside
		// the authenticated group
		r.POST("/v1/auth/refresh", gate.Body(catalog.RefreshToken), h.RefreshTokens)
		v1.GET("/me", h.GetMe)
		v1.POST("/products",
			RequireRole(models.RoleAdmin),
			gate.Body(catalog.CreateProduct),
			h.PreviewProductCreate,
		)
		v1.PATCH("/products/:productId",
			RequireRole(models.RoleAdmin),
			gate.Params(catalog.ProductIDParam),
			gate.Body(catalog.UpdateProduct),
			h.PreviewProductUpdate,
		)
	}

	return r, nil
}
