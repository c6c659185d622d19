package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ericfitz/storefront/internal/identity"
	"github.com/ericfitz/storefront/internal/models"
	"github.com/ericfitz/storefront/internal/schema"
	"github.com/ericfitz/storefront/internal/slogging"
)

// Handlers serves the schema catalog and the dynamic validation endpoints
type Handlers struct {
	registry    *schema.Registry
	gate        *Gate
	credentials identity.Credentials
}

// NewHandlers creates handlers over reg. credentials may be nil when token
// endpoints are not served.
func NewHandlers(reg *schema.Registry, gate *Gate, credentials identity.Credentials) *Handlers {
	return &Handlers{registry: reg, gate: gate, credentials: credentials}
}

// GetHealth reports liveness and the loaded schema count
func (h *Handlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": GetVersionString(),
		"schemas": len(h.registry.Names()),
	})
}

const maxSchemaPageSize = 100

// ListSchemas returns one page of registered schema names in sorted order.
// The query has already passed the pagination gate.
func (h *Handlers) ListSchemas(c *gin.Context) {
	q, err := Bind[models.PaginationQuery](c, schema.SourceQuery)
	if err != nil {
		HandleRequestError(c, err)
		return
	}
	offset, limit := q.Bounds(maxSchemaPageSize)

	names := h.registry.Names()
	total := len(names)
	start := min(offset, total)
	end := min(start+limit, total)

	c.JSON(http.StatusOK, gin.H{
		"schemas": names[start:end],
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}

// GetSchema renders one schema as an OpenAPI 3 schema object
func (h *Handlers) GetSchema(c *gin.Context) {
	s, err := h.registry.Lookup(c.Param("schema"))
	if err != nil {
		HandleRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":   s.Name(),
		"schema": s.OpenAPI(),
	})
}

// ValidateBody runs the named schema over the JSON body
func (h *Handlers) ValidateBody(c *gin.Context) {
	s, err := h.registry.Lookup(c.Param("schema"))
	if err != nil {
		HandleRequestError(c, err)
		return
	}
	input, err := readJSONObject(c)
	if err != nil {
		HandleRequestError(c, err)
		return
	}
	h.respondValidated(c, s, schema.SourceBody, input)
}

// ValidateQuery runs the named schema over the query string, coercing values
func (h *Handlers) ValidateQuery(c *gin.Context) {
	s, err := h.registry.Lookup(c.Param("schema"))
	if err != nil {
		HandleRequestError(c, err)
		return
	}
	h.respondValidated(c, s, schema.SourceQuery, queryInput(c))
}

func (h *Handlers) respondValidated(c *gin.Context, s *schema.Schema, source schema.Source, input map[string]any) {
	value, ok := h.gate.Check(c, s, source, input)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"schema": s.Name(),
		"source": source.String(),
		"data":   value,
	})
}

// RefreshTokens exchanges a refresh token for a new token pair. The body has
// already passed the refreshToken gate.
func (h *Handlers) RefreshTokens(c *gin.Context) {
	req, err := Bind[models.RefreshTokenRequest](c, schema.SourceBody)
	if err != nil {
		HandleRequestError(c, err)
		return
	}

	id, err := h.credentials.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		slogging.FromGin(c).Warn("Refresh rejected: %v", err)
		HandleRequestError(c, UnauthorizedError("Invalid or expired refresh token"))
		return
	}

	pair, err := h.credentials.IssueTokens(id.UserID, id.Role)
	if err != nil {
		HandleRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// PreviewProductCreate renders the document a validated createProduct body
// would produce. Nothing is stored; the id is freshly generated.
func (h *Handlers) PreviewProductCreate(c *gin.Context) {
	req, err := Bind[models.CreateProductRequest](c, schema.SourceBody)
	if err != nil {
		HandleRequestError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"preview": models.NewDocument(req.Product()),
	})
}

// PreviewProductUpdate applies a validated partial update to an empty
// product and echoes the result, so admins can check a change before it is
// submitted to the catalogue.
func (h *Handlers) PreviewProductUpdate(c *gin.Context) {
	params, err := Bind[models.ProductIDParams](c, schema.SourcePath)
	if err != nil {
		HandleRequestError(c, err)
		return
	}
	update, err := Bind[models.UpdateProductRequest](c, schema.SourceBody)
	if err != nil {
		HandleRequestError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"productId": params.ProductID,
		"changes":   update,
		"preview":   models.Document[models.Product]{ID: params.ProductID}.Touch(update.Apply(models.Product{})),
	})
}

// GetMe returns the authenticated identity
func (h *Handlers) GetMe(c *gin.Context) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		HandleRequestError(c, UnauthorizedError("Authentication required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": id.UserID,
		"role":    id.Role,
		"admin":   id.IsAdmin(),
	})
}
