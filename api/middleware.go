package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericfitz/storefront/internal/identity"
	"github.com/ericfitz/storefront/internal/models"
	"github.com/ericfitz/storefront/internal/slogging"
)

// CORS middleware to handle Cross-Origin Resource Sharing
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, Accept, Origin, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", slogging.RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ContextTimeout adds a timeout to the request context
func ContextTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// MaxBodySize caps how much of a request body handlers may read
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			HandleRequestError(c, &RequestError{
				Status:  http.StatusRequestEntityTooLarge,
				Code:    "request_too_large",
				Message: fmt.Sprintf("Request body exceeds %d bytes", limit),
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// DuplicateHeaderValidationMiddleware rejects requests carrying more than one
// Authorization or Content-Type header
func DuplicateHeaderValidationMiddleware() gin.HandlerFunc {
	criticalHeaders := []string{"Authorization", "Content-Type"}

	return func(c *gin.Context) {
		for _, header := range criticalHeaders {
			if values := c.Request.Header.Values(header); len(values) > 1 {
				slogging.FromGin(c).Warn("Rejected request with duplicate %s header: %d instances found", header, len(values))
				HandleRequestError(c, &RequestError{
					Status:  http.StatusBadRequest,
					Code:    "duplicate_header",
					Message: fmt.Sprintf("Multiple %s headers not allowed", header),
				})
				return
			}
		}
		c.Next()
	}
}

// RequireRole rejects callers whose identity does not hold role. Anonymous
// callers get 401, authenticated callers with another role get 403.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			HandleRequestError(c, UnauthorizedError("Authentication required"))
			return
		}
		if id.Role != role {
			slogging.FromGin(c).Warn("Forbidden: user=%s role=%s required=%s", id.UserID, id.Role, role)
			HandleRequestError(c, ForbiddenError(fmt.Sprintf("%s role required", role)))
			return
		}
		c.Next()
	}
}
