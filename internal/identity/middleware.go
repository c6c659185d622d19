package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ericfitz/storefront/internal/slogging"
)

// TokenParser is the subset of Credentials the middleware needs
type TokenParser interface {
	ParseAccessToken(token string) (Identity, error)
}

// Authenticate resolves a Bearer access token into an Identity and threads
// it through the request context. With required unset, anonymous requests
// pass through, but a presented token must still be valid.
func Authenticate(parser TokenParser, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := slogging.FromGin(c)

		header := c.GetHeader("Authorization")
		if header == "" {
			if !required {
				c.Next()
				return
			}
			logger.Warn("Authentication failed: missing authorization header path=%s", c.Request.URL.Path)
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			logger.Warn("Authentication failed: invalid authorization header format")
			abortUnauthorized(c, "Authorization header format must be Bearer {token}")
			return
		}

		id, err := parser.ParseAccessToken(strings.TrimSpace(token))
		if err != nil {
			logger.Warn("Authentication failed: %v", err)
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(slogging.UserIDKey, id.UserID)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		logger.Debug("Authenticated user=%s role=%s", id.UserID, id.Role)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, description string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             "unauthorized",
		"error_description": description,
	})
}
