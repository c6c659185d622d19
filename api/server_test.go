package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfitz/storefront/internal/catalog"
	"github.com/ericfitz/storefront/internal/identity"
	"github.com/ericfitz/storefront/internal/models"
)

func newTestRouter(t *testing.T, opts RouterOptions) *gin.Engine {
	t.Helper()
	if opts.Registry == nil {
		opts.Registry = newCatalogRegistry(t)
	}
	router, err := NewRouter(opts)
	require.NoError(t, err)
	return router
}

func TestNewRouterOptions(t *testing.T) {
	t.Run("registry is required", func(t *testing.T) {
		_, err := NewRouter(RouterOptions{})
		assert.Error(t, err)
	})

	t.Run("trusted proxies are checked", func(t *testing.T) {
		_, err := NewRouter(RouterOptions{
			Registry:       newCatalogRegistry(t),
			TrustedProxies: []string{"not-a-network"},
		})
		assert.Error(t, err)
	})

	t.Run("metrics only served when configured", func(t *testing.T) {
		router := newTestRouter(t, RouterOptions{})
		assert.Equal(t, http.StatusNotFound, doJSON(router, http.MethodGet, "/metrics", nil, nil).Code)

		router = newTestRouter(t, RouterOptions{
			MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("storefront_validation_requests_total 1\n"))
			}),
		})
		w := doJSON(router, http.MethodGet, "/metrics", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "storefront_validation_requests_total")
	})

	t.Run("tracing middleware runs first", func(t *testing.T) {
		var order []string
		router := newTestRouter(t, RouterOptions{
			Tracing: func(c *gin.Context) {
				order = append(order, "tracing")
				c.Next()
			},
		})
		router.GET("/probe", func(c *gin.Context) {
			order = append(order, "handler")
			c.Status(http.StatusNoContent)
		})

		doJSON(router, http.MethodGet, "/probe", nil, nil)
		assert.Equal(t, []string{"tracing", "handler"}, order)
	})
}

func TestHealthAndSchemaCatalog(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	t.Run("health", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, GetVersionString(), body["version"])
		assert.Equal(t, float64(13), body["schemas"])
	})

	t.Run("first page of schemas", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/schemas", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(13), body["total"])
		assert.Equal(t, float64(0), body["offset"])
		assert.Len(t, body["schemas"], 10)
		assert.Equal(t, catalog.AddToCart, body["schemas"].([]any)[0])
	})

	t.Run("second page of schemas", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/schemas?page=2", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Len(t, body["schemas"], 3)
		assert.Equal(t, float64(10), body["offset"])
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/schemas?page=9&limit=5", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decodeBody(t, w)["schemas"])
	})

	t.Run("schema document", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/schemas/"+catalog.Register, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, catalog.Register, body["name"])

		doc, ok := body["schema"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, catalog.Register, doc["title"])
		assert.Equal(t, []any{"name", "username", "email", "password"}, doc["required"])
	})

	t.Run("unknown schema", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/schemas/checkout", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeError(t, w).Error)
	})
}

func TestDynamicValidation(t *testing.T) {
	recorder := &spyRecorder{}
	router := newTestRouter(t, RouterOptions{Recorder: recorder})

	t.Run("valid body echoes narrowed data", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/v1/validate/"+catalog.AddToCart, map[string]any{
			"productId": validProductID,
			"quantity":  2,
			"coupon":    "SAVE10",
		}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, catalog.AddToCart, body["schema"])
		assert.Equal(t, "body", body["source"])
		assert.Equal(t, map[string]any{"productId": validProductID, "quantity": float64(2)}, body["data"])
	})

	t.Run("nested object violations use dotted paths", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/v1/validate/"+catalog.CreateOrder, map[string]any{
			"shippingAddress": map[string]any{
				"fullName":   "Ada Lovelace",
				"address":    "12 St James's Square",
				"city":       "London",
				"postalCode": "SW1Y 4JH",
				"country":    "UK",
			},
		}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"shippingAddress.phone"}, violationFields(t, decodeError(t, w)))
	})

	t.Run("payment method must be listed", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/v1/validate/"+catalog.CreatePayment, map[string]any{
			"orderId":       validOrderID,
			"paymentMethod": "PAYPAL",
		}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"paymentMethod"}, violationFields(t, decodeError(t, w)))
	})

	t.Run("query string is coerced", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/validate/"+catalog.Pagination+"?page=4", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "query", body["source"])
		assert.Equal(t, map[string]any{"page": "4", "limit": "10"}, body["data"])
	})

	t.Run("unknown schema", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/v1/validate/checkout", map[string]any{}, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("problematic unicode rejected before validation", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/v1/validate/"+catalog.Login,
			`{"identifier": "ada`+"\u202E"+`", "password": "secret1"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_request", decodeError(t, w).Error)
	})

	t.Run("escaped problematic unicode rejected before validation", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/v1/validate/"+catalog.Login,
			`{"identifier": "\u200b\u200b\u200b", "password": "\u202e\u202e\u202e\u202e\u202e\u0000"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_request", decodeError(t, w).Error)
	})

	t.Run("escaped decomposed name is measured after composition", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/v1/validate/"+catalog.Register,
			`{"name": "e\u0301", "username": "ada", "email": "ada@example.com", "password": "secret1"}`, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"name"}, violationFields(t, decodeError(t, w)))
	})

	t.Run("duplicate content type rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/validate/"+catalog.Login, strings.NewReader(`{}`))
		req.Header.Add("Content-Type", "application/json")
		req.Header.Add("Content-Type", "text/plain")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "duplicate_header", decodeError(t, w).Error)
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		small := newTestRouter(t, RouterOptions{MaxBodyBytes: 32})
		w := doJSON(small, http.MethodPost, "/v1/validate/"+catalog.Login, map[string]any{
			"identifier": strings.Repeat("x", 64),
			"password":   "secret1",
		}, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("dynamic decisions are recorded", func(t *testing.T) {
		records := recorder.all()
		require.NotEmpty(t, records)
		assert.Equal(t, recordedValidation{schema: catalog.AddToCart, source: "body", violations: 0}, records[0])
	})
}

func TestAuthenticatedRoutes(t *testing.T) {
	creds := newTestCredentials(t)
	router := newTestRouter(t, RouterOptions{Credentials: creds, AuthRequired: true})

	user, err := creds.IssueTokens("user-1", models.RoleUser)
	require.NoError(t, err)
	admin, err := creds.IssueTokens("admin-1", models.RoleAdmin)
	require.NoError(t, err)

	t.Run("health stays public", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/health", nil, nil).Code)
	})

	t.Run("v1 requires a token", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/schemas", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

		w = doJSON(router, http.MethodGet, "/v1/schemas", nil, bearer(user.AccessToken))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("refresh token cannot authenticate", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/schemas", nil, bearer(user.RefreshToken))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("me", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/v1/me", nil, bearer(admin.AccessToken))
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "admin-1", body["user_id"])
		assert.Equal(t, "ADMIN", body["role"])
		assert.Equal(t, true, body["admin"])
	})

	t.Run("refresh issues a new pair", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/v1/auth/refresh", map[string]any{"refreshToken": user.RefreshToken}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var pair identity.TokenPair
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
		assert.NotEmpty(t, pair.AccessToken)
		assert.Equal(t, "Bearer", pair.TokenType)

		id, err := creds.ParseAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", id.UserID)
		assert.Equal(t, models.RoleUser, id.Role)
	})

	t.Run("refresh rejects access tokens", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/v1/auth/refresh", map[string]any{"refreshToken": user.AccessToken}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refresh body is validated", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/v1/auth/refresh", map[string]any{"token": "x"}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"refreshToken"}, violationFields(t, decodeError(t, w)))
	})

	t.Run("product update preview is admin only", func(t *testing.T) {
		path := "/v1/products/" + validProductID
		update := map[string]any{"price": 25, "stock": 4}

		w := doJSON(router, http.MethodPatch, path, update, bearer(user.AccessToken))
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = doJSON(router, http.MethodPatch, path, update, bearer(admin.AccessToken))
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, validProductID, body["productId"])
		preview := body["preview"].(map[string]any)
		assert.Equal(t, validProductID, preview["id"])
		assert.NotEmpty(t, preview["updatedAt"])
		data := preview["data"].(map[string]any)
		assert.Equal(t, float64(25), data["price"])
		assert.Equal(t, float64(4), data["stock"])
		assert.Equal(t, "", data["name"])
	})

	t.Run("product create preview is admin only", func(t *testing.T) {
		product := map[string]any{
			"name":        "Desk lamp",
			"description": "An adjustable LED desk lamp",
			"price":       1499,
			"category":    "lighting",
			"stock":       12,
		}

		w := doJSON(router, http.MethodPost, "/v1/products", product, bearer(user.AccessToken))
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = doJSON(router, http.MethodPost, "/v1/products", product, bearer(admin.AccessToken))
		require.Equal(t, http.StatusOK, w.Code)
		preview := decodeBody(t, w)["preview"].(map[string]any)
		assert.Regexp(t, catalog.ObjectIDPattern, preview["id"])
		assert.Equal(t, preview["createdAt"], preview["updatedAt"])
		data := preview["data"].(map[string]any)
		assert.Equal(t, "Desk lamp", data["name"])
		assert.Equal(t, float64(12), data["stock"])
		assert.Equal(t, float64(0), data["numReviews"])
	})

	t.Run("product stock beyond safe integer range is a violation", func(t *testing.T) {
		w := doJSON(router, http.MethodPatch, "/v1/products/"+validProductID,
			`{"stock": 1e20}`, bearer(admin.AccessToken))
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "validation_failed", body.Error)
		require.Len(t, body.Details.Violations, 1)
		assert.Equal(t, "stock", body.Details.Violations[0].Field)
		assert.Equal(t, "must be a safe integer", body.Details.Violations[0].Message)
	})

	t.Run("product update preflight allows PATCH", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/products/"+validProductID, nil)
		req.Header.Set("Origin", "https://shop.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	})

	t.Run("product update preview validates params before body", func(t *testing.T) {
		w := doJSON(router, http.MethodPatch, "/v1/products/123", map[string]any{"price": -1}, bearer(admin.AccessToken))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"productId"}, violationFields(t, decodeError(t, w)))

		w = doJSON(router, http.MethodPatch, "/v1/products/"+validProductID, map[string]any{"price": -1}, bearer(admin.AccessToken))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"price"}, violationFields(t, decodeError(t, w)))
	})
}

func TestOptionalAuthentication(t *testing.T) {
	creds := newTestCredentials(t)
	router := newTestRouter(t, RouterOptions{Credentials: creds})

	assert.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/v1/schemas", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(router, http.MethodGet, "/v1/me", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		doJSON(router, http.MethodGet, "/v1/schemas", nil, bearer("garbage")).Code,
		"a presented token must still be valid")
}
