package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfitz/storefront/internal/catalog"
	"github.com/ericfitz/storefront/internal/models"
	"github.com/ericfitz/storefront/internal/schema"
)

func violationFields(t *testing.T, body Error) []string {
	t.Helper()
	require.NotNil(t, body.Details)
	fields := make([]string, 0, len(body.Details.Violations))
	for _, v := range body.Details.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

func TestGateBody(t *testing.T) {
	reg := newCatalogRegistry(t)
	recorder := &spyRecorder{}
	gate := NewGate(reg, recorder)

	handlerCalls := 0
	router := gin.New()
	router.POST("/register", gate.Body(catalog.Register), func(c *gin.Context) {
		handlerCalls++
		value, ok := ValidatedBody(c)
		require.True(t, ok)
		req, err := Bind[models.RegisterRequest](c, schema.SourceBody)
		require.NoError(t, err)
		c.JSON(http.StatusCreated, gin.H{"keys": len(value), "username": req.Username})
	})

	t.Run("valid body reaches handler narrowed", func(t *testing.T) {
		handlerCalls = 0
		w := doJSON(router, http.MethodPost, "/register", map[string]any{
			"name":     "Ada Lovelace",
			"username": "ada",
			"email":    "ada@example.com",
			"password": "secret1",
			"isAdmin":  true,
		}, nil)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, handlerCalls)
		body := decodeBody(t, w)
		assert.Equal(t, float64(4), body["keys"], "unknown keys are dropped")
		assert.Equal(t, "ada", body["username"])
	})

	t.Run("every violation is reported and handler is skipped", func(t *testing.T) {
		handlerCalls = 0
		w := doJSON(router, http.MethodPost, "/register", map[string]any{
			"name":     "A",
			"username": "ada",
			"email":    "not-an-email",
		}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, handlerCalls)
		body := decodeError(t, w)
		assert.Equal(t, "validation_failed", body.Error)
		assert.Equal(t, []string{"name", "email", "password"}, violationFields(t, body))
	})

	t.Run("empty body reports each required field", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/register", "", map[string]string{"Content-Type": "application/json"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"name", "username", "email", "password"}, violationFields(t, decodeError(t, w)))
	})

	t.Run("malformed bodies are invalid input", func(t *testing.T) {
		for _, raw := range []string{`{"name":`, `[1,2]`, `"text"`, `{"a":1}{"b":2}`} {
			w := doJSON(router, http.MethodPost, "/register", raw, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, raw)
			assert.Equal(t, "invalid_input", decodeError(t, w).Error, raw)
		}
	})

	t.Run("decisions are recorded", func(t *testing.T) {
		recorder.mu.Lock()
		recorder.records = nil
		recorder.mu.Unlock()

		doJSON(router, http.MethodPost, "/register", map[string]any{
			"name": "Ada", "username": "ada", "email": "ada@example.com", "password": "secret1",
		}, nil)
		doJSON(router, http.MethodPost, "/register", map[string]any{"name": "Ada"}, nil)

		assert.Equal(t, []recordedValidation{
			{schema: catalog.Register, source: "body", violations: 0},
			{schema: catalog.Register, source: "body", violations: 3},
		}, recorder.all())
	})
}

func TestGateBodyDoesNotCoerce(t *testing.T) {
	reg := newCatalogRegistry(t)
	router := gin.New()
	router.POST("/products", ValidateBody(reg, catalog.CreateProduct), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := doJSON(router, http.MethodPost, "/products", map[string]any{
		"name":        "Lamp",
		"description": "A bright desk lamp",
		"price":       "19.99",
		"category":    "Home",
		"stock":       3,
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	require.Len(t, body.Details.Violations, 1)
	assert.Equal(t, "price", body.Details.Violations[0].Field)
	assert.Contains(t, body.Details.Violations[0].Message, "expected number")
}

func TestGateBodyTooLarge(t *testing.T) {
	reg := newCatalogRegistry(t)
	router := gin.New()
	router.Use(MaxBodySize(64))
	router.POST("/login", ValidateBody(reg, catalog.Login), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	t.Run("declared length over limit", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/login", map[string]any{
			"identifier": strings.Repeat("a", 100),
			"password":   "secret1",
		}, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "request_too_large", decodeError(t, w).Error)
	})

	t.Run("within limit", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/login", map[string]any{
			"identifier": "ada",
			"password":   "secret1",
		}, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestGateQuery(t *testing.T) {
	reg := newCatalogRegistry(t)
	router := gin.New()
	router.GET("/items", ValidateQuery(reg, catalog.Pagination), func(c *gin.Context) {
		q, err := Bind[models.PaginationQuery](c, schema.SourceQuery)
		require.NoError(t, err)
		c.JSON(http.StatusOK, q)
	})

	tests := []struct {
		name  string
		query string
		page  string
		limit string
	}{
		{"defaults", "", "1", "10"},
		{"explicit", "?page=3&limit=25", "3", "25"},
		{"repeated key takes first", "?page=2&page=9", "2", "10"},
		{"unknown keys ignored", "?sort=price", "1", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodGet, "/items"+tt.query, nil, nil)
			require.Equal(t, http.StatusOK, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.page, body["page"])
			assert.Equal(t, tt.limit, body["limit"])
		})
	}
}

func TestGateParams(t *testing.T) {
	reg := newCatalogRegistry(t)
	router := gin.New()
	router.GET("/products/:productId", ValidateParams(reg, catalog.ProductIDParam), func(c *gin.Context) {
		params, err := Bind[models.ProductIDParams](c, schema.SourcePath)
		require.NoError(t, err)
		c.JSON(http.StatusOK, params)
	})

	t.Run("valid id", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/products/"+validProductID, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, validProductID, decodeBody(t, w)["productId"])
	})

	t.Run("malformed id", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/products/not-an-id", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		require.Len(t, body.Details.Violations, 1)
		assert.Equal(t, schema.Violation{Field: "productId", Message: "must be a 24 character hex id"}, body.Details.Violations[0])
	})
}

func TestGateUnknownSchemaPanics(t *testing.T) {
	gate := NewGate(newCatalogRegistry(t), nil)

	assert.Panics(t, func() { gate.Body("checkout") })
	assert.Panics(t, func() { gate.Query("checkout") })
	assert.Panics(t, func() { gate.Params("checkout") })
}

func TestBindWithoutGate(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := Bind[models.LoginRequest](c, schema.SourceBody)
	assert.Error(t, err)

	_, ok := ValidatedQuery(c)
	assert.False(t, ok)
}

func TestBindDecodeFailureHidesDetails(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/cart", nil)
	c.Set(ValidatedBodyKey, schema.Value{"productId": validProductID, "quantity": "two"})

	_, err := Bind[models.CartItemRequest](c, schema.SourceBody)
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusInternalServerError, reqErr.Status)
	assert.Equal(t, "server_error", reqErr.Code)
	assert.Equal(t, "Failed to process validated request", reqErr.Message)
	assert.NotContains(t, reqErr.Message, "models.")
}

func TestGateRejectsUnsafeIntegers(t *testing.T) {
	reg := newCatalogRegistry(t)
	router := gin.New()
	router.POST("/cart", ValidateBody(reg, catalog.AddToCart), func(c *gin.Context) {
		req, err := Bind[models.CartItemRequest](c, schema.SourceBody)
		if err != nil {
			HandleRequestError(c, err)
			return
		}
		c.JSON(http.StatusOK, req)
	})

	t.Run("oversized quantity is a violation, not a server error", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/cart", `{"productId": "`+validProductID+`", "quantity": 1e20}`, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		require.Len(t, body.Details.Violations, 1)
		assert.Equal(t, schema.Violation{Field: "quantity", Message: "must be a safe integer"}, body.Details.Violations[0])
	})

	t.Run("largest safe quantity binds", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/cart", `{"productId": "`+validProductID+`", "quantity": 9007199254740991}`, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(schema.MaxSafeInteger), decodeBody(t, w)["quantity"])
	})
}

func bindBody[T any](c *gin.Context) (any, error) {
	return Bind[T](c, schema.SourceBody)
}

func ptr[T any](v T) *T { return &v }

func TestBindEveryBodySchema(t *testing.T) {
	reg := newCatalogRegistry(t)
	admin := models.RoleAdmin

	tests := []struct {
		schema string
		body   string
		bind   func(*gin.Context) (any, error)
		want   any
	}{
		{
			catalog.Register,
			`{"name": "Asha Rao", "username": "asha", "email": "asha@example.com", "password": "secret1"}`,
			bindBody[models.RegisterRequest],
			models.RegisterRequest{Name: "Asha Rao", Username: "asha", Email: "asha@example.com", Password: "secret1"},
		},
		{
			catalog.Login,
			`{"identifier": "asha", "password": "secret1"}`,
			bindBody[models.LoginRequest],
			models.LoginRequest{Identifier: "asha", Password: "secret1"},
		},
		{
			catalog.RefreshToken,
			`{"refreshToken": "abc.def.ghi"}`,
			bindBody[models.RefreshTokenRequest],
			models.RefreshTokenRequest{RefreshToken: "abc.def.ghi"},
		},
		{
			catalog.UpdateUser,
			`{"role": "ADMIN", "isActive": false}`,
			bindBody[models.UpdateUserRequest],
			models.UpdateUserRequest{Role: &admin, IsActive: ptr(false)},
		},
		{
			catalog.CreateProduct,
			`{"name": "Desk lamp", "description": "An adjustable LED desk lamp", "price": 1499, "discountPrice": 1299,
			  "category": "lighting", "stock": 12, "images": ["https://cdn.example.com/lamp.png"]}`,
			bindBody[models.CreateProductRequest],
			models.CreateProductRequest{
				Name:          "Desk lamp",
				Description:   "An adjustable LED desk lamp",
				Price:         1499,
				DiscountPrice: ptr(1299.0),
				Category:      "lighting",
				Stock:         12,
				Images:        []string{"https://cdn.example.com/lamp.png"},
			},
		},
		{
			catalog.UpdateProduct,
			`{"name": "Desk lamp v2"}`,
			bindBody[models.UpdateProductRequest],
			models.UpdateProductRequest{Name: ptr("Desk lamp v2")},
		},
		{
			catalog.CreateReview,
			`{"productId": "` + validProductID + `", "rating": 4.5, "comment": "Bright and sturdy"}`,
			bindBody[models.CreateReviewRequest],
			models.CreateReviewRequest{ProductID: validProductID, Rating: 4.5, Comment: "Bright and sturdy"},
		},
		{
			catalog.AddToCart,
			`{"productId": "` + validProductID + `", "quantity": 3}`,
			bindBody[models.CartItemRequest],
			models.CartItemRequest{ProductID: validProductID, Quantity: 3},
		},
		{
			catalog.UpdateCart,
			`{"productId": "` + validProductID + `", "quantity": 1}`,
			bindBody[models.CartItemRequest],
			models.CartItemRequest{ProductID: validProductID, Quantity: 1},
		},
		{
			catalog.CreateOrder,
			`{"shippingAddress": {"fullName": "Asha Rao", "address": "12 MG Road", "city": "Pune",
			  "postalCode": "411001", "country": "IN", "phone": "+91 98000 00000"}}`,
			bindBody[models.CreateOrderRequest],
			models.CreateOrderRequest{ShippingAddress: models.ShippingAddress{
				FullName: "Asha Rao", Address: "12 MG Road", City: "Pune",
				PostalCode: "411001", Country: "IN", Phone: "+91 98000 00000",
			}},
		},
		{
			catalog.CreatePayment,
			`{"orderId": "` + validOrderID + `", "paymentMethod": "COD"}`,
			bindBody[models.CreatePaymentRequest],
			models.CreatePaymentRequest{OrderID: validOrderID, PaymentMethod: models.PaymentCOD},
		},
	}

	for _, tt := range tests {
		t.Run(tt.schema, func(t *testing.T) {
			var got any
			router := gin.New()
			router.POST("/bind", ValidateBody(reg, tt.schema), func(c *gin.Context) {
				v, err := tt.bind(c)
				if err != nil {
					HandleRequestError(c, err)
					return
				}
				got = v
				c.Status(http.StatusNoContent)
			})

			w := doJSON(router, http.MethodPost, "/bind", tt.body, nil)

			require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
			assert.Equal(t, tt.want, got)
		})
	}
}
