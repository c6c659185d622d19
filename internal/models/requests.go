package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ericfitz/storefront/internal/schema"
)

// Typed request bodies. JSON names match the catalog schema fields so a
// validated value decodes field for field.

type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UpdateUserRequest uses pointers so absent fields stay distinguishable
// from zero values.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Username *string `json:"username,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

type CreateProductRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discountPrice,omitempty"`
	Category      string   `json:"category"`
	Brand         string   `json:"brand,omitempty"`
	Stock         int      `json:"stock"`
	Images        []string `json:"images,omitempty"`
}

// Product builds a new catalogue record from the request
func (r CreateProductRequest) Product() Product {
	return Product{
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		Category:      r.Category,
		Brand:         r.Brand,
		Stock:         r.Stock,
		Images:        r.Images,
	}
}

type UpdateProductRequest struct {
	Name          *string   `json:"name,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Price         *float64  `json:"price,omitempty"`
	DiscountPrice *float64  `json:"discountPrice,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Brand         *string   `json:"brand,omitempty"`
	Stock         *int      `json:"stock,omitempty"`
	Images        *[]string `json:"images,omitempty"`
}

// Apply returns p with every supplied field overwritten
func (r UpdateProductRequest) Apply(p Product) Product {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.DiscountPrice != nil {
		p.DiscountPrice = r.DiscountPrice
	}
	if r.Category != nil {
		p.Category = *r.Category
	}
	if r.Brand != nil {
		p.Brand = *r.Brand
	}
	if r.Stock != nil {
		p.Stock = *r.Stock
	}
	if r.Images != nil {
		p.Images = *r.Images
	}
	return p
}

type ProductIDParams struct {
	ProductID string `json:"productId"`
}

type CreateReviewRequest struct {
	ProductID string  `json:"productId"`
	Rating    float64 `json:"rating"`
	Comment   string  `json:"comment"`
}

// CartItemRequest serves both addToCart and updateCart
type CartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	ShippingAddress ShippingAddress `json:"shippingAddress"`
}

type CreatePaymentRequest struct {
	OrderID       string        `json:"orderId"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// PaginationQuery keeps page and limit as strings, the way they arrive
type PaginationQuery struct {
	Page  string `json:"page"`
	Limit string `json:"limit"`
}

// Bounds converts the query into an offset and a limit clamped to [1, max]
func (q PaginationQuery) Bounds(max int) (offset, limit int) {
	page := atoiOr(q.Page, 1)
	limit = atoiOr(q.Limit, 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if max > 0 && limit > max {
		limit = max
	}
	return (page - 1) * limit, limit
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

// Decode narrows a validated value into a typed request
func Decode[T any](v schema.Value) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("failed to encode validated value: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode validated value into %T: %w", out, err)
	}
	return out, nil
}
