// Package catalog declares the named request schemas of the storefront API.
package catalog

import (
	"github.com/ericfitz/storefront/internal/schema"
)

// Schema names accepted by the registry and the /v1/validate endpoints
const (
	Register       = "register"
	Login          = "login"
	RefreshToken   = "refreshToken"
	UpdateUser     = "updateUser"
	CreateProduct  = "createProduct"
	UpdateProduct  = "updateProduct"
	ProductIDParam = "productIdParam"
	CreateReview   = "createReview"
	AddToCart      = "addToCart"
	UpdateCart     = "updateCart"
	CreateOrder    = "createOrder"
	CreatePayment  = "createPayment"
	Pagination     = "pagination"
)

// ObjectIDPattern matches a 24 hex digit document id
const ObjectIDPattern = `^[0-9a-fA-F]{24}$`

const invalidID = "must be a 24 character hex id"

func objectID(name string) schema.Field {
	return schema.String(name).Pattern(ObjectIDPattern, invalidID)
}

// ShippingAddress is embedded by createOrder
var ShippingAddress = schema.MustNew("shippingAddress",
	schema.String("fullName"),
	schema.String("address"),
	schema.String("city"),
	schema.String("postalCode"),
	schema.String("country"),
	schema.String("phone"),
)

func cartItem(name string) *schema.Schema {
	return schema.MustNew(name,
		objectID("productId"),
		schema.Int("quantity").Min(1),
	)
}

// Schemas returns a fresh copy of every named schema in registration order
func Schemas() []*schema.Schema {
	createProduct := schema.MustNew(CreateProduct,
		schema.String("name").Min(2),
		schema.String("description").Min(10),
		schema.Number("price").Positive(),
		schema.Number("discountPrice").Optional(),
		schema.String("category").Min(2),
		schema.String("brand").Optional(),
		schema.Int("stock").Min(0),
		schema.Array("images", schema.String("").URL()).Optional(),
	)

	return []*schema.Schema{
		schema.MustNew(Register,
			schema.String("name").Min(2),
			schema.String("username").Min(3),
			schema.String("email").Email(),
			schema.String("password").Min(6),
		),
		schema.MustNew(Login,
			schema.String("identifier").Min(3),
			schema.String("password").Min(6),
		),
		schema.MustNew(RefreshToken,
			schema.String("refreshToken"),
		),
		schema.MustNew(UpdateUser,
			schema.String("name").Optional(),
			schema.String("username").Optional(),
			schema.Enum("role", "USER", "ADMIN").Optional(),
			schema.Boolean("isActive").Optional(),
		),
		createProduct,
		createProduct.Partial(UpdateProduct),
		schema.MustNew(ProductIDParam,
			objectID("productId"),
		),
		schema.MustNew(CreateReview,
			objectID("productId"),
			schema.Number("rating").Min(1).Max(5),
			schema.String("comment").Min(3),
		),
		cartItem(AddToCart),
		cartItem(UpdateCart),
		schema.MustNew(CreateOrder,
			schema.Object("shippingAddress", ShippingAddress),
		),
		schema.MustNew(CreatePayment,
			objectID("orderId"),
			schema.Enum("paymentMethod", "RAZORPAY", "STRIPE", "COD"),
		),
		schema.MustNew(Pagination,
			schema.String("page").Default("1"),
			schema.String("limit").Default("10"),
		),
	}
}

// RegisterAll adds every named schema to reg. It fails on the first
// conflicting name.
func RegisterAll(reg *schema.Registry) error {
	for _, s := range Schemas() {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the full catalog
func NewRegistry() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	if err := RegisterAll(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
