package models

import (
	"fmt"
	"slices"
	"strings"
)

// Role is the access level of a user
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// PaymentMethod is the gateway an order is paid through
type PaymentMethod string

const (
	PaymentRazorpay PaymentMethod = "RAZORPAY"
	PaymentStripe   PaymentMethod = "STRIPE"
	PaymentCOD      PaymentMethod = "COD"
)

// OrderStatus tracks fulfilment
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// PaymentStatus tracks settlement
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

var (
	roles           = []Role{RoleUser, RoleAdmin}
	paymentMethods  = []PaymentMethod{PaymentRazorpay, PaymentStripe, PaymentCOD}
	orderStatuses   = []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}
	paymentStatuses = []PaymentStatus{PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded}
)

// Valid reports whether r is a known role
func (r Role) Valid() bool { return slices.Contains(roles, r) }

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool { return slices.Contains(paymentMethods, m) }

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool { return slices.Contains(orderStatuses, s) }

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool { return slices.Contains(paymentStatuses, s) }

// ParseRole accepts a role name in any case
func ParseRole(s string) (Role, error) {
	return parseEnum(s, roles, "role")
}

func parseEnum[T ~string](s string, values []T, what string) (T, error) {
	v := T(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(values, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", what, s)
}
