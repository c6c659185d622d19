// Package models defines the plain storefront records and the typed request
// bodies produced by the validation gate. Records carry no persistence
// behaviour; Document adds identity and timestamps by composition.
package models

import "time"

// User is a storefront account. PasswordHash is never rendered.
type User struct {
	Name         string `json:"name"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	IsActive     bool   `json:"isActive"`
}

// Product is a catalogue entry
type Product struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discountPrice,omitempty"`
	Category      string   `json:"category"`
	Brand         string   `json:"brand,omitempty"`
	Stock         int      `json:"stock"`
	Images        []string `json:"images,omitempty"`
	Ratings       float64  `json:"ratings"`
	NumReviews    int      `json:"numReviews"`
}

// Review is a user's rating of a product
type Review struct {
	User    string  `json:"user"`
	Product string  `json:"product"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

// CartItem is one product line in a cart
type CartItem struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Cart holds a user's pending items
type Cart struct {
	User  string     `json:"user"`
	Items []CartItem `json:"items"`
}

// ShippingAddress is where an order is delivered
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// OrderItem is a product line frozen at order time
type OrderItem struct {
	Product  string  `json:"product"`
	Name     string  `json:"name"`
	Image    string  `json:"image,omitempty"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Order is a placed purchase
type Order struct {
	User            string          `json:"user"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	Status          OrderStatus     `json:"orderStatus"`
	TotalAmount     float64         `json:"totalAmount"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
}

// Payment records a gateway transaction for an order
type Payment struct {
	Order         string        `json:"order"`
	User          string        `json:"user"`
	Amount        float64       `json:"amount"`
	Method        PaymentMethod `json:"paymentMethod"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId,omitempty"`
}
