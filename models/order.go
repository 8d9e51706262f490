package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderCancelled, OrderExpired:
		return true
	}
	return false
}

// orderTransitions lists the legal moves. Everything else is a conflict.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled, OrderExpired},
	OrderPaid:    {OrderShipped},
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Open reports whether the order still holds its artwork.
func (s OrderStatus) Open() bool {
	return s == OrderPending || s == OrderPaid
}

// Order is a buyer's request for one artwork. A pending order holds the
// artwork in the reserved state until ExpiresAt.
type Order struct {
	ID              string      `json:"id"`
	Reference       string      `json:"reference"`
	ArtworkID       string      `json:"artwork_id"`
	ArtworkTitle    string      `json:"artwork_title"`
	BuyerName       string      `json:"buyer_name"`
	BuyerEmail      string      `json:"buyer_email"`
	ShippingAddress string      `json:"shipping_address"`
	Phone           string      `json:"phone"`
	Note            string      `json:"note"`
	AmountCents     int64       `json:"amount_cents"`
	Currency        string      `json:"currency"`
	Status          OrderStatus `json:"status"`
	Locale          string      `json:"locale"`
	ExpiresAt       time.Time   `json:"expires_at"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// PlaceOrderRequest is the order form of /{lang}/store/{slug}/order.
type PlaceOrderRequest struct {
	ArtworkSlug     string `json:"artwork_slug"`
	BuyerName       string `json:"buyer_name"`
	BuyerEmail      string `json:"buyer_email"`
	ShippingAddress string `json:"shipping_address"`
	Phone           string `json:"phone"`
	Note            string `json:"note"`
	Locale          string `json:"locale"`
}

// Validate normalizes and checks the request.
//   - BuyerName: 1-120 characters
//   - BuyerEmail: valid format
//   - ShippingAddress: 5-500 characters
//   - Phone: optional, at most 40 characters
//   - Note: optional, at most 1000 characters
func (r *PlaceOrderRequest) Validate() error {
	r.ArtworkSlug = strings.TrimSpace(r.ArtworkSlug)
	if r.ArtworkSlug == "" {
		return fmt.Errorf("artwork is required")
	}

	r.BuyerName = strings.TrimSpace(r.BuyerName)
	if n := utf8.RuneCountInString(r.BuyerName); n < 1 || n > 120 {
		return fmt.Errorf("name must be between 1 and 120 characters")
	}

	r.BuyerEmail = NormalizeEmail(r.BuyerEmail)
	if !ValidEmail(r.BuyerEmail) {
		return fmt.Errorf("invalid email format")
	}

	r.ShippingAddress = strings.TrimSpace(r.ShippingAddress)
	if n := utf8.RuneCountInString(r.ShippingAddress); n < 5 || n > 500 {
		return fmt.Errorf("shipping address must be between 5 and 500 characters")
	}

	r.Phone = strings.TrimSpace(r.Phone)
	if utf8.RuneCountInString(r.Phone) > 40 {
		return fmt.Errorf("phone must be at most 40 characters")
	}

	r.Note = strings.TrimSpace(r.Note)
	if utf8.RuneCountInString(r.Note) > 1000 {
		return fmt.Errorf("note must be at most 1000 characters")
	}

	return nil
}

// OrderFilter narrows the admin order list. Empty Status means all.
type OrderFilter struct {
	Status OrderStatus
	Limit  int
}
