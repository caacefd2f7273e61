package models

import (
	"github.com/google/uuid"
)

type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// DeliveryDetails is the address captured at checkout.
type DeliveryDetails struct {
	Address    string `json:"address" binding:"required,max=255" validate:"required,max=255"`
	City       string `json:"city" binding:"required,max=120" validate:"required,max=120"`
	PostalCode string `json:"postal_code" binding:"max=20" validate:"max=20"`
	Phone      string `json:"phone" binding:"max=40" validate:"max=40"`
}

// CheckoutRequest is the individual checkout body. An empty item list is
// rejected by the service with its own message.
type CheckoutRequest struct {
	Items            []CheckoutItem   `json:"items" binding:"omitempty,dive"`
	PickupOrDelivery string           `json:"pickup_or_delivery" binding:"omitempty,oneof=pickup delivery"`
	CouponCode       string           `json:"coupon_code" binding:"max=64"`
	Notes            string           `json:"notes" binding:"max=1000"`
	DeliveryDetails  *DeliveryDetails `json:"delivery_details"`
}

// GroupCheckoutRequest is the body used to join a group order. CouponCode is
// accepted only so that it can be refused explicitly.
type GroupCheckoutRequest struct {
	GroupOrderID    uuid.UUID        `json:"group_order_id" binding:"required"`
	Items           []CheckoutItem   `json:"items" binding:"omitempty,dive"`
	CouponCode      string           `json:"coupon_code"`
	Notes           string           `json:"notes" binding:"max=1000"`
	DeliveryDetails *DeliveryDetails `json:"delivery_details"`
}

type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}
