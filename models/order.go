package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order status values.
const (
	OrderStatusPaid      = "paid"
	OrderStatusFulfilled = "fulfilled"
)

// Fulfillment methods.
const (
	FulfillmentPickup   = "pickup"
	FulfillmentDelivery = "delivery"
)

// Order is one producer's share of a paid individual checkout.
type Order struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	ProducerID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"producer_id"`
	StripeSessionID  string          `gorm:"type:varchar(255);not null;index" json:"stripe_session_id"`
	Status           string          `gorm:"type:varchar(20);not null;default:'paid'" json:"status"`
	PickupOrDelivery string          `gorm:"type:varchar(20);not null" json:"pickup_or_delivery"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	DeliveryFee      decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"delivery_fee"`
	CouponCode       string          `gorm:"type:varchar(64)" json:"coupon_code,omitempty"`
	DiscountPercent  int             `gorm:"not null;default:0" json:"discount_percent"`
	Notes            string          `gorm:"type:text" json:"notes,omitempty"`
	Fulfilled        bool            `gorm:"not null;default:false" json:"fulfilled"`
	FulfilledAt      *time.Time      `json:"fulfilled_at,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Items   []OrderItem   `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Details *OrderDetails `gorm:"foreignKey:OrderID" json:"details,omitempty"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderItem snapshots the purchased quantity and discounted unit price.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string          `gorm:"type:varchar(160)" json:"name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`

	// StockShortfall marks a line whose stock decrement could not be applied.
	StockShortfall bool `gorm:"not null;default:false" json:"stock_shortfall"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// OrderDetails holds the delivery address of a delivery order.
type OrderDetails struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	Address    string    `gorm:"type:varchar(255);not null" json:"address"`
	City       string    `gorm:"type:varchar(120);not null" json:"city"`
	PostalCode string    `gorm:"type:varchar(20)" json:"postal_code"`
	Phone      string    `gorm:"type:varchar(40)" json:"phone"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (d *OrderDetails) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// ProcessedStripeSession marks a checkout session whose confirmation has been
// applied. The primary key makes a second insert a no-op.
type ProcessedStripeSession struct {
	SessionID   string    `gorm:"type:varchar(255);primaryKey" json:"session_id"`
	Kind        string    `gorm:"type:varchar(20);not null" json:"kind"`
	UserID      uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	ProcessedAt time.Time `gorm:"not null" json:"processed_at"`
}
