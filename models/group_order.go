package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Group order status values.
const (
	GroupOrderOpen   = "open"
	GroupOrderClosed = "closed"
)

// GroupOrder is a provider-created bulk offer.
type GroupOrder struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"provider_id"`
	Title       string     `gorm:"type:varchar(200);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Products []GroupOrderProduct `gorm:"foreignKey:GroupOrderID" json:"products,omitempty"`
}

func (g *GroupOrder) BeforeCreate(*gorm.DB) error {
	assignID(&g.ID)
	return nil
}

// IsActive reports whether consumers may still join.
func (g *GroupOrder) IsActive(now time.Time) bool {
	if g.Status != GroupOrderOpen {
		return false
	}
	return g.Deadline == nil || now.Before(*g.Deadline)
}

// GroupOrderProduct reserves MaxQuantity units of a product at UnitPrice.
// MaxQuantity is drawn down as participants pay.
type GroupOrderProduct struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GroupOrderID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_group_product" json:"group_order_id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_group_product" json:"product_id"`
	MaxQuantity  int             `gorm:"not null" json:"max_quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (p *GroupOrderProduct) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

type GroupOrderParticipant struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GroupOrderID    uuid.UUID `gorm:"type:uuid;not null;index" json:"group_order_id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	StripeSessionID string    `gorm:"type:varchar(255);not null" json:"stripe_session_id"`
	Paid            bool      `gorm:"not null;default:false" json:"paid"`
	Notes           string    `gorm:"type:text" json:"notes,omitempty"`
	JoinedAt        time.Time `gorm:"not null" json:"joined_at"`

	Items []GroupOrderItem `gorm:"foreignKey:ParticipantID" json:"items,omitempty"`
}

func (p *GroupOrderParticipant) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// GroupOrderItem snapshots the locked unit price at purchase time.
type GroupOrderItem struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"participant_id"`
	GroupOrderProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"group_order_product_id"`
	ProductID           uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	Quantity            int             `gorm:"not null" json:"quantity"`
	UnitPrice           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	StockShortfall      bool            `gorm:"not null;default:false" json:"stock_shortfall"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (i *GroupOrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

type GroupOrderDeliveryDetail struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"participant_id"`
	Address       string    `gorm:"type:varchar(255);not null" json:"address"`
	City          string    `gorm:"type:varchar(120);not null" json:"city"`
	PostalCode    string    `gorm:"type:varchar(20)" json:"postal_code"`
	Phone         string    `gorm:"type:varchar(40)" json:"phone"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (d *GroupOrderDeliveryDetail) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

type GroupOrderProductInput struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	MaxQuantity int             `json:"max_quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateGroupOrderRequest struct {
	Title       string                   `json:"title" binding:"required,max=200"`
	Description string                   `json:"description" binding:"max=5000"`
	Deadline    *time.Time               `json:"deadline"`
	Products    []GroupOrderProductInput `json:"products" binding:"required,min=1,dive"`
}
