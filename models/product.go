package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProducerID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"producer_id"`
	Name              string          `gorm:"type:varchar(160);not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	Category          string          `gorm:"type:varchar(80);index" json:"category"`
	Unit              string          `gorm:"type:varchar(40)" json:"unit,omitempty"`
	Price             decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	QuantityAvailable int             `gorm:"not null;default:0" json:"quantity_available"`
	IsAvailable       bool            `gorm:"not null" json:"is_available"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Images []ProductImage `gorm:"foreignKey:ProductID" json:"images,omitempty"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	URL       string    `gorm:"type:varchar(512);not null" json:"url"`
	ObjectKey string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (i *ProductImage) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

type CreateProductRequest struct {
	Name              string          `json:"name" binding:"required,min=2,max=160"`
	Description       string          `json:"description" binding:"max=5000"`
	Category          string          `json:"category" binding:"required,max=80"`
	Unit              string          `json:"unit" binding:"max=40"`
	Price             decimal.Decimal `json:"price"`
	QuantityAvailable int             `json:"quantity_available" binding:"gte=0"`
	IsAvailable       *bool           `json:"is_available"`
}

type UpdateProductRequest struct {
	Name              *string          `json:"name" binding:"omitempty,min=2,max=160"`
	Description       *string          `json:"description" binding:"omitempty,max=5000"`
	Category          *string          `json:"category" binding:"omitempty,max=80"`
	Unit              *string          `json:"unit" binding:"omitempty,max=40"`
	Price             *decimal.Decimal `json:"price"`
	QuantityAvailable *int             `json:"quantity_available" binding:"omitempty,gte=0"`
	IsAvailable       *bool            `json:"is_available"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category      string
	ProducerID    *uuid.UUID
	Search        string
	AvailableOnly bool
	Page          int
	Limit         int
}

type PresignImageRequest struct {
	ContentType string `json:"content_type" binding:"required,oneof=image/jpeg image/png image/webp"`
}

type AttachImageRequest struct {
	ObjectKey string `json:"object_key" binding:"required"`
}

type ProviderStory struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"provider_id"`
	Title      string    `gorm:"type:varchar(200);not null" json:"title"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	ImageURL   string    `gorm:"type:varchar(512)" json:"image_url,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *ProviderStory) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

type UpsertStoryRequest struct {
	Title    string `json:"title" binding:"required,max=200"`
	Body     string `json:"body" binding:"required"`
	ImageURL string `json:"image_url" binding:"omitempty,url,max=512"`
}
