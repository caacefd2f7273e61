package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Application status values.
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// Application is a consumer's request to become a provider.
type Application struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	BusinessName string     `gorm:"type:varchar(160);not null" json:"business_name"`
	Description  string     `gorm:"type:text;not null" json:"description"`
	Phone        string     `gorm:"type:varchar(40)" json:"phone,omitempty"`
	Address      string     `gorm:"type:varchar(255)" json:"address,omitempty"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AdminNotes   string     `gorm:"type:text" json:"admin_notes,omitempty"`
	ReviewedBy   *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

type CreateApplicationRequest struct {
	BusinessName string `json:"business_name" binding:"required,min=2,max=160"`
	Description  string `json:"description" binding:"required,min=10"`
	Phone        string `json:"phone" binding:"omitempty,max=40"`
	Address      string `json:"address" binding:"omitempty,max=255"`
}

type ReviewApplicationRequest struct {
	Status     string `json:"status" binding:"required,oneof=approved rejected"`
	AdminNotes string `json:"admin_notes"`
}
