package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role values.
const (
	RoleConsumer = "consumer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// Auth provider values. OAuth-only accounts have no password hash.
const (
	AuthProviderLocal  = "local"
	AuthProviderGoogle = "google"
)

type User struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password         string    `gorm:"type:varchar(255)" json:"-"`
	Name             string    `gorm:"type:varchar(120);not null" json:"name"`
	Role             string    `gorm:"type:varchar(20);not null;default:'consumer'" json:"role"`
	AuthProvider     string    `gorm:"type:varchar(20);not null;default:'local'" json:"auth_provider"`
	EmailVerified    bool      `gorm:"not null;default:false" json:"email_verified"`
	VerificationCode string    `gorm:"type:varchar(6)" json:"-"`
	StoreName        string    `gorm:"type:varchar(120)" json:"store_name,omitempty"`
	Bio              string    `gorm:"type:text" json:"bio,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// PublicUser is the identity returned to clients.
type PublicUser struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

type UpdateProfileRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=2,max=120"`
	StoreName *string `json:"store_name" binding:"omitempty,max=120"`
	Bio       *string `json:"bio" binding:"omitempty,max=2000"`
}

// ProviderSummary is a row of the admin provider listing.
type ProviderSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	StoreName    string    `json:"store_name"`
	ProductCount int64     `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}
