package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon is a percentage discount code. Loyalty coupons carry IssuedTo.
type Coupon struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code            string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	DiscountPercent int        `gorm:"not null" json:"discount_percent"`
	StartsAt        time.Time  `gorm:"not null" json:"starts_at"`
	ExpiresAt       time.Time  `gorm:"not null" json:"expires_at"`
	UsageLimit      int        `gorm:"not null;default:1" json:"usage_limit"`
	TimesUsed       int        `gorm:"not null;default:0" json:"times_used"`
	IsActive        bool       `gorm:"not null" json:"is_active"`
	CreatedBy       *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	IssuedTo        *uuid.UUID `gorm:"type:uuid;index" json:"issued_to,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	if c.StartsAt.IsZero() {
		c.StartsAt = time.Now()
	}
	return nil
}

// ValidAt reports whether now falls inside [StartsAt, ExpiresAt).
func (c *Coupon) ValidAt(now time.Time) bool {
	return !now.Before(c.StartsAt) && now.Before(c.ExpiresAt)
}

// Exhausted reports whether the usage limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.TimesUsed >= c.UsageLimit
}

// CouponUsage records that a user redeemed a coupon. The pair is unique.
type CouponUsage struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CouponID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_coupon_user" json:"coupon_id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_coupon_user" json:"user_id"`
	OrderID   *uuid.UUID `gorm:"type:uuid" json:"order_id,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (u *CouponUsage) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

type CreateCouponRequest struct {
	Code            string     `json:"code" binding:"required,min=3,max=64,alphanum"`
	DiscountPercent int        `json:"discount_percent" binding:"required,min=1,max=99"`
	StartsAt        *time.Time `json:"starts_at"`
	ExpiresAt       time.Time  `json:"expires_at" binding:"required"`
	UsageLimit      int        `json:"usage_limit" binding:"required,min=1"`
}

type UpdateCouponRequest struct {
	DiscountPercent *int       `json:"discount_percent" binding:"omitempty,min=1,max=99"`
	StartsAt        *time.Time `json:"starts_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
	UsageLimit      *int       `json:"usage_limit" binding:"omitempty,min=1"`
	IsActive        *bool      `json:"is_active"`
}
