package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID gives a row a UUID before insert when the caller left it empty, so
// ids do not depend on a database-side default.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// AllModels lists every table for migration.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Application{},
		&Product{},
		&ProductImage{},
		&ProviderStory{},
		&Coupon{},
		&CouponUsage{},
		&Order{},
		&OrderItem{},
		&OrderDetails{},
		&GroupOrder{},
		&GroupOrderProduct{},
		&GroupOrderParticipant{},
		&GroupOrderItem{},
		&GroupOrderDeliveryDetail{},
		&ProcessedStripeSession{},
	}
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
