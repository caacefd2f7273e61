package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace-service/models"
)

// ProcessedSessionRepository records checkout sessions whose confirmation
// has been applied.
type ProcessedSessionRepository interface {
	// MarkProcessed inserts the marker and reports false when the session
	// id was already present.
	MarkProcessed(ctx context.Context, marker *models.ProcessedStripeSession) (bool, error)
	Exists(ctx context.Context, sessionID string) (bool, error)
}

type GormProcessedSessionRepository struct {
	db *gorm.DB
}

func NewGormProcessedSessionRepository(db *gorm.DB) ProcessedSessionRepository {
	return &GormProcessedSessionRepository{db: db}
}

func (r *GormProcessedSessionRepository) MarkProcessed(ctx context.Context, marker *models.ProcessedStripeSession) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(marker)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormProcessedSessionRepository) Exists(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProcessedStripeSession{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count > 0, err
}
