package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace-service/models"
)

// StoryRepository stores one story per provider.
type StoryRepository interface {
	FindByProvider(ctx context.Context, providerID uuid.UUID) (*models.ProviderStory, error)
	Upsert(ctx context.Context, story *models.ProviderStory) error
	Delete(ctx context.Context, providerID uuid.UUID) error
}

type GormStoryRepository struct {
	db *gorm.DB
}

func NewGormStoryRepository(db *gorm.DB) StoryRepository {
	return &GormStoryRepository{db: db}
}

func (r *GormStoryRepository) FindByProvider(ctx context.Context, providerID uuid.UUID) (*models.ProviderStory, error) {
	var story models.ProviderStory
	if err := r.db.WithContext(ctx).Where("provider_id = ?", providerID).First(&story).Error; err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *GormStoryRepository) Upsert(ctx context.Context, story *models.ProviderStory) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "body", "image_url", "updated_at"}),
		}).
		Create(story).Error
}

func (r *GormStoryRepository) Delete(ctx context.Context, providerID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("provider_id = ?", providerID).Delete(&models.ProviderStory{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
