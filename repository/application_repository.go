package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace-service/models"
)

// ApplicationRepository defines the interface for provider application data access.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.Application, error)
	HasPending(ctx context.Context, userID uuid.UUID) (bool, error)
	List(ctx context.Context, status string, page, limit int) ([]models.Application, int64, error)
	Update(ctx context.Context, app *models.Application) error
}

type GormApplicationRepository struct {
	db *gorm.DB
}

func NewGormApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &GormApplicationRepository{db: db}
}

func (r *GormApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	return r.db.WithContext(ctx).Omit("User").Create(app).Error
}

func (r *GormApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *GormApplicationRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *GormApplicationRepository) HasPending(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("user_id = ? AND status = ?", userID, models.ApplicationPending).
		Count(&count).Error
	return count > 0, err
}

// List returns applications, optionally filtered by status, newest first.
func (r *GormApplicationRepository) List(ctx context.Context, status string, page, limit int) ([]models.Application, int64, error) {
	var apps []models.Application
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Application{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.
		Preload("User").
		Offset(offsetFor(page, limit)).
		Limit(limit).
		Order("created_at DESC").
		Find(&apps).Error; err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *GormApplicationRepository) Update(ctx context.Context, app *models.Application) error {
	return r.db.WithContext(ctx).Omit("User").Save(app).Error
}
