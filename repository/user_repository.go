package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace-service/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	ListProviders(ctx context.Context, page, limit int) ([]models.ProviderSummary, int64, error)
}

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// UpdateRole changes a user's role.
func (r *GormUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("role", role).
		Error
}

// ListProviders returns provider accounts with their product counts.
func (r *GormUserRepository) ListProviders(ctx context.Context, page, limit int) ([]models.ProviderSummary, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleProvider)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProviderSummary
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.name, users.email, users.store_name, users.created_at, COUNT(products.id) AS product_count").
		Joins("LEFT JOIN products ON products.producer_id = users.id").
		Where("users.role = ?", models.RoleProvider).
		Group("users.id, users.name, users.email, users.store_name, users.created_at").
		Order("users.created_at DESC").
		Offset(offsetFor(page, limit)).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
