package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace-service/models"
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error)
	FindByProducerID(ctx context.Context, producerID uuid.UUID, page, limit int) ([]models.Order, int64, error)
	FindBySession(ctx context.Context, sessionID string) ([]models.Order, error)
	MarkFulfilled(ctx context.Context, id, producerID uuid.UUID, at time.Time) error
}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new instance of GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

// Create inserts the order together with its items and delivery details.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Details").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUserID retrieves orders for a specific user with pagination
func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	return r.paginated(ctx, "user_id = ?", userID, page, limit)
}

// FindByProducerID retrieves orders placed with a producer with pagination
func (r *GormOrderRepository) FindByProducerID(ctx context.Context, producerID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	return r.paginated(ctx, "producer_id = ?", producerID, page, limit)
}

func (r *GormOrderRepository) paginated(ctx context.Context, cond string, arg interface{}, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{}).Where(cond, arg)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Items").
		Preload("Details").
		Offset(offsetFor(page, limit)).
		Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormOrderRepository) FindBySession(ctx context.Context, sessionID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("stripe_session_id = ?", sessionID).
		Find(&orders).Error
	return orders, err
}

// MarkFulfilled flips an order owned by producerID to fulfilled.
func (r *GormOrderRepository) MarkFulfilled(ctx context.Context, id, producerID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND producer_id = ?", id, producerID).
		Updates(map[string]interface{}{
			"fulfilled":    true,
			"fulfilled_at": at,
			"status":       models.OrderStatusFulfilled,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
