package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "marketplace-service/common/errors"
	"marketplace-service/models"
)

// GroupOrderRepository defines the interface for group order data access.
type GroupOrderRepository interface {
	Create(ctx context.Context, group *models.GroupOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GroupOrder, error)
	ListOpen(ctx context.Context, now time.Time, page, limit int) ([]models.GroupOrder, int64, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, page, limit int) ([]models.GroupOrder, int64, error)
	// Close moves an open group order to closed and reports whether it did.
	Close(ctx context.Context, id uuid.UUID) (bool, error)

	FindProduct(ctx context.Context, groupID, productID uuid.UUID) (*models.GroupOrderProduct, error)
	// DecrementMaxQuantity draws qty from the reservation only when at least
	// qty remain, returning ErrInsufficientStock otherwise.
	DecrementMaxQuantity(ctx context.Context, groupProductID uuid.UUID, qty int) error
	// ClearReservation zeroes max_quantity if it still equals expected.
	ClearReservation(ctx context.Context, groupProductID uuid.UUID, expected int) (bool, error)

	CreateParticipant(ctx context.Context, participant *models.GroupOrderParticipant) error
	CreateItem(ctx context.Context, item *models.GroupOrderItem) error
	CreateDeliveryDetail(ctx context.Context, detail *models.GroupOrderDeliveryDetail) error
	HasPaidParticipant(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	ListParticipants(ctx context.Context, groupID uuid.UUID) ([]models.GroupOrderParticipant, error)
}

// GormGroupOrderRepository implements GroupOrderRepository using GORM.
type GormGroupOrderRepository struct {
	db *gorm.DB
}

// NewGormGroupOrderRepository creates a new GormGroupOrderRepository.
func NewGormGroupOrderRepository(db *gorm.DB) GroupOrderRepository {
	return &GormGroupOrderRepository{db: db}
}

func (r *GormGroupOrderRepository) Create(ctx context.Context, group *models.GroupOrder) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *GormGroupOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.GroupOrder, error) {
	var group models.GroupOrder
	err := r.db.WithContext(ctx).
		Preload("Products.Product").
		Where("id = ?", id).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *GormGroupOrderRepository) ListOpen(ctx context.Context, now time.Time, page, limit int) ([]models.GroupOrder, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.GroupOrder{}).
		Where("status = ? AND (deadline IS NULL OR deadline > ?)", models.GroupOrderOpen, now)
	return r.paginated(query, page, limit)
}

func (r *GormGroupOrderRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, page, limit int) ([]models.GroupOrder, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.GroupOrder{}).
		Where("provider_id = ?", providerID)
	return r.paginated(query, page, limit)
}

func (r *GormGroupOrderRepository) paginated(query *gorm.DB, page, limit int) ([]models.GroupOrder, int64, error) {
	var groups []models.GroupOrder
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.
		Preload("Products.Product").
		Offset(offsetFor(page, limit)).
		Limit(limit).
		Order("created_at DESC").
		Find(&groups).Error; err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

func (r *GormGroupOrderRepository) Close(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GroupOrder{}).
		Where("id = ? AND status = ?", id, models.GroupOrderOpen).
		Update("status", models.GroupOrderClosed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormGroupOrderRepository) FindProduct(ctx context.Context, groupID, productID uuid.UUID) (*models.GroupOrderProduct, error) {
	var gp models.GroupOrderProduct
	err := r.db.WithContext(ctx).
		Where("group_order_id = ? AND product_id = ?", groupID, productID).
		First(&gp).Error
	if err != nil {
		return nil, err
	}
	return &gp, nil
}

func (r *GormGroupOrderRepository) DecrementMaxQuantity(ctx context.Context, groupProductID uuid.UUID, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&models.GroupOrderProduct{}).
		Where("id = ? AND max_quantity >= ?", groupProductID, qty).
		UpdateColumn("max_quantity", gorm.Expr("max_quantity - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrInsufficientStock
	}
	return nil
}

func (r *GormGroupOrderRepository) ClearReservation(ctx context.Context, groupProductID uuid.UUID, expected int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GroupOrderProduct{}).
		Where("id = ? AND max_quantity = ?", groupProductID, expected).
		UpdateColumn("max_quantity", 0)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormGroupOrderRepository) CreateParticipant(ctx context.Context, participant *models.GroupOrderParticipant) error {
	return r.db.WithContext(ctx).Omit("Items").Create(participant).Error
}

func (r *GormGroupOrderRepository) CreateItem(ctx context.Context, item *models.GroupOrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *GormGroupOrderRepository) CreateDeliveryDetail(ctx context.Context, detail *models.GroupOrderDeliveryDetail) error {
	return r.db.WithContext(ctx).Create(detail).Error
}

func (r *GormGroupOrderRepository) HasPaidParticipant(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupOrderParticipant{}).
		Where("group_order_id = ? AND user_id = ? AND paid = ?", groupID, userID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *GormGroupOrderRepository) ListParticipants(ctx context.Context, groupID uuid.UUID) ([]models.GroupOrderParticipant, error) {
	var participants []models.GroupOrderParticipant
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("group_order_id = ?", groupID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}
