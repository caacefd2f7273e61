package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace-service/models"
)

// ReportRepository reads sold lines for revenue reporting.
type ReportRepository interface {
	RevenueLines(ctx context.Context, providerID uuid.UUID, from, to *time.Time) ([]models.RevenueLine, error)
	CountOrders(ctx context.Context, providerID uuid.UUID, from, to *time.Time) (int64, error)
}

type GormReportRepository struct {
	db *gorm.DB
}

func NewGormReportRepository(db *gorm.DB) ReportRepository {
	return &GormReportRepository{db: db}
}

// RevenueLines returns individual order lines and paid group order lines for
// the provider, oldest first.
func (r *GormReportRepository) RevenueLines(ctx context.Context, providerID uuid.UUID, from, to *time.Time) ([]models.RevenueLine, error) {
	var individual []models.RevenueLine
	q := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.name AS product_name, order_items.quantity, order_items.unit_price, orders.created_at AS sold_at").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.producer_id = ?", providerID)
	q = withinPeriod(q, "orders.created_at", from, to)
	if err := q.Order("orders.created_at ASC").Scan(&individual).Error; err != nil {
		return nil, err
	}

	var group []models.RevenueLine
	q = r.db.WithContext(ctx).
		Table("group_order_items").
		Select("products.name AS product_name, group_order_items.quantity, group_order_items.unit_price, group_order_participants.joined_at AS sold_at").
		Joins("JOIN group_order_participants ON group_order_participants.id = group_order_items.participant_id").
		Joins("JOIN group_orders ON group_orders.id = group_order_participants.group_order_id").
		Joins("LEFT JOIN products ON products.id = group_order_items.product_id").
		Where("group_orders.provider_id = ? AND group_order_participants.paid = ?", providerID, true)
	q = withinPeriod(q, "group_order_participants.joined_at", from, to)
	if err := q.Order("group_order_participants.joined_at ASC").Scan(&group).Error; err != nil {
		return nil, err
	}
	for i := range group {
		group[i].Group = true
	}

	return append(individual, group...), nil
}

func (r *GormReportRepository) CountOrders(ctx context.Context, providerID uuid.UUID, from, to *time.Time) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("producer_id = ?", providerID)
	q = withinPeriod(q, "created_at", from, to)
	err := q.Count(&count).Error
	return count, err
}

func withinPeriod(q *gorm.DB, column string, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where(column+" >= ?", *from)
	}
	if to != nil {
		q = q.Where(column+" < ?", *to)
	}
	return q
}
