package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/models"
	"marketplace-service/repository"
)

// OrderService exposes paid orders to their buyer and their producer.
type OrderService interface {
	ListForConsumer(ctx context.Context, caller Caller, page, limit int) ([]models.Order, int64, *ServiceError)
	ListForProvider(ctx context.Context, caller Caller, page, limit int) ([]models.Order, int64, *ServiceError)
	Get(ctx context.Context, caller Caller, id uuid.UUID) (*models.Order, *ServiceError)
	Fulfill(ctx context.Context, caller Caller, id uuid.UUID) (*models.Order, *ServiceError)
}

type orderService struct {
	orders repository.OrderRepository
	now    func() time.Time
	logger *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, logger *zap.Logger) OrderService {
	return &orderService{orders: orders, now: time.Now, logger: logger}
}

func (s *orderService) ListForConsumer(ctx context.Context, caller Caller, page, limit int) ([]models.Order, int64, *ServiceError) {
	orders, total, err := s.orders.FindByUserID(ctx, caller.UserID, page, limit)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, 0, internalError()
	}
	return orders, total, nil
}

func (s *orderService) ListForProvider(ctx context.Context, caller Caller, page, limit int) ([]models.Order, int64, *ServiceError) {
	orders, total, err := s.orders.FindByProducerID(ctx, caller.UserID, page, limit)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, 0, internalError()
	}
	return orders, total, nil
}

func (s *orderService) Get(ctx context.Context, caller Caller, id uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Order not found")
		}
		s.logger.Error("Failed to load order", zap.Error(err))
		return nil, internalError()
	}
	if order.UserID != caller.UserID && order.ProducerID != caller.UserID && !caller.IsAdmin() {
		return nil, notFound("Order not found")
	}
	return order, nil
}

func (s *orderService) Fulfill(ctx context.Context, caller Caller, id uuid.UUID) (*models.Order, *ServiceError) {
	if err := s.orders.MarkFulfilled(ctx, id, caller.UserID, s.now()); err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Order not found")
		}
		s.logger.Error("Failed to fulfill order", zap.String("order_id", id.String()), zap.Error(err))
		return nil, internalError()
	}
	return s.Get(ctx, caller, id)
}
