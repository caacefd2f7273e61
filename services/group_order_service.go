package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "marketplace-service/common/errors"
	"marketplace-service/models"
	"marketplace-service/repository"
)

// maxReleaseAttempts bounds the compare-and-set loop that returns an unsold
// reservation to stock while webhooks may still be drawing it down.
const maxReleaseAttempts = 5

// GroupOrderService manages provider bulk offers. Joining happens through
// CheckoutService.JoinGroupOrder.
type GroupOrderService interface {
	Create(ctx context.Context, caller Caller, req *models.CreateGroupOrderRequest) (*models.GroupOrder, *ServiceError)
	Get(ctx context.Context, id uuid.UUID) (*models.GroupOrder, *ServiceError)
	ListOpen(ctx context.Context, page, limit int) ([]models.GroupOrder, int64, *ServiceError)
	ListMine(ctx context.Context, caller Caller, page, limit int) ([]models.GroupOrder, int64, *ServiceError)
	Close(ctx context.Context, caller Caller, id uuid.UUID) (*models.GroupOrder, *ServiceError)
	Participants(ctx context.Context, caller Caller, id uuid.UUID) ([]models.GroupOrderParticipant, *ServiceError)
}

type groupOrderService struct {
	groups repository.GroupOrderRepository
	uow    repository.UnitOfWork
	now    func() time.Time
	logger *zap.Logger
}

func NewGroupOrderService(groups repository.GroupOrderRepository, uow repository.UnitOfWork, logger *zap.Logger) GroupOrderService {
	return &groupOrderService{groups: groups, uow: uow, now: time.Now, logger: logger}
}

// Create reserves max_quantity of each product from live stock and stores
// the offer. Any failing reservation rolls back all of them.
func (s *groupOrderService) Create(ctx context.Context, caller Caller, req *models.CreateGroupOrderRequest) (*models.GroupOrder, *ServiceError) {
	if req.Deadline != nil && !req.Deadline.After(s.now()) {
		return nil, badRequest("Deadline must be in the future")
	}

	seen := make(map[uuid.UUID]bool, len(req.Products))
	for _, p := range req.Products {
		if seen[p.ProductID] {
			return nil, badRequest(fmt.Sprintf("Product %s is listed more than once", p.ProductID))
		}
		seen[p.ProductID] = true
		if p.UnitPrice.IsNegative() {
			return nil, badRequest("Unit price cannot be negative")
		}
	}

	group := &models.GroupOrder{
		ProviderID:  caller.UserID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      models.GroupOrderOpen,
		Deadline:    req.Deadline,
	}

	var svcErr *ServiceError
	err := s.uow.WithinTransaction(ctx, func(repos repository.Repositories) error {
		for _, input := range req.Products {
			product, err := repos.Products.FindByID(ctx, input.ProductID)
			if err != nil {
				if repository.IsNotFound(err) {
					svcErr = badRequest(fmt.Sprintf("Product %s not found", input.ProductID))
					return svcErr
				}
				return err
			}
			if product.ProducerID != caller.UserID {
				svcErr = forbidden(fmt.Sprintf("You do not own product %s", product.Name))
				return svcErr
			}

			if err := repos.Products.DecrementStock(ctx, product.ID, input.MaxQuantity); err != nil {
				if errors.Is(err, apperrors.ErrInsufficientStock) {
					svcErr = badRequest(fmt.Sprintf("Insufficient stock for %s", product.Name))
					return svcErr
				}
				return err
			}

			price := input.UnitPrice
			if price.IsZero() {
				price = product.Price
			}
			group.Products = append(group.Products, models.GroupOrderProduct{
				ProductID:   product.ID,
				MaxQuantity: input.MaxQuantity,
				UnitPrice:   price,
			})
		}
		return repos.GroupOrders.Create(ctx, group)
	})
	if svcErr != nil {
		return nil, svcErr
	}
	if err != nil {
		s.logger.Error("Failed to create group order", zap.Error(err))
		return nil, internalError()
	}

	s.logger.Info("Group order created",
		zap.String("group_order_id", group.ID.String()),
		zap.Int("products", len(group.Products)))
	return s.Get(ctx, group.ID)
}

func (s *groupOrderService) Get(ctx context.Context, id uuid.UUID) (*models.GroupOrder, *ServiceError) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Group order not found")
		}
		s.logger.Error("Failed to load group order", zap.Error(err))
		return nil, internalError()
	}
	return group, nil
}

func (s *groupOrderService) ListOpen(ctx context.Context, page, limit int) ([]models.GroupOrder, int64, *ServiceError) {
	groups, total, err := s.groups.ListOpen(ctx, s.now(), page, limit)
	if err != nil {
		s.logger.Error("Failed to list group orders", zap.Error(err))
		return nil, 0, internalError()
	}
	return groups, total, nil
}

func (s *groupOrderService) ListMine(ctx context.Context, caller Caller, page, limit int) ([]models.GroupOrder, int64, *ServiceError) {
	groups, total, err := s.groups.ListByProvider(ctx, caller.UserID, page, limit)
	if err != nil {
		s.logger.Error("Failed to list group orders", zap.Error(err))
		return nil, 0, internalError()
	}
	return groups, total, nil
}

func (s *groupOrderService) owned(ctx context.Context, caller Caller, id uuid.UUID) (*models.GroupOrder, *ServiceError) {
	group, svcErr := s.Get(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if group.ProviderID != caller.UserID && !caller.IsAdmin() {
		return nil, forbidden("You do not own this group order")
	}
	return group, nil
}

// Close stops new participants and returns every unsold reservation to
// product stock.
func (s *groupOrderService) Close(ctx context.Context, caller Caller, id uuid.UUID) (*models.GroupOrder, *ServiceError) {
	group, svcErr := s.owned(ctx, caller, id)
	if svcErr != nil {
		return nil, svcErr
	}

	err := s.uow.WithinTransaction(ctx, func(repos repository.Repositories) error {
		closed, err := repos.GroupOrders.Close(ctx, group.ID)
		if err != nil {
			return err
		}
		if !closed {
			svcErr = conflict("Group order is already closed")
			return svcErr
		}
		for _, gp := range group.Products {
			if err := s.release(ctx, repos, group.ID, gp.ProductID); err != nil {
				return err
			}
		}
		return nil
	})
	if svcErr != nil {
		return nil, svcErr
	}
	if err != nil {
		s.logger.Error("Failed to close group order", zap.String("group_order_id", id.String()), zap.Error(err))
		return nil, internalError()
	}
	return s.Get(ctx, id)
}

func (s *groupOrderService) release(ctx context.Context, repos repository.Repositories, groupID, productID uuid.UUID) error {
	for attempt := 0; attempt < maxReleaseAttempts; attempt++ {
		gp, err := repos.GroupOrders.FindProduct(ctx, groupID, productID)
		if err != nil {
			return err
		}
		if gp.MaxQuantity <= 0 {
			return nil
		}
		cleared, err := repos.GroupOrders.ClearReservation(ctx, gp.ID, gp.MaxQuantity)
		if err != nil {
			return err
		}
		if cleared {
			return repos.Products.IncrementStock(ctx, productID, gp.MaxQuantity)
		}
	}
	return fmt.Errorf("release reservation for product %s: too much contention", productID)
}

func (s *groupOrderService) Participants(ctx context.Context, caller Caller, id uuid.UUID) ([]models.GroupOrderParticipant, *ServiceError) {
	if _, svcErr := s.owned(ctx, caller, id); svcErr != nil {
		return nil, svcErr
	}
	participants, err := s.groups.ListParticipants(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list participants", zap.Error(err))
		return nil, internalError()
	}
	return participants, nil
}
