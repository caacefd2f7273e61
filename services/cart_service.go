package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/models"
	"marketplace-service/repository"
)

// CartService keeps the consumer's cart in Redis. Prices are never stored;
// checkout re-reads them.
type CartService interface {
	Get(ctx context.Context, caller Caller) (*models.Cart, *ServiceError)
	AddItem(ctx context.Context, caller Caller, req *models.AddCartItemRequest) (*models.Cart, *ServiceError)
	RemoveItem(ctx context.Context, caller Caller, productID uuid.UUID) (*models.Cart, *ServiceError)
	Clear(ctx context.Context, caller Caller) *ServiceError
}

type cartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *zap.Logger) CartService {
	return &cartService{carts: carts, products: products, logger: logger}
}

func (s *cartService) Get(ctx context.Context, caller Caller) (*models.Cart, *ServiceError) {
	cart, err := s.carts.GetCart(ctx, caller.UserID.String())
	if err != nil {
		s.logger.Error("Failed to load cart", zap.Error(err))
		return nil, internalError()
	}
	if cart == nil {
		cart = &models.Cart{UserID: caller.UserID.String(), Items: []models.CartItem{}}
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, caller Caller, req *models.AddCartItemRequest) (*models.Cart, *ServiceError) {
	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Product not found")
		}
		s.logger.Error("Failed to load product", zap.Error(err))
		return nil, internalError()
	}
	if !product.IsAvailable {
		return nil, badRequest(product.Name + " is not available")
	}

	cart, svcErr := s.Get(ctx, caller)
	if svcErr != nil {
		return nil, svcErr
	}

	quantity := req.Quantity
	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == req.ProductID {
			cart.Items[i].Quantity += req.Quantity
			quantity = cart.Items[i].Quantity
			found = true
			break
		}
	}
	if quantity > product.QuantityAvailable {
		return nil, badRequest("Insufficient stock for " + product.Name)
	}
	if !found {
		cart.Items = append(cart.Items, models.CartItem{ProductID: req.ProductID, Quantity: req.Quantity})
	}

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		s.logger.Error("Failed to save cart", zap.Error(err))
		return nil, internalError()
	}
	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, caller Caller, productID uuid.UUID) (*models.Cart, *ServiceError) {
	cart, svcErr := s.Get(ctx, caller)
	if svcErr != nil {
		return nil, svcErr
	}

	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	cart.Items = items

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		s.logger.Error("Failed to save cart", zap.Error(err))
		return nil, internalError()
	}
	return cart, nil
}

func (s *cartService) Clear(ctx context.Context, caller Caller) *ServiceError {
	if err := s.carts.DeleteCart(ctx, caller.UserID.String()); err != nil {
		s.logger.Error("Failed to clear cart", zap.Error(err))
		return internalError()
	}
	return nil
}
