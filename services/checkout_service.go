package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace-service/models"
	awspkg "marketplace-service/pkg/aws"
	"marketplace-service/repository"
)

// DeliveryFeeLineName labels the flat delivery fee line.
const DeliveryFeeLineName = "Delivery fee"

// CheckoutConfig holds the pricing and redirect settings of checkout.
type CheckoutConfig struct {
	Currency         string
	DeliveryFeeCents int64
	FrontendURL      string
}

// CheckoutService creates hosted checkout sessions. Nothing is written to
// the database here; orders are created when the payment is confirmed.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, caller Caller, req *models.CheckoutRequest) (*models.CheckoutResponse, *ServiceError)
	JoinGroupOrder(ctx context.Context, caller Caller, req *models.GroupCheckoutRequest) (*models.CheckoutResponse, *ServiceError)
}

type checkoutService struct {
	products repository.ProductRepository
	groups   repository.GroupOrderRepository
	coupons  CouponService
	gateway  PaymentGateway
	metrics  *awspkg.MetricsClient
	cfg      CheckoutConfig
	now      func() time.Time
	logger   *zap.Logger
}

func NewCheckoutService(
	products repository.ProductRepository,
	groups repository.GroupOrderRepository,
	coupons CouponService,
	gateway PaymentGateway,
	metrics *awspkg.MetricsClient,
	cfg CheckoutConfig,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		products: products,
		groups:   groups,
		coupons:  coupons,
		gateway:  gateway,
		metrics:  metrics,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// UnitCents converts a unit price to cents after a percentage discount.
func UnitCents(price decimal.Decimal, discountPercent int) int64 {
	return price.Mul(decimal.NewFromInt(int64(100 - discountPercent))).Round(0).IntPart()
}

func (s *checkoutService) CreateCheckoutSession(ctx context.Context, caller Caller, req *models.CheckoutRequest) (*models.CheckoutResponse, *ServiceError) {
	if len(req.Items) == 0 {
		return nil, badRequest("No items provided")
	}

	method := req.PickupOrDelivery
	if method == "" {
		method = models.FulfillmentPickup
	}
	if method == models.FulfillmentDelivery && req.DeliveryDetails == nil {
		return nil, badRequest("Delivery details are required for delivery orders")
	}

	discount := 0
	couponCode := ""
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		coupon, svcErr := s.coupons.ValidateForCheckout(ctx, code, caller.UserID)
		if svcErr != nil {
			return nil, svcErr
		}
		discount = coupon.DiscountPercent
		couponCode = coupon.Code
	}

	items := mergeItems(req.Items)
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to load products for checkout", zap.Error(err))
		return nil, internalError()
	}

	var lines []LineItem
	var intentItems []IntentItem
	var total int64
	for _, it := range items {
		product, ok := products[it.ProductID]
		if !ok {
			return nil, badRequest(fmt.Sprintf("Product %s not found", it.ProductID))
		}
		if !product.IsAvailable {
			return nil, badRequest(fmt.Sprintf("%s is not available", product.Name))
		}
		if it.Quantity > product.QuantityAvailable {
			return nil, badRequest(fmt.Sprintf("Insufficient stock for %s", product.Name))
		}

		unit := UnitCents(product.Price, discount)
		lines = append(lines, LineItem{Name: product.Name, UnitAmount: unit, Quantity: int64(it.Quantity)})
		intentItems = append(intentItems, IntentItem{ProductID: product.ID, Quantity: it.Quantity, UnitCents: unit})
		total += unit * int64(it.Quantity)
	}

	var delivery *IntentDelivery
	if method == models.FulfillmentDelivery {
		lines = append(lines, LineItem{Name: DeliveryFeeLineName, UnitAmount: s.cfg.DeliveryFeeCents, Quantity: 1})
		total += s.cfg.DeliveryFeeCents
		delivery = toIntentDelivery(req.DeliveryDetails)
	}

	intent := &OrderIntent{
		Version:          OrderIntentVersion,
		Kind:             IntentIndividual,
		UserID:           caller.UserID,
		Items:            intentItems,
		TotalCents:       total,
		CouponCode:       couponCode,
		DiscountPercent:  discount,
		PickupOrDelivery: method,
		Delivery:         delivery,
		Notes:            req.Notes,
	}
	return s.startSession(ctx, caller, intent, lines)
}

func (s *checkoutService) JoinGroupOrder(ctx context.Context, caller Caller, req *models.GroupCheckoutRequest) (*models.CheckoutResponse, *ServiceError) {
	if len(req.Items) == 0 {
		return nil, badRequest("No items provided")
	}
	if strings.TrimSpace(req.CouponCode) != "" {
		return nil, badRequest("Coupons cannot be applied to group orders")
	}

	group, err := s.groups.FindByID(ctx, req.GroupOrderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Group order not found")
		}
		s.logger.Error("Failed to load group order", zap.Error(err))
		return nil, internalError()
	}
	if !group.IsActive(s.now()) {
		return nil, badRequest("Group order is no longer open")
	}

	joined, err := s.groups.HasPaidParticipant(ctx, group.ID, caller.UserID)
	if err != nil {
		s.logger.Error("Failed to check group participation", zap.Error(err))
		return nil, internalError()
	}
	if joined {
		return nil, badRequest("You have already joined this group order")
	}

	offered := make(map[uuid.UUID]models.GroupOrderProduct, len(group.Products))
	for _, gp := range group.Products {
		offered[gp.ProductID] = gp
	}

	var lines []LineItem
	var intentItems []IntentItem
	var total int64
	for _, it := range mergeItems(req.Items) {
		gp, ok := offered[it.ProductID]
		if !ok {
			return nil, badRequest(fmt.Sprintf("Product %s is not part of this group order", it.ProductID))
		}
		name := group.Title
		if gp.Product != nil {
			name = gp.Product.Name
		}
		if it.Quantity > gp.MaxQuantity {
			return nil, badRequest(fmt.Sprintf("Requested quantity exceeds what remains for %s", name))
		}

		unit := UnitCents(gp.UnitPrice, 0)
		lines = append(lines, LineItem{Name: name, UnitAmount: unit, Quantity: int64(it.Quantity)})
		intentItems = append(intentItems, IntentItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitCents: unit})
		total += unit * int64(it.Quantity)
	}

	groupID := group.ID
	intent := &OrderIntent{
		Version:      OrderIntentVersion,
		Kind:         IntentGroup,
		UserID:       caller.UserID,
		GroupOrderID: &groupID,
		Items:        intentItems,
		TotalCents:   total,
		Delivery:     toIntentDelivery(req.DeliveryDetails),
		Notes:        req.Notes,
	}
	return s.startSession(ctx, caller, intent, lines)
}

func (s *checkoutService) startSession(ctx context.Context, caller Caller, intent *OrderIntent, lines []LineItem) (*models.CheckoutResponse, *ServiceError) {
	// payment-mode sessions cannot charge nothing
	if intent.TotalCents <= 0 {
		return nil, badRequest("Order total must be greater than zero")
	}
	meta, err := intent.EncodeMetadata()
	if err != nil {
		if errors.Is(err, ErrIntentTooLarge) {
			return nil, badRequest("Too many items in a single checkout")
		}
		s.logger.Error("Failed to encode order intent", zap.Error(err))
		return nil, badRequest("Invalid checkout request")
	}

	base := strings.TrimRight(s.cfg.FrontendURL, "/")
	sess, err := s.gateway.CreateCheckoutSession(ctx, &CheckoutSessionRequest{
		LineItems:     lines,
		Metadata:      meta,
		Currency:      s.cfg.Currency,
		CustomerEmail: caller.Email,
		SuccessURL:    base + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     base + "/checkout/cancel",
	})
	if err != nil {
		s.logger.Error("Failed to create checkout session",
			zap.String("user_id", caller.UserID.String()),
			zap.String("kind", intent.Kind),
			zap.Error(err))
		return nil, internalError()
	}

	go func() {
		_ = s.metrics.RecordCount(context.Background(), awspkg.MetricCheckoutSessions, map[string]string{"Kind": intent.Kind})
	}()
	s.logger.Info("Checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("kind", intent.Kind),
		zap.Int64("total_cents", intent.TotalCents))
	return &models.CheckoutResponse{URL: sess.URL, SessionID: sess.ID}, nil
}

// mergeItems folds repeated product ids into one line, keeping first-seen order.
func mergeItems(items []models.CheckoutItem) []models.CheckoutItem {
	index := make(map[uuid.UUID]int, len(items))
	out := make([]models.CheckoutItem, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

func toIntentDelivery(d *models.DeliveryDetails) *IntentDelivery {
	if d == nil {
		return nil
	}
	return &IntentDelivery{Address: d.Address, City: d.City, PostalCode: d.PostalCode, Phone: d.Phone}
}
