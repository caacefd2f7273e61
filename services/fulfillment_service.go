package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "marketplace-service/common/errors"
	"marketplace-service/models"
	awspkg "marketplace-service/pkg/aws"
	"marketplace-service/repository"
)

// CompletedSession is the part of a completed checkout session that
// fulfillment reads.
type CompletedSession struct {
	ID            string
	PaymentStatus string
	Metadata      map[string]string
}

// FulfillmentResult describes what a confirmation did.
type FulfillmentResult struct {
	SessionID        string
	Kind             string
	AlreadyProcessed bool
	Skipped          bool
	Unfulfillable    bool
	OrderIDs         []uuid.UUID
	ParticipantID    *uuid.UUID
	Shortfalls       int
}

// FulfillmentService turns a paid checkout session into persisted orders.
// Each session is applied at most once.
type FulfillmentService interface {
	ConfirmSession(ctx context.Context, sess CompletedSession) (*FulfillmentResult, *ServiceError)
}

type fulfillmentService struct {
	uow              repository.UnitOfWork
	users            repository.UserRepository
	carts            repository.CartRepository
	cache            repository.ProcessedSessionCache
	coupons          CouponService
	notifier         Notifier
	events           EventPublisher
	metrics          *awspkg.MetricsClient
	deliveryFeeCents int64
	now              func() time.Time
	logger           *zap.Logger
}

// FulfillmentDeps groups the collaborators of NewFulfillmentService. Carts,
// Cache and Metrics may be nil.
type FulfillmentDeps struct {
	UnitOfWork       repository.UnitOfWork
	Users            repository.UserRepository
	Carts            repository.CartRepository
	Cache            repository.ProcessedSessionCache
	Coupons          CouponService
	Notifier         Notifier
	Events           EventPublisher
	Metrics          *awspkg.MetricsClient
	DeliveryFeeCents int64
}

func NewFulfillmentService(deps FulfillmentDeps, logger *zap.Logger) FulfillmentService {
	events := deps.Events
	if events == nil {
		events = NewNoopEventPublisher()
	}
	return &fulfillmentService{
		uow:              deps.UnitOfWork,
		users:            deps.Users,
		carts:            deps.Carts,
		cache:            deps.Cache,
		coupons:          deps.Coupons,
		notifier:         deps.Notifier,
		events:           events,
		metrics:          deps.Metrics,
		deliveryFeeCents: deps.DeliveryFeeCents,
		now:              time.Now,
		logger:           logger,
	}
}

func (s *fulfillmentService) ConfirmSession(ctx context.Context, sess CompletedSession) (*FulfillmentResult, *ServiceError) {
	log := s.logger.With(zap.String("session_id", sess.ID))
	result := &FulfillmentResult{SessionID: sess.ID}

	if sess.PaymentStatus != "" && sess.PaymentStatus != "paid" && sess.PaymentStatus != "no_payment_required" {
		log.Info("Checkout session not paid yet, skipping", zap.String("payment_status", sess.PaymentStatus))
		result.Skipped = true
		return result, nil
	}

	if s.cache != nil {
		seen, err := s.cache.Seen(ctx, sess.ID)
		if err != nil {
			log.Warn("Processed-session cache lookup failed", zap.Error(err))
		} else if seen {
			log.Info("Checkout session already processed (cache)")
			result.AlreadyProcessed = true
			s.recordCount(awspkg.MetricWebhookDuplicates, nil)
			return result, nil
		}
	}

	intent, err := DecodeOrderIntent(sess.Metadata)
	if err != nil {
		log.Error("Rejecting checkout session with invalid order intent", zap.Error(err))
		return nil, badRequest("Invalid order metadata")
	}
	result.Kind = intent.Kind

	err = s.uow.WithinTransaction(ctx, func(repos repository.Repositories) error {
		inserted, err := repos.ProcessedSessions.MarkProcessed(ctx, &models.ProcessedStripeSession{
			SessionID:   sess.ID,
			Kind:        intent.Kind,
			UserID:      intent.UserID,
			ProcessedAt: s.now(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			result.AlreadyProcessed = true
			return nil
		}

		if intent.IsGroup() {
			return s.applyGroup(ctx, repos, sess.ID, intent, result, log)
		}
		return s.applyIndividual(ctx, repos, sess.ID, intent, result, log)
	})
	if err != nil {
		log.Error("Failed to apply checkout session", zap.String("kind", intent.Kind), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: apperrors.ErrInternal.Message}
	}

	s.rememberProcessed(ctx, sess.ID, log)
	if result.AlreadyProcessed {
		log.Info("Checkout session already processed")
		s.recordCount(awspkg.MetricWebhookDuplicates, nil)
		return result, nil
	}

	if result.Unfulfillable {
		return result, nil
	}

	s.afterCommit(ctx, intent, result, log)
	return result, nil
}

func (s *fulfillmentService) applyIndividual(
	ctx context.Context,
	repos repository.Repositories,
	sessionID string,
	intent *OrderIntent,
	result *FulfillmentResult,
	log *zap.Logger,
) error {
	ids := make([]uuid.UUID, 0, len(intent.Items))
	for _, it := range intent.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := repos.Products.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}

	// one order per producer, in the order producers first appear
	var orders []*models.Order
	byProducer := make(map[uuid.UUID]*models.Order)
	for _, it := range intent.Items {
		product, ok := products[it.ProductID]
		if !ok {
			log.Warn("Product in paid checkout no longer exists, skipping line", zap.String("product_id", it.ProductID.String()))
			continue
		}

		shortfall, err := s.decrement(repos.Products.DecrementStock(ctx, product.ID, it.Quantity))
		if err != nil {
			return err
		}
		if shortfall {
			result.Shortfalls++
			log.Warn("Insufficient stock at confirmation, line kept without decrement",
				zap.String("product_id", product.ID.String()),
				zap.Int("quantity", it.Quantity))
		}

		order, ok := byProducer[product.ProducerID]
		if !ok {
			order = &models.Order{
				UserID:           intent.UserID,
				ProducerID:       product.ProducerID,
				StripeSessionID:  sessionID,
				Status:           models.OrderStatusPaid,
				PickupOrDelivery: intent.PickupOrDelivery,
				TotalAmount:      decimal.Zero,
				DeliveryFee:      decimal.Zero,
				CouponCode:       intent.CouponCode,
				DiscountPercent:  intent.DiscountPercent,
				Notes:            intent.Notes,
			}
			byProducer[product.ProducerID] = order
			orders = append(orders, order)
		}

		unit := decimal.New(it.UnitCents, -2)
		order.Items = append(order.Items, models.OrderItem{
			ProductID:      product.ID,
			Name:           product.Name,
			Quantity:       it.Quantity,
			UnitPrice:      unit,
			StockShortfall: shortfall,
		})
		order.TotalAmount = order.TotalAmount.Add(unit.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	if len(orders) == 0 {
		log.Error("Paid checkout produced no orders", zap.String("user_id", intent.UserID.String()))
		return nil
	}

	if intent.PickupOrDelivery == models.FulfillmentDelivery {
		// the single flat fee is booked on the first producer's order
		fee := decimal.New(s.deliveryFeeCents, -2)
		orders[0].DeliveryFee = fee
		orders[0].TotalAmount = orders[0].TotalAmount.Add(fee)
		if intent.Delivery != nil {
			for _, order := range orders {
				order.Details = &models.OrderDetails{
					Address:    intent.Delivery.Address,
					City:       intent.Delivery.City,
					PostalCode: intent.Delivery.PostalCode,
					Phone:      intent.Delivery.Phone,
					Notes:      intent.Notes,
				}
			}
		}
	}

	for _, order := range orders {
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}
		result.OrderIDs = append(result.OrderIDs, order.ID)
	}

	if intent.CouponCode != "" {
		if err := s.redeemCoupon(ctx, repos, intent, orders[0].ID, log); err != nil {
			return err
		}
	}
	return nil
}

func (s *fulfillmentService) redeemCoupon(ctx context.Context, repos repository.Repositories, intent *OrderIntent, orderID uuid.UUID, log *zap.Logger) error {
	coupon, err := repos.Coupons.FindByCode(ctx, intent.CouponCode)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Warn("Coupon used at checkout is gone, usage not recorded", zap.String("code", intent.CouponCode))
			return nil
		}
		return err
	}

	inserted, err := repos.Coupons.RecordUsage(ctx, &models.CouponUsage{
		CouponID: coupon.ID,
		UserID:   intent.UserID,
		OrderID:  &orderID,
	})
	if err != nil {
		return err
	}
	if !inserted {
		log.Warn("Coupon already redeemed by this user, skipping", zap.String("code", coupon.Code))
		return nil
	}

	if err := repos.Coupons.IncrementTimesUsed(ctx, coupon.ID); err != nil {
		if errors.Is(err, apperrors.ErrCouponExhausted) {
			log.Warn("Coupon usage limit reached at confirmation", zap.String("code", coupon.Code))
			return nil
		}
		return err
	}
	return nil
}

func (s *fulfillmentService) applyGroup(
	ctx context.Context,
	repos repository.Repositories,
	sessionID string,
	intent *OrderIntent,
	result *FulfillmentResult,
	log *zap.Logger,
) error {
	groupID := *intent.GroupOrderID
	if _, err := repos.GroupOrders.FindByID(ctx, groupID); err != nil {
		if repository.IsNotFound(err) {
			// a deleted group never comes back; mark the session and leave it
			// for manual follow-up
			log.Error("Group order of a paid checkout no longer exists, session recorded without participant",
				zap.String("group_order_id", groupID.String()),
				zap.String("user_id", intent.UserID.String()))
			result.Unfulfillable = true
			return nil
		}
		return err
	}

	participant := &models.GroupOrderParticipant{
		GroupOrderID:    groupID,
		UserID:          intent.UserID,
		StripeSessionID: sessionID,
		Paid:            true,
		Notes:           intent.Notes,
		JoinedAt:        s.now(),
	}
	if err := repos.GroupOrders.CreateParticipant(ctx, participant); err != nil {
		return err
	}
	result.ParticipantID = &participant.ID

	if d := intent.Delivery; d != nil {
		if err := repos.GroupOrders.CreateDeliveryDetail(ctx, &models.GroupOrderDeliveryDetail{
			ParticipantID: participant.ID,
			Address:       d.Address,
			City:          d.City,
			PostalCode:    d.PostalCode,
			Phone:         d.Phone,
		}); err != nil {
			return err
		}
	}

	for _, it := range intent.Items {
		gp, err := repos.GroupOrders.FindProduct(ctx, groupID, it.ProductID)
		if err != nil {
			if repository.IsNotFound(err) {
				log.Warn("Product is not part of the group order, skipping line", zap.String("product_id", it.ProductID.String()))
				continue
			}
			return err
		}

		shortfall, err := s.decrement(repos.GroupOrders.DecrementMaxQuantity(ctx, gp.ID, it.Quantity))
		if err != nil {
			return err
		}
		if shortfall {
			result.Shortfalls++
			log.Warn("Group order reservation exhausted at confirmation, line kept without decrement",
				zap.String("group_order_product_id", gp.ID.String()),
				zap.Int("quantity", it.Quantity))
		}

		if err := repos.GroupOrders.CreateItem(ctx, &models.GroupOrderItem{
			ParticipantID:       participant.ID,
			GroupOrderProductID: gp.ID,
			ProductID:           gp.ProductID,
			Quantity:            it.Quantity,
			UnitPrice:           gp.UnitPrice,
			StockShortfall:      shortfall,
		}); err != nil {
			return err
		}
	}
	return nil
}

// decrement separates the skip-and-warn floor case from real failures.
func (s *fulfillmentService) decrement(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, apperrors.ErrInsufficientStock) {
		return true, nil
	}
	return false, err
}

func (s *fulfillmentService) rememberProcessed(ctx context.Context, sessionID string, log *zap.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Remember(ctx, sessionID); err != nil {
		log.Warn("Failed to cache processed session", zap.Error(err))
	}
}

// afterCommit runs the best-effort side effects of a confirmation. None of
// them can fail the webhook.
func (s *fulfillmentService) afterCommit(ctx context.Context, intent *OrderIntent, result *FulfillmentResult, log *zap.Logger) {
	if result.Shortfalls > 0 {
		s.recordCountValue(awspkg.MetricStockShortfalls, float64(result.Shortfalls))
	}
	s.recordCount(awspkg.MetricOrdersCompleted, map[string]string{"Kind": intent.Kind})

	if !intent.IsGroup() && s.carts != nil {
		if err := s.carts.DeleteCart(ctx, intent.UserID.String()); err != nil {
			log.Warn("Failed to clear cart", zap.Error(err))
		}
	}

	eventType := models.EventOrderPaid
	if intent.IsGroup() {
		eventType = models.EventGroupOrderJoined
	}
	if err := s.events.Publish(ctx, NewDomainEvent(eventType, result.SessionID, map[string]interface{}{
		"session_id":     result.SessionID,
		"user_id":        intent.UserID,
		"order_ids":      result.OrderIDs,
		"participant_id": result.ParticipantID,
		"group_order_id": intent.GroupOrderID,
		"total_cents":    intent.TotalCents,
	})); err != nil {
		log.Warn("Failed to publish event", zap.String("event_type", eventType), zap.Error(err))
	}

	buyer, err := s.users.FindByID(ctx, intent.UserID)
	if err != nil {
		log.Warn("Buyer lookup failed, skipping notifications", zap.String("user_id", intent.UserID.String()), zap.Error(err))
		return
	}

	template := TemplateOrderConfirmation
	if intent.IsGroup() {
		template = TemplateGroupOrderConfirmed
	}
	if err := s.notifier.Notify(ctx, Notification{
		Template: template,
		To:       buyer.Email,
		Name:     buyer.Name,
		Params: map[string]interface{}{
			"name":       buyer.Name,
			"session_id": result.SessionID,
			"total":      decimal.New(intent.TotalCents, -2).StringFixed(2),
			"items":      len(intent.Items),
		},
	}); err != nil {
		log.Warn("Failed to send order confirmation", zap.Error(err))
	}

	coupon, err := s.coupons.IssueLoyaltyCoupon(ctx, buyer.ID)
	if err != nil {
		log.Warn("Failed to issue loyalty coupon", zap.Error(err))
		return
	}
	s.recordCount(awspkg.MetricCouponsIssued, nil)
	if err := s.notifier.Notify(ctx, Notification{
		Template: TemplateLoyaltyCoupon,
		To:       buyer.Email,
		Name:     buyer.Name,
		Params: map[string]interface{}{
			"name":             buyer.Name,
			"code":             coupon.Code,
			"discount_percent": coupon.DiscountPercent,
			"expires_at":       coupon.ExpiresAt.Format("2006-01-02"),
		},
	}); err != nil {
		log.Warn("Failed to send loyalty coupon", zap.Error(err))
	}
	if err := s.events.Publish(ctx, NewDomainEvent(models.EventCouponIssued, coupon.Code, map[string]interface{}{
		"user_id":          buyer.ID,
		"code":             coupon.Code,
		"discount_percent": coupon.DiscountPercent,
	})); err != nil {
		log.Warn("Failed to publish event", zap.String("event_type", models.EventCouponIssued), zap.Error(err))
	}
}

func (s *fulfillmentService) recordCount(metric string, dims map[string]string) {
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		_ = s.metrics.RecordCount(context.Background(), metric, dims)
	}()
}

func (s *fulfillmentService) recordCountValue(metric string, value float64) {
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		_ = s.metrics.PutMetric(context.Background(), metric, value, types.StandardUnitCount, nil)
	}()
}
