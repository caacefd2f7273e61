package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace-service/models"
	"marketplace-service/services"
)

type checkoutFixture struct {
	db       *gorm.DB
	gateway  *fakeGateway
	svc      services.CheckoutService
	caller   services.Caller
	producer *models.User
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db := newTestDB(t)
	repos, _ := newRepos(db)
	gateway := &fakeGateway{}
	consumer := seedUser(t, db, models.RoleConsumer)

	svc := services.NewCheckoutService(
		repos.Products,
		repos.GroupOrders,
		services.NewCouponService(repos.Coupons, testLogger),
		gateway,
		nil,
		services.CheckoutConfig{Currency: "usd", DeliveryFeeCents: 1500, FrontendURL: "http://localhost:3000/"},
		testLogger,
	)
	return &checkoutFixture{
		db:       db,
		gateway:  gateway,
		svc:      svc,
		caller:   services.Caller{UserID: consumer.ID, Email: consumer.Email, Name: consumer.Name, Role: consumer.Role},
		producer: seedUser(t, db, models.RoleProvider),
	}
}

func TestCreateCheckoutSession_PickupBuildsOneLine(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "10.00", 5)

	resp, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
		Items:            []models.CheckoutItem{{ProductID: p.ID, Quantity: 2}},
		PickupOrDelivery: models.FulfillmentPickup,
	})
	require.Nil(t, svcErr)
	assert.NotEmpty(t, resp.URL)

	require.Equal(t, 1, f.gateway.calls())
	req := f.gateway.requests[0]
	require.Len(t, req.LineItems, 1)
	assert.Equal(t, int64(1000), req.LineItems[0].UnitAmount)
	assert.Equal(t, int64(2), req.LineItems[0].Quantity)
	assert.Equal(t, "http://localhost:3000/checkout/cancel", req.CancelURL)
	assert.Equal(t, f.caller.Email, req.CustomerEmail)

	intent, err := services.DecodeOrderIntent(req.Metadata)
	require.NoError(t, err)
	assert.Equal(t, services.IntentIndividual, intent.Kind)
	assert.Equal(t, f.caller.UserID, intent.UserID)
	assert.Equal(t, int64(2000), intent.TotalCents)

	// nothing is persisted before payment
	assert.Equal(t, 5, stockOf(t, f.db, p.ID))
	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestCreateCheckoutSession_DeliveryAddsFeeLine(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "10.00", 5)

	_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
		Items:            []models.CheckoutItem{{ProductID: p.ID, Quantity: 2}},
		PickupOrDelivery: models.FulfillmentDelivery,
		DeliveryDetails:  &models.DeliveryDetails{Address: "1 Farm Road", City: "Springfield"},
	})
	require.Nil(t, svcErr)

	req := f.gateway.requests[0]
	require.Len(t, req.LineItems, 2)
	assert.Equal(t, services.DeliveryFeeLineName, req.LineItems[1].Name)
	assert.Equal(t, int64(1500), req.LineItems[1].UnitAmount)
	assert.Equal(t, int64(1), req.LineItems[1].Quantity)

	intent, err := services.DecodeOrderIntent(req.Metadata)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), intent.TotalCents)
	require.NotNil(t, intent.Delivery)
	assert.Equal(t, "Springfield", intent.Delivery.City)
}

func TestCreateCheckoutSession_DeliveryWithoutAddress(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "10.00", 5)

	_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
		Items:            []models.CheckoutItem{{ProductID: p.ID, Quantity: 1}},
		PickupOrDelivery: models.FulfillmentDelivery,
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Zero(t, f.gateway.calls())
}

func TestCreateCheckoutSession_NoItems(t *testing.T) {
	f := newCheckoutFixture(t)

	_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "No items provided", svcErr.Message)
	assert.Zero(t, f.gateway.calls())
}

func TestCreateCheckoutSession_QuantityAboveStock(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "10.00", 5)

	_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
		Items: []models.CheckoutItem{{ProductID: p.ID, Quantity: 6}},
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "Insufficient stock for Honey", svcErr.Message)
	assert.Zero(t, f.gateway.calls())
}

func TestCreateCheckoutSession_RepeatedProductIsMerged(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "10.00", 5)

	// 3 + 3 exceeds the stock of 5 once merged
	_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
		Items: []models.CheckoutItem{{ProductID: p.ID, Quantity: 3}, {ProductID: p.ID, Quantity: 3}},
	})
	require.NotNil(t, svcErr)
	assert.Zero(t, f.gateway.calls())
}

func TestCreateCheckoutSession_UnknownProduct(t *testing.T) {
	f := newCheckoutFixture(t)

	_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
		Items: []models.CheckoutItem{{ProductID: uuid.New(), Quantity: 1}},
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Zero(t, f.gateway.calls())
}

func TestCreateCheckoutSession_CouponDiscountsEachLine(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "9.99", 5)
	seedCoupon(t, f.db, func(c *models.Coupon) { c.DiscountPercent = 15 })

	_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
		Items:      []models.CheckoutItem{{ProductID: p.ID, Quantity: 1}},
		CouponCode: "spring10",
	})
	require.Nil(t, svcErr)

	// 999 * 0.85 = 849.15
	req := f.gateway.requests[0]
	assert.Equal(t, int64(849), req.LineItems[0].UnitAmount)

	intent, err := services.DecodeOrderIntent(req.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "SPRING10", intent.CouponCode)
	assert.Equal(t, 15, intent.DiscountPercent)
}

func TestCreateCheckoutSession_ZeroTotalRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "9.99", 5)
	// a full discount stored before the 99 percent cap existed
	seedCoupon(t, f.db, func(c *models.Coupon) { c.DiscountPercent = 100 })

	_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
		Items:      []models.CheckoutItem{{ProductID: p.ID, Quantity: 2}},
		CouponCode: "SPRING10",
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "Order total must be greater than zero", svcErr.Message)
	assert.Zero(t, f.gateway.calls())
}

func TestCreateCheckoutSession_RejectedCoupons(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		mutate  func(c *models.Coupon)
		message string
	}{
		{
			name:    "inactive",
			mutate:  func(c *models.Coupon) { c.IsActive = false },
			message: "Invalid or inactive coupon code",
		},
		{
			name:    "expired",
			mutate:  func(c *models.Coupon) { c.StartsAt = now.Add(-48 * time.Hour); c.ExpiresAt = now.Add(-time.Hour) },
			message: "Coupon has expired",
		},
		{
			name:    "not yet started",
			mutate:  func(c *models.Coupon) { c.StartsAt = now.Add(time.Hour) },
			message: "Coupon is not yet valid",
		},
		{
			name:    "exhausted",
			mutate:  func(c *models.Coupon) { c.UsageLimit = 3; c.TimesUsed = 3 },
			message: "Coupon usage limit reached",
		},
		{
			name:    "issued to someone else",
			mutate:  func(c *models.Coupon) { other := uuid.New(); c.IssuedTo = &other },
			message: "Invalid or inactive coupon code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			p := seedProduct(t, f.db, f.producer.ID, "10.00", 5)
			seedCoupon(t, f.db, tt.mutate)

			_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
				Items:      []models.CheckoutItem{{ProductID: p.ID, Quantity: 1}},
				CouponCode: "SPRING10",
			})
			require.NotNil(t, svcErr)
			assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
			assert.Equal(t, tt.message, svcErr.Message)
			assert.Zero(t, f.gateway.calls())
		})
	}
}

func TestCreateCheckoutSession_CouponAlreadyRedeemed(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "10.00", 5)
	coupon := seedCoupon(t, f.db, nil)
	require.NoError(t, f.db.Create(&models.CouponUsage{CouponID: coupon.ID, UserID: f.caller.UserID}).Error)

	_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
		Items:      []models.CheckoutItem{{ProductID: p.ID, Quantity: 1}},
		CouponCode: "SPRING10",
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, "You have already used this coupon", svcErr.Message)
	assert.Zero(t, f.gateway.calls())
}

func TestCreateCheckoutSession_GatewayFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.err = errors.New("stripe down")
	p := seedProduct(t, f.db, f.producer.ID, "10.00", 5)

	_, svcErr := f.svc.CreateCheckoutSession(context.Background(), f.caller, &models.CheckoutRequest{
		Items: []models.CheckoutItem{{ProductID: p.ID, Quantity: 1}},
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	assert.Equal(t, "Internal server error", svcErr.Message)
}

func seedGroupOrder(t *testing.T, db *gorm.DB, providerID uuid.UUID, product *models.Product, maxQty int, unitPrice string) *models.GroupOrder {
	t.Helper()
	deadline := time.Now().Add(48 * time.Hour)
	g := &models.GroupOrder{
		ProviderID: providerID,
		Title:      "Autumn box",
		Status:     models.GroupOrderOpen,
		Deadline:   &deadline,
		Products: []models.GroupOrderProduct{{
			ProductID:   product.ID,
			MaxQuantity: maxQty,
			UnitPrice:   decimal.RequireFromString(unitPrice),
		}},
	}
	require.NoError(t, db.Create(g).Error)
	return g
}

func TestJoinGroupOrder_UsesReservedPrice(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "10.00", 50)
	g := seedGroupOrder(t, f.db, f.producer.ID, p, 10, "8.50")

	resp, svcErr := f.svc.JoinGroupOrder(context.Background(), f.caller, &models.GroupCheckoutRequest{
		GroupOrderID: g.ID,
		Items:        []models.CheckoutItem{{ProductID: p.ID, Quantity: 4}},
	})
	require.Nil(t, svcErr)
	assert.NotEmpty(t, resp.URL)

	req := f.gateway.requests[0]
	require.Len(t, req.LineItems, 1)
	assert.Equal(t, int64(850), req.LineItems[0].UnitAmount)

	intent, err := services.DecodeOrderIntent(req.Metadata)
	require.NoError(t, err)
	assert.True(t, intent.IsGroup())
	require.NotNil(t, intent.GroupOrderID)
	assert.Equal(t, g.ID, *intent.GroupOrderID)
}

func TestJoinGroupOrder_Rejections(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "10.00", 50)
	g := seedGroupOrder(t, f.db, f.producer.ID, p, 3, "8.50")

	tests := []struct {
		name    string
		req     *models.GroupCheckoutRequest
		status  int
		message string
	}{
		{
			name:    "no items",
			req:     &models.GroupCheckoutRequest{GroupOrderID: g.ID},
			status:  http.StatusBadRequest,
			message: "No items provided",
		},
		{
			name: "coupon supplied",
			req: &models.GroupCheckoutRequest{
				GroupOrderID: g.ID,
				Items:        []models.CheckoutItem{{ProductID: p.ID, Quantity: 1}},
				CouponCode:   "SPRING10",
			},
			status:  http.StatusBadRequest,
			message: "Coupons cannot be applied to group orders",
		},
		{
			name: "above reservation",
			req: &models.GroupCheckoutRequest{
				GroupOrderID: g.ID,
				Items:        []models.CheckoutItem{{ProductID: p.ID, Quantity: 4}},
			},
			status:  http.StatusBadRequest,
			message: "Requested quantity exceeds what remains for Honey",
		},
		{
			name: "unknown group",
			req: &models.GroupCheckoutRequest{
				GroupOrderID: uuid.New(),
				Items:        []models.CheckoutItem{{ProductID: p.ID, Quantity: 1}},
			},
			status:  http.StatusNotFound,
			message: "Group order not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svcErr := f.svc.JoinGroupOrder(context.Background(), f.caller, tt.req)
			require.NotNil(t, svcErr)
			assert.Equal(t, tt.status, svcErr.StatusCode)
			assert.Equal(t, tt.message, svcErr.Message)
		})
	}
	assert.Zero(t, f.gateway.calls())
}

func TestJoinGroupOrder_ClosedGroup(t *testing.T) {
	f := newCheckoutFixture(t)
	p := seedProduct(t, f.db, f.producer.ID, "10.00", 50)
	g := seedGroupOrder(t, f.db, f.producer.ID, p, 3, "8.50")
	require.NoError(t, f.db.Model(&models.GroupOrder{}).Where("id = ?", g.ID).Update("status", models.GroupOrderClosed).Error)

	_, svcErr := f.svc.JoinGroupOrder(context.Background(), f.caller, &models.GroupCheckoutRequest{
		GroupOrderID: g.ID,
		Items:        []models.CheckoutItem{{ProductID: p.ID, Quantity: 1}},
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, "Group order is no longer open", svcErr.Message)
}
