package services_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-service/models"
	"marketplace-service/services"
)

type groupOrderFixture struct {
	svc      services.GroupOrderService
	provider *models.User
	product  *models.Product
	stock    func() int
}

func newGroupOrderFixture(t *testing.T) *groupOrderFixture {
	t.Helper()
	db := newTestDB(t)
	repos, uow := newRepos(db)
	provider := seedUser(t, db, models.RoleProvider)
	product := seedProduct(t, db, provider.ID, "10.00", 20)
	return &groupOrderFixture{
		svc:      services.NewGroupOrderService(repos.GroupOrders, uow, testLogger),
		provider: provider,
		product:  product,
		stock:    func() int { return stockOf(t, db, product.ID) },
	}
}

func providerCaller(u *models.User) services.Caller {
	return services.Caller{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func TestGroupOrderCreate_ReservesStock(t *testing.T) {
	f := newGroupOrderFixture(t)
	svc, provider, stock := f.svc, f.provider, f.stock
	deadline := time.Now().Add(72 * time.Hour)

	group, svcErr := svc.Create(context.Background(), providerCaller(provider), &models.CreateGroupOrderRequest{
		Title:    " Winter box ",
		Deadline: &deadline,
		Products: []models.GroupOrderProductInput{{ProductID: f.product.ID, MaxQuantity: 8}},
	})
	require.Nil(t, svcErr)
	assert.Equal(t, "Winter box", group.Title)
	assert.Equal(t, models.GroupOrderOpen, group.Status)
	require.Len(t, group.Products, 1)
	assert.Equal(t, 8, group.Products[0].MaxQuantity)
	// a zero unit price falls back to the catalog price
	assert.Equal(t, "10.00", group.Products[0].UnitPrice.StringFixed(2))
	assert.Equal(t, 12, stock())
}

func TestGroupOrderCreate_Rejections(t *testing.T) {
	f := newGroupOrderFixture(t)
	svc, provider, stock := f.svc, f.provider, f.stock
	past := time.Now().Add(-time.Hour)
	stranger := &models.User{Role: models.RoleProvider}

	tests := []struct {
		name   string
		caller services.Caller
		req    *models.CreateGroupOrderRequest
		status int
	}{
		{
			name:   "deadline in the past",
			caller: providerCaller(provider),
			req: &models.CreateGroupOrderRequest{Title: "Box", Deadline: &past,
				Products: []models.GroupOrderProductInput{{ProductID: f.product.ID, MaxQuantity: 1}}},
			status: http.StatusBadRequest,
		},
		{
			name:   "duplicate product",
			caller: providerCaller(provider),
			req: &models.CreateGroupOrderRequest{Title: "Box", Products: []models.GroupOrderProductInput{
				{ProductID: f.product.ID, MaxQuantity: 1},
				{ProductID: f.product.ID, MaxQuantity: 2},
			}},
			status: http.StatusBadRequest,
		},
		{
			name:   "more than in stock",
			caller: providerCaller(provider),
			req: &models.CreateGroupOrderRequest{Title: "Box",
				Products: []models.GroupOrderProductInput{{ProductID: f.product.ID, MaxQuantity: 21}}},
			status: http.StatusBadRequest,
		},
		{
			name:   "negative price",
			caller: providerCaller(provider),
			req: &models.CreateGroupOrderRequest{Title: "Box",
				Products: []models.GroupOrderProductInput{{ProductID: f.product.ID, MaxQuantity: 1, UnitPrice: decimal.NewFromInt(-1)}}},
			status: http.StatusBadRequest,
		},
		{
			name:   "someone else's product",
			caller: providerCaller(stranger),
			req: &models.CreateGroupOrderRequest{Title: "Box",
				Products: []models.GroupOrderProductInput{{ProductID: f.product.ID, MaxQuantity: 1}}},
			status: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svcErr := svc.Create(context.Background(), tt.caller, tt.req)
			require.NotNil(t, svcErr)
			assert.Equal(t, tt.status, svcErr.StatusCode)
		})
	}
	assert.Equal(t, 20, stock())
}

func TestGroupOrderClose_ReleasesReservation(t *testing.T) {
	f := newGroupOrderFixture(t)
	svc, provider, stock := f.svc, f.provider, f.stock
	caller := providerCaller(provider)

	group, svcErr := svc.Create(context.Background(), caller, &models.CreateGroupOrderRequest{
		Title:    "Box",
		Products: []models.GroupOrderProductInput{{ProductID: f.product.ID, MaxQuantity: 8, UnitPrice: decimal.RequireFromString("8.00")}},
	})
	require.Nil(t, svcErr)
	require.Equal(t, 12, stock())

	closed, svcErr := svc.Close(context.Background(), caller, group.ID)
	require.Nil(t, svcErr)
	assert.Equal(t, models.GroupOrderClosed, closed.Status)
	assert.Equal(t, 0, closed.Products[0].MaxQuantity)
	assert.Equal(t, 20, stock())

	_, svcErr = svc.Close(context.Background(), caller, group.ID)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Equal(t, 20, stock())
}

func TestGroupOrderClose_NotOwner(t *testing.T) {
	f := newGroupOrderFixture(t)
	svc, provider := f.svc, f.provider

	group, svcErr := svc.Create(context.Background(), providerCaller(provider), &models.CreateGroupOrderRequest{
		Title:    "Box",
		Products: []models.GroupOrderProductInput{{ProductID: f.product.ID, MaxQuantity: 2}},
	})
	require.Nil(t, svcErr)

	_, svcErr = svc.Close(context.Background(), services.Caller{Role: models.RoleProvider}, group.ID)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)

	open, _, svcErr := svc.ListOpen(context.Background(), 1, 10)
	require.Nil(t, svcErr)
	assert.Len(t, open, 1)
}
