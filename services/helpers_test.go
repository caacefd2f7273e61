package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace-service/models"
	"marketplace-service/repository"
	"marketplace-service/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	u := &models.User{
		Email:         uuid.NewString()[:8] + "@example.com",
		Name:          "Test User",
		Role:          role,
		AuthProvider:  models.AuthProviderLocal,
		EmailVerified: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, producerID uuid.UUID, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		ProducerID:        producerID,
		Name:              "Honey",
		Category:          "pantry",
		Price:             decimal.RequireFromString(price),
		QuantityAvailable: stock,
		IsAvailable:       true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedCoupon(t *testing.T, db *gorm.DB, mutate func(c *models.Coupon)) *models.Coupon {
	t.Helper()
	now := time.Now()
	c := &models.Coupon{
		Code:            "SPRING10",
		DiscountPercent: 10,
		StartsAt:        now.Add(-time.Hour),
		ExpiresAt:       now.Add(24 * time.Hour),
		UsageLimit:      10,
		IsActive:        true,
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func stockOf(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", productID).Error)
	return p.QuantityAvailable
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []*services.CheckoutSessionRequest
	err      error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req *services.CheckoutSessionRequest) (*services.CheckoutSessionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(g.requests))
	return &services.CheckoutSessionResult{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

func (g *fakeGateway) ParseWebhook([]byte, string) (stripe.Event, error) {
	return stripe.Event{}, fmt.Errorf("not used")
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []services.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg services.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Template)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e models.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newRepos(db *gorm.DB) (repository.Repositories, repository.UnitOfWork) {
	return repository.NewRepositories(db), repository.NewGormUnitOfWork(db)
}

var testLogger = zap.NewNop()

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
