package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles the repositories bound to one database handle, either
// the pool or an open transaction.
type Repositories struct {
	Users             UserRepository
	Products          ProductRepository
	Coupons           CouponRepository
	Orders            OrderRepository
	GroupOrders       GroupOrderRepository
	Applications      ApplicationRepository
	ProcessedSessions ProcessedSessionRepository
}

// NewRepositories binds every repository to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:             NewGormUserRepository(db),
		Products:          NewGormProductRepository(db),
		Coupons:           NewGormCouponRepository(db),
		Orders:            NewGormOrderRepository(db),
		GroupOrders:       NewGormGroupOrderRepository(db),
		Applications:      NewGormApplicationRepository(db),
		ProcessedSessions: NewGormProcessedSessionRepository(db),
	}
}

// UnitOfWork runs a function against repositories sharing one transaction.
// Returning an error from fn rolls every write back.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error
}

type GormUnitOfWork struct {
	db *gorm.DB
}

func NewGormUnitOfWork(db *gorm.DB) UnitOfWork {
	return &GormUnitOfWork{db: db}
}

func (u *GormUnitOfWork) WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
