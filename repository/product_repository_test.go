package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	apperrors "marketplace-service/common/errors"
	"marketplace-service/repository"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)
	return gormDB, mock
}

func TestDecrementStock_IsSingleConditionalUpdate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "quantity_available"=quantity_available - $1 WHERE id = $2 AND quantity_available >= $3`)).
		WithArgs(3, id, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DecrementStock(context.Background(), id, 3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock_FloorReached(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "quantity_available"=quantity_available - $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.DecrementStock(context.Background(), id, 10)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientStock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementMaxQuantity_IsSingleConditionalUpdate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormGroupOrderRepository(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "group_order_products" SET "max_quantity"=max_quantity - $1 WHERE id = $2 AND max_quantity >= $3`)).
		WithArgs(2, id, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.DecrementMaxQuantity(context.Background(), id, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementTimesUsed_GuardsUsageLimit(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCouponRepository(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "coupons" SET "times_used"=times_used + 1 WHERE id = $1 AND times_used < usage_limit`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.IncrementTimesUsed(context.Background(), id)
	assert.True(t, errors.Is(err, apperrors.ErrCouponExhausted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessed_UsesOnConflictDoNothing(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProcessedSessionRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "processed_stripe_sessions"`) + ".*" + regexp.QuoteMeta(`ON CONFLICT DO NOTHING`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := repo.MarkProcessed(context.Background(), sampleMarker("cs_test_dup"))
	assert.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
