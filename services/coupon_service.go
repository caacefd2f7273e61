package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/models"
	"marketplace-service/repository"
)

// Loyalty coupon parameters.
// MaxDiscountPercent keeps every coupon from zeroing a paid checkout.
const MaxDiscountPercent = 99

const (
	loyaltyCodeLength  = 6
	loyaltyMinPercent  = 5
	loyaltyMaxPercent  = 15
	loyaltyValidity    = 30 * 24 * time.Hour
	loyaltyCodeRetries = 5
)

// CouponService defines the interface for coupon business logic.
type CouponService interface {
	CreateCoupon(ctx context.Context, adminID uuid.UUID, req *models.CreateCouponRequest) (*models.Coupon, *ServiceError)
	GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, *ServiceError)
	ListCoupons(ctx context.Context, page, limit int) ([]models.Coupon, int64, *ServiceError)
	UpdateCoupon(ctx context.Context, id uuid.UUID, req *models.UpdateCouponRequest) (*models.Coupon, *ServiceError)
	DeactivateCoupon(ctx context.Context, id uuid.UUID) *ServiceError

	// ValidateForCheckout returns the coupon when userID may redeem code now.
	ValidateForCheckout(ctx context.Context, code string, userID uuid.UUID) (*models.Coupon, *ServiceError)
	// IssueLoyaltyCoupon creates a single-use coupon reserved for userID.
	IssueLoyaltyCoupon(ctx context.Context, userID uuid.UUID) (*models.Coupon, error)
}

// couponServiceImpl implements CouponService.
type couponServiceImpl struct {
	repo   repository.CouponRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewCouponService creates a new CouponService.
func NewCouponService(repo repository.CouponRepository, logger *zap.Logger) CouponService {
	return &couponServiceImpl{repo: repo, now: time.Now, logger: logger}
}

const discountRangeMessage = "Discount must be between 1 and 99 percent"

func validDiscount(pct int) bool {
	return pct >= 1 && pct <= MaxDiscountPercent
}

// CreateCoupon creates a new coupon.
func (s *couponServiceImpl) CreateCoupon(ctx context.Context, adminID uuid.UUID, req *models.CreateCouponRequest) (*models.Coupon, *ServiceError) {
	if !validDiscount(req.DiscountPercent) {
		return nil, badRequest(discountRangeMessage)
	}
	now := s.now()
	startsAt := now
	if req.StartsAt != nil {
		startsAt = *req.StartsAt
	}
	if !req.ExpiresAt.After(now) {
		return nil, badRequest("Expiry date must be in the future")
	}
	if !req.ExpiresAt.After(startsAt) {
		return nil, badRequest("Expiry date must be after the start date")
	}

	coupon := &models.Coupon{
		Code:            strings.ToUpper(req.Code),
		DiscountPercent: req.DiscountPercent,
		StartsAt:        startsAt,
		ExpiresAt:       req.ExpiresAt,
		UsageLimit:      req.UsageLimit,
		IsActive:        true,
		CreatedBy:       &adminID,
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if isUniqueViolation(err) {
			return nil, conflict("Coupon code already exists")
		}
		s.logger.Error("Failed to create coupon", zap.Error(err))
		return nil, internalError()
	}

	s.logger.Info("Coupon created", zap.String("code", coupon.Code), zap.Int("discount_percent", coupon.DiscountPercent))
	return coupon, nil
}

func (s *couponServiceImpl) GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, *ServiceError) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Coupon not found")
		}
		s.logger.Error("Failed to get coupon", zap.Error(err))
		return nil, internalError()
	}
	return coupon, nil
}

func (s *couponServiceImpl) ListCoupons(ctx context.Context, page, limit int) ([]models.Coupon, int64, *ServiceError) {
	coupons, total, err := s.repo.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to list coupons", zap.Error(err))
		return nil, 0, internalError()
	}
	return coupons, total, nil
}

func (s *couponServiceImpl) UpdateCoupon(ctx context.Context, id uuid.UUID, req *models.UpdateCouponRequest) (*models.Coupon, *ServiceError) {
	coupon, svcErr := s.GetCoupon(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}

	if req.DiscountPercent != nil {
		if !validDiscount(*req.DiscountPercent) {
			return nil, badRequest(discountRangeMessage)
		}
		coupon.DiscountPercent = *req.DiscountPercent
	}
	if req.StartsAt != nil {
		coupon.StartsAt = *req.StartsAt
	}
	if req.ExpiresAt != nil {
		coupon.ExpiresAt = *req.ExpiresAt
	}
	if req.UsageLimit != nil {
		if *req.UsageLimit < coupon.TimesUsed {
			return nil, badRequest("Usage limit cannot be lower than times used")
		}
		coupon.UsageLimit = *req.UsageLimit
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	if !coupon.ExpiresAt.After(coupon.StartsAt) {
		return nil, badRequest("Expiry date must be after the start date")
	}

	if err := s.repo.Update(ctx, coupon); err != nil {
		s.logger.Error("Failed to update coupon", zap.String("coupon_id", id.String()), zap.Error(err))
		return nil, internalError()
	}
	return coupon, nil
}

func (s *couponServiceImpl) DeactivateCoupon(ctx context.Context, id uuid.UUID) *ServiceError {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return notFound("Coupon not found")
		}
		s.logger.Error("Failed to deactivate coupon", zap.Error(err))
		return internalError()
	}
	return nil
}

func (s *couponServiceImpl) ValidateForCheckout(ctx context.Context, code string, userID uuid.UUID) (*models.Coupon, *ServiceError) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, badRequest("Invalid or inactive coupon code")
		}
		s.logger.Error("Failed to look up coupon", zap.Error(err))
		return nil, internalError()
	}

	now := s.now()
	if now.Before(coupon.StartsAt) {
		return nil, badRequest("Coupon is not yet valid")
	}
	if !now.Before(coupon.ExpiresAt) {
		return nil, badRequest("Coupon has expired")
	}
	if coupon.Exhausted() {
		return nil, badRequest("Coupon usage limit reached")
	}
	if coupon.IssuedTo != nil && *coupon.IssuedTo != userID {
		return nil, badRequest("Invalid or inactive coupon code")
	}

	used, err := s.repo.HasUsage(ctx, coupon.ID, userID)
	if err != nil {
		s.logger.Error("Failed to check coupon usage", zap.Error(err))
		return nil, internalError()
	}
	if used {
		return nil, badRequest("You have already used this coupon")
	}
	return coupon, nil
}

func (s *couponServiceImpl) IssueLoyaltyCoupon(ctx context.Context, userID uuid.UUID) (*models.Coupon, error) {
	now := s.now()
	for attempt := 0; attempt < loyaltyCodeRetries; attempt++ {
		code := GenerateCouponCode(loyaltyCodeLength)
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		coupon := &models.Coupon{
			Code:            code,
			DiscountPercent: loyaltyMinPercent + randomIntn(loyaltyMaxPercent-loyaltyMinPercent+1),
			StartsAt:        now,
			ExpiresAt:       now.Add(loyaltyValidity),
			UsageLimit:      1,
			IsActive:        true,
			IssuedTo:        &userID,
		}
		if err := s.repo.Create(ctx, coupon); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		s.logger.Info("Loyalty coupon issued", zap.String("user_id", userID.String()), zap.String("code", code))
		return coupon, nil
	}
	return nil, fmt.Errorf("could not allocate a unique coupon code after %d attempts", loyaltyCodeRetries)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
