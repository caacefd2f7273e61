package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-service/models"
	"marketplace-service/services"
)

// CouponController handles admin coupon management.
type CouponController struct {
	couponService services.CouponService
}

func NewCouponController(couponService services.CouponService) *CouponController {
	return &CouponController{couponService: couponService}
}

// CreateCoupon handles POST /admin/coupons.
func (cc *CouponController) CreateCoupon(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req models.CreateCouponRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	coupon, svcErr := cc.couponService.CreateCoupon(ctx.Request.Context(), caller.UserID, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"coupon": coupon})
}

// ListCoupons handles GET /admin/coupons.
func (cc *CouponController) ListCoupons(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	coupons, total, svcErr := cc.couponService.ListCoupons(ctx.Request.Context(), page, limit)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	paginated(ctx, "coupons", coupons, page, limit, total)
}

// GetCoupon handles GET /admin/coupons/:id.
func (cc *CouponController) GetCoupon(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	coupon, svcErr := cc.couponService.GetCoupon(ctx.Request.Context(), id)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

// UpdateCoupon handles PATCH /admin/coupons/:id.
func (cc *CouponController) UpdateCoupon(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateCouponRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}
	coupon, svcErr := cc.couponService.UpdateCoupon(ctx.Request.Context(), id, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

// DeactivateCoupon handles DELETE /admin/coupons/:id.
func (cc *CouponController) DeactivateCoupon(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	if svcErr := cc.couponService.DeactivateCoupon(ctx.Request.Context(), id); svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Coupon deactivated"})
}
