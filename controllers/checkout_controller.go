package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-service/models"
	"marketplace-service/services"
)

// CheckoutController starts hosted payment sessions.
type CheckoutController struct {
	checkout services.CheckoutService
}

func NewCheckoutController(checkout services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

// CreateCheckoutSession handles POST /create-checkout-session.
func (cc *CheckoutController) CreateCheckoutSession(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req models.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	resp, svcErr := cc.checkout.CreateCheckoutSession(ctx.Request.Context(), caller, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// JoinGroupOrder handles POST /consumer/join-group-order.
func (cc *CheckoutController) JoinGroupOrder(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req models.GroupCheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	resp, svcErr := cc.checkout.JoinGroupOrder(ctx.Request.Context(), caller, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
