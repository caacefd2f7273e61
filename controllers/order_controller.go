package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-service/services"
)

type OrderController struct {
	orders services.OrderService
}

func NewOrderController(orders services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// ConsumerOrders handles GET /consumer/orders.
func (oc *OrderController) ConsumerOrders(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx)
	orders, total, svcErr := oc.orders.ListForConsumer(ctx.Request.Context(), caller, page, limit)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	paginated(ctx, "orders", orders, page, limit, total)
}

// ProviderOrders handles GET /provider/orders.
func (oc *OrderController) ProviderOrders(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx)
	orders, total, svcErr := oc.orders.ListForProvider(ctx.Request.Context(), caller, page, limit)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	paginated(ctx, "orders", orders, page, limit, total)
}

// GetOrder handles GET /orders/:id.
func (oc *OrderController) GetOrder(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	order, svcErr := oc.orders.Get(ctx.Request.Context(), caller, id)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// FulfillOrder handles PATCH /provider/orders/:id/fulfill.
func (oc *OrderController) FulfillOrder(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	order, svcErr := oc.orders.Fulfill(ctx.Request.Context(), caller, id)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}
