package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-service/models"
	"marketplace-service/services"
)

type GroupOrderController struct {
	groups services.GroupOrderService
}

func NewGroupOrderController(groups services.GroupOrderService) *GroupOrderController {
	return &GroupOrderController{groups: groups}
}

// Create handles POST /provider/group-orders.
func (gc *GroupOrderController) Create(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req models.CreateGroupOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}
	group, svcErr := gc.groups.Create(ctx.Request.Context(), caller, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"group_order": group})
}

// ListMine handles GET /provider/group-orders.
func (gc *GroupOrderController) ListMine(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx)
	groups, total, svcErr := gc.groups.ListMine(ctx.Request.Context(), caller, page, limit)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	paginated(ctx, "group_orders", groups, page, limit, total)
}

// ListOpen handles GET /group-orders.
func (gc *GroupOrderController) ListOpen(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	groups, total, svcErr := gc.groups.ListOpen(ctx.Request.Context(), page, limit)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	paginated(ctx, "group_orders", groups, page, limit, total)
}

// Get handles GET /group-orders/:id.
func (gc *GroupOrderController) Get(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	group, svcErr := gc.groups.Get(ctx.Request.Context(), id)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"group_order": group})
}

// Close handles PATCH /provider/group-orders/:id/close.
func (gc *GroupOrderController) Close(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	group, svcErr := gc.groups.Close(ctx.Request.Context(), caller, id)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"group_order": group})
}

// Participants handles GET /provider/group-orders/:id/participants.
func (gc *GroupOrderController) Participants(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	participants, svcErr := gc.groups.Participants(ctx.Request.Context(), caller, id)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"participants": participants})
}
