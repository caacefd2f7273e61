package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-service/models"
	"marketplace-service/services"
)

// ApplicationController handles provider applications for consumers and
// their review by admins.
type ApplicationController struct {
	applications services.ApplicationService
}

func NewApplicationController(applications services.ApplicationService) *ApplicationController {
	return &ApplicationController{applications: applications}
}

// Submit handles POST /applications.
func (ac *ApplicationController) Submit(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req models.CreateApplicationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	app, svcErr := ac.applications.Submit(ctx.Request.Context(), caller, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"application": app})
}

// GetMine handles GET /applications/me.
func (ac *ApplicationController) GetMine(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	app, svcErr := ac.applications.GetMine(ctx.Request.Context(), caller)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"application": app})
}

// List handles GET /admin/applications?status=.
func (ac *ApplicationController) List(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	apps, total, svcErr := ac.applications.List(ctx.Request.Context(), ctx.Query("status"), page, limit)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	paginated(ctx, "applications", apps, page, limit, total)
}

// Get handles GET /admin/applications/:id.
func (ac *ApplicationController) Get(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	app, svcErr := ac.applications.Get(ctx.Request.Context(), id)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"application": app})
}

// Review handles PATCH /admin/applications/:id/review.
func (ac *ApplicationController) Review(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	var req models.ReviewApplicationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	app, svcErr := ac.applications.Review(ctx.Request.Context(), caller, id, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Application " + app.Status, "application": app})
}
