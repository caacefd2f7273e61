package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/services"
)

type ProfileController struct {
	profiles services.ProfileService
}

func NewProfileController(profiles services.ProfileService) *ProfileController {
	return &ProfileController{profiles: profiles}
}

// GetProfile handles GET /profile.
func (pc *ProfileController) GetProfile(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	user, svcErr := pc.profiles.Get(ctx.Request.Context(), caller)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile handles PUT /profile.
func (pc *ProfileController) UpdateProfile(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	sessionID, _ := ctx.Cookie(middleware.SessionCookie)
	user, svcErr := pc.profiles.Update(ctx.Request.Context(), caller, sessionID, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": user})
}
