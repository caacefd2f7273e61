package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-service/models"
	"marketplace-service/services"
)

type StoryController struct {
	stories services.StoryService
}

func NewStoryController(stories services.StoryService) *StoryController {
	return &StoryController{stories: stories}
}

// GetPublicStory handles GET /stories/:providerId.
func (sc *StoryController) GetPublicStory(ctx *gin.Context) {
	providerID, ok := uuidParam(ctx, "providerId")
	if !ok {
		return
	}
	story, svcErr := sc.stories.Get(ctx.Request.Context(), providerID)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"story": story})
}

// GetMyStory handles GET /provider/story.
func (sc *StoryController) GetMyStory(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	story, svcErr := sc.stories.Get(ctx.Request.Context(), caller.UserID)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"story": story})
}

// UpsertStory handles PUT /provider/story.
func (sc *StoryController) UpsertStory(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req models.UpsertStoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}
	story, svcErr := sc.stories.Upsert(ctx.Request.Context(), caller, &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"story": story})
}

// DeleteStory handles DELETE /provider/story.
func (sc *StoryController) DeleteStory(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	if svcErr := sc.stories.Delete(ctx.Request.Context(), caller); svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Story deleted"})
}
