package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/models"
	"marketplace-service/repository"
)

// StoryService manages the single "our story" page of each provider.
type StoryService interface {
	Get(ctx context.Context, providerID uuid.UUID) (*models.ProviderStory, *ServiceError)
	Upsert(ctx context.Context, caller Caller, req *models.UpsertStoryRequest) (*models.ProviderStory, *ServiceError)
	Delete(ctx context.Context, caller Caller) *ServiceError
}

type storyService struct {
	stories repository.StoryRepository
	logger  *zap.Logger
}

func NewStoryService(stories repository.StoryRepository, logger *zap.Logger) StoryService {
	return &storyService{stories: stories, logger: logger}
}

func (s *storyService) Get(ctx context.Context, providerID uuid.UUID) (*models.ProviderStory, *ServiceError) {
	story, err := s.stories.FindByProvider(ctx, providerID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Story not found")
		}
		s.logger.Error("Failed to load story", zap.Error(err))
		return nil, internalError()
	}
	return story, nil
}

func (s *storyService) Upsert(ctx context.Context, caller Caller, req *models.UpsertStoryRequest) (*models.ProviderStory, *ServiceError) {
	story := &models.ProviderStory{
		ProviderID: caller.UserID,
		Title:      req.Title,
		Body:       req.Body,
		ImageURL:   req.ImageURL,
	}
	if err := s.stories.Upsert(ctx, story); err != nil {
		s.logger.Error("Failed to save story", zap.Error(err))
		return nil, internalError()
	}
	return s.Get(ctx, caller.UserID)
}

func (s *storyService) Delete(ctx context.Context, caller Caller) *ServiceError {
	if err := s.stories.Delete(ctx, caller.UserID); err != nil {
		if repository.IsNotFound(err) {
			return notFound("Story not found")
		}
		s.logger.Error("Failed to delete story", zap.Error(err))
		return internalError()
	}
	return nil
}
