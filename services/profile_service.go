package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"marketplace-service/models"
	"marketplace-service/repository"
)

// ProfileService reads and edits the caller's own account.
type ProfileService interface {
	Get(ctx context.Context, caller Caller) (*models.User, *ServiceError)
	Update(ctx context.Context, caller Caller, sessionID string, req *models.UpdateProfileRequest) (*models.User, *ServiceError)
}

type profileService struct {
	users    repository.UserRepository
	sessions repository.SessionStore
	logger   *zap.Logger
}

func NewProfileService(users repository.UserRepository, sessions repository.SessionStore, logger *zap.Logger) ProfileService {
	return &profileService{users: users, sessions: sessions, logger: logger}
}

func (s *profileService) Get(ctx context.Context, caller Caller) (*models.User, *ServiceError) {
	user, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("User not found")
		}
		s.logger.Error("Failed to load profile", zap.Error(err))
		return nil, internalError()
	}
	return user, nil
}

// Update edits the profile and rewrites the cached session name.
func (s *profileService) Update(ctx context.Context, caller Caller, sessionID string, req *models.UpdateProfileRequest) (*models.User, *ServiceError) {
	user, svcErr := s.Get(ctx, caller)
	if svcErr != nil {
		return nil, svcErr
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.StoreName != nil || req.Bio != nil {
		if user.Role != models.RoleProvider {
			return nil, forbidden("Only providers have a store profile")
		}
		if req.StoreName != nil {
			user.StoreName = strings.TrimSpace(*req.StoreName)
		}
		if req.Bio != nil {
			user.Bio = *req.Bio
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update profile", zap.Error(err))
		return nil, internalError()
	}

	if sessionID != "" && s.sessions != nil {
		if err := s.sessions.Update(ctx, sessionID, repository.SessionData{
			UserID: user.ID.String(),
			Role:   user.Role,
			Name:   user.Name,
			Email:  user.Email,
		}); err != nil {
			s.logger.Warn("Failed to refresh session after profile update", zap.Error(err))
		}
	}
	return user, nil
}
