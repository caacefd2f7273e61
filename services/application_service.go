package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/models"
	"marketplace-service/repository"
)

// ApplicationService handles provider applications and their review.
type ApplicationService interface {
	Submit(ctx context.Context, caller Caller, req *models.CreateApplicationRequest) (*models.Application, *ServiceError)
	GetMine(ctx context.Context, caller Caller) (*models.Application, *ServiceError)
	List(ctx context.Context, status string, page, limit int) ([]models.Application, int64, *ServiceError)
	Get(ctx context.Context, id uuid.UUID) (*models.Application, *ServiceError)
	Review(ctx context.Context, admin Caller, id uuid.UUID, req *models.ReviewApplicationRequest) (*models.Application, *ServiceError)
}

type applicationService struct {
	apps          repository.ApplicationRepository
	uow           repository.UnitOfWork
	notifier      Notifier
	events        EventPublisher
	allowReReview bool
	now           func() time.Time
	logger        *zap.Logger
}

func NewApplicationService(
	apps repository.ApplicationRepository,
	uow repository.UnitOfWork,
	notifier Notifier,
	events EventPublisher,
	allowReReview bool,
	logger *zap.Logger,
) ApplicationService {
	if events == nil {
		events = NewNoopEventPublisher()
	}
	return &applicationService{
		apps:          apps,
		uow:           uow,
		notifier:      notifier,
		events:        events,
		allowReReview: allowReReview,
		now:           time.Now,
		logger:        logger,
	}
}

func (s *applicationService) Submit(ctx context.Context, caller Caller, req *models.CreateApplicationRequest) (*models.Application, *ServiceError) {
	if caller.Role != models.RoleConsumer {
		return nil, badRequest("Only consumer accounts can apply to become providers")
	}
	pending, err := s.apps.HasPending(ctx, caller.UserID)
	if err != nil {
		s.logger.Error("Failed to check pending applications", zap.Error(err))
		return nil, internalError()
	}
	if pending {
		return nil, conflict("You already have a pending application")
	}

	app := &models.Application{
		UserID:       caller.UserID,
		BusinessName: strings.TrimSpace(req.BusinessName),
		Description:  strings.TrimSpace(req.Description),
		Phone:        req.Phone,
		Address:      req.Address,
		Status:       models.ApplicationPending,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		s.logger.Error("Failed to create application", zap.Error(err))
		return nil, internalError()
	}
	return app, nil
}

func (s *applicationService) GetMine(ctx context.Context, caller Caller) (*models.Application, *ServiceError) {
	app, err := s.apps.FindLatestByUser(ctx, caller.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("No application found")
		}
		s.logger.Error("Failed to get application", zap.Error(err))
		return nil, internalError()
	}
	return app, nil
}

func (s *applicationService) List(ctx context.Context, status string, page, limit int) ([]models.Application, int64, *ServiceError) {
	switch status {
	case "", models.ApplicationPending, models.ApplicationApproved, models.ApplicationRejected:
	default:
		return nil, 0, badRequest("Invalid status filter")
	}
	apps, total, err := s.apps.List(ctx, status, page, limit)
	if err != nil {
		s.logger.Error("Failed to list applications", zap.Error(err))
		return nil, 0, internalError()
	}
	return apps, total, nil
}

func (s *applicationService) Get(ctx context.Context, id uuid.UUID) (*models.Application, *ServiceError) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Application not found")
		}
		s.logger.Error("Failed to get application", zap.Error(err))
		return nil, internalError()
	}
	return app, nil
}

// Review moves a pending application to approved or rejected. Approval
// promotes the applicant to the provider role in the same transaction.
func (s *applicationService) Review(ctx context.Context, admin Caller, id uuid.UUID, req *models.ReviewApplicationRequest) (*models.Application, *ServiceError) {
	notes := strings.TrimSpace(req.AdminNotes)
	if req.Status == models.ApplicationRejected && notes == "" {
		return nil, badRequest("Admin notes required when rejecting an application")
	}
	if req.Status != models.ApplicationApproved && req.Status != models.ApplicationRejected {
		return nil, badRequest("Status must be approved or rejected")
	}

	var reviewed *models.Application
	var svcErr *ServiceError
	err := s.uow.WithinTransaction(ctx, func(repos repository.Repositories) error {
		app, err := repos.Applications.FindByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				svcErr = notFound("Application not found")
				return nil
			}
			return err
		}
		if app.Status != models.ApplicationPending && !s.allowReReview {
			svcErr = conflict("Application has already been reviewed")
			return nil
		}

		previous := app.Status
		now := s.now()
		adminID := admin.UserID
		app.Status = req.Status
		app.AdminNotes = notes
		app.ReviewedBy = &adminID
		app.ReviewedAt = &now
		if err := repos.Applications.Update(ctx, app); err != nil {
			return err
		}

		role := ""
		switch {
		case req.Status == models.ApplicationApproved:
			role = models.RoleProvider
		case previous == models.ApplicationApproved:
			role = models.RoleConsumer
		}
		if role != "" && (app.User == nil || app.User.Role != models.RoleAdmin) {
			if err := repos.Users.UpdateRole(ctx, app.UserID, role); err != nil {
				return err
			}
			if app.User != nil {
				app.User.Role = role
			}
		}
		reviewed = app
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to review application", zap.String("application_id", id.String()), zap.Error(err))
		return nil, internalError()
	}
	if svcErr != nil {
		return nil, svcErr
	}

	s.logger.Info("Application reviewed",
		zap.String("application_id", reviewed.ID.String()),
		zap.String("status", reviewed.Status),
		zap.String("admin_id", admin.UserID.String()))
	s.announce(ctx, reviewed)
	return reviewed, nil
}

func (s *applicationService) announce(ctx context.Context, app *models.Application) {
	if app.User != nil {
		template := TemplateApplicationApproved
		if app.Status == models.ApplicationRejected {
			template = TemplateApplicationRejected
		}
		if err := s.notifier.Notify(ctx, Notification{
			Template: template,
			To:       app.User.Email,
			Name:     app.User.Name,
			Params: map[string]interface{}{
				"name":          app.User.Name,
				"business_name": app.BusinessName,
				"admin_notes":   app.AdminNotes,
			},
		}); err != nil {
			s.logger.Warn("Failed to send application notification", zap.Error(err))
		}
	}

	if err := s.events.Publish(ctx, NewDomainEvent(models.EventApplicationReviewed, app.ID.String(), map[string]interface{}{
		"application_id": app.ID,
		"user_id":        app.UserID,
		"status":         app.Status,
	})); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("event_type", models.EventApplicationReviewed), zap.Error(err))
	}
}
