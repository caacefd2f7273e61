package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"marketplace-service/models"
	"marketplace-service/repository"
)

// LoginResult carries the three credentials set as cookies after login.
type LoginResult struct {
	SessionID string
	Token     string
	CSRFToken string
	User      models.PublicUser
}

// AuthService handles registration, login and session resolution.
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.PublicUser, *ServiceError)
	VerifyEmail(ctx context.Context, req *models.VerifyEmailRequest) *ServiceError
	Login(ctx context.Context, req *models.LoginRequest) (*LoginResult, *ServiceError)
	Logout(ctx context.Context, sessionID string) *ServiceError
	// ResolveSession returns the caller when the session exists and the
	// signed token names the same user.
	ResolveSession(ctx context.Context, sessionID, token string) (*Caller, *ServiceError)
}

type authService struct {
	users    repository.UserRepository
	uow      repository.UnitOfWork
	sessions repository.SessionStore
	tokens   *TokenService
	notifier Notifier
	logger   *zap.Logger
}

func NewAuthService(
	users repository.UserRepository,
	uow repository.UnitOfWork,
	sessions repository.SessionStore,
	tokens *TokenService,
	notifier Notifier,
	logger *zap.Logger,
) AuthService {
	return &authService{
		users:    users,
		uow:      uow,
		sessions: sessions,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
	}
}

func unauthorized(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusUnauthorized, Message: msg}
}

func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.PublicUser, *ServiceError) {
	var created *models.User
	var svcErr *ServiceError

	err := s.uow.WithinTransaction(ctx, func(repos repository.Repositories) error {
		_, err := repos.Users.FindByEmail(ctx, req.Email)
		if err == nil {
			svcErr = conflict("Email already registered")
			return nil
		}
		if !repository.IsNotFound(err) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := &models.User{
			Email:            req.Email,
			Name:             strings.TrimSpace(req.Name),
			Password:         string(hashed),
			Role:             models.RoleConsumer,
			AuthProvider:     models.AuthProviderLocal,
			VerificationCode: GenerateRandomCode(6),
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}

		if err := s.notifier.Notify(ctx, Notification{
			Template: TemplateEmailVerification,
			To:       user.Email,
			Name:     user.Name,
			Params:   map[string]interface{}{"name": user.Name, "code": user.VerificationCode},
		}); err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		s.logger.Error("Registration failed", zap.Error(err))
		return nil, internalError()
	}
	if svcErr != nil {
		return nil, svcErr
	}

	s.logger.Info("User registered", zap.String("user_id", created.ID.String()))
	return &models.PublicUser{ID: created.ID.String(), Email: created.Email, Name: created.Name, Role: created.Role}, nil
}

func (s *authService) VerifyEmail(ctx context.Context, req *models.VerifyEmailRequest) *ServiceError {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			return notFound("User not found")
		}
		s.logger.Error("Failed to load user", zap.Error(err))
		return internalError()
	}
	if user.EmailVerified {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(user.VerificationCode), []byte(req.Code)) != 1 {
		return badRequest("Invalid verification code")
	}

	user.EmailVerified = true
	user.VerificationCode = ""
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("Failed to verify email", zap.Error(err))
		return internalError()
	}
	return nil
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*LoginResult, *ServiceError) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("User not found")
		}
		s.logger.Error("Failed to load user", zap.Error(err))
		return nil, internalError()
	}

	if user.AuthProvider != models.AuthProviderLocal || user.Password == "" {
		return nil, badRequest("This account uses social sign-in. Please log in with Google.")
	}
	if !user.EmailVerified {
		return nil, forbidden("Please verify your email before logging in")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, badRequest("Invalid email or password")
	}

	sessionID, err := s.sessions.Create(ctx, repository.SessionData{
		UserID: user.ID.String(),
		Role:   user.Role,
		Name:   user.Name,
		Email:  user.Email,
	})
	if err != nil {
		s.logger.Error("Failed to create session", zap.Error(err))
		return nil, internalError()
	}
	token, err := s.tokens.GenerateSessionToken(user.ID.String(), user.Email, user.Role)
	if err != nil {
		s.logger.Error("Failed to sign session token", zap.Error(err))
		return nil, internalError()
	}
	csrf, err := GenerateCSRFToken()
	if err != nil {
		s.logger.Error("Failed to generate CSRF token", zap.Error(err))
		return nil, internalError()
	}

	return &LoginResult{
		SessionID: sessionID,
		Token:     token,
		CSRFToken: csrf,
		User:      models.PublicUser{Email: user.Email, Name: user.Name, Role: user.Role},
	}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) *ServiceError {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.logger.Error("Failed to delete session", zap.Error(err))
		return internalError()
	}
	return nil
}

func (s *authService) ResolveSession(ctx context.Context, sessionID, token string) (*Caller, *ServiceError) {
	if sessionID == "" || token == "" {
		return nil, unauthorized("Not authenticated")
	}

	data, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, unauthorized("Session expired or invalid")
		}
		s.logger.Error("Failed to read session", zap.Error(err))
		return nil, internalError()
	}

	claims, err := s.tokens.ValidateSessionToken(token)
	if err != nil {
		return nil, unauthorized("Invalid session token")
	}
	if claims.Subject != data.UserID {
		return nil, unauthorized("Session does not match token")
	}

	userID, err := uuid.Parse(data.UserID)
	if err != nil {
		return nil, unauthorized("Session expired or invalid")
	}

	// The role is read from the user row so that an application review
	// takes effect on sessions opened before it.
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, unauthorized("Session expired or invalid")
		}
		s.logger.Error("Failed to load session user", zap.Error(err))
		return nil, internalError()
	}
	if user.Role != data.Role || user.Name != data.Name {
		data.Role = user.Role
		data.Name = user.Name
		if err := s.sessions.Update(ctx, sessionID, *data); err != nil {
			s.logger.Warn("Failed to refresh session", zap.String("user_id", data.UserID), zap.Error(err))
		}
	}
	return &Caller{UserID: userID, Email: data.Email, Name: user.Name, Role: user.Role}, nil
}
