package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/repository"
	"marketplace-service/services"
)

type authFixture struct {
	db       *gorm.DB
	redis    *miniredis.Miniredis
	notifier *recordingNotifier
	tokens   *services.TokenService
	svc      services.AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := newTestDB(t)
	repos, uow := newRepos(db)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	notifier := &recordingNotifier{}
	tokens := services.NewTokenService("test-secret", time.Hour)
	svc := services.NewAuthService(repos.Users, uow, repository.NewRedisSessionStore(client, time.Hour), tokens, notifier, testLogger)
	return &authFixture{db: db, redis: mr, notifier: notifier, tokens: tokens, svc: svc}
}

func (f *authFixture) registerAndVerify(t *testing.T, email, password string) {
	t.Helper()
	_, svcErr := f.svc.Register(context.Background(), &models.RegisterRequest{Name: "Ada", Email: email, Password: password})
	require.Nil(t, svcErr)
	code, _ := f.notifier.sent[len(f.notifier.sent)-1].Params["code"].(string)
	require.Len(t, code, 6)
	require.Nil(t, f.svc.VerifyEmail(context.Background(), &models.VerifyEmailRequest{Email: email, Code: code}))
}

func TestRegister_SendsVerificationCode(t *testing.T) {
	f := newAuthFixture(t)

	user, svcErr := f.svc.Register(context.Background(), &models.RegisterRequest{
		Name: "  Ada  ", Email: "ada@example.com", Password: "password123",
	})
	require.Nil(t, svcErr)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, models.RoleConsumer, user.Role)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, services.TemplateEmailVerification, f.notifier.sent[0].Template)
	assert.Equal(t, "ada@example.com", f.notifier.sent[0].To)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "email = ?", "ada@example.com").Error)
	assert.False(t, stored.EmailVerified)
	assert.NotEqual(t, "password123", stored.Password)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	req := &models.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "password123"}

	_, svcErr := f.svc.Register(context.Background(), req)
	require.Nil(t, svcErr)
	_, svcErr = f.svc.Register(context.Background(), req)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Equal(t, "Email already registered", svcErr.Message)
}

func TestRegister_NotificationFailureRollsBack(t *testing.T) {
	f := newAuthFixture(t)
	f.notifier.err = errors.New("email api down")

	_, svcErr := f.svc.Register(context.Background(), &models.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "password123"})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	assert.Zero(t, countRows(t, f.db, &models.User{}))
}

func TestVerifyEmail_WrongCode(t *testing.T) {
	f := newAuthFixture(t)
	_, svcErr := f.svc.Register(context.Background(), &models.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "password123"})
	require.Nil(t, svcErr)

	code, _ := f.notifier.sent[0].Params["code"].(string)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	svcErr = f.svc.VerifyEmail(context.Background(), &models.VerifyEmailRequest{Email: "ada@example.com", Code: wrong})
	require.NotNil(t, svcErr)
	assert.Equal(t, "Invalid verification code", svcErr.Message)
}

func TestLogin_Outcomes(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndVerify(t, "ada@example.com", "password123")

	_, svcErr := f.svc.Register(context.Background(), &models.RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "password123"})
	require.Nil(t, svcErr)
	require.NoError(t, f.db.Create(&models.User{
		Email: "oauth@example.com", Name: "Oli", Role: models.RoleConsumer,
		AuthProvider: models.AuthProviderGoogle, EmailVerified: true,
	}).Error)

	tests := []struct {
		name     string
		email    string
		password string
		status   int
		message  string
	}{
		{"unknown user", "nobody@example.com", "password123", http.StatusNotFound, "User not found"},
		{"oauth only", "oauth@example.com", "password123", http.StatusBadRequest, "This account uses social sign-in. Please log in with Google."},
		{"unverified", "bob@example.com", "password123", http.StatusForbidden, "Please verify your email before logging in"},
		{"bad password", "ada@example.com", "wrong-password", http.StatusBadRequest, "Invalid email or password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svcErr := f.svc.Login(context.Background(), &models.LoginRequest{Email: tt.email, Password: tt.password})
			require.NotNil(t, svcErr)
			assert.Equal(t, tt.status, svcErr.StatusCode)
			assert.Equal(t, tt.message, svcErr.Message)
		})
	}
}

func TestLogin_ResolveAndLogout(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndVerify(t, "ada@example.com", "password123")

	result, svcErr := f.svc.Login(context.Background(), &models.LoginRequest{Email: "ada@example.com", Password: "password123"})
	require.Nil(t, svcErr)
	assert.NotEmpty(t, result.SessionID)
	assert.NotEmpty(t, result.Token)
	assert.Len(t, result.CSRFToken, 64)
	assert.Equal(t, models.PublicUser{Email: "ada@example.com", Name: "Ada", Role: models.RoleConsumer}, result.User)
	assert.True(t, f.redis.Exists("session:"+result.SessionID))

	caller, svcErr := f.svc.ResolveSession(context.Background(), result.SessionID, result.Token)
	require.Nil(t, svcErr)
	assert.Equal(t, "ada@example.com", caller.Email)
	assert.Equal(t, models.RoleConsumer, caller.Role)

	require.Nil(t, f.svc.Logout(context.Background(), result.SessionID))
	_, svcErr = f.svc.ResolveSession(context.Background(), result.SessionID, result.Token)
	require.NotNil(t, svcErr)
	assert.Equal(t, "Session expired or invalid", svcErr.Message)
}

func TestResolveSession_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndVerify(t, "ada@example.com", "password123")
	result, svcErr := f.svc.Login(context.Background(), &models.LoginRequest{Email: "ada@example.com", Password: "password123"})
	require.Nil(t, svcErr)

	foreign, err := f.tokens.GenerateSessionToken("someone-else", "x@example.com", models.RoleAdmin)
	require.NoError(t, err)
	forged, err := services.NewTokenService("other-secret", time.Hour).GenerateSessionToken(result.User.Email, "", "")
	require.NoError(t, err)

	tests := []struct {
		name      string
		sessionID string
		token     string
		message   string
	}{
		{"missing cookie", "", result.Token, "Not authenticated"},
		{"missing token", result.SessionID, "", "Not authenticated"},
		{"unknown session", "deadbeef", result.Token, "Session expired or invalid"},
		{"bad signature", result.SessionID, forged, "Invalid session token"},
		{"token for another user", result.SessionID, foreign, "Session does not match token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svcErr := f.svc.ResolveSession(context.Background(), tt.sessionID, tt.token)
			require.NotNil(t, svcErr)
			assert.Equal(t, http.StatusUnauthorized, svcErr.StatusCode)
			assert.Equal(t, tt.message, svcErr.Message)
		})
	}
}

func TestResolveSession_ExpiredSession(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndVerify(t, "ada@example.com", "password123")
	result, svcErr := f.svc.Login(context.Background(), &models.LoginRequest{Email: "ada@example.com", Password: "password123"})
	require.Nil(t, svcErr)

	f.redis.FastForward(2 * time.Hour)

	_, svcErr = f.svc.ResolveSession(context.Background(), result.SessionID, result.Token)
	require.NotNil(t, svcErr)
	assert.Equal(t, "Session expired or invalid", svcErr.Message)
}

func TestResolveSession_FollowsApplicationReview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newAuthFixture(t)
	f.registerAndVerify(t, "ada@example.com", "password123")
	login, svcErr := f.svc.Login(context.Background(), &models.LoginRequest{Email: "ada@example.com", Password: "password123"})
	require.Nil(t, svcErr)

	r := gin.New()
	r.GET("/provider/products", middleware.AuthMiddleware(f.svc), middleware.RequireRole(models.RoleProvider, models.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	providerRoute := func() int {
		req := httptest.NewRequest(http.MethodGet, "/provider/products", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: login.SessionID})
		req.Header.Set("Authorization", "Bearer "+login.Token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusForbidden, providerRoute())

	repos, uow := newRepos(f.db)
	apps := services.NewApplicationService(repos.Applications, uow, &recordingNotifier{}, &recordingPublisher{}, true, testLogger)
	admin := seedUser(t, f.db, models.RoleAdmin)
	adminCaller := services.Caller{UserID: admin.ID, Email: admin.Email, Role: models.RoleAdmin}

	applicant, svcErr := f.svc.ResolveSession(context.Background(), login.SessionID, login.Token)
	require.Nil(t, svcErr)
	app, svcErr := apps.Submit(context.Background(), *applicant,
		&models.CreateApplicationRequest{BusinessName: "Hill Farm", Description: "Organic vegetables and eggs"})
	require.Nil(t, svcErr)

	_, svcErr = apps.Review(context.Background(), adminCaller, app.ID, &models.ReviewApplicationRequest{Status: models.ApplicationApproved})
	require.Nil(t, svcErr)
	assert.Equal(t, http.StatusOK, providerRoute())

	var stored repository.SessionData
	raw, err := f.redis.Get("session:" + login.SessionID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, models.RoleProvider, stored.Role)

	_, svcErr = apps.Review(context.Background(), adminCaller, app.ID, &models.ReviewApplicationRequest{
		Status: models.ApplicationRejected, AdminNotes: "Licence revoked",
	})
	require.Nil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, providerRoute())
}
