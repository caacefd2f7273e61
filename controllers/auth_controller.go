package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/services"
)

// CookieConfig controls the attributes of the auth cookies.
type CookieConfig struct {
	Secure bool
	Domain string
	TTL    time.Duration
}

// AuthController handles registration, login and session endpoints.
type AuthController struct {
	auth    services.AuthService
	cookies CookieConfig
}

func NewAuthController(auth services.AuthService, cookies CookieConfig) *AuthController {
	return &AuthController{auth: auth, cookies: cookies}
}

func (ac *AuthController) setCookie(ctx *gin.Context, name, value string, maxAge int, httpOnly bool) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(name, value, maxAge, "/", ac.cookies.Domain, ac.cookies.Secure, httpOnly)
}

// Register handles POST /auth/register.
func (ac *AuthController) Register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	user, svcErr := ac.auth.Register(ctx.Request.Context(), &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Check your email for the verification code.",
		"user":    user,
	})
}

// VerifyEmail handles POST /auth/verify-email.
func (ac *AuthController) VerifyEmail(ctx *gin.Context) {
	var req models.VerifyEmailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	if svcErr := ac.auth.VerifyEmail(ctx.Request.Context(), &req); svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Email verified"})
}

// Login handles POST /auth/login and sets the session, token and CSRF cookies.
func (ac *AuthController) Login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidRequest(ctx, err)
		return
	}

	result, svcErr := ac.auth.Login(ctx.Request.Context(), &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	maxAge := int(ac.cookies.TTL.Seconds())
	ac.setCookie(ctx, middleware.SessionCookie, result.SessionID, maxAge, true)
	ac.setCookie(ctx, middleware.TokenCookie, result.Token, maxAge, true)
	ac.setCookie(ctx, middleware.CSRFCookie, result.CSRFToken, maxAge, false)

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user":       result.User,
		"csrf_token": result.CSRFToken,
	})
}

// VerifySession handles GET /auth/verify-session.
func (ac *AuthController) VerifySession(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user": models.PublicUser{
			ID:    caller.UserID.String(),
			Email: caller.Email,
			Name:  caller.Name,
			Role:  caller.Role,
		},
	})
}

// Logout handles POST /auth/logout. It succeeds even without a session.
func (ac *AuthController) Logout(ctx *gin.Context) {
	sessionID, _ := ctx.Cookie(middleware.SessionCookie)
	if svcErr := ac.auth.Logout(ctx.Request.Context(), sessionID); svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	for _, name := range []string{middleware.SessionCookie, middleware.TokenCookie, middleware.CSRFCookie} {
		ac.setCookie(ctx, name, "", -1, name != middleware.CSRFCookie)
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// CSRFToken handles GET /auth/csrf-token and rotates the CSRF cookie.
func (ac *AuthController) CSRFToken(ctx *gin.Context) {
	token, err := services.GenerateCSRFToken()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	ac.setCookie(ctx, middleware.CSRFCookie, token, int(ac.cookies.TTL.Seconds()), false)
	ctx.JSON(http.StatusOK, gin.H{"csrf_token": token})
}
