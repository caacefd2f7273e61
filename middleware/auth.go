package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	commonmw "marketplace-service/common/middleware"
	"marketplace-service/services"
)

// Cookie names.
const (
	SessionCookie = "session_id"
	TokenCookie   = "session_token"
	CSRFCookie    = "csrf_token"
)

// Gin context keys set by AuthMiddleware.
const (
	UserContextKey  = "userID"
	RoleContextKey  = "role"
	EmailContextKey = "email"
	NameContextKey  = "name"
)

// SessionResolver turns the session cookie and signed token into a caller.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID, token string) (*services.Caller, *services.ServiceError)
}

// AuthMiddleware requires a live session whose signed token names the same
// user.
func AuthMiddleware(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, _ := c.Cookie(SessionCookie)
		token := bearerToken(c)

		caller, svcErr := resolver.ResolveSession(c.Request.Context(), sessionID, token)
		if svcErr != nil {
			c.AbortWithStatusJSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
			return
		}

		c.Set(UserContextKey, caller.UserID.String())
		c.Set(RoleContextKey, caller.Role)
		c.Set(EmailContextKey, caller.Email)
		c.Set(NameContextKey, caller.Name)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	token, _ := c.Cookie(TokenCookie)
	return token
}

// RequireRole allows the request through when the caller has one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(RoleContextKey)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

// CSRFMiddleware requires state-changing requests to echo the csrf_token
// cookie in the X-CSRF-Token header.
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookie, err := c.Cookie(CSRFCookie)
		header := c.GetHeader(commonmw.CSRFHeader)
		if err != nil || cookie == "" || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token"})
			return
		}
		c.Next()
	}
}

// CallerFrom rebuilds the caller stored by AuthMiddleware.
func CallerFrom(c *gin.Context) (services.Caller, bool) {
	userID, err := uuid.Parse(c.GetString(UserContextKey))
	if err != nil {
		return services.Caller{}, false
	}
	return services.Caller{
		UserID: userID,
		Role:   c.GetString(RoleContextKey),
		Email:  c.GetString(EmailContextKey),
		Name:   c.GetString(NameContextKey),
	}, true
}
