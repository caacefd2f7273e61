package services_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-service/services"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	tokens := services.NewTokenService("test-secret", time.Hour)

	signed, err := tokens.GenerateSessionToken("user-1", "ada@example.com", "consumer")
	require.NoError(t, err)

	claims, err := tokens.ValidateSessionToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "consumer", claims.Role)
}

func TestSessionToken_Rejections(t *testing.T) {
	tokens := services.NewTokenService("test-secret", time.Hour)

	expired, err := services.NewTokenService("test-secret", -time.Minute).GenerateSessionToken("user-1", "", "")
	require.NoError(t, err)

	wrongType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, services.SessionClaims{
		Type:             "refresh",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":    expired,
		"wrong type": wrongType,
		"garbage":    "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.ValidateSessionToken(token)
			assert.ErrorIs(t, err, services.ErrInvalidToken)
		})
	}
}
