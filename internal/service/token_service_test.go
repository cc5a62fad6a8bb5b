package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "lms"})

	token, err := svc.IssueToken("instructor-1", models.RoleInstructor, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "instructor-1", claims.UserID)
	assert.Equal(t, models.RoleInstructor, claims.Role)
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "lms"})

	t.Run("expired", func(t *testing.T) {
		token, err := svc.IssueToken("user-1", models.RoleLearner, -time.Minute)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService(TokenConfig{Secret: "other", Issuer: "lms"})
		token, err := other.IssueToken("user-1", models.RoleLearner, time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenService(TokenConfig{Secret: "secret", Issuer: "elsewhere"})
		token, err := other.IssueToken("user-1", models.RoleLearner, time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "lms", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		})
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.ValidateToken(signed)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		require.Error(t, err)
	})
}
