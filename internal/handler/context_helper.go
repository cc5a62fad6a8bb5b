package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/simcheck-bridge/internal/middleware"
	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
	"github.com/noah-isme/simcheck-bridge/pkg/response"
)

// requireClaims returns the token claims set by the JWT middleware. When they
// are missing it writes a 401 and returns false.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, _ := c.Get(middleware.ContextUserKey)
	claims, ok := value.(*models.JWTClaims)
	if !ok || claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity"))
		return nil, false
	}
	return claims, true
}
