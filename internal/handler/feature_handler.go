package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/simcheck-bridge/internal/middleware"
	"github.com/noah-isme/simcheck-bridge/internal/models"
	"github.com/noah-isme/simcheck-bridge/pkg/response"
)

type featureLookup interface {
	Lookup(ctx context.Context) (*models.TenantFeatures, bool, error)
	Refresh(ctx context.Context) error
}

// FeatureHandler exposes the tenant feature set.
type FeatureHandler struct {
	features featureLookup
}

// NewFeatureHandler constructs the handler.
func NewFeatureHandler(features featureLookup) *FeatureHandler {
	return &FeatureHandler{features: features}
}

// Get godoc
// @Summary Tenant features reported by the similarity service
// @Tags Features
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /features [get]
func (h *FeatureHandler) Get(c *gin.Context) {
	features, cacheHit, err := h.features.Lookup(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, features, middleware.ExtractMeta(c))
}

// Refresh godoc
// @Summary Drop the cached tenant features and fetch them again
// @Tags Features
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /features/refresh [post]
func (h *FeatureHandler) Refresh(c *gin.Context) {
	if err := h.features.Refresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	h.Get(c)
}
