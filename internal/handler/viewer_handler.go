package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/simcheck-bridge/internal/dto"
	"github.com/noah-isme/simcheck-bridge/internal/models"
	"github.com/noah-isme/simcheck-bridge/pkg/response"
)

type viewerLauncher interface {
	LaunchURL(ctx context.Context, submissionID string, viewer *models.JWTClaims) (*dto.ViewerURLResponse, error)
}

// ViewerHandler exposes the similarity viewer launch.
type ViewerHandler struct {
	viewer viewerLauncher
}

// NewViewerHandler constructs the handler.
func NewViewerHandler(viewer viewerLauncher) *ViewerHandler {
	return &ViewerHandler{viewer: viewer}
}

// Launch godoc
// @Summary Launch URL for the similarity viewer
// @Tags Viewer
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/viewer-url [post]
func (h *ViewerHandler) Launch(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	result, err := h.viewer.LaunchURL(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
