package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	"github.com/noah-isme/simcheck-bridge/internal/service"
	"github.com/noah-isme/simcheck-bridge/pkg/response"
)

type scoreExporter interface {
	ModuleScores(ctx context.Context, cmID string, format models.ScoreReportFormat) (*service.ExportResult, error)
}

// ExportHandler serves score reports.
type ExportHandler struct {
	exports scoreExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports scoreExporter) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// ModuleScores godoc
// @Summary Download the similarity scores of a course module
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course module ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /modules/{id}/scores [get]
func (h *ExportHandler) ModuleScores(c *gin.Context) {
	format := models.ScoreReportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ScoreReportFormatCSV))))
	result, err := h.exports.ModuleScores(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
