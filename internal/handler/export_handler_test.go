package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	"github.com/noah-isme/simcheck-bridge/internal/service"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
)

type exporterMock struct {
	format models.ScoreReportFormat
	result *service.ExportResult
	err    error
}

func (m *exporterMock) ModuleScores(ctx context.Context, cmID string, format models.ScoreReportFormat) (*service.ExportResult, error) {
	m.format = format
	return m.result, m.err
}

func TestExportHandlerModuleScores(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &exporterMock{result: &service.ExportResult{Filename: "scores.pdf", ContentType: "application/pdf", Payload: []byte("%PDF-1.3")}}
	handler := NewExportHandler(mock)

	c, w := newGinContext(http.MethodGet, "/modules/cm-1/scores?format=PDF", nil)
	c.Params = gin.Params{{Key: "id", Value: "cm-1"}}
	handler.ModuleScores(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ScoreReportFormatPDF, mock.format)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "scores.pdf")
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}

func TestExportHandlerModuleScoresDefaultsAndErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &exporterMock{err: appErrors.Clone(appErrors.ErrNotFound, "course module not found")}
	handler := NewExportHandler(mock)

	c, w := newGinContext(http.MethodGet, "/modules/cm-9/scores", nil)
	c.Params = gin.Params{{Key: "id", Value: "cm-9"}}
	handler.ModuleScores(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ScoreReportFormatCSV, mock.format)
}
