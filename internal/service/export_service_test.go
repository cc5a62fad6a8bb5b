package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
	"github.com/noah-isme/simcheck-bridge/pkg/export"
)

type scoreReaderStub struct {
	rows []models.ScoreRow
}

func (s scoreReaderStub) ListScoresByModule(ctx context.Context, cmID string) ([]models.ScoreRow, error) {
	return s.rows, nil
}

type exportModuleStub struct {
	module models.CourseModule
}

func (m exportModuleStub) GetCourseModule(ctx context.Context, cmID string) (*models.CourseModule, error) {
	if cmID != m.module.ID {
		return nil, sql.ErrNoRows
	}
	module := m.module
	return &module, nil
}

func newExportServiceForTest(module models.CourseModule) *ExportService {
	score := 37
	submitted := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	rows := []models.ScoreRow{
		{SubmissionID: "sub-1", OwnerName: "Ana Putri", Status: models.SubmissionStatusComplete, OverallScore: &score, SubmittedTime: timePtr(submitted)},
		{SubmissionID: "sub-2", OwnerName: "Budi Santoso", Status: models.SubmissionStatusRequested},
	}
	viewer := NewViewerService(nil, nil, nil, nil, ViewerConfig{}, zap.NewNop())
	svc := NewExportService(scoreReaderStub{rows: rows}, exportModuleStub{module: module}, viewer, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	svc.now = func() time.Time { return submitted }
	return svc
}

func readCSV(t *testing.T, payload []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportServiceModuleScoresCSV(t *testing.T) {
	svc := newExportServiceForTest(models.CourseModule{ID: "cm-1", Name: "Essay 1"})

	result, err := svc.ModuleScores(context.Background(), "cm-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.ScoreReportFormatCSV, result.Format)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "scores_Essay_1_20240510_090000.csv", result.Filename)

	records := readCSV(t, result.Payload)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Submission ID", "Owner", "Status", "Score (%)", "Submitted At"}, records[0])
	assert.Equal(t, []string{"sub-1", "Ana Putri", "COMPLETE", "37", "2024-05-10T09:00:00Z"}, records[1])
	assert.Equal(t, []string{"sub-2", "Budi Santoso", "REQUESTED", "", ""}, records[2])
}

func TestExportServiceModuleScoresHidesNamesWhenAnonymous(t *testing.T) {
	svc := newExportServiceForTest(models.CourseModule{ID: "cm-1", Name: "Essay 1", BlindMarking: true})

	result, err := svc.ModuleScores(context.Background(), "cm-1", models.ScoreReportFormatCSV)
	require.NoError(t, err)
	records := readCSV(t, result.Payload)
	assert.Equal(t, "Participant 1", records[1][1])
	assert.Equal(t, "Participant 2", records[2][1])
}

func TestExportServiceModuleScoresPDF(t *testing.T) {
	svc := newExportServiceForTest(models.CourseModule{ID: "cm-1", Name: "Essay 1"})

	result, err := svc.ModuleScores(context.Background(), "cm-1", models.ScoreReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	require.True(t, bytes.HasPrefix(result.Payload, []byte("%PDF")))
}

func TestExportServiceModuleScoresErrors(t *testing.T) {
	svc := newExportServiceForTest(models.CourseModule{ID: "cm-1", Name: "Essay 1"})

	_, err := svc.ModuleScores(context.Background(), "cm-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.ModuleScores(context.Background(), "cm-404", models.ScoreReportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
