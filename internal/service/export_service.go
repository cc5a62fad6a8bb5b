package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
	"github.com/noah-isme/simcheck-bridge/pkg/export"
)

type scoreReader interface {
	ListScoresByModule(ctx context.Context, cmID string) ([]models.ScoreRow, error)
}

type exportModuleReader interface {
	GetCourseModule(ctx context.Context, cmID string) (*models.CourseModule, error)
}

type anonymityChecker interface {
	IsAnonymous(module *models.CourseModule) bool
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered score report.
type ExportResult struct {
	Filename    string
	ContentType string
	Format      models.ScoreReportFormat
	Payload     []byte
}

// ExportService renders the similarity scores of a course module.
type ExportService struct {
	scores    scoreReader
	modules   exportModuleReader
	anonymity anonymityChecker
	csv       datasetRenderer
	pdf       datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(scores scoreReader, modules exportModuleReader, anonymity anonymityChecker, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(export.WithBOM())
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		scores:    scores,
		modules:   modules,
		anonymity: anonymity,
		csv:       csv,
		pdf:       pdf,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ModuleScores renders the score report of a course module in the requested format.
func (s *ExportService) ModuleScores(ctx context.Context, cmID string, format models.ScoreReportFormat) (*ExportResult, error) {
	if format == "" {
		format = models.ScoreReportFormatCSV
	}
	if format != models.ScoreReportFormatCSV && format != models.ScoreReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	module, err := s.modules.GetCourseModule(ctx, cmID)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load course module")
	}
	rows, err := s.scores.ListScoresByModule(ctx, module.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}

	anonymous := s.anonymity != nil && s.anonymity.IsAnonymous(module)
	dataset := buildScoreDataset(rows, anonymous)
	dataset.Title = fmt.Sprintf("Similarity Scores %s", module.Name)
	dataset.Note = fmt.Sprintf("Generated %s. Empty scores have not been reported yet.", s.now().Format(time.RFC3339))

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case models.ScoreReportFormatPDF:
		payload, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render score report")
	}

	s.logger.Sugar().Infow("score report rendered", "cm_id", module.ID, "format", format, "rows", len(rows), "anonymous", anonymous)
	return &ExportResult{
		Filename:    s.buildFilename(module, format),
		ContentType: contentType,
		Format:      format,
		Payload:     payload,
	}, nil
}

func (s *ExportService) buildFilename(module *models.CourseModule, format models.ScoreReportFormat) string {
	timestamp := s.now().Format("20060102_150405")
	return fmt.Sprintf("scores_%s_%s.%s", sanitizeFilename(module.Name), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func buildScoreDataset(rows []models.ScoreRow, anonymous bool) export.Dataset {
	headers := []string{"Submission ID", "Owner", "Status", "Score (%)", "Submitted At"}
	dataRows := make([][]string, 0, len(rows))
	for i, row := range rows {
		owner := row.OwnerName
		if anonymous {
			owner = fmt.Sprintf("Participant %d", i+1)
		}
		score := ""
		if row.OverallScore != nil {
			score = strconv.Itoa(*row.OverallScore)
		}
		dataRows = append(dataRows, []string{row.SubmissionID, owner, string(row.Status), score, formatReportTime(row.SubmittedTime)})
	}
	return export.Dataset{Headers: headers, Rows: dataRows}
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
