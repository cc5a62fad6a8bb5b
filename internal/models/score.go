package models

import "time"

// ScoreReportFormat enumerates supported score export formats.
type ScoreReportFormat string

const (
	ScoreReportFormatCSV ScoreReportFormat = "csv"
	ScoreReportFormatPDF ScoreReportFormat = "pdf"
)

// ScoreRow is one submission line of a module score report.
type ScoreRow struct {
	SubmissionID  string           `db:"id" json:"submission_id"`
	OwnerName     string           `db:"owner_name" json:"owner_name"`
	Identifier    string           `db:"identifier" json:"identifier"`
	Status        SubmissionStatus `db:"status" json:"status"`
	OverallScore  *int             `db:"overall_score" json:"overall_score,omitempty"`
	SubmittedTime *time.Time       `db:"submitted_time" json:"submitted_time,omitempty"`
}
