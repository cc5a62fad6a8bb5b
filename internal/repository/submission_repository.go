package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/simcheck-bridge/internal/models"
)

const submissionColumns = `id, cm_id, user_id, group_id, submitter_id, remote_id, status, identifier, item_id, type,
submitted_time, to_generate, generation_time, requested_time, overall_score, error_message, created_at, updated_at`

// SubmissionRepository persists similarity submission records.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission row with generated defaults.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionStatusQueued
	}
	now := time.Now().UTC()
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = now
	}
	submission.UpdatedAt = now
	const query = `INSERT INTO similarity_submissions (` + submissionColumns + `)
VALUES (:id, :cm_id, :user_id, :group_id, :submitter_id, :remote_id, :status, :identifier, :item_id, :type,
:submitted_time, :to_generate, :generation_time, :requested_time, :overall_score, :error_message, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// GetByID returns a submission by its local identifier.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT ` + submissionColumns + ` FROM similarity_submissions WHERE id = $1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return &submission, nil
}

// Update writes every mutable field of the record.
func (r *SubmissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	submission.UpdatedAt = time.Now().UTC()
	const query = `UPDATE similarity_submissions SET remote_id = :remote_id, status = :status, submitted_time = :submitted_time,
to_generate = :to_generate, generation_time = :generation_time, requested_time = :requested_time,
overall_score = :overall_score, error_message = :error_message, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, submission)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check submission update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SubmissionFilter narrows FindOne lookups. Empty fields are ignored; IsNull
// fields force a NULL comparison.
type SubmissionFilter struct {
	CourseModuleID string
	UserID         string
	UserIDIsNull   bool
	GroupID        string
	Identifier     string
	ItemID         string
	Type           models.SubmissionType
}

// FindOne returns the most recent submission matching the filter.
func (r *SubmissionRepository) FindOne(ctx context.Context, filter SubmissionFilter) (*models.Submission, error) {
	clauses := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	argPos := 1

	add := func(column string, value interface{}) {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}
	if filter.CourseModuleID != "" {
		add("cm_id", filter.CourseModuleID)
	}
	if filter.UserID != "" {
		add("user_id", filter.UserID)
	} else if filter.UserIDIsNull {
		clauses = append(clauses, "user_id IS NULL")
	}
	if filter.GroupID != "" {
		add("group_id", filter.GroupID)
	}
	if filter.Identifier != "" {
		add("identifier", filter.Identifier)
	}
	if filter.ItemID != "" {
		add("item_id", filter.ItemID)
	}
	if filter.Type != "" {
		add("type", filter.Type)
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("find submission: empty filter")
	}

	query := fmt.Sprintf("SELECT %s FROM similarity_submissions WHERE %s ORDER BY created_at DESC LIMIT 1",
		submissionColumns, strings.Join(clauses, " AND "))
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, args...); err != nil {
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// ListByStatus fetches records in any of the statuses, oldest update first.
func (r *SubmissionRepository) ListByStatus(ctx context.Context, statuses []models.SubmissionStatus, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + submissionColumns + ` FROM similarity_submissions
WHERE status = ANY($1) ORDER BY updated_at ASC LIMIT $2`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, pq.Array(statusStrings(statuses)), limit); err != nil {
		return nil, fmt.Errorf("list submissions by status: %w", err)
	}
	return submissions, nil
}

// ListDueForGeneration fetches records flagged for generation whose
// generation time has been reached.
func (r *SubmissionRepository) ListDueForGeneration(ctx context.Context, statuses []models.SubmissionStatus, now time.Time, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + submissionColumns + ` FROM similarity_submissions
WHERE status = ANY($1) AND to_generate = TRUE AND generation_time IS NOT NULL AND generation_time <= $2
ORDER BY generation_time ASC LIMIT $3`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, pq.Array(statusStrings(statuses)), now, limit); err != nil {
		return nil, fmt.Errorf("list submissions due for generation: %w", err)
	}
	return submissions, nil
}

// ListScoresByModule returns the score report rows of a course module.
func (r *SubmissionRepository) ListScoresByModule(ctx context.Context, cmID string) ([]models.ScoreRow, error) {
	const query = `SELECT s.id, COALESCE(g.name, TRIM(u.first_name || ' ' || u.last_name), '') AS owner_name,
s.identifier, s.status, s.overall_score, s.submitted_time
FROM similarity_submissions s
LEFT JOIN lms_users u ON u.id = s.user_id
LEFT JOIN lms_groups g ON g.id = s.group_id
WHERE s.cm_id = $1 ORDER BY owner_name ASC, s.submitted_time ASC`
	var rows []models.ScoreRow
	if err := r.db.SelectContext(ctx, &rows, query, cmID); err != nil {
		return nil, fmt.Errorf("list module scores: %w", err)
	}
	return rows, nil
}

func statusStrings(statuses []models.SubmissionStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
}
