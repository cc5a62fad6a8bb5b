package dto

import (
	"time"

	"github.com/noah-isme/simcheck-bridge/internal/models"
)

// QueueSubmissionRequest captures POST /submissions payload sent by the LMS
// when new work is detected.
type QueueSubmissionRequest struct {
	CourseModuleID string                `json:"cm_id" validate:"required"`
	UserID         string                `json:"user_id"`
	GroupID        string                `json:"group_id"`
	SubmitterID    string                `json:"submitter_id" validate:"required"`
	ItemID         string                `json:"item_id"`
	Type           models.SubmissionType `json:"type" validate:"required,oneof=file content"`
	PathNameHash   string                `json:"pathname_hash" validate:"required_if=Type file"`
	Content        string                `json:"content" validate:"required_if=Type content"`
}

// SubmissionResponse exposes a submission record to API callers.
type SubmissionResponse struct {
	ID             string                  `json:"id"`
	CourseModuleID string                  `json:"cm_id"`
	UserID         *string                 `json:"user_id,omitempty"`
	GroupID        *string                 `json:"group_id,omitempty"`
	RemoteID       *string                 `json:"remote_id,omitempty"`
	Status         models.SubmissionStatus `json:"status"`
	Type           models.SubmissionType   `json:"type"`
	SubmittedTime  *time.Time              `json:"submitted_time,omitempty"`
	RequestedTime  *time.Time              `json:"requested_time,omitempty"`
	GenerationTime *time.Time              `json:"generation_time,omitempty"`
	ToGenerate     bool                    `json:"to_generate"`
	OverallScore   *int                    `json:"overall_score,omitempty"`
	ErrorMessage   *string                 `json:"error_message,omitempty"`
}

// NewSubmissionResponse maps a record onto its API representation.
func NewSubmissionResponse(s *models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:             s.ID,
		CourseModuleID: s.CourseModuleID,
		UserID:         s.UserID,
		GroupID:        s.GroupID,
		RemoteID:       s.RemoteID,
		Status:         s.Status,
		Type:           s.Type,
		SubmittedTime:  s.SubmittedTime,
		RequestedTime:  s.RequestedTime,
		GenerationTime: s.GenerationTime,
		ToGenerate:     s.ToGenerate,
		OverallScore:   s.OverallScore,
		ErrorMessage:   s.ErrorMessage,
	}
}

// ViewerURLResponse is returned by POST /submissions/:id/viewer-url.
type ViewerURLResponse struct {
	ViewerURL string `json:"viewer_url"`
}

// TransitionResponse reports the outcome of an operator action.
type TransitionResponse struct {
	Outcome    string             `json:"outcome"`
	Submission SubmissionResponse `json:"submission"`
}
