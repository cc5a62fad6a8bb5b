package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
)

// SubmissionValidator checks the record invariants before every write.
type SubmissionValidator struct {
	validate *validator.Validate
}

// NewSubmissionValidator registers the record level rules on the validator.
func NewSubmissionValidator(validate *validator.Validate) *SubmissionValidator {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterStructValidation(submissionStructLevel, models.Submission{})
	return &SubmissionValidator{validate: validate}
}

// Validate returns a validation error describing the first broken invariant.
func (v *SubmissionValidator) Validate(submission *models.Submission) error {
	if submission == nil {
		return appErrors.Clone(appErrors.ErrValidation, "submission is nil")
	}
	if err := v.validate.Struct(submission); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "submission invariant violated")
	}
	return nil
}

func submissionStructLevel(sl validator.StructLevel) {
	s := sl.Current().Interface().(models.Submission)

	hasUser := s.UserID != nil && *s.UserID != ""
	hasGroup := s.GroupID != nil && *s.GroupID != ""
	if hasUser == hasGroup {
		sl.ReportError(s.UserID, "UserID", "user_id", "single_owner", "")
	}

	hasRemote := s.RemoteID != nil && *s.RemoteID != ""
	switch {
	case s.Status.HasRemoteRecord() && !hasRemote:
		sl.ReportError(s.RemoteID, "RemoteID", "remote_id", "remote_required", string(s.Status))
	case (s.Status == models.SubmissionStatusQueued || s.Status == models.SubmissionStatusEULANotAccepted) && hasRemote:
		sl.ReportError(s.RemoteID, "RemoteID", "remote_id", "remote_forbidden", string(s.Status))
	}

	if s.OverallScore != nil && s.Status.PreReport() {
		sl.ReportError(s.OverallScore, "OverallScore", "overall_score", "score_forbidden", string(s.Status))
	}

	if s.ToGenerate && s.GenerationTime == nil {
		sl.ReportError(s.GenerationTime, "GenerationTime", "generation_time", "generation_time_required", "")
	}

	if s.ErrorMessage != nil && *s.ErrorMessage != "" && s.Status != models.SubmissionStatusError {
		sl.ReportError(s.ErrorMessage, "ErrorMessage", "error_message", "error_status_only", string(s.Status))
	}

	if !knownStatus(s.Status) {
		sl.ReportError(s.Status, "Status", "status", "known_status", string(s.Status))
	}
}
