package models

import "time"

// SubmissionStatus captures where a submission stands in the similarity workflow.
// Values after QUEUED mirror the statuses reported by the similarity service.
type SubmissionStatus string

const (
	SubmissionStatusQueued          SubmissionStatus = "QUEUED"
	SubmissionStatusCreated         SubmissionStatus = "CREATED"
	SubmissionStatusUploaded        SubmissionStatus = "UPLOADED"
	SubmissionStatusProcessing      SubmissionStatus = "PROCESSING"
	SubmissionStatusRequested       SubmissionStatus = "REQUESTED"
	SubmissionStatusComplete        SubmissionStatus = "COMPLETE"
	SubmissionStatusError           SubmissionStatus = "ERROR"
	SubmissionStatusEULANotAccepted SubmissionStatus = "EULA_NOT_ACCEPTED"
)

func (s SubmissionStatus) String() string {
	return string(s)
}

// HasRemoteRecord reports whether the status can only be reached after the
// similarity service accepted the create call.
func (s SubmissionStatus) HasRemoteRecord() bool {
	switch s {
	case SubmissionStatusCreated, SubmissionStatusUploaded, SubmissionStatusProcessing,
		SubmissionStatusRequested, SubmissionStatusComplete:
		return true
	default:
		return false
	}
}

// PreReport reports whether no report can exist yet for the status.
func (s SubmissionStatus) PreReport() bool {
	switch s {
	case SubmissionStatusQueued, SubmissionStatusCreated, SubmissionStatusUploaded, SubmissionStatusEULANotAccepted:
		return true
	default:
		return false
	}
}

// SubmissionType distinguishes uploaded files from pasted text.
type SubmissionType string

const (
	SubmissionTypeFile    SubmissionType = "file"
	SubmissionTypeContent SubmissionType = "content"
)

// OwnerKind tells whether a submission belongs to a user or a group.
type OwnerKind string

const (
	OwnerKindUser  OwnerKind = "user"
	OwnerKindGroup OwnerKind = "group"
)

// SubmissionOwner identifies the effective owner of a submission.
type SubmissionOwner struct {
	Kind OwnerKind
	ID   string
}

// Submission is one unit of submitted work and its similarity service state.
type Submission struct {
	ID             string           `db:"id" json:"id"`
	CourseModuleID string           `db:"cm_id" json:"cm_id" validate:"required"`
	UserID         *string          `db:"user_id" json:"user_id,omitempty"`
	GroupID        *string          `db:"group_id" json:"group_id,omitempty"`
	SubmitterID    string           `db:"submitter_id" json:"submitter_id" validate:"required"`
	RemoteID       *string          `db:"remote_id" json:"remote_id,omitempty"`
	Status         SubmissionStatus `db:"status" json:"status" validate:"required"`
	Identifier     string           `db:"identifier" json:"identifier" validate:"required"`
	ItemID         string           `db:"item_id" json:"item_id"`
	Type           SubmissionType   `db:"type" json:"type" validate:"required,oneof=file content"`
	SubmittedTime  *time.Time       `db:"submitted_time" json:"submitted_time,omitempty"`
	ToGenerate     bool             `db:"to_generate" json:"to_generate"`
	GenerationTime *time.Time       `db:"generation_time" json:"generation_time,omitempty"`
	RequestedTime  *time.Time       `db:"requested_time" json:"requested_time,omitempty"`
	OverallScore   *int             `db:"overall_score" json:"overall_score,omitempty"`
	ErrorMessage   *string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Owner resolves the effective owner: the group when one is set, else the user.
func (s *Submission) Owner() (SubmissionOwner, bool) {
	if s.GroupID != nil && *s.GroupID != "" {
		return SubmissionOwner{Kind: OwnerKindGroup, ID: *s.GroupID}, true
	}
	if s.UserID != nil && *s.UserID != "" {
		return SubmissionOwner{Kind: OwnerKindUser, ID: *s.UserID}, true
	}
	return SubmissionOwner{}, false
}

// RemoteIDValue returns the remote id or an empty string.
func (s *Submission) RemoteIDValue() string {
	if s.RemoteID == nil {
		return ""
	}
	return *s.RemoteID
}

// Clone returns a deep copy so callers can compare before/after states.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	c.UserID = cloneString(s.UserID)
	c.GroupID = cloneString(s.GroupID)
	c.RemoteID = cloneString(s.RemoteID)
	c.ErrorMessage = cloneString(s.ErrorMessage)
	c.SubmittedTime = cloneTime(s.SubmittedTime)
	c.GenerationTime = cloneTime(s.GenerationTime)
	c.RequestedTime = cloneTime(s.RequestedTime)
	if s.OverallScore != nil {
		v := *s.OverallScore
		c.OverallScore = &v
	}
	return &c
}

// SubmissionLookup identifies an existing submission from LMS event data.
// Content is hashed into the identifier when Identifier is empty.
type SubmissionLookup struct {
	CourseModuleID string         `form:"cm_id" validate:"required"`
	UserID         string         `form:"user_id"`
	Identifier     string         `form:"identifier"`
	Content        string         `form:"-"`
	ItemID         string         `form:"item_id"`
	Type           SubmissionType `form:"type" validate:"required,oneof=file content"`
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
