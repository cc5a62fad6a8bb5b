package models

import "time"

// LMSUser is the subset of LMS user data sent to the similarity service.
type LMSUser struct {
	ID        string `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
}

// SimilarityUser links an LMS user to its similarity service identity and
// records the last EULA the user accepted.
type SimilarityUser struct {
	UserID               string     `db:"user_id" json:"user_id"`
	RemoteID             string     `db:"remote_id" json:"remote_id"`
	LastEULAAccepted     *string    `db:"last_eula_accepted" json:"last_eula_accepted,omitempty"`
	LastEULAAcceptedTime *time.Time `db:"last_eula_accepted_time" json:"last_eula_accepted_time,omitempty"`
	LastEULAAcceptedLang *string    `db:"last_eula_accepted_lang" json:"last_eula_accepted_lang,omitempty"`
}

// HasAcceptedEULA reports whether any EULA version was accepted.
func (u *SimilarityUser) HasAcceptedEULA() bool {
	return u != nil && u.LastEULAAccepted != nil && *u.LastEULAAccepted != ""
}

// SimilarityGroup links an LMS group to its similarity service identity.
type SimilarityGroup struct {
	GroupID  string `db:"group_id" json:"group_id"`
	RemoteID string `db:"remote_id" json:"remote_id"`
}

// StoredFile is the LMS file record referenced by a file submission.
type StoredFile struct {
	PathNameHash string `db:"pathname_hash" json:"pathname_hash"`
	ContentHash  string `db:"content_hash" json:"content_hash"`
	Filename     string `db:"filename" json:"filename"`
	ItemID       string `db:"item_id" json:"item_id"`
	UserID       string `db:"user_id" json:"user_id"`
}

// AssignSubmissionOwner tells who owns an assignment submission item.
type AssignSubmissionOwner struct {
	UserID  *string `db:"user_id"`
	GroupID *string `db:"group_id"`
}
