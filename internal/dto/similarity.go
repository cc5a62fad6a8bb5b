package dto

import "time"

// SimilarityUser is a user entry inside create submission metadata.
type SimilarityUser struct {
	ID         string `json:"id"`
	FamilyName string `json:"family_name"`
	GivenName  string `json:"given_name"`
	Email      string `json:"email"`
}

// SimilarityGroup describes the activity a submission belongs to.
type SimilarityGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// SimilarityGroupContext describes the course around the activity.
type SimilarityGroupContext struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Owners []SimilarityUser `json:"owners,omitempty"`
}

// SubmissionMetadata is the metadata block of a create submission request.
type SubmissionMetadata struct {
	Group        *SimilarityGroup        `json:"group,omitempty"`
	GroupContext *SimilarityGroupContext `json:"group_context,omitempty"`
	Owners       []SimilarityUser        `json:"owners,omitempty"`
}

// EULAAcceptance records the EULA the submitter agreed to.
type EULAAcceptance struct {
	AcceptedTimestamp string `json:"accepted_timestamp"`
	Language          string `json:"language"`
	Version           string `json:"version"`
}

// CreateSubmissionRequest is the POST /submissions payload.
type CreateSubmissionRequest struct {
	Owner     string             `json:"owner"`
	Submitter string             `json:"submitter"`
	Title     string             `json:"title"`
	Metadata  SubmissionMetadata `json:"metadata"`
	EULA      *EULAAcceptance    `json:"eula,omitempty"`
}

// CreateSubmissionResponse is the body returned for a created submission.
type CreateSubmissionResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	CreatedTime time.Time `json:"created_time"`
	Message     string    `json:"message,omitempty"`
}

// IndexingSettings controls whether the work is added to the repository index.
type IndexingSettings struct {
	AddToIndex bool `json:"add_to_index"`
}

// GenerationSettings controls report generation.
type GenerationSettings struct {
	SearchRepositories           []string `json:"search_repositories"`
	AutoExcludeSelfMatchingScope string   `json:"auto_exclude_self_matching_scope"`
}

// ReportViewSettings controls report presentation.
type ReportViewSettings struct {
	ExcludeQuotes       bool `json:"exclude_quotes"`
	ExcludeBibliography bool `json:"exclude_bibliography"`
}

// ReportRequest is the PUT /submissions/{id}/similarity payload.
type ReportRequest struct {
	IndexingSettings   *IndexingSettings  `json:"indexing_settings,omitempty"`
	GenerationSettings GenerationSettings `json:"generation_settings"`
	ViewSettings       ReportViewSettings `json:"view_settings"`
}

// SimilarityScoreResponse is the GET /submissions/{id}/similarity body. Both
// fields are optional on the wire.
type SimilarityScoreResponse struct {
	Status                 *string `json:"status,omitempty"`
	OverallMatchPercentage *int    `json:"overall_match_percentage,omitempty"`
}

// ViewerPermissions are the admin controlled report viewer permissions.
type ViewerPermissions struct {
	MayViewSubmissionFullSource bool `json:"may_view_submission_full_source"`
	MayViewMatchSubmissionInfo  bool `json:"may_view_match_submission_info"`
	MayViewSaveViewerChanges    bool `json:"may_view_save_viewer_changes"`
}

// ViewerModes selects the viewer panes.
type ViewerModes struct {
	MatchOverview bool `json:"match_overview"`
	AllSources    bool `json:"all_sources"`
}

// ViewerViewSettings holds viewer display options.
type ViewerViewSettings struct {
	SaveChanges bool `json:"save_changes"`
}

// SimilarityOverrides customises the similarity view in the viewer.
type SimilarityOverrides struct {
	Modes        ViewerModes        `json:"modes"`
	ViewSettings ViewerViewSettings `json:"view_settings"`
}

// ViewerLaunchRequest is the POST /submissions/{id}/viewer-url payload.
type ViewerLaunchRequest struct {
	Locale                     string              `json:"locale"`
	ViewerUserID               string              `json:"viewer_user_id"`
	GivenName                  string              `json:"given_name,omitempty"`
	FamilyName                 string              `json:"family_name,omitempty"`
	ViewerDefaultPermissionSet string              `json:"viewer_default_permission_set"`
	ViewerPermissions          ViewerPermissions   `json:"viewer_permissions"`
	Similarity                 SimilarityOverrides `json:"similarity"`
}

// ViewerLaunchResponse carries the viewer URL.
type ViewerLaunchResponse struct {
	ViewerURL string `json:"viewer_url"`
}
