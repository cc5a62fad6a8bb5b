package models

import "time"

// ReportGenerationPolicy decides when similarity reports are generated. The
// numeric values match the stored module setting.
type ReportGenerationPolicy int

const (
	ReportGenImmediate           ReportGenerationPolicy = 0
	ReportGenImmediateAndDueDate ReportGenerationPolicy = 1
	ReportGenDueDate             ReportGenerationPolicy = 2
)

func (p ReportGenerationPolicy) String() string {
	switch p {
	case ReportGenImmediate:
		return "immediate"
	case ReportGenImmediateAndDueDate:
		return "immediate_and_duedate"
	case ReportGenDueDate:
		return "duedate"
	default:
		return "unknown"
	}
}

// Valid reports whether the policy is one of the supported values.
func (p ReportGenerationPolicy) Valid() bool {
	return p >= ReportGenImmediate && p <= ReportGenDueDate
}

// Module type tags for supported LMS activities.
const (
	ModuleTypeAssign   = "assign"
	ModuleTypeForum    = "forum"
	ModuleTypeWorkshop = "workshop"
)

// CourseModule is the LMS activity a submission belongs to.
type CourseModule struct {
	ID               string `db:"id" json:"id"`
	CourseID         string `db:"course_id" json:"course_id"`
	CourseName       string `db:"course_name" json:"course_name"`
	Name             string `db:"name" json:"name"`
	ModName          string `db:"modname" json:"modname"`
	InstanceID       string `db:"instance_id" json:"instance_id"`
	BlindMarking     bool   `db:"blind_marking" json:"blind_marking"`
	RevealIdentities bool   `db:"reveal_identities" json:"reveal_identities"`
}

// ModuleSettings are the per-module similarity options.
type ModuleSettings struct {
	CourseModuleID      string                 `db:"cm_id" json:"cm_id"`
	Enabled             bool                   `db:"enabled" json:"enabled"`
	ReportGeneration    ReportGenerationPolicy `db:"report_generation" json:"report_generation"`
	AddToIndex          bool                   `db:"add_to_index" json:"add_to_index"`
	ExcludeQuotes       bool                   `db:"exclude_quotes" json:"exclude_quotes"`
	ExcludeBibliography bool                   `db:"exclude_bibliography" json:"exclude_bibliography"`
}

// ModuleDueDate is the deadline of a module instance; nil when it has none.
type ModuleDueDate struct {
	DueDate *time.Time `db:"due_date"`
}
