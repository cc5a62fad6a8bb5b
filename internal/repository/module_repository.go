package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/simcheck-bridge/internal/models"
)

// ModuleRepository reads course modules, their similarity settings and the
// activity tables behind each supported module type.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs the repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// GetCourseModule loads a course module with its course name.
func (r *ModuleRepository) GetCourseModule(ctx context.Context, cmID string) (*models.CourseModule, error) {
	const query = `SELECT cm.id, cm.course_id, c.full_name AS course_name, cm.name, cm.modname, cm.instance_id,
cm.blind_marking, cm.reveal_identities
FROM lms_course_modules cm JOIN lms_courses c ON c.id = cm.course_id WHERE cm.id = $1`
	var module models.CourseModule
	if err := r.db.GetContext(ctx, &module, query, cmID); err != nil {
		return nil, fmt.Errorf("get course module: %w", err)
	}
	return &module, nil
}

// GetSettings loads the similarity settings of a module.
func (r *ModuleRepository) GetSettings(ctx context.Context, cmID string) (*models.ModuleSettings, error) {
	const query = `SELECT cm_id, enabled, report_generation, add_to_index, exclude_quotes, exclude_bibliography
FROM similarity_module_settings WHERE cm_id = $1`
	var settings models.ModuleSettings
	if err := r.db.GetContext(ctx, &settings, query, cmID); err != nil {
		return nil, fmt.Errorf("get module settings: %w", err)
	}
	return &settings, nil
}

// ListInstructors returns users enrolled on the module's course with one of the roles.
func (r *ModuleRepository) ListInstructors(ctx context.Context, cmID string, roles []string) ([]models.LMSUser, error) {
	const query = `SELECT DISTINCT u.id, u.first_name, u.last_name, u.email FROM lms_users u
JOIN lms_enrolments e ON e.user_id = u.id
JOIN lms_course_modules cm ON cm.course_id = e.course_id
WHERE cm.id = $1 AND e.role = ANY($2) ORDER BY u.id`
	var users []models.LMSUser
	if err := r.db.SelectContext(ctx, &users, query, cmID, pq.Array(roles)); err != nil {
		return nil, fmt.Errorf("list module instructors: %w", err)
	}
	return users, nil
}

// HasRole reports whether the user holds one of the roles on the module's course.
func (r *ModuleRepository) HasRole(ctx context.Context, cmID, userID string, roles []string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM lms_enrolments e
JOIN lms_course_modules cm ON cm.course_id = e.course_id
WHERE cm.id = $1 AND e.user_id = $2 AND e.role = ANY($3))`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, cmID, userID, pq.Array(roles)); err != nil {
		return false, fmt.Errorf("check module role: %w", err)
	}
	return ok, nil
}

// AssignDueDate returns the assignment deadline, nil when none is set.
func (r *ModuleRepository) AssignDueDate(ctx context.Context, instanceID string) (*time.Time, error) {
	return r.optionalTime(ctx, "assign due date", `SELECT due_date FROM lms_assign WHERE id = $1`, instanceID)
}

// AssignOnlineText returns the online text of an assignment submission item.
func (r *ModuleRepository) AssignOnlineText(ctx context.Context, itemID string) (string, error) {
	const query = `SELECT online_text FROM lms_assign_onlinetext WHERE submission_id = $1`
	return r.text(ctx, "assign online text", query, itemID)
}

// AssignSubmissionStatus returns the LMS status of an assignment submission item.
func (r *ModuleRepository) AssignSubmissionStatus(ctx context.Context, itemID string) (string, error) {
	const query = `SELECT status FROM lms_assign_submissions WHERE id = $1`
	return r.text(ctx, "assign submission status", query, itemID)
}

// AssignSubmissionOwner returns who owns an assignment submission item.
func (r *ModuleRepository) AssignSubmissionOwner(ctx context.Context, itemID string) (*models.AssignSubmissionOwner, error) {
	const query = `SELECT user_id, group_id FROM lms_assign_submissions WHERE id = $1`
	var owner models.AssignSubmissionOwner
	if err := r.db.GetContext(ctx, &owner, query, itemID); err != nil {
		return nil, fmt.Errorf("get assign submission owner: %w", err)
	}
	return &owner, nil
}

// ForumPostMessage returns the message body of a forum post.
func (r *ModuleRepository) ForumPostMessage(ctx context.Context, postID string) (string, error) {
	return r.text(ctx, "forum post", `SELECT message FROM lms_forum_posts WHERE id = $1`, postID)
}

// ForumDueDate returns the forum deadline, nil when none is set.
func (r *ModuleRepository) ForumDueDate(ctx context.Context, instanceID string) (*time.Time, error) {
	return r.optionalTime(ctx, "forum due date", `SELECT due_date FROM lms_forums WHERE id = $1`, instanceID)
}

// WorkshopSubmissionContent returns the text of a workshop submission.
func (r *ModuleRepository) WorkshopSubmissionContent(ctx context.Context, submissionID string) (string, error) {
	return r.text(ctx, "workshop submission", `SELECT content FROM lms_workshop_submissions WHERE id = $1`, submissionID)
}

// WorkshopSubmissionEnd returns the workshop submission deadline, nil when none is set.
func (r *ModuleRepository) WorkshopSubmissionEnd(ctx context.Context, instanceID string) (*time.Time, error) {
	return r.optionalTime(ctx, "workshop submission end", `SELECT submission_end FROM lms_workshops WHERE id = $1`, instanceID)
}

func (r *ModuleRepository) text(ctx context.Context, label, query string, id string) (string, error) {
	var value sql.NullString
	if err := r.db.GetContext(ctx, &value, query, id); err != nil {
		return "", fmt.Errorf("get %s: %w", label, err)
	}
	return value.String, nil
}

func (r *ModuleRepository) optionalTime(ctx context.Context, label, query string, id string) (*time.Time, error) {
	var value sql.NullTime
	if err := r.db.GetContext(ctx, &value, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", label, err)
	}
	if !value.Valid {
		return nil, nil
	}
	t := value.Time
	return &t, nil
}
