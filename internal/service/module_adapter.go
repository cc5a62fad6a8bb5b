package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
	"github.com/noah-isme/simcheck-bridge/pkg/htmltext"
)

// ModuleAdapter hides the differences between LMS activity types.
type ModuleAdapter interface {
	DueDate(ctx context.Context, module *models.CourseModule) (*time.Time, error)
	OnlineText(ctx context.Context, itemID string) (string, error)
	IsSubmissionDraft(ctx context.Context, itemID string) (bool, error)
}

type moduleContentReader interface {
	AssignDueDate(ctx context.Context, instanceID string) (*time.Time, error)
	AssignOnlineText(ctx context.Context, itemID string) (string, error)
	AssignSubmissionStatus(ctx context.Context, itemID string) (string, error)
	ForumPostMessage(ctx context.Context, postID string) (string, error)
	ForumDueDate(ctx context.Context, instanceID string) (*time.Time, error)
	WorkshopSubmissionContent(ctx context.Context, submissionID string) (string, error)
	WorkshopSubmissionEnd(ctx context.Context, instanceID string) (*time.Time, error)
}

// ModuleRegistry maps module type tags to adapters.
type ModuleRegistry struct {
	mu       sync.RWMutex
	adapters map[string]ModuleAdapter
}

// NewModuleRegistry builds a registry with the assign, forum and workshop adapters.
func NewModuleRegistry(reader moduleContentReader) *ModuleRegistry {
	r := &ModuleRegistry{adapters: map[string]ModuleAdapter{}}
	if reader != nil {
		r.Register(models.ModuleTypeAssign, &AssignAdapter{reader: reader})
		r.Register(models.ModuleTypeForum, &ForumAdapter{reader: reader})
		r.Register(models.ModuleTypeWorkshop, &WorkshopAdapter{reader: reader})
	}
	return r
}

// Register adds or replaces the adapter for a module type.
func (r *ModuleRegistry) Register(modName string, adapter ModuleAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(modName)] = adapter
}

// For returns the adapter of a module type.
func (r *ModuleRegistry) For(modName string) (ModuleAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[strings.ToLower(modName)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported module type "+modName)
	}
	return adapter, nil
}

// AssignAdapter serves assignment activities.
type AssignAdapter struct {
	reader moduleContentReader
}

// DueDate returns the assignment deadline.
func (a *AssignAdapter) DueDate(ctx context.Context, module *models.CourseModule) (*time.Time, error) {
	return a.reader.AssignDueDate(ctx, module.InstanceID)
}

// OnlineText returns the submission's online text as plain text.
func (a *AssignAdapter) OnlineText(ctx context.Context, itemID string) (string, error) {
	raw, err := a.reader.AssignOnlineText(ctx, itemID)
	if err != nil {
		return "", err
	}
	return htmltext.ToText(raw), nil
}

// IsSubmissionDraft reports whether the assignment submission is still a draft.
func (a *AssignAdapter) IsSubmissionDraft(ctx context.Context, itemID string) (bool, error) {
	status, err := a.reader.AssignSubmissionStatus(ctx, itemID)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(status, "draft"), nil
}

// ForumAdapter serves forum posts. Posts are never drafts.
type ForumAdapter struct {
	reader moduleContentReader
}

// DueDate returns the forum deadline.
func (a *ForumAdapter) DueDate(ctx context.Context, module *models.CourseModule) (*time.Time, error) {
	return a.reader.ForumDueDate(ctx, module.InstanceID)
}

// OnlineText returns the post message as plain text.
func (a *ForumAdapter) OnlineText(ctx context.Context, itemID string) (string, error) {
	raw, err := a.reader.ForumPostMessage(ctx, itemID)
	if err != nil {
		return "", err
	}
	return htmltext.ToText(raw), nil
}

// IsSubmissionDraft always reports false.
func (a *ForumAdapter) IsSubmissionDraft(context.Context, string) (bool, error) {
	return false, nil
}

// WorkshopAdapter serves workshop submissions.
type WorkshopAdapter struct {
	reader moduleContentReader
}

// DueDate returns the end of the workshop submission phase.
func (a *WorkshopAdapter) DueDate(ctx context.Context, module *models.CourseModule) (*time.Time, error) {
	return a.reader.WorkshopSubmissionEnd(ctx, module.InstanceID)
}

// OnlineText returns the workshop submission content as plain text.
func (a *WorkshopAdapter) OnlineText(ctx context.Context, itemID string) (string, error) {
	raw, err := a.reader.WorkshopSubmissionContent(ctx, itemID)
	if err != nil {
		return "", err
	}
	return htmltext.ToText(raw), nil
}

// IsSubmissionDraft always reports false.
func (a *WorkshopAdapter) IsSubmissionDraft(context.Context, string) (bool, error) {
	return false, nil
}
