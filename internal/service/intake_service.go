package service

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/internal/dto"
	"github.com/noah-isme/simcheck-bridge/internal/models"
	"github.com/noah-isme/simcheck-bridge/internal/repository"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
)

type intakeStore interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindOne(ctx context.Context, filter repository.SubmissionFilter) (*models.Submission, error)
}

type intakeModuleReader interface {
	GetCourseModule(ctx context.Context, cmID string) (*models.CourseModule, error)
	GetSettings(ctx context.Context, cmID string) (*models.ModuleSettings, error)
	AssignSubmissionOwner(ctx context.Context, itemID string) (*models.AssignSubmissionOwner, error)
}

// IntakeService registers new work detected by the LMS and resolves existing
// records from LMS event data.
type IntakeService struct {
	store    intakeStore
	modules  intakeModuleReader
	files    fileLookup
	adapters *ModuleRegistry
	validate *validator.Validate
	records  *SubmissionValidator
	policy   GenerationPolicy
	logger   *zap.Logger
	now      func() time.Time
}

// NewIntakeService constructs the service.
func NewIntakeService(store intakeStore, modules intakeModuleReader, files fileLookup, adapters *ModuleRegistry, validate *validator.Validate, records *SubmissionValidator, logger *zap.Logger) *IntakeService {
	if validate == nil {
		validate = validator.New()
	}
	if records == nil {
		records = NewSubmissionValidator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{
		store:    store,
		modules:  modules,
		files:    files,
		adapters: adapters,
		validate: validate,
		records:  records,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Queue stores a new QUEUED record, or returns the existing record for the
// same module, owner and identifier. The boolean reports whether a record was created.
func (s *IntakeService) Queue(ctx context.Context, req dto.QueueSubmissionRequest) (*models.Submission, bool, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if req.UserID == "" && req.GroupID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "user_id or group_id is required")
	}

	module, err := s.modules.GetCourseModule(ctx, req.CourseModuleID)
	if err != nil {
		return nil, false, notFoundOrInternal(err, "failed to load course module")
	}
	settings, err := s.modules.GetSettings(ctx, module.ID)
	if err != nil {
		return nil, false, notFoundOrInternal(err, "similarity checking is not configured for module")
	}
	if !settings.Enabled {
		return nil, false, appErrors.Clone(appErrors.ErrPreconditionFailed, "similarity checking is disabled for module")
	}

	identifier := req.PathNameHash
	if req.Type == models.SubmissionTypeFile {
		if _, err := s.files.GetByPathNameHash(ctx, identifier); err != nil {
			return nil, false, notFoundOrInternal(err, "submitted file not found")
		}
	} else {
		identifier = ContentIdentifier(req.Content)
	}

	lookup := models.SubmissionLookup{
		CourseModuleID: module.ID,
		UserID:         req.UserID,
		Identifier:     identifier,
		ItemID:         req.ItemID,
		Type:           req.Type,
	}
	existing, err := s.findDetails(ctx, module, lookup)
	if err == nil {
		return existing, false, nil
	}
	if !appErrors.HasCode(err, appErrors.ErrNotFound) {
		return nil, false, err
	}

	owner, err := s.resolveOwner(ctx, module, req)
	if err != nil {
		return nil, false, err
	}
	submission := &models.Submission{
		CourseModuleID: module.ID,
		SubmitterID:    req.SubmitterID,
		Status:         models.SubmissionStatusQueued,
		Identifier:     identifier,
		ItemID:         req.ItemID,
		Type:           req.Type,
	}
	if owner.Kind == models.OwnerKindGroup {
		submission.GroupID = &owner.ID
	} else {
		submission.UserID = &owner.ID
	}

	adapter, err := s.adapters.For(module.ModName)
	if err != nil {
		return nil, false, err
	}
	dueDate, err := adapter.DueDate(ctx, module)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve due date")
	}
	s.policy.Decide(PolicyInput{
		Policy:  settings.ReportGeneration,
		DueDate: dueDate,
		Status:  submission.Status,
		Now:     s.now(),
	}).Apply(submission)

	if err := s.records.Validate(submission); err != nil {
		return nil, false, err
	}
	if err := s.store.Create(ctx, submission); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue submission")
	}
	s.logger.Sugar().Infow("submission queued",
		"submission_id", submission.ID,
		"cm_id", submission.CourseModuleID,
		"type", submission.Type,
		"to_generate", submission.ToGenerate,
	)
	return submission, true, nil
}

// FindDetails resolves the record an LMS event refers to. Assignment file
// items are matched to the student they were submitted for, and group work
// is matched without a user.
func (s *IntakeService) FindDetails(ctx context.Context, lookup models.SubmissionLookup) (*models.Submission, error) {
	if err := s.validate.Struct(lookup); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission lookup")
	}
	module, err := s.modules.GetCourseModule(ctx, lookup.CourseModuleID)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load course module")
	}
	return s.findDetails(ctx, module, lookup)
}

func (s *IntakeService) findDetails(ctx context.Context, module *models.CourseModule, lookup models.SubmissionLookup) (*models.Submission, error) {
	identifier := lookup.Identifier
	userID := lookup.UserID

	switch lookup.Type {
	case models.SubmissionTypeFile:
		if identifier == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "identifier is required for file submissions")
		}
		if hasAssignItem(module, lookup.ItemID) {
			owner, err := s.modules.AssignSubmissionOwner(ctx, lookup.ItemID)
			switch {
			case err == nil && (owner.UserID == nil || *owner.UserID == ""):
				return s.findOne(ctx, repository.SubmissionFilter{
					CourseModuleID: module.ID,
					ItemID:         lookup.ItemID,
					Identifier:     identifier,
				})
			case err == nil:
				userID = *owner.UserID
			case !errors.Is(err, sql.ErrNoRows):
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment submission")
			}
		}
	default:
		if identifier == "" {
			if lookup.Content == "" {
				return nil, appErrors.Clone(appErrors.ErrValidation, "identifier or content is required")
			}
			identifier = ContentIdentifier(lookup.Content)
		}
		if userID == "" {
			return s.findOne(ctx, repository.SubmissionFilter{
				CourseModuleID: module.ID,
				Identifier:     identifier,
				Type:           models.SubmissionTypeContent,
			})
		}
	}

	return s.findOne(ctx, repository.SubmissionFilter{
		CourseModuleID: module.ID,
		UserID:         userID,
		UserIDIsNull:   userID == "",
		Identifier:     identifier,
	})
}

func (s *IntakeService) findOne(ctx context.Context, filter repository.SubmissionFilter) (*models.Submission, error) {
	submission, err := s.store.FindOne(ctx, filter)
	if err != nil {
		return nil, notFoundOrInternal(err, "submission not found")
	}
	return submission, nil
}

// resolveOwner prefers the owner recorded on an assignment item over the
// request, so work submitted on behalf of a student belongs to that student.
func (s *IntakeService) resolveOwner(ctx context.Context, module *models.CourseModule, req dto.QueueSubmissionRequest) (models.SubmissionOwner, error) {
	if req.Type == models.SubmissionTypeFile && hasAssignItem(module, req.ItemID) {
		owner, err := s.modules.AssignSubmissionOwner(ctx, req.ItemID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return models.SubmissionOwner{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment submission")
		}
		if err == nil {
			if owner.UserID != nil && *owner.UserID != "" {
				return models.SubmissionOwner{Kind: models.OwnerKindUser, ID: *owner.UserID}, nil
			}
			if owner.GroupID != nil && *owner.GroupID != "" {
				return models.SubmissionOwner{Kind: models.OwnerKindGroup, ID: *owner.GroupID}, nil
			}
		}
	}
	if req.GroupID != "" {
		return models.SubmissionOwner{Kind: models.OwnerKindGroup, ID: req.GroupID}, nil
	}
	return models.SubmissionOwner{Kind: models.OwnerKindUser, ID: req.UserID}, nil
}

func hasAssignItem(module *models.CourseModule, itemID string) bool {
	return module.ModName == models.ModuleTypeAssign && itemID != "" && itemID != "0"
}

// ContentIdentifier is the identifier of an online text submission.
func ContentIdentifier(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
