package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/internal/dto"
	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
	"github.com/noah-isme/simcheck-bridge/pkg/similarity"
)

// Lifecycle steps, used as log fields and metric labels.
const (
	StepCreate        = "create"
	StepUpload        = "upload"
	StepRequestReport = "request_report"
	StepPollScore     = "poll_score"
	StepReset         = "reset"
)

const (
	groupTypeAssignment      = "ASSIGNMENT"
	selfMatchScopeGroup      = "GROUP"
	eulaTimestampLayout      = "2006-01-02T15:04:05Z"
	malformedResponseMessage = "malformed response from similarity service"
)

// TransitionOutcome is the explicit result variant of a lifecycle transition.
type TransitionOutcome string

const (
	OutcomeSuccess          TransitionOutcome = "success"
	OutcomeRemoteRejected   TransitionOutcome = "remote_rejected"
	OutcomeLegalBlock       TransitionOutcome = "legal_block"
	OutcomeTransportFailure TransitionOutcome = "transport_failure"
	OutcomeSkipped          TransitionOutcome = "skipped"
)

// TransitionResult reports what a transition did. Submission is the record as
// it stands after the transition.
type TransitionResult struct {
	Step       string
	Outcome    TransitionOutcome
	Class      similarity.Class
	Message    string
	Submission *models.Submission
}

type submissionStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
}

type similarityTransport interface {
	Send(ctx context.Context, req similarity.Request) (*similarity.Response, error)
}

type moduleReader interface {
	GetCourseModule(ctx context.Context, cmID string) (*models.CourseModule, error)
	GetSettings(ctx context.Context, cmID string) (*models.ModuleSettings, error)
	ListInstructors(ctx context.Context, cmID string, roles []string) ([]models.LMSUser, error)
}

type identityReader interface {
	GetUser(ctx context.Context, userID string) (*models.LMSUser, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]models.LMSUser, error)
	EnsureUser(ctx context.Context, userID string) (*models.SimilarityUser, error)
	EnsureGroup(ctx context.Context, groupID string) (*models.SimilarityGroup, error)
}

type fileLookup interface {
	GetByPathNameHash(ctx context.Context, hash string) (*models.StoredFile, error)
}

type contentReader interface {
	Read(contentHash string) ([]byte, error)
}

type featureProvider interface {
	Features(ctx context.Context) (*models.TenantFeatures, error)
}

type receiptSender interface {
	SendUploadReceipts(ctx context.Context, submission *models.Submission, title string) error
}

type transitionObserver interface {
	ObserveTransition(step, outcome string)
}

// LifecycleConfig carries the settings the lifecycle reads.
type LifecycleConfig struct {
	Language        string
	InstructorRoles []string
}

// LifecycleDeps groups the collaborators of SubmissionLifecycle.
type LifecycleDeps struct {
	Store      submissionStore
	Transport  similarityTransport
	Modules    moduleReader
	Identities identityReader
	Files      fileLookup
	Content    contentReader
	Features   featureProvider
	Receipts   receiptSender
	Adapters   *ModuleRegistry
	Validator  *SubmissionValidator
	Metrics    transitionObserver
}

// SubmissionLifecycle drives one submission through create, upload, report
// request and score polling. It keeps no per-submission state: every
// transition loads the record fresh and writes it back before returning.
type SubmissionLifecycle struct {
	deps   LifecycleDeps
	policy GenerationPolicy
	cfg    LifecycleConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewSubmissionLifecycle constructs the lifecycle service.
func NewSubmissionLifecycle(deps LifecycleDeps, cfg LifecycleConfig, logger *zap.Logger) *SubmissionLifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = NewSubmissionValidator(nil)
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if len(cfg.InstructorRoles) == 0 {
		cfg.InstructorRoles = []string{string(models.RoleInstructor)}
	}
	return &SubmissionLifecycle{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get loads a submission record.
func (l *SubmissionLifecycle) Get(ctx context.Context, id string) (*models.Submission, error) {
	return l.load(ctx, id)
}

// Create registers the submission with the similarity service.
func (l *SubmissionLifecycle) Create(ctx context.Context, id string) (*TransitionResult, error) {
	submission, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.RemoteIDValue() != "" {
		return l.skipped(StepCreate, submission), nil
	}
	if submission.Status != models.SubmissionStatusQueued {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot create submission in status %s", submission.Status))
	}

	payload, err := l.buildCreateRequest(ctx, submission)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal create request: %w", err)
	}

	resp, err := l.deps.Transport.Send(ctx, similarity.Request{
		Operation: StepCreate,
		Method:    http.MethodPost,
		Endpoint:  similarity.EndpointCreateSubmission,
		Body:      body,
	})
	class, err := l.classify(err, resp)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Step: StepCreate, Class: class}
	switch class {
	case similarity.ClassTransportFailure:
		return l.transportFailure(result, submission), nil
	case similarity.ClassCreated:
		var created dto.CreateSubmissionResponse
		if decodeErr := resp.Decode(&created); decodeErr != nil || created.ID == "" {
			submission.Status = models.SubmissionStatusError
			result.Outcome = OutcomeRemoteRejected
			break
		}
		submission.RemoteID = &created.ID
		submission.Status = remoteCreateStatus(created.Status)
		submitted := created.CreatedTime.UTC()
		if created.CreatedTime.IsZero() {
			submitted = l.now()
		}
		submission.SubmittedTime = &submitted
		result.Outcome = OutcomeSuccess
	case similarity.ClassLegalBlock:
		submission.Status = models.SubmissionStatusEULANotAccepted
		now := l.now()
		submission.SubmittedTime = &now
		result.Outcome = OutcomeLegalBlock
	default:
		submission.Status = models.SubmissionStatusError
		result.Outcome = OutcomeRemoteRejected
	}

	if err := l.persist(ctx, submission); err != nil {
		return nil, err
	}
	return l.finish(result, submission), nil
}

// Upload sends the submission content. Records already uploaded are skipped
// so the receipt side effect never repeats.
func (l *SubmissionLifecycle) Upload(ctx context.Context, id string) (*TransitionResult, error) {
	submission, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch submission.Status {
	case models.SubmissionStatusUploaded, models.SubmissionStatusProcessing,
		models.SubmissionStatusRequested, models.SubmissionStatusComplete:
		return l.skipped(StepUpload, submission), nil
	case models.SubmissionStatusCreated:
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot upload submission in status %s", submission.Status))
	}
	remoteID := submission.RemoteIDValue()
	if remoteID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "submission has no remote id")
	}

	filename, content, err := l.loadContent(ctx, submission)
	if err != nil {
		return nil, err
	}

	resp, err := l.deps.Transport.Send(ctx, similarity.Request{
		Operation: StepUpload,
		Method:    http.MethodPut,
		Endpoint:  similarity.SubmissionEndpoint(similarity.EndpointUploadSubmission, remoteID),
		Body:      content,
		Headers: map[string]string{
			"Content-Type":        "binary/octet-stream",
			"Content-Disposition": fmt.Sprintf("inline; filename=%q", filename),
		},
	})
	class, err := l.classify(err, resp)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Step: StepUpload, Class: class}
	switch class {
	case similarity.ClassTransportFailure:
		return l.transportFailure(result, submission), nil
	case similarity.ClassAccepted, similarity.ClassCompleteStatus:
		submission.Status = models.SubmissionStatusUploaded
		submission.ErrorMessage = nil
		result.Outcome = OutcomeSuccess
	default:
		l.reject(result, submission, resp.Message())
	}

	if err := l.persist(ctx, submission); err != nil {
		return nil, err
	}

	if result.Outcome == OutcomeSuccess && l.deps.Receipts != nil {
		if err := l.deps.Receipts.SendUploadReceipts(ctx, submission, filename); err != nil {
			l.logger.Sugar().Warnw("digital receipts not sent", "submission_id", submission.ID, "remote_id", remoteID, "error", err)
		}
	}
	return l.finish(result, submission), nil
}

// RequestReport asks the similarity service to generate the report.
func (l *SubmissionLifecycle) RequestReport(ctx context.Context, id string) (*TransitionResult, error) {
	submission, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Status != models.SubmissionStatusUploaded && submission.Status != models.SubmissionStatusComplete {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot request report in status %s", submission.Status))
	}
	remoteID := submission.RemoteIDValue()
	if remoteID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "submission has no remote id")
	}

	module, settings, adapter, err := l.moduleContext(ctx, submission.CourseModuleID)
	if err != nil {
		return nil, err
	}
	dueDate, err := adapter.DueDate(ctx, module)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve due date")
	}
	features, err := l.deps.Features.Features(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant features")
	}

	payload := dto.ReportRequest{
		GenerationSettings: dto.GenerationSettings{
			SearchRepositories:           features.Similarity.GenerationSettings.SearchRepositories,
			AutoExcludeSelfMatchingScope: selfMatchScopeGroup,
		},
		ViewSettings: dto.ReportViewSettings{
			ExcludeQuotes:       settings.ExcludeQuotes,
			ExcludeBibliography: settings.ExcludeBibliography,
		},
	}
	if payload.GenerationSettings.SearchRepositories == nil {
		payload.GenerationSettings.SearchRepositories = []string{}
	}
	if settings.AddToIndex {
		draft, err := adapter.IsSubmissionDraft(ctx, submission.ItemID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check draft state")
		}
		if !draft {
			payload.IndexingSettings = &dto.IndexingSettings{AddToIndex: true}
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal report request: %w", err)
	}

	resp, err := l.deps.Transport.Send(ctx, similarity.Request{
		Operation: StepRequestReport,
		Method:    http.MethodPut,
		Endpoint:  similarity.SubmissionEndpoint(similarity.EndpointSimilarity, remoteID),
		Body:      body,
	})
	class, err := l.classify(err, resp)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Step: StepRequestReport, Class: class}
	if class == similarity.ClassTransportFailure {
		return l.transportFailure(result, submission), nil
	}

	now := l.now()
	submission.RequestedTime = &now
	if class == similarity.ClassAccepted {
		submission.Status = models.SubmissionStatusRequested
		submission.ErrorMessage = nil
		l.policy.Decide(PolicyInput{
			Policy:    settings.ReportGeneration,
			DueDate:   dueDate,
			Status:    submission.Status,
			Generated: true,
			Now:       now,
		}).Apply(submission)
		result.Outcome = OutcomeSuccess
	} else {
		l.reject(result, submission, resp.Message())
	}

	if err := l.persist(ctx, submission); err != nil {
		return nil, err
	}
	return l.finish(result, submission), nil
}

// PollScore fetches the report status and score. The remote status is
// adopted as reported.
func (l *SubmissionLifecycle) PollScore(ctx context.Context, id string) (*TransitionResult, error) {
	submission, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch submission.Status {
	case models.SubmissionStatusRequested, models.SubmissionStatusProcessing, models.SubmissionStatusComplete:
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot poll score in status %s", submission.Status))
	}
	remoteID := submission.RemoteIDValue()
	if remoteID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "submission has no remote id")
	}

	resp, err := l.deps.Transport.Send(ctx, similarity.Request{
		Operation: StepPollScore,
		Method:    http.MethodGet,
		Endpoint:  similarity.SubmissionEndpoint(similarity.EndpointSimilarity, remoteID),
	})
	class, err := l.classify(err, resp)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Step: StepPollScore, Class: class}
	if class == similarity.ClassTransportFailure {
		return l.transportFailure(result, submission), nil
	}
	if !resp.Success() {
		l.reject(result, submission, resp.Message())
		if err := l.persist(ctx, submission); err != nil {
			return nil, err
		}
		return l.finish(result, submission), nil
	}

	var score dto.SimilarityScoreResponse
	if decodeErr := resp.Decode(&score); decodeErr != nil {
		l.reject(result, submission, malformedResponseMessage)
		if err := l.persist(ctx, submission); err != nil {
			return nil, err
		}
		return l.finish(result, submission), nil
	}

	if score.Status != nil {
		status := models.SubmissionStatus(strings.ToUpper(*score.Status))
		scored := score.OverallMatchPercentage != nil || submission.OverallScore != nil
		if !knownStatus(status) || status == models.SubmissionStatusQueued || status == models.SubmissionStatusEULANotAccepted || (status.PreReport() && scored) {
			l.reject(result, submission, fmt.Sprintf("unexpected report status %q", *score.Status))
			if err := l.persist(ctx, submission); err != nil {
				return nil, err
			}
			return l.finish(result, submission), nil
		}
		submission.Status = status
		if status != models.SubmissionStatusError {
			submission.ErrorMessage = nil
		}
	}
	if score.OverallMatchPercentage != nil {
		value := *score.OverallMatchPercentage
		submission.OverallScore = &value
		if err := l.recomputeGeneration(ctx, submission); err != nil {
			return nil, err
		}
	}
	result.Outcome = OutcomeSuccess
	if submission.Status == models.SubmissionStatusError {
		result.Outcome = OutcomeRemoteRejected
	}

	if err := l.persist(ctx, submission); err != nil {
		return nil, err
	}
	return l.finish(result, submission), nil
}

// ResetForRetry moves a failed record back to the step that failed so the
// scheduler can re-attempt it.
func (l *SubmissionLifecycle) ResetForRetry(ctx context.Context, id string) (*TransitionResult, error) {
	submission, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Status != models.SubmissionStatusError && submission.Status != models.SubmissionStatusEULANotAccepted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot retry submission in status %s", submission.Status))
	}

	submission.ErrorMessage = nil
	switch {
	case submission.RemoteIDValue() == "":
		submission.RemoteID = nil
		submission.Status = models.SubmissionStatusQueued
		submission.OverallScore = nil
	case submission.RequestedTime == nil:
		submission.Status = models.SubmissionStatusCreated
		submission.OverallScore = nil
	default:
		now := l.now()
		submission.Status = models.SubmissionStatusUploaded
		submission.OverallScore = nil
		submission.ToGenerate = true
		submission.GenerationTime = &now
	}

	if err := l.persist(ctx, submission); err != nil {
		return nil, err
	}
	return l.finish(&TransitionResult{Step: StepReset, Outcome: OutcomeSuccess}, submission), nil
}

func (l *SubmissionLifecycle) buildCreateRequest(ctx context.Context, submission *models.Submission) (*dto.CreateSubmissionRequest, error) {
	owner, ok := submission.Owner()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "submission has no owner")
	}
	ownerRemoteID, err := l.ownerRemoteID(ctx, owner)
	if err != nil {
		return nil, err
	}
	submitter, err := l.deps.Identities.EnsureUser(ctx, submission.SubmitterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve submitter")
	}

	title, err := l.submissionTitle(ctx, submission)
	if err != nil {
		return nil, err
	}

	module, err := l.deps.Modules.GetCourseModule(ctx, submission.CourseModuleID)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load course module")
	}
	instructors, err := l.deps.Modules.ListInstructors(ctx, module.ID, l.cfg.InstructorRoles)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	instructorEntries, err := l.userEntries(ctx, instructors)
	if err != nil {
		return nil, err
	}

	var ownerUsers []models.LMSUser
	if owner.Kind == models.OwnerKindGroup {
		ownerUsers, err = l.deps.Identities.ListGroupMembers(ctx, owner.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group members")
		}
	} else {
		user, err := l.deps.Identities.GetUser(ctx, owner.ID)
		if err != nil {
			return nil, notFoundOrInternal(err, "failed to load owner")
		}
		ownerUsers = []models.LMSUser{*user}
	}
	ownerEntries, err := l.userEntries(ctx, ownerUsers)
	if err != nil {
		return nil, err
	}

	req := &dto.CreateSubmissionRequest{
		Owner:     ownerRemoteID,
		Submitter: submitter.RemoteID,
		Title:     title,
		Metadata: dto.SubmissionMetadata{
			Group: &dto.SimilarityGroup{ID: module.ID, Name: module.Name, Type: groupTypeAssignment},
			GroupContext: &dto.SimilarityGroupContext{
				ID:     module.CourseID,
				Name:   module.CourseName,
				Owners: instructorEntries,
			},
			Owners: ownerEntries,
		},
	}

	features, err := l.deps.Features.Features(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant features")
	}
	if submitter.HasAcceptedEULA() || !features.Tenant.RequireEULA {
		req.EULA = l.eulaBlock(submitter)
	}
	return req, nil
}

func (l *SubmissionLifecycle) eulaBlock(submitter *models.SimilarityUser) *dto.EULAAcceptance {
	accepted := time.Unix(0, 0).UTC()
	if submitter.LastEULAAcceptedTime != nil {
		accepted = submitter.LastEULAAcceptedTime.UTC()
	}
	language := l.cfg.Language
	if submitter.LastEULAAcceptedLang != nil && *submitter.LastEULAAcceptedLang != "" {
		language = *submitter.LastEULAAcceptedLang
	}
	version := ""
	if submitter.LastEULAAccepted != nil {
		version = *submitter.LastEULAAccepted
	}
	return &dto.EULAAcceptance{
		AcceptedTimestamp: accepted.Format(eulaTimestampLayout),
		Language:          language,
		Version:           version,
	}
}

func (l *SubmissionLifecycle) ownerRemoteID(ctx context.Context, owner models.SubmissionOwner) (string, error) {
	if owner.Kind == models.OwnerKindGroup {
		group, err := l.deps.Identities.EnsureGroup(ctx, owner.ID)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve owner group")
		}
		return group.RemoteID, nil
	}
	user, err := l.deps.Identities.EnsureUser(ctx, owner.ID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve owner user")
	}
	return user.RemoteID, nil
}

func (l *SubmissionLifecycle) userEntries(ctx context.Context, users []models.LMSUser) ([]dto.SimilarityUser, error) {
	entries := make([]dto.SimilarityUser, 0, len(users))
	for _, user := range users {
		identity, err := l.deps.Identities.EnsureUser(ctx, user.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user identity")
		}
		entries = append(entries, dto.SimilarityUser{
			ID:         identity.RemoteID,
			FamilyName: user.LastName,
			GivenName:  user.FirstName,
			Email:      user.Email,
		})
	}
	return entries, nil
}

// submissionTitle is the encoded file name, or a generated name for online text.
func (l *SubmissionLifecycle) submissionTitle(ctx context.Context, submission *models.Submission) (string, error) {
	if submission.Type != models.SubmissionTypeFile {
		return onlineTextFilename(submission), nil
	}
	file, err := l.deps.Files.GetByPathNameHash(ctx, submission.Identifier)
	if err != nil {
		return "", notFoundOrInternal(err, "failed to load submitted file")
	}
	return EncodeFilename(file.Filename), nil
}

func (l *SubmissionLifecycle) loadContent(ctx context.Context, submission *models.Submission) (string, []byte, error) {
	if submission.Type == models.SubmissionTypeFile {
		file, err := l.deps.Files.GetByPathNameHash(ctx, submission.Identifier)
		if err != nil {
			return "", nil, notFoundOrInternal(err, "failed to load submitted file")
		}
		data, err := l.deps.Content.Read(file.ContentHash)
		if err != nil {
			return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read submitted file")
		}
		return EncodeFilename(file.Filename), data, nil
	}

	module, err := l.deps.Modules.GetCourseModule(ctx, submission.CourseModuleID)
	if err != nil {
		return "", nil, notFoundOrInternal(err, "failed to load course module")
	}
	adapter, err := l.deps.Adapters.For(module.ModName)
	if err != nil {
		return "", nil, err
	}
	text, err := adapter.OnlineText(ctx, submission.ItemID)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load online text")
	}
	return onlineTextFilename(submission), []byte(text), nil
}

func (l *SubmissionLifecycle) moduleContext(ctx context.Context, cmID string) (*models.CourseModule, *models.ModuleSettings, ModuleAdapter, error) {
	module, err := l.deps.Modules.GetCourseModule(ctx, cmID)
	if err != nil {
		return nil, nil, nil, notFoundOrInternal(err, "failed to load course module")
	}
	settings, err := l.deps.Modules.GetSettings(ctx, cmID)
	if err != nil {
		return nil, nil, nil, notFoundOrInternal(err, "failed to load module settings")
	}
	adapter, err := l.deps.Adapters.For(module.ModName)
	if err != nil {
		return nil, nil, nil, err
	}
	return module, settings, adapter, nil
}

func (l *SubmissionLifecycle) recomputeGeneration(ctx context.Context, submission *models.Submission) error {
	module, settings, adapter, err := l.moduleContext(ctx, submission.CourseModuleID)
	if err != nil {
		return err
	}
	dueDate, err := adapter.DueDate(ctx, module)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve due date")
	}
	l.policy.Decide(PolicyInput{
		Policy:    settings.ReportGeneration,
		DueDate:   dueDate,
		Status:    submission.Status,
		Generated: true,
		Now:       l.now(),
	}).Apply(submission)
	return nil
}

func (l *SubmissionLifecycle) load(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := l.deps.Store.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load submission")
	}
	return submission, nil
}

func (l *SubmissionLifecycle) persist(ctx context.Context, submission *models.Submission) error {
	if err := l.deps.Validator.Validate(submission); err != nil {
		return err
	}
	if err := l.deps.Store.Update(ctx, submission); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist submission")
	}
	return nil
}

// classify separates local request failures from remote outcomes.
func (l *SubmissionLifecycle) classify(sendErr error, resp *similarity.Response) (similarity.Class, error) {
	if sendErr != nil && !similarity.IsTransportFailure(sendErr) {
		return similarity.ClassTransportFailure, appErrors.Wrap(sendErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build similarity request")
	}
	return similarity.Classify(resp, sendErr), nil
}

func (l *SubmissionLifecycle) reject(result *TransitionResult, submission *models.Submission, message string) {
	submission.Status = models.SubmissionStatusError
	submission.ErrorMessage = &message
	result.Outcome = OutcomeRemoteRejected
	result.Message = message
}

func (l *SubmissionLifecycle) transportFailure(result *TransitionResult, submission *models.Submission) *TransitionResult {
	result.Outcome = OutcomeTransportFailure
	result.Message = "similarity service unreachable"
	return l.finish(result, submission)
}

func (l *SubmissionLifecycle) skipped(step string, submission *models.Submission) *TransitionResult {
	return l.finish(&TransitionResult{Step: step, Outcome: OutcomeSkipped}, submission)
}

func (l *SubmissionLifecycle) finish(result *TransitionResult, submission *models.Submission) *TransitionResult {
	result.Submission = submission
	if l.deps.Metrics != nil {
		l.deps.Metrics.ObserveTransition(result.Step, string(result.Outcome))
	}
	fields := []interface{}{
		"submission_id", submission.ID,
		"remote_id", submission.RemoteIDValue(),
		"step", result.Step,
		"outcome", result.Outcome,
		"status", submission.Status,
	}
	switch result.Outcome {
	case OutcomeTransportFailure, OutcomeRemoteRejected:
		l.logger.Sugar().Warnw("submission transition did not succeed", append(fields, "message", result.Message)...)
	default:
		l.logger.Sugar().Infow("submission transition", fields...)
	}
	return result
}

// EncodeFilename percent-encodes a file name the way the similarity service
// expects titles, keeping spaces readable.
func EncodeFilename(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", " ")
}

func onlineTextFilename(submission *models.Submission) string {
	return fmt.Sprintf("onlinetext_%s_%s_%s.txt", submission.ID, submission.CourseModuleID, submission.ItemID)
}

// remoteCreateStatus adopts the status reported on create, defaulting to CREATED.
func remoteCreateStatus(raw string) models.SubmissionStatus {
	status := models.SubmissionStatus(strings.ToUpper(raw))
	if status.HasRemoteRecord() {
		return status
	}
	return models.SubmissionStatusCreated
}

func knownStatus(status models.SubmissionStatus) bool {
	switch status {
	case models.SubmissionStatusQueued, models.SubmissionStatusCreated, models.SubmissionStatusUploaded,
		models.SubmissionStatusProcessing, models.SubmissionStatusRequested, models.SubmissionStatusComplete,
		models.SubmissionStatusError, models.SubmissionStatusEULANotAccepted:
		return true
	default:
		return false
	}
}

func notFoundOrInternal(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
