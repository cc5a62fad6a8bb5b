package service

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/internal/dto"
	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
	"github.com/noah-isme/simcheck-bridge/pkg/similarity"
)

// Default permission sets understood by the report viewer.
const (
	PermissionSetInstructor = "INSTRUCTOR"
	PermissionSetLearner    = "LEARNER"
)

// ViewerConfig mirrors the admin options applied to every launch.
type ViewerConfig struct {
	Language            string
	HideIdentity        bool
	ViewFullSource      bool
	MatchSubmissionInfo bool
	SaveChanges         bool
	InstructorRoles     []string
}

type viewerModuleReader interface {
	GetCourseModule(ctx context.Context, cmID string) (*models.CourseModule, error)
	HasRole(ctx context.Context, cmID, userID string, roles []string) (bool, error)
}

type viewerIdentityReader interface {
	GetUser(ctx context.Context, userID string) (*models.LMSUser, error)
	EnsureUser(ctx context.Context, userID string) (*models.SimilarityUser, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]models.LMSUser, error)
}

// ViewerService obtains report viewer launch URLs.
type ViewerService struct {
	store      submissionStore
	transport  similarityTransport
	modules    viewerModuleReader
	identities viewerIdentityReader
	cfg        ViewerConfig
	logger     *zap.Logger
}

// NewViewerService constructs the service.
func NewViewerService(store submissionStore, transport similarityTransport, modules viewerModuleReader, identities viewerIdentityReader, cfg ViewerConfig, logger *zap.Logger) *ViewerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if len(cfg.InstructorRoles) == 0 {
		cfg.InstructorRoles = []string{string(models.RoleInstructor), string(models.RoleAdmin)}
	}
	return &ViewerService{
		store:      store,
		transport:  transport,
		modules:    modules,
		identities: identities,
		cfg:        cfg,
		logger:     logger,
	}
}

// LaunchURL requests a viewer URL for the submission on behalf of viewer.
func (s *ViewerService) LaunchURL(ctx context.Context, submissionID string, viewer *models.JWTClaims) (*dto.ViewerURLResponse, error) {
	if viewer == nil || viewer.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	submission, err := s.store.GetByID(ctx, submissionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load submission")
	}
	remoteID := submission.RemoteIDValue()
	if remoteID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "submission has not been sent to the similarity service")
	}

	module, err := s.modules.GetCourseModule(ctx, submission.CourseModuleID)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load course module")
	}
	instructor, err := s.isInstructor(ctx, module.ID, viewer)
	if err != nil {
		return nil, err
	}
	if !instructor {
		owns, err := s.ownsSubmission(ctx, submission, viewer.UserID)
		if err != nil {
			return nil, err
		}
		if !owns {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "viewer may only open their own submission")
		}
	}

	req, err := s.buildRequest(ctx, submission, module, viewer, instructor)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode viewer request")
	}

	resp, err := s.transport.Send(ctx, similarity.Request{
		Operation: "viewer_launch",
		Method:    http.MethodPost,
		Endpoint:  similarity.SubmissionEndpoint(similarity.EndpointViewerLaunch, remoteID),
		Body:      body,
	})
	if err != nil {
		s.logger.Sugar().Warnw("viewer launch failed", "submission_id", submission.ID, "remote_id", remoteID, "error", err)
		return nil, appErrors.Wrap(err, appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, "failed to reach similarity service")
	}
	if !resp.Success() {
		s.logger.Sugar().Warnw("viewer launch rejected", "submission_id", submission.ID, "remote_id", remoteID, "status", resp.StatusCode)
		return nil, appErrors.Clone(appErrors.ErrRemoteUnavailable, resp.Message())
	}
	var launch dto.ViewerLaunchResponse
	if err := resp.Decode(&launch); err != nil || launch.ViewerURL == "" {
		return nil, appErrors.Clone(appErrors.ErrRemoteUnavailable, malformedResponseMessage)
	}
	return &dto.ViewerURLResponse{ViewerURL: launch.ViewerURL}, nil
}

// IsAnonymous reports whether the author's identity must be withheld.
func (s *ViewerService) IsAnonymous(module *models.CourseModule) bool {
	if s.cfg.HideIdentity {
		return true
	}
	return module.BlindMarking && !module.RevealIdentities
}

func (s *ViewerService) buildRequest(ctx context.Context, submission *models.Submission, module *models.CourseModule, viewer *models.JWTClaims, instructor bool) (*dto.ViewerLaunchRequest, error) {
	viewerIdentity, err := s.identities.EnsureUser(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve viewer identity")
	}
	locale := s.cfg.Language
	if viewer.Language != "" {
		locale = viewer.Language
	}

	req := &dto.ViewerLaunchRequest{
		Locale:                     locale,
		ViewerUserID:               viewerIdentity.RemoteID,
		ViewerDefaultPermissionSet: PermissionSetLearner,
		ViewerPermissions: dto.ViewerPermissions{
			MayViewSubmissionFullSource: s.cfg.ViewFullSource,
			MayViewMatchSubmissionInfo:  s.cfg.MatchSubmissionInfo,
			MayViewSaveViewerChanges:    s.cfg.SaveChanges,
		},
		Similarity: dto.SimilarityOverrides{
			Modes:        dto.ViewerModes{MatchOverview: true, AllSources: true},
			ViewSettings: dto.ViewerViewSettings{SaveChanges: s.cfg.SaveChanges},
		},
	}
	if instructor {
		req.ViewerDefaultPermissionSet = PermissionSetInstructor
	}

	if !s.IsAnonymous(module) {
		authorID := submission.SubmitterID
		if submission.UserID != nil && *submission.UserID != "" {
			authorID = *submission.UserID
		}
		author, err := s.identities.GetUser(ctx, authorID)
		if err != nil {
			return nil, notFoundOrInternal(err, "failed to load submission author")
		}
		req.GivenName = author.FirstName
		req.FamilyName = author.LastName
	}
	return req, nil
}

func (s *ViewerService) isInstructor(ctx context.Context, cmID string, viewer *models.JWTClaims) (bool, error) {
	if viewer.Role == models.RoleAdmin {
		return true, nil
	}
	ok, err := s.modules.HasRole(ctx, cmID, viewer.UserID, s.cfg.InstructorRoles)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check viewer role")
	}
	return ok, nil
}

// ownsSubmission admits the submitter, the owning user and, for group
// records, every member of the group.
func (s *ViewerService) ownsSubmission(ctx context.Context, submission *models.Submission, userID string) (bool, error) {
	if submission.SubmitterID == userID {
		return true, nil
	}
	if submission.UserID != nil && *submission.UserID == userID {
		return true, nil
	}
	if submission.GroupID == nil || *submission.GroupID == "" {
		return false, nil
	}
	members, err := s.identities.ListGroupMembers(ctx, *submission.GroupID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group members")
	}
	for _, member := range members {
		if member.ID == userID {
			return true, nil
		}
	}
	return false, nil
}
