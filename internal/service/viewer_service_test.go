package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/internal/dto"
	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
)

type viewerModuleStub struct {
	module models.CourseModule
	roles  map[string]bool
}

func (v *viewerModuleStub) GetCourseModule(ctx context.Context, cmID string) (*models.CourseModule, error) {
	module := v.module
	return &module, nil
}

func (v *viewerModuleStub) HasRole(ctx context.Context, cmID, userID string, roles []string) (bool, error) {
	return v.roles[userID], nil
}

func completeSubmission() *models.Submission {
	score := 12
	now := time.Now().UTC()
	return &models.Submission{
		ID:             "sub-1",
		CourseModuleID: "cm-1",
		UserID:         strPtr("user-1"),
		SubmitterID:    "user-1",
		RemoteID:       strPtr("remote-1"),
		Status:         models.SubmissionStatusComplete,
		Identifier:     "path-1",
		Type:           models.SubmissionTypeFile,
		SubmittedTime:  &now,
		RequestedTime:  &now,
		OverallScore:   &score,
	}
}

func newViewerFixture(cfg ViewerConfig, module models.CourseModule) (*ViewerService, *transportStub, *viewerModuleStub) {
	transport := newTransportStub()
	modules := &viewerModuleStub{module: module, roles: map[string]bool{"instructor-1": true}}
	identities := &identityStub{
		users:  map[string]models.LMSUser{"user-1": {ID: "user-1", FirstName: "Ana", LastName: "Putri"}},
		remote: map[string]*models.SimilarityUser{},
	}
	svc := NewViewerService(newSubmissionStoreStub(completeSubmission()), transport, modules, identities, cfg, zap.NewNop())
	return svc, transport, modules
}

func TestViewerServiceInstructorLaunch(t *testing.T) {
	svc, transport, _ := newViewerFixture(ViewerConfig{ViewFullSource: true, SaveChanges: true}, models.CourseModule{ID: "cm-1"})
	transport.reply("viewer_launch", http.StatusOK, map[string]string{"viewer_url": "https://viewer.example.com/abc"})

	resp, err := svc.LaunchURL(context.Background(), "sub-1", &models.JWTClaims{UserID: "instructor-1", Role: models.RoleInstructor, Language: "id-ID"})
	require.NoError(t, err)
	assert.Equal(t, "https://viewer.example.com/abc", resp.ViewerURL)

	sent := transport.sent("viewer_launch")
	require.Len(t, sent, 1)
	assert.Equal(t, "/submissions/remote-1/viewer-url", sent[0].Endpoint)
	var req dto.ViewerLaunchRequest
	require.NoError(t, json.Unmarshal(sent[0].Body, &req))
	assert.Equal(t, "id-ID", req.Locale)
	assert.Equal(t, "tii-instructor-1", req.ViewerUserID)
	assert.Equal(t, PermissionSetInstructor, req.ViewerDefaultPermissionSet)
	assert.Equal(t, "Ana", req.GivenName)
	assert.Equal(t, "Putri", req.FamilyName)
	assert.True(t, req.ViewerPermissions.MayViewSubmissionFullSource)
	assert.False(t, req.ViewerPermissions.MayViewMatchSubmissionInfo)
	assert.True(t, req.Similarity.Modes.MatchOverview)
	assert.True(t, req.Similarity.ViewSettings.SaveChanges)
}

func TestViewerServiceAnonymity(t *testing.T) {
	cases := []struct {
		name   string
		cfg    ViewerConfig
		module models.CourseModule
		anon   bool
	}{
		{name: "no blind marking", module: models.CourseModule{ID: "cm-1"}, anon: false},
		{name: "blind marking hides names", module: models.CourseModule{ID: "cm-1", BlindMarking: true}, anon: true},
		{name: "revealed identities", module: models.CourseModule{ID: "cm-1", BlindMarking: true, RevealIdentities: true}, anon: false},
		{name: "global hide identity", cfg: ViewerConfig{HideIdentity: true}, module: models.CourseModule{ID: "cm-1", BlindMarking: true, RevealIdentities: true}, anon: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, transport, _ := newViewerFixture(tc.cfg, tc.module)
			assert.Equal(t, tc.anon, svc.IsAnonymous(&tc.module))

			transport.reply("viewer_launch", http.StatusOK, map[string]string{"viewer_url": "https://viewer.example.com/x"})
			_, err := svc.LaunchURL(context.Background(), "sub-1", &models.JWTClaims{UserID: "user-1", Role: models.RoleLearner})
			require.NoError(t, err)

			var raw map[string]interface{}
			require.NoError(t, json.Unmarshal(transport.sent("viewer_launch")[0].Body, &raw))
			_, hasGiven := raw["given_name"]
			_, hasFamily := raw["family_name"]
			assert.Equal(t, !tc.anon, hasGiven)
			assert.Equal(t, !tc.anon, hasFamily)
			assert.Equal(t, PermissionSetLearner, raw["viewer_default_permission_set"])
			assert.Equal(t, "en-US", raw["locale"])
		})
	}
}

func TestViewerServiceLearnerCannotOpenOthersWork(t *testing.T) {
	svc, transport, _ := newViewerFixture(ViewerConfig{}, models.CourseModule{ID: "cm-1"})

	_, err := svc.LaunchURL(context.Background(), "sub-1", &models.JWTClaims{UserID: "user-2", Role: models.RoleLearner})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, transport.requests)
}

func TestViewerServiceRemoteFailures(t *testing.T) {
	svc, transport, _ := newViewerFixture(ViewerConfig{}, models.CourseModule{ID: "cm-1"})
	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	transport.fail("viewer_launch")
	_, err := svc.LaunchURL(context.Background(), "sub-1", admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRemoteUnavailable.Code, appErrors.FromError(err).Code)

	transport.reply("viewer_launch", http.StatusNotFound, map[string]string{"message": "submission not found"})
	_, err = svc.LaunchURL(context.Background(), "sub-1", admin)
	require.Error(t, err)
	assert.Equal(t, "submission not found", appErrors.FromError(err).Message)

	transport.reply("viewer_launch", http.StatusOK, map[string]string{})
	_, err = svc.LaunchURL(context.Background(), "sub-1", admin)
	require.Error(t, err)
}

func TestViewerServiceRequiresRemoteRecord(t *testing.T) {
	record := completeSubmission()
	record.RemoteID = nil
	record.Status = models.SubmissionStatusQueued
	svc := NewViewerService(newSubmissionStoreStub(record), newTransportStub(), &viewerModuleStub{}, &identityStub{}, ViewerConfig{}, nil)

	_, err := svc.LaunchURL(context.Background(), "sub-1", &models.JWTClaims{UserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestViewerServiceGroupMemberLaunch(t *testing.T) {
	record := completeSubmission()
	record.UserID = nil
	record.GroupID = strPtr("group-1")
	identities := &identityStub{
		users: map[string]models.LMSUser{"user-1": {ID: "user-1", FirstName: "Ana", LastName: "Putri"}},
		members: map[string][]models.LMSUser{
			"group-1": {{ID: "user-1"}, {ID: "user-2"}},
		},
		remote: map[string]*models.SimilarityUser{},
	}
	transport := newTransportStub()
	transport.reply("viewer_launch", http.StatusOK, map[string]string{"viewer_url": "https://viewer.example.com/group"})
	svc := NewViewerService(newSubmissionStoreStub(record), transport, &viewerModuleStub{module: models.CourseModule{ID: "cm-1"}}, identities, ViewerConfig{}, zap.NewNop())

	resp, err := svc.LaunchURL(context.Background(), "sub-1", &models.JWTClaims{UserID: "user-2", Role: models.RoleLearner})
	require.NoError(t, err)
	assert.Equal(t, "https://viewer.example.com/group", resp.ViewerURL)

	_, err = svc.LaunchURL(context.Background(), "sub-1", &models.JWTClaims{UserID: "user-3", Role: models.RoleLearner})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
