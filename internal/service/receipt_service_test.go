package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/internal/models"
)

type receiptOutboxStub struct {
	pushed []models.DigitalReceipt
	err    error
}

func (o *receiptOutboxStub) Push(ctx context.Context, receipts ...models.DigitalReceipt) error {
	if o.err != nil {
		return o.err
	}
	o.pushed = append(o.pushed, receipts...)
	return nil
}

func newReceiptFixture() (*ReceiptService, *receiptOutboxStub, *moduleReaderStub) {
	outbox := &receiptOutboxStub{}
	modules := &moduleReaderStub{
		module: models.CourseModule{ID: "cm-1", CourseID: "course-1", CourseName: "Biology XI", Name: "Essay 1", ModName: models.ModuleTypeAssign},
		instructors: []models.LMSUser{
			{ID: "instructor-1", FirstName: "Sari"},
			{ID: "instructor-2", FirstName: "Rudi"},
		},
	}
	users := &identityStub{users: map[string]models.LMSUser{
		"user-1": {ID: "user-1", FirstName: "Ana", LastName: "Putri"},
		"user-9": {ID: "user-9", FirstName: "Dina", LastName: "Lestari"},
	}}
	svc := NewReceiptService(outbox, users, modules, nil, zap.NewNop())
	return svc, outbox, modules
}

func TestReceiptServiceSendsStudentAndInstructorReceipts(t *testing.T) {
	svc, outbox, _ := newReceiptFixture()
	submitted := time.Date(2024, 5, 10, 14, 5, 0, 0, time.UTC)
	submission := &models.Submission{
		ID:             "sub-1",
		CourseModuleID: "cm-1",
		UserID:         strPtr("user-1"),
		SubmitterID:    "user-1",
		RemoteID:       strPtr("remote-1"),
		SubmittedTime:  &submitted,
	}

	require.NoError(t, svc.SendUploadReceipts(context.Background(), submission, "essay.docx"))
	require.Len(t, outbox.pushed, 2)

	student := outbox.pushed[0]
	assert.Equal(t, models.ReceiptAudienceStudent, student.Audience)
	assert.Equal(t, []string{"user-1"}, student.RecipientIDs)
	assert.Equal(t, "course-1", student.CourseID)
	assert.Contains(t, student.Body, "Dear Ana Putri")
	assert.Contains(t, student.Body, "10-May-2024 02:05PM")
	assert.Contains(t, student.Body, "remote-1")
	assert.Equal(t, "Biology XI", student.Content.CourseFullName)

	instructor := outbox.pushed[1]
	assert.Equal(t, models.ReceiptAudienceInstructor, instructor.Audience)
	assert.Equal(t, []string{"instructor-1", "instructor-2"}, instructor.RecipientIDs)
	assert.Contains(t, instructor.Body, "essay.docx")
}

func TestReceiptServiceGroupSubmission(t *testing.T) {
	t.Run("every member gets a receipt", func(t *testing.T) {
		svc, outbox, modules := newReceiptFixture()
		modules.instructors = nil
		svc.users.(*identityStub).members = map[string][]models.LMSUser{
			"group-1": {
				{ID: "user-1", FirstName: "Ana", LastName: "Putri"},
				{ID: "user-9", FirstName: "Dina", LastName: "Lestari"},
			},
		}
		submission := &models.Submission{
			ID:             "sub-2",
			CourseModuleID: "cm-1",
			GroupID:        strPtr("group-1"),
			SubmitterID:    "user-9",
			RemoteID:       strPtr("remote-2"),
		}

		require.NoError(t, svc.SendUploadReceipts(context.Background(), submission, "group.pdf"))
		require.Len(t, outbox.pushed, 2)
		assert.Equal(t, []string{"user-1"}, outbox.pushed[0].RecipientIDs)
		assert.Equal(t, "Ana", outbox.pushed[0].Content.FirstName)
		assert.Equal(t, []string{"user-9"}, outbox.pushed[1].RecipientIDs)
		assert.Equal(t, "Dina", outbox.pushed[1].Content.FirstName)
	})

	t.Run("group without members falls back to submitter", func(t *testing.T) {
		svc, outbox, modules := newReceiptFixture()
		modules.instructors = nil
		submission := &models.Submission{
			ID:             "sub-3",
			CourseModuleID: "cm-1",
			GroupID:        strPtr("group-2"),
			SubmitterID:    "user-9",
			RemoteID:       strPtr("remote-3"),
		}

		require.NoError(t, svc.SendUploadReceipts(context.Background(), submission, "group.pdf"))
		require.Len(t, outbox.pushed, 1)
		assert.Equal(t, []string{"user-9"}, outbox.pushed[0].RecipientIDs)
	})
}

func TestReceiptServiceOutboxFailure(t *testing.T) {
	svc, outbox, _ := newReceiptFixture()
	outbox.err = errors.New("redis down")
	submission := &models.Submission{ID: "sub-1", CourseModuleID: "cm-1", UserID: strPtr("user-1"), SubmitterID: "user-1"}

	err := svc.SendUploadReceipts(context.Background(), submission, "essay.docx")
	require.Error(t, err)
}
