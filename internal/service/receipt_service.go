package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
)

const receiptDateLayout = "02-Jan-2006 03:04PM"

type receiptOutbox interface {
	Push(ctx context.Context, receipts ...models.DigitalReceipt) error
}

type receiptUserReader interface {
	GetUser(ctx context.Context, userID string) (*models.LMSUser, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]models.LMSUser, error)
}

type receiptModuleReader interface {
	GetCourseModule(ctx context.Context, cmID string) (*models.CourseModule, error)
	ListInstructors(ctx context.Context, cmID string, roles []string) ([]models.LMSUser, error)
}

// ReceiptService builds the digital receipts sent after a successful upload.
type ReceiptService struct {
	outbox  receiptOutbox
	users   receiptUserReader
	modules receiptModuleReader
	roles   []string
	logger  *zap.Logger
	now     func() time.Time
}

// NewReceiptService constructs the service. roles selects the instructors
// that receive a copy.
func NewReceiptService(outbox receiptOutbox, users receiptUserReader, modules receiptModuleReader, roles []string, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(roles) == 0 {
		roles = []string{string(models.RoleInstructor)}
	}
	return &ReceiptService{
		outbox:  outbox,
		users:   users,
		modules: modules,
		roles:   roles,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SendUploadReceipts pushes a receipt to each owning student and one shared
// receipt to the module's instructors. Group records notify every member, or
// the submitter when the group has no members on record.
func (s *ReceiptService) SendUploadReceipts(ctx context.Context, submission *models.Submission, title string) error {
	students, err := s.owningStudents(ctx, submission)
	if err != nil {
		return err
	}
	module, err := s.modules.GetCourseModule(ctx, submission.CourseModuleID)
	if err != nil {
		return notFoundOrInternal(err, "failed to load course module")
	}
	instructors, err := s.modules.ListInstructors(ctx, module.ID, s.roles)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}

	submitted := s.now()
	if submission.SubmittedTime != nil {
		submitted = submission.SubmittedTime.UTC()
	}
	content := models.ReceiptContent{
		SubmissionTitle: title,
		ModuleName:      module.Name,
		CourseFullName:  module.CourseName,
		SubmissionDate:  submitted,
		SubmissionID:    submission.RemoteIDValue(),
	}

	receipts := make([]models.DigitalReceipt, 0, len(students)+1)
	for _, student := range students {
		personal := content
		personal.FirstName = student.FirstName
		personal.LastName = student.LastName
		receipts = append(receipts, s.studentReceipt(student.ID, module.CourseID, personal))
	}
	if len(instructors) > 0 {
		ids := make([]string, 0, len(instructors))
		for _, instructor := range instructors {
			ids = append(ids, instructor.ID)
		}
		content.FirstName = students[0].FirstName
		content.LastName = students[0].LastName
		receipts = append(receipts, s.instructorReceipt(ids, module.CourseID, content))
	}

	if err := s.outbox.Push(ctx, receipts...); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue digital receipts")
	}
	s.logger.Sugar().Infow("digital receipts queued", "submission_id", submission.ID, "remote_id", content.SubmissionID, "count", len(receipts))
	return nil
}

func (s *ReceiptService) owningStudents(ctx context.Context, submission *models.Submission) ([]models.LMSUser, error) {
	if submission.GroupID != nil && *submission.GroupID != "" {
		members, err := s.users.ListGroupMembers(ctx, *submission.GroupID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group members")
		}
		if len(members) > 0 {
			return members, nil
		}
	}
	recipientID := submission.SubmitterID
	if submission.UserID != nil && *submission.UserID != "" {
		recipientID = *submission.UserID
	}
	user, err := s.users.GetUser(ctx, recipientID)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load receipt recipient")
	}
	return []models.LMSUser{*user}, nil
}

func (s *ReceiptService) studentReceipt(userID, courseID string, content models.ReceiptContent) models.DigitalReceipt {
	body := fmt.Sprintf(
		"Dear %s %s,\n\nYou have successfully submitted the file \"%s\" to the assignment \"%s\" in the class \"%s\" on %s. Your submission id is %s.\n\nKeep this receipt as proof of submission.",
		content.FirstName, content.LastName, content.SubmissionTitle, content.ModuleName,
		content.CourseFullName, content.SubmissionDate.Format(receiptDateLayout), content.SubmissionID,
	)
	return models.DigitalReceipt{
		Audience:     models.ReceiptAudienceStudent,
		RecipientIDs: []string{userID},
		CourseID:     courseID,
		Subject:      "Digital receipt: " + content.ModuleName,
		Body:         body,
		Content:      content,
		CreatedAt:    s.now(),
	}
}

func (s *ReceiptService) instructorReceipt(recipients []string, courseID string, content models.ReceiptContent) models.DigitalReceipt {
	body := fmt.Sprintf(
		"A submission entitled \"%s\" has been made to the assignment \"%s\" in the class \"%s\".\n\nSubmission id: %s\nSubmission date: %s",
		content.SubmissionTitle, content.ModuleName, content.CourseFullName,
		content.SubmissionID, content.SubmissionDate.Format(receiptDateLayout),
	)
	return models.DigitalReceipt{
		Audience:     models.ReceiptAudienceInstructor,
		RecipientIDs: recipients,
		CourseID:     courseID,
		Subject:      "Submission receipt: " + content.ModuleName,
		Body:         body,
		Content:      content,
		CreatedAt:    s.now(),
	}
}
