package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/simcheck-bridge/internal/dto"
	"github.com/noah-isme/simcheck-bridge/internal/models"
	"github.com/noah-isme/simcheck-bridge/internal/service"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
	"github.com/noah-isme/simcheck-bridge/pkg/response"
)

type submissionIntake interface {
	Queue(ctx context.Context, req dto.QueueSubmissionRequest) (*models.Submission, bool, error)
	FindDetails(ctx context.Context, lookup models.SubmissionLookup) (*models.Submission, error)
}

type submissionOperator interface {
	Get(ctx context.Context, id string) (*models.Submission, error)
	Create(ctx context.Context, id string) (*service.TransitionResult, error)
	Upload(ctx context.Context, id string) (*service.TransitionResult, error)
	RequestReport(ctx context.Context, id string) (*service.TransitionResult, error)
	PollScore(ctx context.Context, id string) (*service.TransitionResult, error)
	ResetForRetry(ctx context.Context, id string) (*service.TransitionResult, error)
}

// SubmissionHandler exposes submission intake and operator endpoints.
type SubmissionHandler struct {
	intake    submissionIntake
	lifecycle submissionOperator
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(intake submissionIntake, lifecycle submissionOperator) *SubmissionHandler {
	return &SubmissionHandler{intake: intake, lifecycle: lifecycle}
}

// Queue godoc
// @Summary Queue a submission for similarity checking
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body dto.QueueSubmissionRequest true "Submission"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Queue(c *gin.Context) {
	var req dto.QueueSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	submission, created, err := h.intake.Queue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, dto.NewSubmissionResponse(submission))
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSubmissionResponse(submission))
}

// Lookup godoc
// @Summary Resolve the submission an LMS event refers to
// @Tags Submissions
// @Produce json
// @Param cm_id query string true "Course module ID"
// @Param user_id query string false "User ID"
// @Param identifier query string false "Path name hash or content hash"
// @Param item_id query string false "Module item ID"
// @Param type query string true "file or content"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) Lookup(c *gin.Context) {
	var lookup models.SubmissionLookup
	if err := c.ShouldBindQuery(&lookup); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	submission, err := h.intake.FindDetails(c.Request.Context(), lookup)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSubmissionResponse(submission))
}

// Get godoc
// @Summary Submission detail
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	submission, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSubmissionResponse(submission))
}

// Advance godoc
// @Summary Run one lifecycle step now
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Param step path string true "create, upload, request_report or poll_score"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/steps/{step} [post]
func (h *SubmissionHandler) Advance(c *gin.Context) {
	var run func(context.Context, string) (*service.TransitionResult, error)
	switch c.Param("step") {
	case service.StepCreate:
		run = h.lifecycle.Create
	case service.StepUpload:
		run = h.lifecycle.Upload
	case service.StepRequestReport:
		run = h.lifecycle.RequestReport
	case service.StepPollScore:
		run = h.lifecycle.PollScore
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown step"))
		return
	}
	result, err := run(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTransition(c, result)
}

// Retry godoc
// @Summary Re-enter a failed submission at the step that failed
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/retry [post]
func (h *SubmissionHandler) Retry(c *gin.Context) {
	result, err := h.lifecycle.ResetForRetry(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTransition(c, result)
}

func respondTransition(c *gin.Context, result *service.TransitionResult) {
	payload := dto.TransitionResponse{Outcome: string(result.Outcome)}
	if result.Submission != nil {
		payload.Submission = dto.NewSubmissionResponse(result.Submission)
	}
	meta := map[string]interface{}{"step": result.Step}
	if result.Message != "" {
		meta["message"] = result.Message
	}
	status := http.StatusOK
	if result.Outcome == service.OutcomeTransportFailure {
		status = http.StatusBadGateway
	}
	response.JSON(c, status, payload, meta)
}
