package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/simcheck-bridge/internal/models"
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
	"github.com/noah-isme/simcheck-bridge/pkg/jobs"
	"github.com/noah-isme/simcheck-bridge/pkg/middleware/requestid"
)

type schedulerStore interface {
	ListByStatus(ctx context.Context, statuses []models.SubmissionStatus, limit int) ([]models.Submission, error)
	ListDueForGeneration(ctx context.Context, statuses []models.SubmissionStatus, now time.Time, limit int) ([]models.Submission, error)
}

type lifecycleRunner interface {
	Create(ctx context.Context, id string) (*TransitionResult, error)
	Upload(ctx context.Context, id string) (*TransitionResult, error)
	RequestReport(ctx context.Context, id string) (*TransitionResult, error)
	PollScore(ctx context.Context, id string) (*TransitionResult, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// SchedulerConfig tunes the periodic pass.
type SchedulerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// SchedulerService finds records with pending work and hands them to the
// lifecycle through the job queue. Jobs are keyed by submission id so one
// record never runs two transitions at once.
type SchedulerService struct {
	store     schedulerStore
	lifecycle lifecycleRunner
	queue     jobEnqueuer
	cfg       SchedulerConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewSchedulerService constructs the scheduler. The queue is attached with
// AttachQueue because the queue handler is the scheduler itself.
func NewSchedulerService(store schedulerStore, lifecycle lifecycleRunner, cfg SchedulerConfig, logger *zap.Logger) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &SchedulerService{
		store:     store,
		lifecycle: lifecycle,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AttachQueue sets the queue jobs are dispatched to.
func (s *SchedulerService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Start runs a pass immediately, which also recovers work left by a previous
// process, and then on every interval until ctx is cancelled.
func (s *SchedulerService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		s.runLogged(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runLogged(ctx)
			}
		}
	}()
}

func (s *SchedulerService) runLogged(ctx context.Context) {
	enqueued, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Sugar().Warnw("scheduler pass failed", "error", err)
		return
	}
	if enqueued > 0 {
		s.logger.Sugar().Infow("scheduler pass completed", "enqueued", enqueued)
	}
}

// RunOnce enqueues one job per record with pending work and returns how many
// jobs were accepted.
func (s *SchedulerService) RunOnce(ctx context.Context) (int, error) {
	if s.queue == nil {
		return 0, fmt.Errorf("scheduler queue not attached")
	}
	passes := []struct {
		step string
		list func() ([]models.Submission, error)
	}{
		{StepCreate, func() ([]models.Submission, error) {
			return s.store.ListByStatus(ctx, []models.SubmissionStatus{models.SubmissionStatusQueued}, s.cfg.BatchSize)
		}},
		{StepUpload, func() ([]models.Submission, error) {
			return s.store.ListByStatus(ctx, []models.SubmissionStatus{models.SubmissionStatusCreated}, s.cfg.BatchSize)
		}},
		{StepRequestReport, func() ([]models.Submission, error) {
			return s.store.ListDueForGeneration(ctx, []models.SubmissionStatus{models.SubmissionStatusUploaded, models.SubmissionStatusComplete}, s.now(), s.cfg.BatchSize)
		}},
		{StepPollScore, func() ([]models.Submission, error) {
			return s.store.ListByStatus(ctx, []models.SubmissionStatus{models.SubmissionStatusRequested, models.SubmissionStatusProcessing}, s.cfg.BatchSize)
		}},
	}

	enqueued := 0
	for _, pass := range passes {
		records, err := pass.list()
		if err != nil {
			return enqueued, fmt.Errorf("list %s candidates: %w", pass.step, err)
		}
		for _, record := range records {
			err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: pass.step, Key: record.ID})
			switch {
			case err == nil:
				enqueued++
			case errors.Is(err, jobs.ErrDuplicate):
				continue
			default:
				return enqueued, fmt.Errorf("enqueue %s for %s: %w", pass.step, record.ID, err)
			}
		}
	}
	return enqueued, nil
}

// Handle runs one queued transition. Transport failures are returned so the
// queue retries them; records that moved on in the meantime are dropped.
func (s *SchedulerService) Handle(ctx context.Context, job jobs.Job) error {
	ctx = requestid.WithValue(ctx, job.ID)
	var (
		result *TransitionResult
		err    error
	)
	switch job.Type {
	case StepCreate:
		result, err = s.lifecycle.Create(ctx, job.Key)
	case StepUpload:
		result, err = s.lifecycle.Upload(ctx, job.Key)
	case StepRequestReport:
		result, err = s.lifecycle.RequestReport(ctx, job.Key)
	case StepPollScore:
		result, err = s.lifecycle.PollScore(ctx, job.Key)
	default:
		s.logger.Sugar().Warnw("unknown scheduler job", "job_id", job.ID, "type", job.Type)
		return nil
	}
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrInvalidState, appErrors.ErrNotFound) {
			s.logger.Sugar().Debugw("scheduler job skipped", "submission_id", job.Key, "step", job.Type, "reason", err)
			return nil
		}
		return err
	}
	if result.Outcome == OutcomeTransportFailure {
		return fmt.Errorf("%s for %s: %s", job.Type, job.Key, result.Message)
	}
	return nil
}
