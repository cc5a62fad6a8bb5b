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
	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
	"github.com/noah-isme/simcheck-bridge/pkg/jobs"
)

type schedulerStoreStub struct {
	byStatus map[models.SubmissionStatus][]models.Submission
	due      []models.Submission
	dueAt    time.Time
}

func (s *schedulerStoreStub) ListByStatus(ctx context.Context, statuses []models.SubmissionStatus, limit int) ([]models.Submission, error) {
	var out []models.Submission
	for _, status := range statuses {
		out = append(out, s.byStatus[status]...)
	}
	return out, nil
}

func (s *schedulerStoreStub) ListDueForGeneration(ctx context.Context, statuses []models.SubmissionStatus, now time.Time, limit int) ([]models.Submission, error) {
	s.dueAt = now
	return s.due, nil
}

type enqueuerStub struct {
	jobs []jobs.Job
	busy map[string]bool
}

func (e *enqueuerStub) Enqueue(job jobs.Job) error {
	if e.busy[job.Key] {
		return jobs.ErrDuplicate
	}
	e.jobs = append(e.jobs, job)
	return nil
}

type lifecycleRunnerStub struct {
	calls   []string
	outcome TransitionOutcome
	err     error
}

func (l *lifecycleRunnerStub) run(step, id string) (*TransitionResult, error) {
	l.calls = append(l.calls, step+":"+id)
	if l.err != nil {
		return nil, l.err
	}
	outcome := l.outcome
	if outcome == "" {
		outcome = OutcomeSuccess
	}
	return &TransitionResult{Step: step, Outcome: outcome, Message: "unreachable"}, nil
}

func (l *lifecycleRunnerStub) Create(ctx context.Context, id string) (*TransitionResult, error) {
	return l.run(StepCreate, id)
}

func (l *lifecycleRunnerStub) Upload(ctx context.Context, id string) (*TransitionResult, error) {
	return l.run(StepUpload, id)
}

func (l *lifecycleRunnerStub) RequestReport(ctx context.Context, id string) (*TransitionResult, error) {
	return l.run(StepRequestReport, id)
}

func (l *lifecycleRunnerStub) PollScore(ctx context.Context, id string) (*TransitionResult, error) {
	return l.run(StepPollScore, id)
}

func TestSchedulerRunOnceDispatchesEachStage(t *testing.T) {
	store := &schedulerStoreStub{
		byStatus: map[models.SubmissionStatus][]models.Submission{
			models.SubmissionStatusQueued:     {{ID: "q1"}, {ID: "q2"}},
			models.SubmissionStatusCreated:    {{ID: "c1"}},
			models.SubmissionStatusRequested:  {{ID: "r1"}},
			models.SubmissionStatusProcessing: {{ID: "p1"}},
		},
		due: []models.Submission{{ID: "u1"}},
	}
	queue := &enqueuerStub{busy: map[string]bool{"q2": true}}
	svc := NewSchedulerService(store, &lifecycleRunnerStub{}, SchedulerConfig{}, zap.NewNop())
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	svc.AttachQueue(queue)

	enqueued, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, enqueued)
	assert.True(t, now.Equal(store.dueAt))

	got := make([]string, 0, len(queue.jobs))
	for _, job := range queue.jobs {
		got = append(got, job.Type+":"+job.Key)
		assert.NotEmpty(t, job.ID)
	}
	assert.Equal(t, []string{"create:q1", "upload:c1", "request_report:u1", "poll_score:r1", "poll_score:p1"}, got)
}

func TestSchedulerRunOnceRequiresQueue(t *testing.T) {
	svc := NewSchedulerService(&schedulerStoreStub{}, &lifecycleRunnerStub{}, SchedulerConfig{}, nil)
	_, err := svc.RunOnce(context.Background())
	require.Error(t, err)
}

func TestSchedulerHandle(t *testing.T) {
	t.Run("dispatches by job type", func(t *testing.T) {
		runner := &lifecycleRunnerStub{}
		svc := NewSchedulerService(&schedulerStoreStub{}, runner, SchedulerConfig{}, nil)
		for _, step := range []string{StepCreate, StepUpload, StepRequestReport, StepPollScore} {
			require.NoError(t, svc.Handle(context.Background(), jobs.Job{ID: "j", Type: step, Key: "sub-1"}))
		}
		assert.Equal(t, []string{"create:sub-1", "upload:sub-1", "request_report:sub-1", "poll_score:sub-1"}, runner.calls)
	})

	t.Run("transport failure is retried", func(t *testing.T) {
		runner := &lifecycleRunnerStub{outcome: OutcomeTransportFailure}
		svc := NewSchedulerService(&schedulerStoreStub{}, runner, SchedulerConfig{}, nil)
		require.Error(t, svc.Handle(context.Background(), jobs.Job{Type: StepUpload, Key: "sub-1"}))
	})

	t.Run("remote rejection is final", func(t *testing.T) {
		runner := &lifecycleRunnerStub{outcome: OutcomeRemoteRejected}
		svc := NewSchedulerService(&schedulerStoreStub{}, runner, SchedulerConfig{}, nil)
		require.NoError(t, svc.Handle(context.Background(), jobs.Job{Type: StepUpload, Key: "sub-1"}))
	})

	t.Run("stale record is dropped", func(t *testing.T) {
		runner := &lifecycleRunnerStub{err: appErrors.Clone(appErrors.ErrInvalidState, "moved on")}
		svc := NewSchedulerService(&schedulerStoreStub{}, runner, SchedulerConfig{}, nil)
		require.NoError(t, svc.Handle(context.Background(), jobs.Job{Type: StepCreate, Key: "sub-1"}))
	})

	t.Run("storage errors are returned", func(t *testing.T) {
		runner := &lifecycleRunnerStub{err: errors.New("db down")}
		svc := NewSchedulerService(&schedulerStoreStub{}, runner, SchedulerConfig{}, nil)
		require.Error(t, svc.Handle(context.Background(), jobs.Job{Type: StepCreate, Key: "sub-1"}))
	})
}

func TestSchedulerWithQueueEndToEnd(t *testing.T) {
	runner := &lifecycleRunnerStub{}
	store := &schedulerStoreStub{byStatus: map[models.SubmissionStatus][]models.Submission{
		models.SubmissionStatusQueued: {{ID: "q1"}},
	}}
	svc := NewSchedulerService(store, runner, SchedulerConfig{}, nil)
	done := make(chan struct{}, 1)
	queue := jobs.NewQueue("lifecycle", func(ctx context.Context, job jobs.Job) error {
		err := svc.Handle(ctx, job)
		done <- struct{}{}
		return err
	}, jobs.QueueConfig{Workers: 1})
	svc.AttachQueue(queue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	enqueued, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, enqueued)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
	assert.Equal(t, []string{"create:q1"}, runner.calls)
}
