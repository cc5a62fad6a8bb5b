package service

import (
	"time"

	"github.com/noah-isme/simcheck-bridge/internal/models"
)

// PolicyInput carries everything the generation policy looks at.
type PolicyInput struct {
	Policy models.ReportGenerationPolicy
	// DueDate is nil when the module has no deadline; it is then treated as passed.
	DueDate   *time.Time
	Status    models.SubmissionStatus
	Generated bool
	Now       time.Time
}

// PolicyDecision is the outcome of one policy evaluation.
type PolicyDecision struct {
	ToGenerate     bool
	GenerationTime *time.Time
	// KeepGenerationTime leaves the stored generation time as it is.
	KeepGenerationTime bool
}

// Apply writes the decision onto the record.
func (d PolicyDecision) Apply(submission *models.Submission) {
	submission.ToGenerate = d.ToGenerate
	if d.KeepGenerationTime {
		return
	}
	submission.GenerationTime = d.GenerationTime
}

// GenerationPolicy decides when a similarity report should be generated. It
// holds no state; every call recomputes the schedule from its input.
type GenerationPolicy struct{}

// Decide evaluates the configured policy.
func (GenerationPolicy) Decide(in PolicyInput) PolicyDecision {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	policy := in.Policy
	if !policy.Valid() {
		policy = models.ReportGenImmediate
	}

	// Only immediate-and-duedate supports a second generation.
	if in.Generated && policy != models.ReportGenImmediateAndDueDate {
		return PolicyDecision{ToGenerate: false, KeepGenerationTime: true}
	}

	dueInFuture := in.DueDate != nil && in.DueDate.After(now)

	switch policy {
	case models.ReportGenImmediateAndDueDate:
		decision := PolicyDecision{ToGenerate: true}
		if in.Status == models.SubmissionStatusQueued || in.Status == models.SubmissionStatusUploaded {
			decision.GenerationTime = timePtr(now)
		} else {
			decision.GenerationTime = dueOrNow(in.DueDate, now)
		}
		if !dueInFuture && in.Generated {
			return PolicyDecision{ToGenerate: false}
		}
		return decision
	case models.ReportGenDueDate:
		if dueInFuture {
			return PolicyDecision{ToGenerate: true, GenerationTime: timePtr(*in.DueDate)}
		}
		return PolicyDecision{ToGenerate: true, GenerationTime: timePtr(now)}
	default:
		return PolicyDecision{ToGenerate: true, GenerationTime: timePtr(now)}
	}
}

func dueOrNow(due *time.Time, now time.Time) *time.Time {
	if due == nil {
		return timePtr(now)
	}
	return timePtr(*due)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
