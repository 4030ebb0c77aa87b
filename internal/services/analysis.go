package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/observability"
	"github.com/yungbote/toktik-backend/internal/platform/httpx"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxPolls     = 20
	NoDescription       = "No description available"
)

// AnalysisService is the remote label-detection contract. Submit is not
// idempotent.
type AnalysisService interface {
	Submit(ctx context.Context, input string) (jobID string, err error)
	Poll(ctx context.Context, jobID string) (domain.AnalysisPoll, error)
}

// Clock suspends the caller between polls.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error { return httpx.Sleep(ctx, d) }

type AnalysisConfig struct {
	PollInterval time.Duration
	MaxPolls     int
	Clock        Clock
}

type AnalysisOutcome struct {
	Job         *domain.AnalysisJob
	Description string
}

type AnalysisController struct {
	log      *logger.Logger
	svc      AnalysisService
	interval time.Duration
	maxPolls int
	clock    Clock
}

func NewAnalysisController(log *logger.Logger, svc AnalysisService, cfg AnalysisConfig) (*AnalysisController, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if svc == nil {
		return nil, fmt.Errorf("analysis service required")
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxPolls := cfg.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &AnalysisController{
		log:      log.With("service", "AnalysisController"),
		svc:      svc,
		interval: interval,
		maxPolls: maxPolls,
		clock:    clock,
	}, nil
}

// Run submits a job for input, polls it to a terminal state and reduces the
// labels into a description. Poll errors end the job; nothing is resubmitted.
func (c *AnalysisController) Run(ctx context.Context, input string) (out *AnalysisOutcome, err error) {
	if strings.TrimSpace(input) == "" {
		return nil, domain.InvalidInputf("analysis input is required")
	}
	ctx, span := observability.StartSpan(ctx, "analysis.run", attribute.String("analysis.input", input))
	defer func() { observability.EndSpan(span, err) }()

	job := domain.NewAnalysisJob(c.maxPolls)
	jobID, err := c.svc.Submit(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		return nil, c.abort(job, err)
	}
	job.JobID = jobID
	span.SetAttributes(attribute.String("analysis.job_id", jobID))
	if err := job.Transition(domain.JobRunning); err != nil {
		return nil, err
	}
	c.log.Debug("Analysis job submitted", "job_id", jobID, "input", input)

	for {
		if job.Exhausted() {
			if err := job.Transition(domain.JobTimedOut); err != nil {
				return nil, err
			}
			c.log.Warn("Analysis job timed out", "job_id", jobID, "attempt", job.Polls)
			return nil, &domain.AnalysisError{JobID: jobID, Attempts: job.Polls, State: domain.JobTimedOut}
		}
		if job.Polls > 0 {
			if err := c.clock.Sleep(ctx, c.interval); err != nil {
				return nil, c.abort(job, err)
			}
		}

		poll, err := c.svc.Poll(ctx, jobID)
		job.Polls++
		if err != nil {
			c.log.Warn("Analysis poll failed", "job_id", jobID, "attempt", job.Polls, "error", err)
			return nil, c.abort(job, err)
		}
		c.log.Debug("Analysis job polled", "job_id", jobID, "attempt", job.Polls, "state", poll.Status)

		switch poll.Status {
		case domain.PollRunning:
			continue
		case domain.PollSucceeded:
			if err := job.Transition(domain.JobSucceeded); err != nil {
				return nil, err
			}
			desc := ReduceLabels(poll.Labels)
			job.Labels = labelNames(poll.Labels)
			span.SetAttributes(attribute.Int("analysis.polls", job.Polls), attribute.Int("analysis.labels", len(job.Labels)))
			return &AnalysisOutcome{Job: job, Description: desc}, nil
		case domain.PollFailed:
			if err := job.Transition(domain.JobFailed); err != nil {
				return nil, err
			}
			job.Detail = poll.Detail
			detail := poll.Detail
			if detail == "" {
				detail = "analysis service reported failure"
			}
			return nil, &domain.AnalysisError{JobID: jobID, Attempts: job.Polls, State: domain.JobFailed, Cause: errors.New(detail)}
		default:
			_ = job.Transition(domain.JobFailed)
			return nil, &domain.AnalysisError{
				JobID:    jobID,
				Attempts: job.Polls,
				State:    domain.JobFailed,
				Cause:    fmt.Errorf("unknown poll status %q", poll.Status),
			}
		}
	}
}

// abort ends a non-terminal job. An expired deadline counts as a timeout;
// any other cause fails the job.
func (c *AnalysisController) abort(job *domain.AnalysisJob, cause error) error {
	state := domain.JobFailed
	if errors.Is(cause, context.DeadlineExceeded) {
		state = domain.JobTimedOut
	}
	if job.State == domain.JobSubmitted && state == domain.JobTimedOut {
		_ = job.Transition(domain.JobRunning)
	}
	_ = job.Transition(state)
	return &domain.AnalysisError{JobID: job.JobID, Attempts: job.Polls, State: state, Cause: cause}
}

// ReduceLabels joins the non-empty label names with ", ". With no usable
// names it returns NoDescription so the result is always embeddable.
func ReduceLabels(labels []domain.Label) string {
	names := labelNames(labels)
	if len(names) == 0 {
		return NoDescription
	}
	return strings.Join(names, ", ")
}

func labelNames(labels []domain.Label) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if name := strings.TrimSpace(l.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
