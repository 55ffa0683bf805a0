package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/scheduler"
)

const (
	DefaultStepPollSchedule = "@every 15s"
	// DefaultStepLease is how long a claimed step stays hidden from other
	// pollers. It must outlast a resume.
	DefaultStepLease = 5 * time.Minute
	defaultStepBatch = 100
)

// StepResumer is implemented by Engine.
type StepResumer interface {
	ResumeStep(ctx context.Context, executionID string, stepIndex int) error
}

// SubmitFunc hands run to whatever executes resumes. Pool.Submit is one.
type SubmitFunc func(ctx context.Context, executionID string, run func(context.Context) error) error

// StepScheduler polls the scheduled step store and resumes executions whose
// delayed action is due. A due step is leased before it runs and deleted only
// once the resume returns, so a step whose resume fails or whose worker dies
// becomes due again when the lease runs out.
type StepScheduler struct {
	steps   persistence.ScheduledStepRepository
	resumer StepResumer
	submit  SubmitFunc
	logger  *slog.Logger
	now     func() time.Time
	lease   time.Duration
	batch   int
}

type StepSchedulerOption func(*StepScheduler)

func WithStepLease(lease time.Duration) StepSchedulerOption {
	return func(s *StepScheduler) {
		if lease > 0 {
			s.lease = lease
		}
	}
}

// WithSubmitter runs resumes through submit instead of on the polling
// goroutine.
func WithSubmitter(submit SubmitFunc) StepSchedulerOption {
	return func(s *StepScheduler) {
		s.submit = submit
	}
}

func NewStepScheduler(
	steps persistence.ScheduledStepRepository,
	resumer StepResumer,
	logger *slog.Logger,
	opts ...StepSchedulerOption,
) *StepScheduler {
	s := &StepScheduler{
		steps:   steps,
		resumer: resumer,
		logger:  logger.With("module", "step_scheduler"),
		now:     time.Now,
		lease:   DefaultStepLease,
		batch:   defaultStepBatch,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.submit == nil {
		s.submit = s.runInline
	}

	return s
}

func (s *StepScheduler) runInline(ctx context.Context, executionID string, run func(context.Context) error) error {
	err := run(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to resume step", "execution_id", executionID, "error", err)
	}

	return nil
}

// Job registers the poller with a scheduler.
func (s *StepScheduler) Job(spec string) scheduler.Job {
	if spec == "" {
		spec = DefaultStepPollSchedule
	}

	return scheduler.Job{
		Name: "workflow_steps",
		Spec: spec,
		Run: func(ctx context.Context) {
			_, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "Step poll failed", "error", err)
			}
		},
	}
}

// RunOnce submits every step due now and returns how many were submitted.
func (s *StepScheduler) RunOnce(ctx context.Context) (int, error) {
	return s.RunOnceAt(ctx, s.now())
}

// RunOnceAt claims every step due at or before now and submits its resume.
func (s *StepScheduler) RunOnceAt(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()

	due, err := s.steps.Due(ctx, now, s.batch)
	if err != nil {
		return 0, err
	}

	submitted := 0

	for _, step := range due {
		logger := s.logger.With("execution_id", step.ExecutionID, "step_index", step.StepIndex)

		claimed, err := s.steps.Claim(ctx, step.ExecutionID, step.StepIndex, now, now.Add(s.lease))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to claim scheduled step", "error", err)

			continue
		}

		if !claimed {
			logger.DebugContext(ctx, "Step claimed elsewhere")

			continue
		}

		err = s.submit(ctx, step.ExecutionID, s.resume(step))
		if err != nil {
			logger.WarnContext(ctx, "Failed to submit step, releasing claim", "error", err)
			s.release(ctx, step)

			continue
		}

		submitted++
	}

	return submitted, nil
}

// resume runs one claimed step and drops it when done. On failure the step
// keeps its lease and is retried after it expires.
func (s *StepScheduler) resume(step *models.ScheduledStep) func(context.Context) error {
	return func(ctx context.Context) error {
		err := s.resumer.ResumeStep(ctx, step.ExecutionID, step.StepIndex)
		if err != nil {
			return fmt.Errorf("failed to resume step %d: %w", step.StepIndex, err)
		}

		_, err = s.steps.Delete(ctx, step.ExecutionID, step.StepIndex)
		if err != nil {
			return fmt.Errorf("failed to drop resumed step %d: %w", step.StepIndex, err)
		}

		return nil
	}
}

func (s *StepScheduler) release(ctx context.Context, step *models.ScheduledStep) {
	err := s.steps.Schedule(ctx, step)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to release step, it stays leased",
			"execution_id", step.ExecutionID, "step_index", step.StepIndex, "error", err)
	}
}
