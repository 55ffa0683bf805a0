// Package scheduler runs named periodic jobs on a cron clock. A job that is
// still running when its next tick arrives is skipped, and a panicking job is
// logged instead of killing the process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

var (
	ErrDuplicateJob = errors.New("job already registered")
	ErrInvalidSpec  = errors.New("invalid schedule")
)

// Job is a unit of periodic work. Run receives the scheduler's context, which
// is cancelled by Stop.
type Job struct {
	Name string
	Spec string // standard cron expression or descriptor such as "@every 10m"
	Run  func(ctx context.Context)
}

type Scheduler struct {
	logger *slog.Logger
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	mutex  sync.Mutex
	jobs   map[string]cron.EntryID
}

func New(logger *slog.Logger) *Scheduler {
	logger = logger.With("module", "scheduler")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))

	return &Scheduler{
		logger: logger,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		jobs: make(map[string]cron.EntryID),
	}
}

// Validate reports whether spec can be scheduled.
func Validate(spec string) error {
	_, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSpec, spec, err)
	}

	return nil
}

func (s *Scheduler) Add(job Job) error {
	err := Validate(job.Spec)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}

	logger := s.logger.With("job", job.Name)

	entryID, err := s.cron.AddFunc(job.Spec, func() {
		ctx := s.runContext()
		if ctx.Err() != nil {
			return
		}

		logger.DebugContext(ctx, "Running scheduled job")
		job.Run(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", job.Name, err)
	}

	s.jobs[job.Name] = entryID
	logger.Info("Added cron job", "spec", job.Spec, "entry_id", entryID)

	return nil
}

func (s *Scheduler) runContext() context.Context {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.ctx == nil {
		return context.Background()
	}

	return s.ctx
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mutex.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	count := len(s.jobs)
	s.mutex.Unlock()

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "jobs", count)
}

// Stop cancels running jobs and waits for them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mutex.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mutex.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.InfoContext(ctx, "Scheduler stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
