package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/atsflow/atsflow/pkg/cmd"
	"github.com/atsflow/atsflow/pkg/events"
	"github.com/atsflow/atsflow/pkg/scheduler"
	"github.com/atsflow/atsflow/pkg/workflow"
)

const shutdownTimeout = 30 * time.Second

// Schedules holds the cron specs of the periodic jobs. Empty values use the
// package defaults.
type Schedules struct {
	Compliance string
	Escalation string
	StepPoll   string
}

type WorkerManager struct {
	id        string
	logger    *slog.Logger
	runtime   *cmd.Runtime
	pool      *workflow.Pool
	scheduler *scheduler.Scheduler
	schedules Schedules
}

func NewWorkerManager(
	id string,
	runtime *cmd.Runtime,
	pool *workflow.Pool,
	schedules Schedules,
	logger *slog.Logger,
) *WorkerManager {
	logger = logger.With("module", "atsflow-worker", "worker_id", id)

	return &WorkerManager{
		id:        id,
		logger:    logger,
		runtime:   runtime,
		pool:      pool,
		scheduler: scheduler.New(logger),
		schedules: schedules,
	}
}

// Start runs the worker until ctx is cancelled, then drains running
// executions and scheduled jobs.
func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "capacity", w.pool.Capacity())

	if err := w.setup(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	w.logger.InfoContext(ctx, "Shutting down worker...")

	return w.shutdown(context.WithoutCancel(ctx))
}

func (w *WorkerManager) setup(ctx context.Context) error {
	rt := w.runtime

	err := rt.EventBus.Handle(events.TriggerReceivedEvent, workflow.TriggerHandler(rt.Engine))
	if err != nil {
		return err
	}

	err = rt.EventBus.Handle(events.WorkflowExecutionRequestedEvent, workflow.ExecutionRequestHandler(w.pool))
	if err != nil {
		return err
	}

	w.pool.Start(ctx, rt.Engine.ExecuteWorkflow)

	err = rt.EventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	recovered, err := rt.Engine.Recover(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to recover executions", "error", err)
	} else if recovered > 0 {
		w.logger.InfoContext(ctx, "Recovered executions", "count", recovered)
	}

	jobs := rt.Monitor.Jobs(w.schedules.Compliance, w.schedules.Escalation)
	jobs = append(jobs, workflow.NewStepScheduler(rt.Steps, rt.Engine, w.logger,
		workflow.WithSubmitter(w.pool.Submit)).Job(w.schedules.StepPoll))

	for _, job := range jobs {
		if err := w.scheduler.Add(job); err != nil {
			return err
		}
	}

	w.scheduler.Start(ctx)

	w.logger.InfoContext(ctx, "Worker started successfully", "jobs", len(jobs))

	return nil
}

func (w *WorkerManager) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := w.scheduler.Stop(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to stop scheduler", "error", err)
	}

	return w.pool.Stop(ctx)
}
