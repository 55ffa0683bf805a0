// Package workflow matches domain events against organization workflows and
// runs their actions, persisting the outcome of every step.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atsflow/atsflow/pkg/eventbus"
	"github.com/atsflow/atsflow/pkg/events"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/otelhelper"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/atsflow/atsflow/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Engine struct {
	workflows     persistence.WorkflowRepository
	executions    persistence.ExecutionRepository
	steps         persistence.ScheduledStepRepository
	matcher       *TriggerMatcher
	executor      *ActionExecutor
	dispatcher    Dispatcher
	publisher     eventbus.EventPublisher
	tracer        trace.Tracer
	actionTimeout time.Duration
	stepLease     time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

type Option func(*Engine)

// WithDispatcher sets where new executions are sent. Without it each
// execution runs on its own goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// WithStepStore replaces the persistence layer's scheduled step repository.
func WithStepStore(steps persistence.ScheduledStepRepository) Option {
	return func(e *Engine) {
		e.steps = steps
	}
}

// WithEventPublisher enables execution lifecycle events.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func WithActionTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.actionTimeout = timeout
	}
}

// WithRecoveryLease sets how far ahead Recover schedules the next step of a
// running execution that has none. It should match the step scheduler's lease.
func WithRecoveryLease(lease time.Duration) Option {
	return func(e *Engine) {
		e.stepLease = lease
	}
}

func NewEngine(p persistence.Persistence, reg *registry.Registry, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		workflows:  p.WorkflowRepository(),
		executions: p.ExecutionRepository(),
		steps:      p.ScheduledStepRepository(),
		matcher:    NewTriggerMatcher(logger),
		tracer:     otelhelper.NoopTracer(),
		stepLease:  DefaultStepLease,
		now:        time.Now,
		logger:     logger.With("module", "workflow_engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.executor = NewActionExecutor(reg, logger, e.actionTimeout)

	if e.dispatcher == nil {
		e.dispatcher = DispatchFunc(e.runDetached)
	}

	return e
}

func (e *Engine) runDetached(ctx context.Context, execution *models.WorkflowExecution) error {
	runCtx := context.WithoutCancel(ctx)

	go func() {
		err := e.ExecuteWorkflow(runCtx, execution.ID)
		if err != nil {
			e.logger.ErrorContext(runCtx, "Execution failed", "execution_id", execution.ID, "error", err)
		}
	}()

	return nil
}

// TriggerWorkflows creates a pending execution for every active workflow of
// the organization bound to triggerType whose trigger config and conditions
// match triggerData. It returns without waiting for any execution to run.
// A failure on one workflow is logged and does not affect the others.
func (e *Engine) TriggerWorkflows(
	ctx context.Context,
	organizationID string,
	triggerType models.TriggerType,
	entityType, entityID string,
	triggerData map[string]any,
) ([]*models.WorkflowExecution, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.trigger",
		attribute.String(otelhelper.OrganizationIDKey, organizationID),
		attribute.String(otelhelper.TriggerTypeKey, string(triggerType)),
	)
	defer span.End()

	logger := e.logger.With("organization_id", organizationID, "trigger_type", triggerType, "entity_id", entityID)

	workflows, err := e.workflows.ListActiveByTrigger(ctx, organizationID, triggerType)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to list workflows for %s: %w", triggerType, err)
	}

	if triggerData == nil {
		triggerData = map[string]any{}
	}

	created := make([]*models.WorkflowExecution, 0)

	for _, workflow := range e.matcher.Match(workflows, triggerData) {
		execution := &models.WorkflowExecution{
			ID:             uuid.NewString(),
			WorkflowID:     workflow.ID,
			OrganizationID: organizationID,
			EntityType:     entityType,
			EntityID:       entityID,
			Status:         models.ExecutionStatusPending,
			TriggerData:    triggerData,
			Steps:          []models.ExecutionStep{},
			CreatedAt:      e.now().UTC(),
		}

		err := e.executions.Save(ctx, execution)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to create execution", "workflow_id", workflow.ID, "error", err)

			continue
		}

		err = e.dispatcher.Dispatch(ctx, execution)
		if err != nil {
			logger.WarnContext(ctx, "Execution left pending", "workflow_id", workflow.ID,
				"execution_id", execution.ID, "error", err)
		}

		logger.InfoContext(ctx, "Workflow triggered", "workflow_id", workflow.ID, "execution_id", execution.ID)

		created = append(created, execution)
	}

	span.SetAttributes(attribute.Int("atsflow.executions.created", len(created)))

	return created, nil
}

// ExecuteWorkflow runs a pending execution from its first action. An
// execution in any other state is left untouched, and of concurrent calls for
// one execution only the one that moves it to running proceeds. Action
// failures are recorded as failed steps; only persistence failures are
// returned, after the execution has been marked failed.
func (e *Engine) ExecuteWorkflow(ctx context.Context, executionID string) error {
	execution, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	logger := e.logger.With("execution_id", execution.ID, "workflow_id", execution.WorkflowID)

	if execution.Status != models.ExecutionStatusPending {
		logger.WarnContext(ctx, "Execution is not pending, skipping", "status", execution.Status)

		return nil
	}

	now := e.now().UTC()
	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &now

	claimed, err := e.executions.Transition(ctx, execution, models.ExecutionStatusPending)
	if err != nil {
		return fmt.Errorf("failed to start execution %s: %w", executionID, err)
	}

	if !claimed {
		logger.InfoContext(ctx, "Execution started elsewhere, skipping")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
	)
	defer span.End()

	workflow, err := e.workflows.GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return e.fail(ctx, span, execution, fmt.Errorf("failed to load workflow: %w", err))
	}

	logger.InfoContext(ctx, "Executing workflow", "actions", len(workflow.Actions))

	return e.run(ctx, span, execution, workflow, 0, false)
}

// ResumeStep continues a running execution at a delayed action whose delay
// has elapsed. Stale or duplicate calls are ignored.
func (e *Engine) ResumeStep(ctx context.Context, executionID string, stepIndex int) error {
	execution, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	logger := e.logger.With("execution_id", execution.ID, "step_index", stepIndex)

	if execution.Status != models.ExecutionStatusRunning || execution.NextStep != stepIndex {
		logger.InfoContext(ctx, "Ignoring stale scheduled step",
			"status", execution.Status, "next_step", execution.NextStep)

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.resume",
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.Int(otelhelper.StepIndexKey, stepIndex),
	)
	defer span.End()

	workflow, err := e.workflows.GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return e.fail(ctx, span, execution, fmt.Errorf("failed to load workflow: %w", err))
	}

	logger.InfoContext(ctx, "Resuming delayed step")

	return e.run(ctx, span, execution, workflow, stepIndex, true)
}

// run executes workflow.Actions from start onwards. resumed means the delay
// of the action at start has already elapsed.
func (e *Engine) run(
	ctx context.Context,
	span trace.Span,
	execution *models.WorkflowExecution,
	workflow *models.Workflow,
	start int,
	resumed bool,
) error {
	ctx = protocol.WithOrganization(ctx, execution.OrganizationID)

	for i := start; i < len(workflow.Actions); i++ {
		action := workflow.Actions[i]

		cancelled, err := e.isCancelled(ctx, execution.ID)
		if err != nil {
			return e.fail(ctx, span, execution, err)
		}

		if cancelled {
			e.logger.InfoContext(ctx, "Execution cancelled, stopping", "execution_id", execution.ID)

			return nil
		}

		if action.DelayMinutes > 0 && !(resumed && i == start) {
			return e.schedule(ctx, span, execution, i, action.Delay())
		}

		step := e.runAction(ctx, execution, action, i)

		execution.Steps = append(execution.Steps, step)
		execution.NextStep = i + 1

		advanced, err := e.executions.Transition(ctx, execution, models.ExecutionStatusRunning)
		if err != nil {
			return e.fail(ctx, span, execution, fmt.Errorf("failed to record step %d: %w", i, err))
		}

		if !advanced {
			e.logger.InfoContext(ctx, "Execution no longer running, outcome discarded",
				"execution_id", execution.ID, "action_type", action.Type)

			return nil
		}
	}

	return e.finish(ctx, span, execution)
}

func (e *Engine) runAction(
	ctx context.Context,
	execution *models.WorkflowExecution,
	action models.WorkflowAction,
	index int,
) models.ExecutionStep {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.action",
		attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
		attribute.Int(otelhelper.StepIndexKey, index),
	)
	defer span.End()

	step := models.ExecutionStep{
		ActionType: action.Type,
		StartedAt:  e.now().UTC(),
	}

	result, err := e.executor.Execute(ctx, action, execution.EntityType, execution.EntityID, execution.TriggerData)
	step.CompletedAt = e.now().UTC()

	if err != nil {
		otelhelper.SetError(span, err)
		e.logger.WarnContext(ctx, "Action failed",
			"execution_id", execution.ID,
			"action_type", action.Type,
			"step_index", index,
			"error", err)

		step.Status = models.StepStatusFailed
		step.Error = err.Error()

		return step
	}

	step.Status = models.StepStatusCompleted
	step.Result = result

	return step
}

func (e *Engine) schedule(
	ctx context.Context,
	span trace.Span,
	execution *models.WorkflowExecution,
	index int,
	delay time.Duration,
) error {
	now := e.now().UTC()

	// Step before NextStep, so a running execution always has a step to resume.
	err := e.steps.Schedule(ctx, &models.ScheduledStep{
		ExecutionID: execution.ID,
		StepIndex:   index,
		DueAt:       now.Add(delay),
		CreatedAt:   now,
	})
	if err != nil {
		return e.fail(ctx, span, execution, fmt.Errorf("failed to schedule step %d: %w", index, err))
	}

	execution.NextStep = index

	advanced, err := e.executions.Transition(ctx, execution, models.ExecutionStatusRunning)
	if err != nil {
		return e.fail(ctx, span, execution, fmt.Errorf("failed to record next step: %w", err))
	}

	if !advanced {
		_, err = e.steps.Delete(ctx, execution.ID, index)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to drop step of stopped execution",
				"execution_id", execution.ID, "step_index", index, "error", err)
		}

		e.logger.InfoContext(ctx, "Execution no longer running, delay dropped", "execution_id", execution.ID)

		return nil
	}

	e.logger.InfoContext(ctx, "Delayed action scheduled",
		"execution_id", execution.ID, "step_index", index, "due_at", now.Add(delay))

	return nil
}

func (e *Engine) finish(ctx context.Context, span trace.Span, execution *models.WorkflowExecution) error {
	now := e.now().UTC()
	execution.CompletedAt = &now
	execution.Status = models.ExecutionStatusCompleted

	if execution.HasFailedStep() {
		execution.Status = models.ExecutionStatusFailed
	}

	finished, err := e.executions.Transition(ctx, execution, models.ExecutionStatusRunning)
	if err != nil {
		return e.fail(ctx, span, execution, fmt.Errorf("failed to complete execution: %w", err))
	}

	if !finished {
		e.logger.InfoContext(ctx, "Execution no longer running, outcome discarded", "execution_id", execution.ID)

		return nil
	}

	e.logger.InfoContext(ctx, "Execution finished",
		"execution_id", execution.ID, "status", execution.Status, "steps", len(execution.Steps))

	e.publishFinished(ctx, execution)

	return nil
}

// fail marks a running execution failed with a top-level error and returns
// cause. An execution cancelled in the meantime keeps its status.
func (e *Engine) fail(ctx context.Context, span trace.Span, execution *models.WorkflowExecution, cause error) error {
	otelhelper.SetError(span, cause)

	now := e.now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.Error = cause.Error()
	execution.CompletedAt = &now

	failed, err := e.executions.Transition(ctx, execution, models.ExecutionStatusRunning)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist execution failure",
			"execution_id", execution.ID, "cause", cause, "error", err)
	}

	if failed {
		e.publishFinished(ctx, execution)
	}

	return cause
}

func (e *Engine) isCancelled(ctx context.Context, executionID string) (bool, error) {
	current, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return false, fmt.Errorf("failed to reload execution: %w", err)
	}

	return current.Status == models.ExecutionStatusCancelled, nil
}

// CancelExecution stops a pending or running execution and drops its
// scheduled steps. A step that is running when the cancel lands finishes,
// but its outcome is not recorded.
func (e *Engine) CancelExecution(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	execution, err := e.cancel(ctx, executionID)
	if err != nil {
		return nil, err
	}

	err = e.steps.DeleteByExecution(ctx, executionID)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to drop scheduled steps", "execution_id", executionID, "error", err)
	}

	e.logger.InfoContext(ctx, "Execution cancelled", "execution_id", executionID)

	if e.publisher != nil {
		err = e.publisher.Publish(ctx, execution.EntityID, &events.WorkflowExecutionCancelled{
			BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionCancelledEvent, execution.OrganizationID),
			ExecutionID: execution.ID,
			WorkflowID:  execution.WorkflowID,
		})
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to publish cancellation", "execution_id", executionID, "error", err)
		}
	}

	return execution, nil
}

const maxCancelAttempts = 3

// cancel moves the execution to cancelled from whatever non-terminal status
// it was read in, retrying when a worker moved it first.
func (e *Engine) cancel(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	for range maxCancelAttempts {
		execution, err := e.executions.GetByID(ctx, executionID)
		if err != nil {
			return nil, err
		}

		if execution.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: %s is %s", ErrExecutionFinished, executionID, execution.Status)
		}

		from := execution.Status
		now := e.now().UTC()
		execution.Status = models.ExecutionStatusCancelled
		execution.CompletedAt = &now

		cancelled, err := e.executions.Transition(ctx, execution, from)
		if err != nil {
			return nil, fmt.Errorf("failed to cancel execution %s: %w", executionID, err)
		}

		if cancelled {
			return execution, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrConcurrentUpdate, executionID)
}

func (e *Engine) GetExecution(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	return e.executions.GetByID(ctx, executionID)
}

func (e *Engine) GetExecutionsForEntity(ctx context.Context, entityType, entityID string) ([]*models.WorkflowExecution, error) {
	return e.executions.ListByEntity(ctx, entityType, entityID)
}

// Recover re-dispatches executions that were created but never started, for
// example because the process stopped or the pool was full, and gives every
// running execution without a scheduled step one at its next step. It
// returns how many executions were dispatched or rescheduled.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	pending, err := e.executions.ListByStatus(ctx, models.ExecutionStatusPending, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending executions: %w", err)
	}

	dispatched := 0

	for _, execution := range pending {
		err := e.dispatcher.Dispatch(ctx, execution)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to re-dispatch execution", "execution_id", execution.ID, "error", err)

			continue
		}

		dispatched++
	}

	running, err := e.executions.ListByStatus(ctx, models.ExecutionStatusRunning, 0)
	if err != nil {
		return dispatched, fmt.Errorf("failed to list running executions: %w", err)
	}

	rescheduled := 0

	for _, execution := range running {
		added, err := e.reschedule(ctx, execution)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to reschedule execution", "execution_id", execution.ID, "error", err)

			continue
		}

		if added {
			rescheduled++
		}
	}

	if dispatched+rescheduled > 0 {
		e.logger.InfoContext(ctx, "Recovered executions",
			"pending", len(pending), "dispatched", dispatched, "rescheduled", rescheduled)
	}

	return dispatched + rescheduled, nil
}

// reschedule adds a step at the execution's next step unless one exists. It
// is due after the lease, so a worker still running the execution gets there
// first, or after the action's delay when that is longer.
func (e *Engine) reschedule(ctx context.Context, execution *models.WorkflowExecution) (bool, error) {
	now := e.now().UTC()
	wait := e.stepLease

	workflow, err := e.workflows.GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return false, fmt.Errorf("failed to load workflow: %w", err)
	}

	if execution.NextStep < len(workflow.Actions) {
		wait = max(wait, workflow.Actions[execution.NextStep].Delay())
	}

	return e.steps.ScheduleIfAbsent(ctx, &models.ScheduledStep{
		ExecutionID: execution.ID,
		StepIndex:   execution.NextStep,
		DueAt:       now.Add(wait),
		CreatedAt:   now,
	})
}

func (e *Engine) publishFinished(ctx context.Context, execution *models.WorkflowExecution) {
	if e.publisher == nil {
		return
	}

	var event eventbus.Event

	if execution.Status == models.ExecutionStatusCompleted {
		var duration time.Duration
		if execution.StartedAt != nil && execution.CompletedAt != nil {
			duration = execution.CompletedAt.Sub(*execution.StartedAt)
		}

		event = &events.WorkflowExecutionCompleted{
			BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, execution.OrganizationID),
			ExecutionID: execution.ID,
			WorkflowID:  execution.WorkflowID,
			EntityType:  execution.EntityType,
			EntityID:    execution.EntityID,
			Steps:       len(execution.Steps),
			Duration:    duration,
		}
	} else {
		failedSteps := 0

		for _, step := range execution.Steps {
			if step.Status == models.StepStatusFailed {
				failedSteps++
			}
		}

		event = &events.WorkflowExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionFailedEvent, execution.OrganizationID),
			ExecutionID: execution.ID,
			WorkflowID:  execution.WorkflowID,
			EntityType:  execution.EntityType,
			EntityID:    execution.EntityID,
			Error:       execution.Error,
			FailedSteps: failedSteps,
		}
	}

	err := e.publisher.Publish(ctx, execution.EntityID, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish execution outcome", "execution_id", execution.ID, "error", err)
	}
}
