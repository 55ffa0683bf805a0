package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/atsflow/atsflow/pkg/actions/stage"
	"github.com/atsflow/atsflow/pkg/actions/tag"
	"github.com/atsflow/atsflow/pkg/actions/task"
	"github.com/atsflow/atsflow/pkg/events"
	"github.com/atsflow/atsflow/pkg/mocks"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/persistence/memory"
	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/atsflow/atsflow/pkg/registry"
	"github.com/atsflow/atsflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const orgID = "org-1"

type fixture struct {
	store      *memory.Persistence
	tags       *mocks.MockTagMutator
	stages     *mocks.MockStageMover
	tasks      *mocks.MockTaskCreator
	engine     *workflow.Engine
	mu         sync.Mutex
	dispatched []string
	now        time.Time
}

func newFixture(t *testing.T, opts ...workflow.Option) *fixture {
	t.Helper()

	f := &fixture{
		store:  memory.NewPersistence(),
		tags:   &mocks.MockTagMutator{},
		stages: &mocks.MockStageMover{},
		tasks:  &mocks.MockTaskCreator{},
		now:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(tag.NewAddActionFactory(f.tags))
	reg.RegisterAction(stage.NewActionFactory(f.stages))
	reg.RegisterAction(task.NewActionFactory(f.tasks))

	base := []workflow.Option{
		workflow.WithDispatcher(workflow.DispatchFunc(f.capture)),
		workflow.WithClock(f.clock),
	}

	f.engine = workflow.NewEngine(f.store, reg, slog.Default(), append(base, opts...)...)

	return f
}

func (f *fixture) capture(_ context.Context, execution *models.WorkflowExecution) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dispatched = append(f.dispatched, execution.ID)

	return nil
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

func (f *fixture) saveWorkflow(t *testing.T, wf *models.Workflow) {
	t.Helper()

	if wf.OrganizationID == "" {
		wf.OrganizationID = orgID
	}

	if wf.TriggerType == "" {
		wf.TriggerType = models.TriggerApplicationStageChanged
	}

	wf.Active = true

	require.NoError(t, f.store.WorkflowRepository().Save(t.Context(), wf))
}

func (f *fixture) trigger(t *testing.T, data map[string]any) []*models.WorkflowExecution {
	t.Helper()

	executions, err := f.engine.TriggerWorkflows(t.Context(), orgID,
		models.TriggerApplicationStageChanged, "application", "app-1", data)
	require.NoError(t, err)

	return executions
}

func TestEngine_StepFailureDoesNotStopLaterActions(t *testing.T) {
	f := newFixture(t)

	f.tags.On("AddTag", mock.Anything, "application", "app-1", "fast-track").Return(nil)
	f.stages.On("MoveStage", mock.Anything, "app-1", "stage-offer").Return(errors.New("stage is locked"))
	f.tasks.On("CreateTask", mock.Anything, mock.MatchedBy(func(task protocol.Task) bool {
		return task.Title == "Call candidate" && task.EntityID == "app-1"
	})).Return(nil)

	f.saveWorkflow(t, &models.Workflow{
		ID:   "wf-1",
		Name: "Fast track",
		Actions: []models.WorkflowAction{
			{Type: models.ActionAddTag, Config: map[string]any{"tag": "fast-track"}},
			{Type: models.ActionMoveStage, Config: map[string]any{"stageId": "stage-offer"}},
			{Type: models.ActionCreateTask, Config: map[string]any{"title": "Call candidate"}},
		},
	})

	executions := f.trigger(t, map[string]any{"to_stage": "interview"})
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusPending, executions[0].Status)
	assert.Equal(t, []string{executions[0].ID}, f.dispatched)

	require.NoError(t, f.engine.ExecuteWorkflow(t.Context(), executions[0].ID))

	execution, err := f.engine.GetExecution(t.Context(), executions[0].ID)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	require.Len(t, execution.Steps, 3)
	assert.Equal(t, models.StepStatusCompleted, execution.Steps[0].Status)
	assert.Equal(t, models.StepStatusFailed, execution.Steps[1].Status)
	assert.Contains(t, execution.Steps[1].Error, "stage is locked")
	assert.Equal(t, models.StepStatusCompleted, execution.Steps[2].Status)
	assert.Equal(t, true, execution.Steps[0].Result["success"])
	assert.Equal(t, "fast-track", execution.Steps[0].Result["tag"])
	assert.NotNil(t, execution.StartedAt)
	assert.NotNil(t, execution.CompletedAt)

	f.tags.AssertExpectations(t)
	f.stages.AssertExpectations(t)
	f.tasks.AssertExpectations(t)
}

func TestEngine_CompletesWhenAllStepsSucceed(t *testing.T) {
	f := newFixture(t)
	f.tags.On("AddTag", mock.Anything, "application", "app-1", "seen").Return(nil)

	f.saveWorkflow(t, &models.Workflow{
		ID:      "wf-1",
		Name:    "Tag",
		Actions: []models.WorkflowAction{{Type: models.ActionAddTag, Config: map[string]any{"tag": "seen"}}},
	})

	executions := f.trigger(t, nil)
	require.Len(t, executions, 1)
	assert.NotNil(t, executions[0].TriggerData)

	require.NoError(t, f.engine.ExecuteWorkflow(t.Context(), executions[0].ID))

	execution, err := f.engine.GetExecution(t.Context(), executions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Len(t, execution.Steps, 1)
	assert.Empty(t, execution.Error)
}

func TestEngine_TriggerConfigAndConditions(t *testing.T) {
	f := newFixture(t)
	action := []models.WorkflowAction{{Type: models.ActionAddTag, Config: map[string]any{"tag": "x"}}}

	f.saveWorkflow(t, &models.Workflow{
		ID:            "wf-config",
		Name:          "Only interview",
		TriggerConfig: map[string]any{"to_stage": "interview"},
		Actions:       action,
	})
	f.saveWorkflow(t, &models.Workflow{
		ID:   "wf-conditions",
		Name: "Senior only",
		Conditions: []models.Condition{
			{Field: "job.level", Operator: models.OperatorEquals, Value: "senior"},
		},
		Actions: action,
	})
	f.saveWorkflow(t, &models.Workflow{
		ID:          "wf-other-trigger",
		Name:        "Other trigger",
		TriggerType: models.TriggerOfferCreated,
		Actions:     action,
	})
	f.saveWorkflow(t, &models.Workflow{
		ID:             "wf-other-org",
		Name:           "Other org",
		OrganizationID: "org-2",
		Actions:        action,
	})

	inactive := &models.Workflow{ID: "wf-inactive", Name: "Inactive", Actions: action}
	f.saveWorkflow(t, inactive)
	inactive.Active = false
	require.NoError(t, f.store.WorkflowRepository().Save(t.Context(), inactive))

	tests := []struct {
		name string
		data map[string]any
		want []string
	}{
		{
			name: "config and conditions match",
			data: map[string]any{"to_stage": "interview", "job": map[string]any{"level": "senior"}},
			want: []string{"wf-config", "wf-conditions"},
		},
		{
			name: "config value differs",
			data: map[string]any{"to_stage": "offer", "job": map[string]any{"level": "senior"}},
			want: []string{"wf-conditions"},
		},
		{
			name: "config key missing and condition false",
			data: map[string]any{"job": map[string]any{"level": "junior"}},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executions := f.trigger(t, tt.data)

			got := make([]string, 0, len(executions))
			for _, execution := range executions {
				got = append(got, execution.WorkflowID)
				assert.Equal(t, orgID, execution.OrganizationID)
			}

			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestEngine_ExecuteIgnoresNonPending(t *testing.T) {
	f := newFixture(t)
	f.tags.On("AddTag", mock.Anything, "application", "app-1", "once").Return(nil).Once()

	f.saveWorkflow(t, &models.Workflow{
		ID:      "wf-1",
		Name:    "Once",
		Actions: []models.WorkflowAction{{Type: models.ActionAddTag, Config: map[string]any{"tag": "once"}}},
	})

	executions := f.trigger(t, nil)
	require.Len(t, executions, 1)

	require.NoError(t, f.engine.ExecuteWorkflow(t.Context(), executions[0].ID))
	require.NoError(t, f.engine.ExecuteWorkflow(t.Context(), executions[0].ID))

	execution, err := f.engine.GetExecution(t.Context(), executions[0].ID)
	require.NoError(t, err)
	assert.Len(t, execution.Steps, 1)
	f.tags.AssertNumberOfCalls(t, "AddTag", 1)
}

func TestEngine_MissingWorkflowFailsExecution(t *testing.T) {
	f := newFixture(t)

	execution := &models.WorkflowExecution{
		ID:             "exec-orphan",
		WorkflowID:     "wf-gone",
		OrganizationID: orgID,
		EntityType:     "application",
		EntityID:       "app-1",
		Status:         models.ExecutionStatusPending,
	}
	require.NoError(t, f.store.ExecutionRepository().Save(t.Context(), execution))

	err := f.engine.ExecuteWorkflow(t.Context(), execution.ID)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	stored, err := f.engine.GetExecution(t.Context(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
}

func TestEngine_DelayedActionResumesThroughStepScheduler(t *testing.T) {
	f := newFixture(t)
	f.tags.On("AddTag", mock.Anything, "application", "app-1", "screened").Return(nil)
	f.tasks.On("CreateTask", mock.Anything, mock.Anything).Return(nil)

	f.saveWorkflow(t, &models.Workflow{
		ID:   "wf-1",
		Name: "Follow up later",
		Actions: []models.WorkflowAction{
			{Type: models.ActionAddTag, Config: map[string]any{"tag": "screened"}},
			{Type: models.ActionCreateTask, Config: map[string]any{"title": "Follow up"}, DelayMinutes: 60},
		},
	})

	executions := f.trigger(t, nil)
	require.Len(t, executions, 1)
	id := executions[0].ID

	require.NoError(t, f.engine.ExecuteWorkflow(t.Context(), id))

	execution, err := f.engine.GetExecution(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
	assert.Len(t, execution.Steps, 1)
	assert.Equal(t, 1, execution.NextStep)
	f.tasks.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)

	steps := workflow.NewStepScheduler(f.store.ScheduledStepRepository(), f.engine, slog.Default())

	resumed, err := steps.RunOnceAt(t.Context(), f.clock().Add(59*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, resumed)

	f.advance(61 * time.Minute)

	resumed, err = steps.RunOnceAt(t.Context(), f.clock())
	require.NoError(t, err)
	assert.Equal(t, 1, resumed)

	execution, err = f.engine.GetExecution(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Len(t, execution.Steps, 2)
	f.tasks.AssertNumberOfCalls(t, "CreateTask", 1)

	resumed, err = steps.RunOnceAt(t.Context(), f.clock())
	require.NoError(t, err)
	assert.Equal(t, 0, resumed)
}

func TestEngine_ResumeStepIgnoresStaleIndex(t *testing.T) {
	f := newFixture(t)

	execution := &models.WorkflowExecution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusRunning,
		NextStep:   2,
	}
	require.NoError(t, f.store.ExecutionRepository().Save(t.Context(), execution))

	require.NoError(t, f.engine.ResumeStep(t.Context(), "exec-1", 1))

	stored, err := f.engine.GetExecution(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, stored.Status)
}

func TestEngine_CancelExecution(t *testing.T) {
	f := newFixture(t)
	f.tags.On("AddTag", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f.saveWorkflow(t, &models.Workflow{
		ID:   "wf-1",
		Name: "Delayed",
		Actions: []models.WorkflowAction{
			{Type: models.ActionAddTag, Config: map[string]any{"tag": "later"}, DelayMinutes: 5},
		},
	})

	executions := f.trigger(t, nil)
	require.Len(t, executions, 1)
	id := executions[0].ID

	require.NoError(t, f.engine.ExecuteWorkflow(t.Context(), id))

	cancelled, err := f.engine.CancelExecution(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, cancelled.Status)

	due, err := f.store.ScheduledStepRepository().Due(t.Context(), f.clock().Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, f.engine.ResumeStep(t.Context(), id, 0))
	f.tags.AssertNotCalled(t, "AddTag", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	_, err = f.engine.CancelExecution(t.Context(), id)
	require.ErrorIs(t, err, workflow.ErrExecutionFinished)

	_, err = f.engine.CancelExecution(t.Context(), "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestEngine_GetExecutionsForEntity(t *testing.T) {
	f := newFixture(t)

	f.saveWorkflow(t, &models.Workflow{
		ID:      "wf-1",
		Name:    "One",
		Actions: []models.WorkflowAction{{Type: models.ActionAddTag, Config: map[string]any{"tag": "a"}}},
	})
	f.saveWorkflow(t, &models.Workflow{
		ID:      "wf-2",
		Name:    "Two",
		Actions: []models.WorkflowAction{{Type: models.ActionAddTag, Config: map[string]any{"tag": "b"}}},
	})

	f.trigger(t, nil)

	executions, err := f.engine.GetExecutionsForEntity(t.Context(), "application", "app-1")
	require.NoError(t, err)
	assert.Len(t, executions, 2)

	executions, err = f.engine.GetExecutionsForEntity(t.Context(), "application", "app-2")
	require.NoError(t, err)
	assert.Empty(t, executions)
}

func TestEngine_RecoverRedispatchesPending(t *testing.T) {
	f := newFixture(t)

	f.saveWorkflow(t, &models.Workflow{
		ID:      "wf-1",
		Name:    "One",
		Actions: []models.WorkflowAction{{Type: models.ActionAddTag, Config: map[string]any{"tag": "a"}}},
	})

	executions := f.trigger(t, nil)
	require.Len(t, executions, 1)

	recovered, err := f.engine.Recover(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)
	assert.Equal(t, []string{executions[0].ID, executions[0].ID}, f.dispatched)
}

type failingExecutions struct {
	persistence.ExecutionRepository
	failOnSave int
	saves      int
}

func (r *failingExecutions) write() error {
	r.saves++
	if r.saves == r.failOnSave {
		return errors.New("database unavailable")
	}

	return nil
}

func (r *failingExecutions) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	if err := r.write(); err != nil {
		return err
	}

	return r.ExecutionRepository.Save(ctx, execution)
}

func (r *failingExecutions) Transition(
	ctx context.Context,
	execution *models.WorkflowExecution,
	from models.ExecutionStatus,
) (bool, error) {
	if err := r.write(); err != nil {
		return false, err
	}

	return r.ExecutionRepository.Transition(ctx, execution, from)
}

type failingStore struct {
	*memory.Persistence
	executions persistence.ExecutionRepository
}

func (s *failingStore) ExecutionRepository() persistence.ExecutionRepository {
	return s.executions
}

func TestEngine_PersistenceFailureMarksExecutionFailed(t *testing.T) {
	base := memory.NewPersistence()
	store := &failingStore{
		Persistence: base,
		// 1: create, 2: running, 3: first step
		executions: &failingExecutions{ExecutionRepository: base.ExecutionRepository(), failOnSave: 3},
	}

	tags := &mocks.MockTagMutator{}
	tags.On("AddTag", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(tag.NewAddActionFactory(tags))

	engine := workflow.NewEngine(store, reg, slog.Default(),
		workflow.WithDispatcher(workflow.DispatchFunc(func(context.Context, *models.WorkflowExecution) error {
			return nil
		})))

	require.NoError(t, base.WorkflowRepository().Save(t.Context(), &models.Workflow{
		ID:             "wf-1",
		OrganizationID: orgID,
		Name:           "Tag",
		TriggerType:    models.TriggerApplicationCreated,
		Active:         true,
		Actions:        []models.WorkflowAction{{Type: models.ActionAddTag, Config: map[string]any{"tag": "a"}}},
	}))

	executions, err := engine.TriggerWorkflows(t.Context(), orgID, models.TriggerApplicationCreated, "application", "app-1", nil)
	require.NoError(t, err)
	require.Len(t, executions, 1)

	err = engine.ExecuteWorkflow(t.Context(), executions[0].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")

	stored, err := engine.GetExecution(t.Context(), executions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "database unavailable")
}

func TestTriggerHandler(t *testing.T) {
	f := newFixture(t)

	f.saveWorkflow(t, &models.Workflow{
		ID:      "wf-1",
		Name:    "Tag",
		Actions: []models.WorkflowAction{{Type: models.ActionAddTag, Config: map[string]any{"tag": "seen"}}},
	})

	handler := workflow.TriggerHandler(f.engine)

	err := handler(t.Context(), events.NewTriggerReceived(orgID,
		string(models.TriggerApplicationStageChanged), "application", "app-1", nil))
	require.NoError(t, err)
	assert.Len(t, f.dispatched, 1)

	err = handler(t.Context(), events.NewTriggerReceived("", string(models.TriggerApplicationStageChanged), "application", "app-1", nil))
	require.ErrorIs(t, err, events.ErrMissingOrganization)

	err = handler(t.Context(), &events.WorkflowExecutionRequested{})
	require.Error(t, err)
	assert.Len(t, f.dispatched, 1)
}

func TestEngine_RendersActionConfigFromTrigger(t *testing.T) {
	f := newFixture(t)
	f.tasks.On("CreateTask", mock.Anything, mock.MatchedBy(func(task protocol.Task) bool {
		return task.Title == "Schedule interview with Ada"
	})).Return(nil)

	f.saveWorkflow(t, &models.Workflow{
		ID:   "wf-1",
		Name: "Interview task",
		Actions: []models.WorkflowAction{
			{Type: models.ActionCreateTask, Config: map[string]any{"title": "Schedule {{ .trigger.to_stage }} with {{ .trigger.candidate_name }}"}},
		},
	})

	executions := f.trigger(t, map[string]any{"to_stage": "interview", "candidate_name": "Ada"})
	require.Len(t, executions, 1)

	require.NoError(t, f.engine.ExecuteWorkflow(t.Context(), executions[0].ID))

	execution, err := f.engine.GetExecution(t.Context(), executions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	f.tasks.AssertExpectations(t)
}

// slowExecutions widens the window between reading an execution and writing
// it back.
type slowExecutions struct {
	persistence.ExecutionRepository
	latency time.Duration
}

func (r *slowExecutions) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	time.Sleep(r.latency)

	return r.ExecutionRepository.GetByID(ctx, id)
}

func TestEngine_ConcurrentExecuteRunsActionsOnce(t *testing.T) {
	base := memory.NewPersistence()
	store := &failingStore{
		Persistence: base,
		executions:  &slowExecutions{ExecutionRepository: base.ExecutionRepository(), latency: 5 * time.Millisecond},
	}

	tags := &mocks.MockTagMutator{}
	tags.On("AddTag", mock.Anything, "application", "app-1", "screened").Return(nil)

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(tag.NewAddActionFactory(tags))

	engine := workflow.NewEngine(store, reg, slog.Default(),
		workflow.WithDispatcher(workflow.DispatchFunc(func(context.Context, *models.WorkflowExecution) error {
			return nil
		})))

	require.NoError(t, base.WorkflowRepository().Save(t.Context(), &models.Workflow{
		ID:             "wf-1",
		OrganizationID: orgID,
		Name:           "Tag",
		TriggerType:    models.TriggerApplicationCreated,
		Active:         true,
		Actions:        []models.WorkflowAction{{Type: models.ActionAddTag, Config: map[string]any{"tag": "screened"}}},
	}))

	executions, err := engine.TriggerWorkflows(t.Context(), orgID, models.TriggerApplicationCreated, "application", "app-1", nil)
	require.NoError(t, err)
	require.Len(t, executions, 1)

	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, engine.ExecuteWorkflow(t.Context(), executions[0].ID))
		}()
	}

	wg.Wait()

	tags.AssertNumberOfCalls(t, "AddTag", 1)

	stored, err := engine.GetExecution(t.Context(), executions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	assert.Len(t, stored.Steps, 1)
}

func TestEngine_CancelDuringActionDiscardsOutcome(t *testing.T) {
	f := newFixture(t)

	f.saveWorkflow(t, &models.Workflow{
		ID:   "wf-1",
		Name: "Two tags",
		Actions: []models.WorkflowAction{
			{Type: models.ActionAddTag, Config: map[string]any{"tag": "first"}},
			{Type: models.ActionAddTag, Config: map[string]any{"tag": "second"}},
		},
	})

	executions := f.trigger(t, nil)
	require.Len(t, executions, 1)
	id := executions[0].ID

	f.tags.On("AddTag", mock.Anything, "application", "app-1", "first").Return(nil).Run(func(mock.Arguments) {
		_, err := f.engine.CancelExecution(t.Context(), id)
		assert.NoError(t, err)
	})

	require.NoError(t, f.engine.ExecuteWorkflow(t.Context(), id))

	stored, err := f.engine.GetExecution(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, stored.Status)
	assert.Empty(t, stored.Steps)
	f.tags.AssertNotCalled(t, "AddTag", mock.Anything, "application", "app-1", "second")
}

// contendedExecutions loses every compare-and-set.
type contendedExecutions struct {
	persistence.ExecutionRepository
}

func (contendedExecutions) Transition(context.Context, *models.WorkflowExecution, models.ExecutionStatus) (bool, error) {
	return false, nil
}

func TestEngine_CancelGivesUpUnderContention(t *testing.T) {
	base := memory.NewPersistence()
	store := &failingStore{
		Persistence: base,
		executions:  contendedExecutions{ExecutionRepository: base.ExecutionRepository()},
	}

	require.NoError(t, base.ExecutionRepository().Save(t.Context(), &models.WorkflowExecution{
		ID:     "exec-1",
		Status: models.ExecutionStatusRunning,
	}))

	engine := workflow.NewEngine(store, registry.NewRegistry(slog.Default()), slog.Default())

	_, err := engine.CancelExecution(t.Context(), "exec-1")
	require.ErrorIs(t, err, workflow.ErrConcurrentUpdate)
}

// flakyResumer fails its first calls, like a worker that loses its database
// connection mid-resume.
type flakyResumer struct {
	next     workflow.StepResumer
	failures int
}

func (r *flakyResumer) ResumeStep(ctx context.Context, executionID string, stepIndex int) error {
	if r.failures > 0 {
		r.failures--

		return errors.New("connection reset")
	}

	return r.next.ResumeStep(ctx, executionID, stepIndex)
}

func (f *fixture) saveFollowUp(t *testing.T) string {
	t.Helper()

	f.tags.On("AddTag", mock.Anything, "application", "app-1", "screened").Return(nil)
	f.tasks.On("CreateTask", mock.Anything, mock.Anything).Return(nil)

	f.saveWorkflow(t, &models.Workflow{
		ID:   "wf-1",
		Name: "Follow up later",
		Actions: []models.WorkflowAction{
			{Type: models.ActionAddTag, Config: map[string]any{"tag": "screened"}},
			{Type: models.ActionCreateTask, Config: map[string]any{"title": "Follow up"}, DelayMinutes: 5},
		},
	})

	executions := f.trigger(t, nil)
	require.Len(t, executions, 1)

	require.NoError(t, f.engine.ExecuteWorkflow(t.Context(), executions[0].ID))

	return executions[0].ID
}

func TestStepScheduler_FailedResumeIsRetriedAfterLease(t *testing.T) {
	f := newFixture(t)
	id := f.saveFollowUp(t)

	steps := workflow.NewStepScheduler(f.store.ScheduledStepRepository(),
		&flakyResumer{next: f.engine, failures: 1}, slog.Default(),
		workflow.WithStepLease(10*time.Minute))

	f.advance(5 * time.Minute)

	submitted, err := steps.RunOnceAt(t.Context(), f.clock())
	require.NoError(t, err)
	assert.Equal(t, 1, submitted)

	execution, err := f.engine.GetExecution(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
	f.tasks.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)

	submitted, err = steps.RunOnceAt(t.Context(), f.clock().Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, submitted, "the failed step is still leased")

	f.advance(10 * time.Minute)

	submitted, err = steps.RunOnceAt(t.Context(), f.clock())
	require.NoError(t, err)
	assert.Equal(t, 1, submitted)

	execution, err = f.engine.GetExecution(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	f.tasks.AssertNumberOfCalls(t, "CreateTask", 1)

	submitted, err = steps.RunOnceAt(t.Context(), f.clock().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, submitted)
}

func TestStepScheduler_RejectedSubmitReleasesClaim(t *testing.T) {
	f := newFixture(t)
	id := f.saveFollowUp(t)

	rejecting := workflow.NewStepScheduler(f.store.ScheduledStepRepository(), f.engine, slog.Default(),
		workflow.WithSubmitter(func(context.Context, string, func(context.Context) error) error {
			return workflow.ErrQueueFull
		}))

	f.advance(5 * time.Minute)

	submitted, err := rejecting.RunOnceAt(t.Context(), f.clock())
	require.NoError(t, err)
	assert.Equal(t, 0, submitted)

	due, err := f.store.ScheduledStepRepository().Due(t.Context(), f.clock(), 0)
	require.NoError(t, err)
	require.Len(t, due, 1, "the step is due again right away")
	assert.Equal(t, id, due[0].ExecutionID)

	pool := workflow.NewPool(1, 1, slog.Default())
	pool.Start(t.Context(), f.engine.ExecuteWorkflow)

	done := make(chan error, 1)
	steps := workflow.NewStepScheduler(f.store.ScheduledStepRepository(), f.engine, slog.Default(),
		workflow.WithSubmitter(func(ctx context.Context, executionID string, run func(context.Context) error) error {
			return pool.Submit(ctx, executionID, func(ctx context.Context) error {
				err := run(ctx)
				done <- err

				return err
			})
		}))

	submitted, err = steps.RunOnceAt(t.Context(), f.clock())
	require.NoError(t, err)
	assert.Equal(t, 1, submitted)

	require.NoError(t, <-done)
	require.NoError(t, pool.Stop(t.Context()))

	execution, err := f.engine.GetExecution(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
}

func TestEngine_RecoverReschedulesRunningWithoutStep(t *testing.T) {
	f := newFixture(t)
	id := f.saveFollowUp(t)

	// lose the scheduled step, leaving a running execution nothing resumes
	deleted, err := f.store.ScheduledStepRepository().Delete(t.Context(), id, 1)
	require.NoError(t, err)
	require.True(t, deleted)

	recovered, err := f.engine.Recover(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	recovered, err = f.engine.Recover(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, recovered, "a step already exists")

	steps := workflow.NewStepScheduler(f.store.ScheduledStepRepository(), f.engine, slog.Default())

	submitted, err := steps.RunOnceAt(t.Context(), f.clock().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, submitted)

	f.advance(workflow.DefaultStepLease)

	submitted, err = steps.RunOnceAt(t.Context(), f.clock())
	require.NoError(t, err)
	assert.Equal(t, 1, submitted)

	execution, err := f.engine.GetExecution(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Len(t, execution.Steps, 2)
	f.tasks.AssertNumberOfCalls(t, "CreateTask", 1)
}
