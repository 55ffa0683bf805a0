package services_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/atsflow/atsflow/pkg/actions/tag"
	"github.com/atsflow/atsflow/pkg/mocks"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/persistence/memory"
	"github.com/atsflow/atsflow/pkg/registry"
	"github.com/atsflow/atsflow/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newWorkflowService(t *testing.T) *services.Workflow {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(tag.NewAddActionFactory(&mocks.MockTagMutator{}))

	return services.NewWorkflow(memory.NewPersistence(), reg)
}

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		OrganizationID: "org-1",
		Name:           "Tag new applications",
		TriggerType:    models.TriggerApplicationCreated,
		Actions: []models.WorkflowAction{
			{Type: models.ActionAddTag, Config: map[string]any{"tag": "new"}},
		},
		Active: true,
	}
}

func TestWorkflow_Create(t *testing.T) {
	service := newWorkflowService(t)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tag new applications", fetched.Name)
}

func TestWorkflow_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(w *models.Workflow)
		target error
	}{
		{
			name:   "short name",
			modify: func(w *models.Workflow) { w.Name = "x" },
			target: services.ErrInvalidRequest,
		},
		{
			name:   "no actions",
			modify: func(w *models.Workflow) { w.Actions = nil },
			target: services.ErrInvalidRequest,
		},
		{
			name:   "unknown trigger",
			modify: func(w *models.Workflow) { w.TriggerType = "job_posted" },
			target: services.ErrInvalidTriggerType,
		},
		{
			name: "unknown operator",
			modify: func(w *models.Workflow) {
				w.Conditions = []models.Condition{{Field: "a", Operator: "matches", Value: "x"}}
			},
			target: services.ErrInvalidCondition,
		},
		{
			name: "unknown action type",
			modify: func(w *models.Workflow) {
				w.Actions = []models.WorkflowAction{{Type: "send_fax"}}
			},
			target: services.ErrInvalidAction,
		},
		{
			name: "action config fails schema",
			modify: func(w *models.Workflow) {
				w.Actions = []models.WorkflowAction{{Type: models.ActionAddTag, Config: map[string]any{}}}
			},
			target: services.ErrInvalidAction,
		},
		{
			name: "negative delay",
			modify: func(w *models.Workflow) {
				w.Actions[0].DelayMinutes = -5
			},
			target: services.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newWorkflowService(t)

			workflow := validWorkflow()
			tt.modify(workflow)

			_, err := service.Create(t.Context(), workflow)
			require.ErrorIs(t, err, tt.target)
			assert.True(t, services.IsValidationError(err))
		})
	}
}

func TestWorkflow_UpdateKeepsIdentity(t *testing.T) {
	service := newWorkflowService(t)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	replacement := validWorkflow()
	replacement.OrganizationID = ""
	replacement.Name = "Renamed workflow"

	updated, err := service.Update(t.Context(), created.ID, replacement)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "org-1", updated.OrganizationID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	moved := validWorkflow()
	moved.OrganizationID = "org-2"

	_, err = service.Update(t.Context(), created.ID, moved)
	require.ErrorIs(t, err, services.ErrOrganizationMismatch)
	assert.True(t, services.IsConflictError(err))

	_, err = service.Update(t.Context(), "missing", validWorkflow())
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflow_ListAndDelete(t *testing.T) {
	service := newWorkflowService(t)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	other := validWorkflow()
	other.OrganizationID = "org-2"
	_, err = service.Create(t.Context(), other)
	require.NoError(t, err)

	workflows, err := service.List(t.Context(), "org-1")
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, created.ID, workflows[0].ID)

	_, err = service.List(t.Context(), "")
	require.ErrorIs(t, err, services.ErrInvalidRequest)

	require.NoError(t, service.Delete(t.Context(), created.ID))
	assert.True(t, persistence.IsWorkflowNotFound(service.Delete(t.Context(), created.ID)))
}

func TestWorkflow_Activation(t *testing.T) {
	service := newWorkflowService(t)

	workflow := validWorkflow()
	workflow.Active = false

	created, err := service.Create(t.Context(), workflow)
	require.NoError(t, err)

	activated, err := service.Activate(t.Context(), created.ID)
	require.NoError(t, err)
	assert.True(t, activated.Active)

	deactivated, err := service.Deactivate(t.Context(), created.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	_, err = service.Activate(t.Context(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflow_HealthCheck(t *testing.T) {
	service := newWorkflowService(t)

	message, ok := service.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)
}

func TestWorkflow_RepositoryFailures(t *testing.T) {
	store := mocks.NewMockPersistence()
	repoErr := errors.New("connection reset")

	store.On("HealthCheck", mock.Anything).Return(repoErr)
	store.GetMockWorkflowRepository().On("List", mock.Anything, "org-1").Return(nil, repoErr)
	store.GetMockWorkflowRepository().On("Save", mock.Anything, mock.Anything).Return(repoErr)

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(tag.NewAddActionFactory(&mocks.MockTagMutator{}))

	service := services.NewWorkflow(store, reg)

	message, ok := service.HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Contains(t, message, "connection reset")

	_, err := service.List(t.Context(), "org-1")
	require.ErrorIs(t, err, repoErr)
	assert.False(t, services.IsValidationError(err))

	_, err = service.Create(t.Context(), validWorkflow())
	require.ErrorIs(t, err, repoErr)

	store.AssertExpectations(t)
	store.GetMockWorkflowRepository().AssertExpectations(t)
}
