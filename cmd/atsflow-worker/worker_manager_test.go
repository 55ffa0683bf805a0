package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/atsflow/atsflow/pkg/cmd"
	"github.com/atsflow/atsflow/pkg/events"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *cmd.Runtime {
	t.Helper()

	rt, err := cmd.NewRuntime(t.Context(), slog.Default(), cmd.RuntimeConfig{
		ServiceName: "atsflow-worker-test",
		DatabaseURL: "memory://",
		EventBus:    cmd.EventBusConfig{Provider: "gochannel"},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := rt.Close(context.Background()); err != nil {
			t.Logf("Failed to close runtime: %v", err)
		}
	})

	return rt
}

func TestWorkerManager_ExecutesTriggeredWorkflows(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Persistence.WorkflowRepository().Save(t.Context(), &models.Workflow{
		ID:             "wf-1",
		OrganizationID: "org-1",
		Name:           "Tag new applications",
		TriggerType:    models.TriggerApplicationCreated,
		Actions: []models.WorkflowAction{
			{Type: models.ActionAddTag, Config: map[string]any{"tag": "new"}},
		},
		Active: true,
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	worker := NewWorkerManager("worker-test", rt, workflow.NewPool(2, 10, slog.Default()), Schedules{}, slog.Default())
	require.NoError(t, worker.setup(ctx))

	err := rt.EventBus.Publish(ctx, "app-1", events.NewTriggerReceived(
		"org-1", string(models.TriggerApplicationCreated), "application", "app-1", nil))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		executions, err := rt.Engine.GetExecutionsForEntity(ctx, "application", "app-1")
		if err != nil || len(executions) != 1 {
			return false
		}

		return executions[0].Status == models.ExecutionStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, worker.shutdown(context.Background()))
}

func TestWorkerManager_RejectsInvalidSchedule(t *testing.T) {
	rt := newTestRuntime(t)

	worker := NewWorkerManager("worker-test", rt, workflow.NewPool(1, 1, slog.Default()),
		Schedules{Compliance: "every now and then"}, slog.Default())

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.Error(t, worker.setup(ctx))

	cancel()
	require.NoError(t, worker.shutdown(context.Background()))
}

func TestRunScans(t *testing.T) {
	rt := newTestRuntime(t)

	reports, err := runScans(t.Context(), rt.Monitor, "all")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "compliance", reports[0].Scan)
	assert.Equal(t, "escalation", reports[1].Scan)

	_, err = runScans(t.Context(), rt.Monitor, "weekly")
	require.ErrorIs(t, err, errUnknownScan)
}
