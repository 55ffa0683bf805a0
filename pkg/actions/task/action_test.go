package task

import (
	"log/slog"
	"testing"
	"time"

	"github.com/atsflow/atsflow/pkg/mocks"
	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAction_Execute_WithDueDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	creator := &mocks.MockTaskCreator{}
	creator.On("CreateTask", mock.Anything, mock.MatchedBy(func(task protocol.Task) bool {
		return task.Title == "Call candidate" &&
			task.AssigneeID == "rec-1" &&
			task.EntityID == "app-1" &&
			task.DueAt != nil && task.DueAt.Equal(now.Add(24*time.Hour))
	})).Return(nil)

	factory := NewActionFactory(creator)
	factory.now = func() time.Time { return now }

	action, err := factory.Create(map[string]any{
		"title":      "Call candidate",
		"assigneeId": "rec-1",
		"dueInHours": float64(24),
	})
	require.NoError(t, err)

	result, err := action.Execute(t.Context(), protocol.ActionInput{EntityType: "application", EntityID: "app-1"}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "2025-03-11T09:00:00Z", result["dueAt"])
	creator.AssertExpectations(t)
}

func TestActionFactory_Create_Invalid(t *testing.T) {
	factory := NewActionFactory(&mocks.MockTaskCreator{})

	_, err := factory.Create(map[string]any{})
	require.Error(t, err)

	_, err = factory.Create(map[string]any{"title": "x", "dueInHours": -1})
	require.Error(t, err)
}
