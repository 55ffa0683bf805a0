package assign

import (
	"log/slog"
	"testing"

	"github.com/atsflow/atsflow/pkg/mocks"
	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAction_Execute_DefaultRole(t *testing.T) {
	assigner := &mocks.MockUserAssigner{}
	assigner.On("AssignUser", mock.Anything, "application", "app-1", "user-1", "recruiter").Return(nil)

	action, err := NewActionFactory(assigner).Create(map[string]any{"userId": "user-1"})
	require.NoError(t, err)

	result, err := action.Execute(t.Context(), protocol.ActionInput{EntityType: "application", EntityID: "app-1"}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "recruiter", result["role"])
	assigner.AssertExpectations(t)
}

func TestAction_Execute_ExplicitRole(t *testing.T) {
	assigner := &mocks.MockUserAssigner{}
	assigner.On("AssignUser", mock.Anything, "application", "app-1", "user-2", "hiring_manager").Return(nil)

	action, err := NewActionFactory(assigner).Create(map[string]any{"userId": "user-2", "role": "hiring_manager"})
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), protocol.ActionInput{EntityType: "application", EntityID: "app-1"}, slog.Default())
	require.NoError(t, err)
	assigner.AssertExpectations(t)
}
