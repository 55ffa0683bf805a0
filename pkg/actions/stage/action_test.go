package stage

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/atsflow/atsflow/pkg/mocks"
	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAction_Execute(t *testing.T) {
	mover := &mocks.MockStageMover{}
	mover.On("MoveStage", mock.Anything, "app-1", "stage-offer").Return(nil)
	mover.On("MoveStage", mock.Anything, "app-2", "stage-offer").Return(errors.New("locked"))

	action, err := NewActionFactory(mover).Create(map[string]any{"stageId": "stage-offer"})
	require.NoError(t, err)

	result, err := action.Execute(t.Context(), protocol.ActionInput{EntityType: "application", EntityID: "app-1"}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"stageId": "stage-offer", "success": true}, result)

	_, err = action.Execute(t.Context(), protocol.ActionInput{EntityType: "application", EntityID: "app-2"}, slog.Default())
	require.Error(t, err)

	mover.AssertExpectations(t)
}

func TestActionFactory_Create_MissingStage(t *testing.T) {
	_, err := NewActionFactory(&mocks.MockStageMover{}).Create(map[string]any{})
	require.Error(t, err)
}
