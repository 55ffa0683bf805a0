// Package stage implements the move_stage workflow action.
package stage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atsflow/atsflow/pkg/actions"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
)

type ActionFactory struct {
	mover protocol.StageMover
}

func NewActionFactory(mover protocol.StageMover) *ActionFactory {
	return &ActionFactory{mover: mover}
}

func (*ActionFactory) ID() string {
	return string(models.ActionMoveStage)
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	stageID, err := actions.RequireString(config, "stageId")
	if err != nil {
		return nil, err
	}

	return &Action{mover: f.mover, config: config, stageID: stageID}, nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stageId": map[string]any{
				"type":        "string",
				"description": "Pipeline stage the application moves to",
				"minLength":   1,
			},
		},
		"required": []string{"stageId"},
	}
}

// Action moves the triggering application to another pipeline stage.
type Action struct {
	mover   protocol.StageMover
	config  map[string]any
	stageID string
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	logger.DebugContext(ctx, "Moving application stage", "application_id", input.EntityID, "stage_id", a.stageID)

	if err := a.mover.MoveStage(ctx, input.EntityID, a.stageID); err != nil {
		return nil, fmt.Errorf("moving %s to stage %s: %w", input.EntityID, a.stageID, err)
	}

	return actions.Result(a.config), nil
}
