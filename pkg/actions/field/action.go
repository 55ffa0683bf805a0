// Package field implements the update_field workflow action.
package field

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atsflow/atsflow/pkg/actions"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
)

type ActionFactory struct {
	updater protocol.FieldUpdater
}

func NewActionFactory(updater protocol.FieldUpdater) *ActionFactory {
	return &ActionFactory{updater: updater}
}

func (*ActionFactory) ID() string {
	return string(models.ActionUpdateField)
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	field, err := actions.RequireString(config, "field")
	if err != nil {
		return nil, err
	}

	return &Action{updater: f.updater, config: config, field: field, value: config["value"]}, nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field": map[string]any{
				"type":        "string",
				"description": "Name of the field to set on the entity",
				"minLength":   1,
			},
			"value": map[string]any{
				"description": "New value; any JSON type",
			},
		},
		"required": []string{"field"},
	}
}

type Action struct {
	updater protocol.FieldUpdater
	config  map[string]any
	field   string
	value   any
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	logger.DebugContext(ctx, "Updating field", "field", a.field)

	if err := a.updater.UpdateField(ctx, input.EntityType, input.EntityID, a.field, a.value); err != nil {
		return nil, fmt.Errorf("updating field %s: %w", a.field, err)
	}

	return actions.Result(a.config), nil
}
