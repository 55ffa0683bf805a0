// Package tag implements the add_tag and remove_tag workflow actions.
package tag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atsflow/atsflow/pkg/actions"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
)

type ActionFactory struct {
	mutator protocol.TagMutator
	remove  bool
}

func NewAddActionFactory(mutator protocol.TagMutator) *ActionFactory {
	return &ActionFactory{mutator: mutator}
}

func NewRemoveActionFactory(mutator protocol.TagMutator) *ActionFactory {
	return &ActionFactory{mutator: mutator, remove: true}
}

func (f *ActionFactory) ID() string {
	if f.remove {
		return string(models.ActionRemoveTag)
	}

	return string(models.ActionAddTag)
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	tag, err := actions.RequireString(config, "tag")
	if err != nil {
		return nil, err
	}

	return &Action{mutator: f.mutator, remove: f.remove, config: config, tag: tag}, nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tag": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
		},
		"required": []string{"tag"},
	}
}

type Action struct {
	mutator protocol.TagMutator
	remove  bool
	config  map[string]any
	tag     string
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	var err error
	if a.remove {
		logger.DebugContext(ctx, "Removing tag", "tag", a.tag)
		err = a.mutator.RemoveTag(ctx, input.EntityType, input.EntityID, a.tag)
	} else {
		logger.DebugContext(ctx, "Adding tag", "tag", a.tag)
		err = a.mutator.AddTag(ctx, input.EntityType, input.EntityID, a.tag)
	}

	if err != nil {
		return nil, fmt.Errorf("updating tag %q on %s %s: %w", a.tag, input.EntityType, input.EntityID, err)
	}

	return actions.Result(a.config), nil
}
