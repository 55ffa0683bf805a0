// Package task implements the create_task workflow action.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atsflow/atsflow/pkg/actions"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
)

type ActionFactory struct {
	creator protocol.TaskCreator
	now     func() time.Time
}

func NewActionFactory(creator protocol.TaskCreator) *ActionFactory {
	return &ActionFactory{creator: creator, now: time.Now}
}

func (*ActionFactory) ID() string {
	return string(models.ActionCreateTask)
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	title, err := actions.RequireString(config, "title")
	if err != nil {
		return nil, err
	}

	action := &Action{
		creator:     f.creator,
		now:         f.now,
		config:      config,
		title:       title,
		description: actions.String(config, "description"),
		assigneeID:  actions.String(config, "assigneeId"),
	}

	if hours, ok := actions.Float(config, "dueInHours"); ok {
		if hours < 0 {
			return nil, fmt.Errorf("dueInHours must not be negative, got %v", hours)
		}

		action.dueIn = models.HoursToDuration(hours)
	}

	return action, nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"description": map[string]any{
				"type": "string",
			},
			"assigneeId": map[string]any{
				"type": "string",
			},
			"dueInHours": map[string]any{
				"type":    "number",
				"minimum": 0,
			},
		},
		"required": []string{"title"},
	}
}

type Action struct {
	creator     protocol.TaskCreator
	now         func() time.Time
	config      map[string]any
	title       string
	description string
	assigneeID  string
	dueIn       time.Duration
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	task := protocol.Task{
		EntityType:  input.EntityType,
		EntityID:    input.EntityID,
		Title:       a.title,
		Description: a.description,
		AssigneeID:  a.assigneeID,
	}

	if a.dueIn > 0 {
		due := a.now().Add(a.dueIn)
		task.DueAt = &due
	}

	logger.DebugContext(ctx, "Creating task", "title", a.title, "assignee_id", a.assigneeID)

	if err := a.creator.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task %q: %w", a.title, err)
	}

	result := actions.Result(a.config)
	if task.DueAt != nil {
		result["dueAt"] = task.DueAt.Format(time.RFC3339)
	}

	return result, nil
}
