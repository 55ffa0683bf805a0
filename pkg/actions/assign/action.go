// Package assign implements the assign_user workflow action.
package assign

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atsflow/atsflow/pkg/actions"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
)

const defaultRole = "recruiter"

type ActionFactory struct {
	assigner protocol.UserAssigner
}

func NewActionFactory(assigner protocol.UserAssigner) *ActionFactory {
	return &ActionFactory{assigner: assigner}
}

func (*ActionFactory) ID() string {
	return string(models.ActionAssignUser)
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	userID, err := actions.RequireString(config, "userId")
	if err != nil {
		return nil, err
	}

	role := actions.String(config, "role")
	if role == "" {
		role = defaultRole
	}

	return &Action{assigner: f.assigner, config: config, userID: userID, role: role}, nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"userId": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"role": map[string]any{
				"type":    "string",
				"default": defaultRole,
				"enum":    []string{"recruiter", "hiring_manager", "coordinator", "interviewer"},
			},
		},
		"required": []string{"userId"},
	}
}

type Action struct {
	assigner protocol.UserAssigner
	config   map[string]any
	userID   string
	role     string
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	logger.DebugContext(ctx, "Assigning user", "user_id", a.userID, "role", a.role)

	if err := a.assigner.AssignUser(ctx, input.EntityType, input.EntityID, a.userID, a.role); err != nil {
		return nil, fmt.Errorf("assigning %s as %s: %w", a.userID, a.role, err)
	}

	result := actions.Result(a.config)
	result["role"] = a.role

	return result, nil
}
