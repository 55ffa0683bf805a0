// Package notification implements the send_notification workflow action.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atsflow/atsflow/pkg/actions"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
)

var ErrNoRecipients = errors.New("notification has no recipients")

type ActionFactory struct {
	notifier protocol.Notifier
}

func NewActionFactory(notifier protocol.Notifier) *ActionFactory {
	return &ActionFactory{notifier: notifier}
}

func (*ActionFactory) ID() string {
	return string(models.ActionSendNotification)
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	message, err := actions.RequireString(config, "message")
	if err != nil {
		return nil, err
	}

	userIDs := actions.Strings(config, "userIds")
	if len(userIDs) == 0 {
		return nil, ErrNoRecipients
	}

	return &Action{
		notifier: f.notifier,
		config:   config,
		userIDs:  userIDs,
		title:    actions.String(config, "title"),
		message:  message,
	}, nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"userIds": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
			},
			"title": map[string]any{
				"type": "string",
			},
			"message": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
		},
		"required": []string{"userIds", "message"},
	}
}

type Action struct {
	notifier protocol.Notifier
	config   map[string]any
	userIDs  []string
	title    string
	message  string
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	logger.DebugContext(ctx, "Sending notification", "recipients", len(a.userIDs))

	err := a.notifier.Notify(ctx, protocol.Notification{
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		UserIDs:    a.userIDs,
		Title:      a.title,
		Message:    a.message,
	})
	if err != nil {
		return nil, fmt.Errorf("sending notification: %w", err)
	}

	return actions.Result(a.config), nil
}
