// Package email implements the send_email workflow action.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/atsflow/atsflow/pkg/actions"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
)

type ActionFactory struct {
	sender protocol.EmailSender
}

func NewActionFactory(sender protocol.EmailSender) *ActionFactory {
	return &ActionFactory{sender: sender}
}

func (*ActionFactory) ID() string {
	return string(models.ActionSendEmail)
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	templateID, err := actions.RequireString(config, "templateId")
	if err != nil {
		return nil, err
	}

	return &Action{
		sender:      f.sender,
		config:      config,
		templateID:  templateID,
		recipientID: actions.String(config, "recipientId"),
	}, nil
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"templateId": map[string]any{
				"type":        "string",
				"description": "Email template to render",
				"minLength":   1,
			},
			"recipientId": map[string]any{
				"type":        "string",
				"description": "Recipient; defaults to the candidate of the triggering event",
			},
		},
		"required": []string{"templateId"},
	}
}

type Action struct {
	sender      protocol.EmailSender
	config      map[string]any
	templateID  string
	recipientID string
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	recipientID := a.recipientID
	if recipientID == "" {
		recipientID, _ = input.TriggerData["candidateId"].(string)
	}

	if recipientID == "" {
		return nil, fmt.Errorf("%w: recipientId", actions.ErrMissingConfig)
	}

	payload := make(map[string]any, len(input.TriggerData)+2)
	maps.Copy(payload, input.TriggerData)
	payload["entityType"] = input.EntityType
	payload["entityId"] = input.EntityID

	logger.DebugContext(ctx, "Sending workflow email", "template_id", a.templateID, "recipient_id", recipientID)

	if err := a.sender.SendWorkflowEmail(ctx, a.templateID, recipientID, payload); err != nil {
		return nil, fmt.Errorf("sending email %s: %w", a.templateID, err)
	}

	result := actions.Result(a.config)
	result["recipientId"] = recipientID

	return result, nil
}
