package protocol

import (
	"context"
	"log/slog"
)

// ActionInput is what a workflow action sees of the triggering event.
type ActionInput struct {
	EntityType  string
	EntityID    string
	TriggerData map[string]any
}

type Action interface {
	Execute(ctx context.Context, input ActionInput, logger *slog.Logger) (map[string]any, error)
}

type ActionFactory interface {
	ID() string
	Create(config map[string]any) (Action, error)
	// Schema returns the JSON schema that action configs must satisfy.
	Schema() map[string]any
}
