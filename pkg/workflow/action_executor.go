package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/atsflow/atsflow/pkg/registry"
	"github.com/atsflow/atsflow/pkg/template"
)

const DefaultActionTimeout = 30 * time.Second

// ActionExecutor runs a single workflow action through the registry. It holds
// no per-execution state.
type ActionExecutor struct {
	registry *registry.Registry
	logger   *slog.Logger
	timeout  time.Duration
}

func NewActionExecutor(reg *registry.Registry, logger *slog.Logger, timeout time.Duration) *ActionExecutor {
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}

	return &ActionExecutor{
		registry: reg,
		logger:   logger.With("module", "action_executor"),
		timeout:  timeout,
	}
}

// Execute renders the action config against the trigger and dispatches it by
// type. Unknown types fail with
// registry.ErrUnknownActionType; a panicking action is reported as
// ErrActionPanicked.
func (e *ActionExecutor) Execute(
	ctx context.Context,
	action models.WorkflowAction,
	entityType, entityID string,
	triggerData map[string]any,
) (result map[string]any, err error) {
	logger := e.logger.With("action_type", action.Type, "entity_type", entityType, "entity_id", entityID)

	config, err := template.RenderConfig(action.Config, template.Data{
		EntityType:  entityType,
		EntityID:    entityID,
		TriggerData: triggerData,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering %s config: %w", action.Type, err)
	}

	instance, err := e.registry.CreateAction(string(action.Type), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Action panicked", "panic", r)

			result = nil
			err = fmt.Errorf("%w: %v", ErrActionPanicked, r)
		}
	}()

	result, err = instance.Execute(ctx, protocol.ActionInput{
		EntityType:  entityType,
		EntityID:    entityID,
		TriggerData: triggerData,
	}, logger)
	if err != nil {
		return nil, err
	}

	return result, nil
}
