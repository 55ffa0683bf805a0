package workflow

import (
	"context"
	"fmt"

	"github.com/atsflow/atsflow/pkg/eventbus"
	"github.com/atsflow/atsflow/pkg/events"
	"github.com/atsflow/atsflow/pkg/models"
)

// Dispatcher hands a pending execution to something that will eventually call
// Engine.ExecuteWorkflow. Dispatch must not block on the execution itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, execution *models.WorkflowExecution) error
}

type DispatchFunc func(ctx context.Context, execution *models.WorkflowExecution) error

func (f DispatchFunc) Dispatch(ctx context.Context, execution *models.WorkflowExecution) error {
	return f(ctx, execution)
}

// EventBusDispatcher publishes an execution request for worker processes.
type EventBusDispatcher struct {
	bus eventbus.EventPublisher
}

func NewEventBusDispatcher(bus eventbus.EventPublisher) *EventBusDispatcher {
	return &EventBusDispatcher{bus: bus}
}

func (d *EventBusDispatcher) Dispatch(ctx context.Context, execution *models.WorkflowExecution) error {
	err := d.bus.Publish(ctx, execution.EntityID, &events.WorkflowExecutionRequested{
		BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionRequestedEvent, execution.OrganizationID),
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
	})
	if err != nil {
		return fmt.Errorf("failed to publish execution request %s: %w", execution.ID, err)
	}

	return nil
}

// ExecutionRequestHandler forwards execution requests received from the bus
// to a local dispatcher, usually a Pool. A full pool surfaces as an error so
// the broker redelivers the request later.
func ExecutionRequestHandler(local Dispatcher) eventbus.EventHandler {
	return func(ctx context.Context, event any) error {
		request, ok := event.(*events.WorkflowExecutionRequested)
		if !ok {
			return fmt.Errorf("%w: %T", eventbus.ErrUnknownEventType, event)
		}

		return local.Dispatch(ctx, &models.WorkflowExecution{
			ID:             request.ExecutionID,
			WorkflowID:     request.WorkflowID,
			OrganizationID: request.OrganizationID,
		})
	}
}

// TriggerHandler feeds trigger events from the bus into the engine. Invalid
// events are discarded.
func TriggerHandler(engine *Engine) eventbus.EventHandler {
	return func(ctx context.Context, event any) error {
		trigger, ok := event.(*events.TriggerReceived)
		if !ok {
			return fmt.Errorf("%w: %T", eventbus.ErrUnknownEventType, event)
		}

		if err := trigger.Validate(); err != nil {
			return fmt.Errorf("%w: invalid trigger event %s: %w", eventbus.ErrDiscard, trigger.ID, err)
		}

		_, err := engine.TriggerWorkflows(ctx,
			trigger.OrganizationID, models.TriggerType(trigger.TriggerType),
			trigger.EntityType, trigger.EntityID, trigger.Payload)

		return err
	}
}
