// Package eventbus provides event-driven communication between the API, the
// workers and the services that own candidate pipeline state.
package eventbus

import (
	"context"
	"errors"

	"github.com/atsflow/atsflow/pkg/events"
)

var (
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrDiscard marks a handler failure that redelivery cannot fix.
	ErrDiscard = errors.New("event discarded")
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// TopicFor routes command events to the commands topic and everything else to
// the main topic.
func TopicFor(eventType events.EventType) string {
	if _, ok := commandTypes[eventType]; ok {
		return events.CommandsTopic
	}

	return events.Topic
}

var commandTypes = map[events.EventType]struct{}{
	events.EmailRequestedEvent:        {},
	events.StageMoveRequestedEvent:    {},
	events.TagChangeRequestedEvent:    {},
	events.FieldUpdateRequestedEvent:  {},
	events.UserAssignmentRequestEvent: {},
	events.TaskRequestedEvent:         {},
	events.NotificationRequestedEvent: {},
}

// decoders builds an empty value for every event type the bus can deliver.
var decoders = map[events.EventType]func() any{
	events.TriggerReceivedEvent:            func() any { return &events.TriggerReceived{} },
	events.WorkflowExecutionRequestedEvent: func() any { return &events.WorkflowExecutionRequested{} },
	events.WorkflowExecutionCompletedEvent: func() any { return &events.WorkflowExecutionCompleted{} },
	events.WorkflowExecutionFailedEvent:    func() any { return &events.WorkflowExecutionFailed{} },
	events.WorkflowExecutionCancelledEvent: func() any { return &events.WorkflowExecutionCancelled{} },
	events.SLAViolationOpenedEvent:         func() any { return &events.SLAViolationOpened{} },
	events.SLAViolationEscalatedEvent:      func() any { return &events.SLAViolationEscalated{} },
	events.EmailRequestedEvent:             func() any { return &events.EmailRequested{} },
	events.StageMoveRequestedEvent:         func() any { return &events.StageMoveRequested{} },
	events.TagChangeRequestedEvent:         func() any { return &events.TagChangeRequested{} },
	events.FieldUpdateRequestedEvent:       func() any { return &events.FieldUpdateRequested{} },
	events.UserAssignmentRequestEvent:      func() any { return &events.UserAssignmentRequested{} },
	events.TaskRequestedEvent:              func() any { return &events.TaskRequested{} },
	events.NotificationRequestedEvent:      func() any { return &events.NotificationRequested{} },
}
