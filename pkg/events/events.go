// Package events defines the messages exchanged over the event bus between the
// API, the workers and downstream services.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topics.
const (
	Topic         = "atsflow.events"   // lifecycle and SLA events
	CommandsTopic = "atsflow.commands" // mutations requested from downstream services
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Inbound domain events that may trigger workflows.
	TriggerReceivedEvent EventType = "trigger.received"

	// Workflow execution lifecycle events.
	WorkflowExecutionRequestedEvent EventType = "workflow.execution.requested"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
	WorkflowExecutionCancelledEvent EventType = "workflow.execution.cancelled"
)

type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	OrganizationID string         `json:"organization_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, organizationID string) BaseEvent {
	return BaseEvent{
		ID:             uuid.New().String(),
		Type:           eventType,
		Timestamp:      time.Now().UTC(),
		OrganizationID: organizationID,
		Metadata:       make(map[string]any),
	}
}

// TriggerReceived carries a domain event from the surrounding ATS into the
// workflow engine.
type TriggerReceived struct {
	BaseEvent

	TriggerType string         `json:"trigger_type" validate:"required"`
	EntityType  string         `json:"entity_type"  validate:"required"`
	EntityID    string         `json:"entity_id"    validate:"required"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func (t TriggerReceived) GetType() EventType {
	return TriggerReceivedEvent
}

func NewTriggerReceived(organizationID, triggerType, entityType, entityID string, payload map[string]any) *TriggerReceived {
	if payload == nil {
		payload = make(map[string]any)
	}

	return &TriggerReceived{
		BaseEvent:   NewBaseEvent(TriggerReceivedEvent, organizationID),
		TriggerType: triggerType,
		EntityType:  entityType,
		EntityID:    entityID,
		Payload:     payload,
	}
}

func (t *TriggerReceived) Validate() error {
	if t.OrganizationID == "" {
		return ErrMissingOrganization
	}

	return validate.Struct(t)
}

// WorkflowExecutionRequested hands a pending execution to whichever worker
// consumes it.
type WorkflowExecutionRequested struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
}

func (w WorkflowExecutionRequested) GetType() EventType {
	return WorkflowExecutionRequestedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	WorkflowID  string        `json:"workflow_id"`
	EntityType  string        `json:"entity_type"`
	EntityID    string        `json:"entity_id"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Error       string `json:"error"`
	FailedSteps int    `json:"failed_steps"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

type WorkflowExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
}

func (w WorkflowExecutionCancelled) GetType() EventType {
	return WorkflowExecutionCancelledEvent
}
