package events

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMissingOrganization = errors.New("organization_id is required")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Commands asking the owning services to mutate candidate pipeline state. The
// engine treats a successful publish as a successful action.
const (
	EmailRequestedEvent        EventType = "command.email.send"
	StageMoveRequestedEvent    EventType = "command.application.move_stage"
	TagChangeRequestedEvent    EventType = "command.entity.tag"
	FieldUpdateRequestedEvent  EventType = "command.entity.update_field"
	UserAssignmentRequestEvent EventType = "command.entity.assign_user"
	TaskRequestedEvent         EventType = "command.task.create"
	NotificationRequestedEvent EventType = "command.notification.send"
)

// EntityRef identifies the pipeline entity a command applies to.
type EntityRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
}

type EmailRequested struct {
	BaseEvent

	TemplateID  string         `json:"template_id"`
	RecipientID string         `json:"recipient_id"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func (e EmailRequested) GetType() EventType {
	return EmailRequestedEvent
}

type StageMoveRequested struct {
	BaseEvent

	ApplicationID string `json:"application_id"`
	StageID       string `json:"stage_id"`
}

func (s StageMoveRequested) GetType() EventType {
	return StageMoveRequestedEvent
}

type TagChangeRequested struct {
	BaseEvent
	EntityRef

	Tag    string `json:"tag"`
	Remove bool   `json:"remove"`
}

func (t TagChangeRequested) GetType() EventType {
	return TagChangeRequestedEvent
}

type FieldUpdateRequested struct {
	BaseEvent
	EntityRef

	Field string `json:"field"`
	Value any    `json:"value"`
}

func (f FieldUpdateRequested) GetType() EventType {
	return FieldUpdateRequestedEvent
}

type UserAssignmentRequested struct {
	BaseEvent
	EntityRef

	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (u UserAssignmentRequested) GetType() EventType {
	return UserAssignmentRequestEvent
}

type TaskRequested struct {
	BaseEvent
	EntityRef

	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

func (t TaskRequested) GetType() EventType {
	return TaskRequestedEvent
}

type NotificationRequested struct {
	BaseEvent
	EntityRef

	UserIDs []string `json:"user_ids"`
	Title   string   `json:"title,omitempty"`
	Message string   `json:"message"`
}

func (n NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}
