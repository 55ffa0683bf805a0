// Package protocol declares the contracts between the automation core and
// the rest of the recruiting platform.
package protocol

import (
	"context"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
)

// AlertSender delivers SLA notifications.
type AlertSender interface {
	SendAlert(ctx context.Context, recipients []string, violation *models.Violation) error
	SendEscalation(ctx context.Context, recipients []string, violation *models.Violation) error
}

// EmailSender delivers templated workflow emails.
type EmailSender interface {
	SendWorkflowEmail(ctx context.Context, templateID, recipientID string, payload map[string]any) error
}

// Communicator is the communication service used by both engines.
type Communicator interface {
	AlertSender
	EmailSender
}

type StageMover interface {
	MoveStage(ctx context.Context, applicationID, stageID string) error
}

type TagMutator interface {
	AddTag(ctx context.Context, entityType, entityID, tag string) error
	RemoveTag(ctx context.Context, entityType, entityID, tag string) error
}

type FieldUpdater interface {
	UpdateField(ctx context.Context, entityType, entityID, field string, value any) error
}

type UserAssigner interface {
	AssignUser(ctx context.Context, entityType, entityID, userID, role string) error
}

// Task is a follow-up item created for a recruiter.
type Task struct {
	EntityType  string     `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

type TaskCreator interface {
	CreateTask(ctx context.Context, task Task) error
}

// Notification is an in-app message to one or more users.
type Notification struct {
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id"`
	UserIDs    []string `json:"user_ids"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Mutators bundles the domain mutation collaborators used by actions.
type Mutators struct {
	Stages   StageMover
	Tags     TagMutator
	Fields   FieldUpdater
	Assigner UserAssigner
	Tasks    TaskCreator
	Notifier Notifier
	Email    EmailSender
}
