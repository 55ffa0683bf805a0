// Package commands turns workflow side effects into command events for the
// services that own candidate pipeline state.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atsflow/atsflow/pkg/eventbus"
	"github.com/atsflow/atsflow/pkg/events"
	"github.com/atsflow/atsflow/pkg/protocol"
)

// Publisher implements every mutation collaborator plus protocol.EmailSender.
// Each call publishes exactly one command keyed by the affected entity.
type Publisher struct {
	bus    eventbus.EventPublisher
	logger *slog.Logger
}

func NewPublisher(bus eventbus.EventPublisher, logger *slog.Logger) *Publisher {
	return &Publisher{bus: bus, logger: logger.With("module", "command_publisher")}
}

// Mutators exposes p as the collaborator bundle used by the action registry.
func (p *Publisher) Mutators() protocol.Mutators {
	return protocol.Mutators{
		Stages:   p,
		Tags:     p,
		Fields:   p,
		Assigner: p,
		Tasks:    p,
		Notifier: p,
		Email:    p,
	}
}

func (p *Publisher) base(ctx context.Context, eventType events.EventType) events.BaseEvent {
	return events.NewBaseEvent(eventType, protocol.OrganizationFrom(ctx))
}

func (p *Publisher) publish(ctx context.Context, key string, event eventbus.Event) error {
	err := p.bus.Publish(ctx, key, event)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.GetType(), err)
	}

	p.logger.DebugContext(ctx, "Published command", "event_type", event.GetType(), "key", key)

	return nil
}

func (p *Publisher) SendWorkflowEmail(ctx context.Context, templateID, recipientID string, payload map[string]any) error {
	return p.publish(ctx, recipientID, &events.EmailRequested{
		BaseEvent:   p.base(ctx, events.EmailRequestedEvent),
		TemplateID:  templateID,
		RecipientID: recipientID,
		Payload:     payload,
	})
}

func (p *Publisher) MoveStage(ctx context.Context, applicationID, stageID string) error {
	return p.publish(ctx, applicationID, &events.StageMoveRequested{
		BaseEvent:     p.base(ctx, events.StageMoveRequestedEvent),
		ApplicationID: applicationID,
		StageID:       stageID,
	})
}

func (p *Publisher) AddTag(ctx context.Context, entityType, entityID, tag string) error {
	return p.tag(ctx, entityType, entityID, tag, false)
}

func (p *Publisher) RemoveTag(ctx context.Context, entityType, entityID, tag string) error {
	return p.tag(ctx, entityType, entityID, tag, true)
}

func (p *Publisher) tag(ctx context.Context, entityType, entityID, tag string, remove bool) error {
	return p.publish(ctx, entityID, &events.TagChangeRequested{
		BaseEvent: p.base(ctx, events.TagChangeRequestedEvent),
		EntityRef: events.EntityRef{EntityType: entityType, EntityID: entityID},
		Tag:       tag,
		Remove:    remove,
	})
}

func (p *Publisher) UpdateField(ctx context.Context, entityType, entityID, field string, value any) error {
	return p.publish(ctx, entityID, &events.FieldUpdateRequested{
		BaseEvent: p.base(ctx, events.FieldUpdateRequestedEvent),
		EntityRef: events.EntityRef{EntityType: entityType, EntityID: entityID},
		Field:     field,
		Value:     value,
	})
}

func (p *Publisher) AssignUser(ctx context.Context, entityType, entityID, userID, role string) error {
	return p.publish(ctx, entityID, &events.UserAssignmentRequested{
		BaseEvent: p.base(ctx, events.UserAssignmentRequestEvent),
		EntityRef: events.EntityRef{EntityType: entityType, EntityID: entityID},
		UserID:    userID,
		Role:      role,
	})
}

func (p *Publisher) CreateTask(ctx context.Context, task protocol.Task) error {
	return p.publish(ctx, task.EntityID, &events.TaskRequested{
		BaseEvent:   p.base(ctx, events.TaskRequestedEvent),
		EntityRef:   events.EntityRef{EntityType: task.EntityType, EntityID: task.EntityID},
		Title:       task.Title,
		Description: task.Description,
		AssigneeID:  task.AssigneeID,
		DueAt:       task.DueAt,
	})
}

func (p *Publisher) Notify(ctx context.Context, notification protocol.Notification) error {
	return p.publish(ctx, notification.EntityID, &events.NotificationRequested{
		BaseEvent: p.base(ctx, events.NotificationRequestedEvent),
		EntityRef: events.EntityRef{EntityType: notification.EntityType, EntityID: notification.EntityID},
		UserIDs:   notification.UserIDs,
		Title:     notification.Title,
		Message:   notification.Message,
	})
}
