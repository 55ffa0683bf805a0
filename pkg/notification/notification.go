// Package notification delivers SLA alerts and workflow emails through one or
// more channels and hardens delivery with timeouts and retries.
package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
)

var ErrNoEmailSender = errors.New("no email sender configured")

// Fanout sends every alert to all alert channels and routes emails to a
// single sender. It satisfies protocol.Communicator.
type Fanout struct {
	alerts []protocol.AlertSender
	email  protocol.EmailSender
}

func NewFanout(email protocol.EmailSender, alerts ...protocol.AlertSender) *Fanout {
	return &Fanout{alerts: alerts, email: email}
}

// SendAlert tries every channel and returns the joined errors of those that failed.
func (f *Fanout) SendAlert(ctx context.Context, recipients []string, violation *models.Violation) error {
	var errs []error

	for _, sender := range f.alerts {
		errs = append(errs, sender.SendAlert(ctx, recipients, violation))
	}

	return errors.Join(errs...)
}

func (f *Fanout) SendEscalation(ctx context.Context, recipients []string, violation *models.Violation) error {
	var errs []error

	for _, sender := range f.alerts {
		errs = append(errs, sender.SendEscalation(ctx, recipients, violation))
	}

	return errors.Join(errs...)
}

func (f *Fanout) SendWorkflowEmail(ctx context.Context, templateID, recipientID string, payload map[string]any) error {
	if f.email == nil {
		return ErrNoEmailSender
	}

	return f.email.SendWorkflowEmail(ctx, templateID, recipientID, payload)
}

// LogCommunicator writes every message to the log instead of delivering it.
type LogCommunicator struct {
	logger *slog.Logger
}

func NewLogCommunicator(logger *slog.Logger) *LogCommunicator {
	return &LogCommunicator{logger: logger.With("module", "log_communicator")}
}

func (l *LogCommunicator) SendAlert(ctx context.Context, recipients []string, violation *models.Violation) error {
	l.logger.InfoContext(ctx, "SLA violation alert",
		"violation_id", violation.ID,
		"rule_id", violation.RuleID,
		"entity_type", violation.EntityType,
		"entity_id", violation.EntityID,
		"actual_hours", violation.ActualHours,
		"recipients", recipients,
	)

	return nil
}

func (l *LogCommunicator) SendEscalation(ctx context.Context, recipients []string, violation *models.Violation) error {
	l.logger.WarnContext(ctx, "SLA violation escalated",
		"violation_id", violation.ID,
		"rule_id", violation.RuleID,
		"entity_id", violation.EntityID,
		"recipients", recipients,
	)

	return nil
}

func (l *LogCommunicator) SendWorkflowEmail(ctx context.Context, templateID, recipientID string, _ map[string]any) error {
	l.logger.InfoContext(ctx, "Workflow email", "template_id", templateID, "recipient_id", recipientID)

	return nil
}
