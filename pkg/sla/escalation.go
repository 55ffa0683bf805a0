package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/atsflow/atsflow/pkg/events"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// RunEscalationScan escalates open violations that stayed open longer than
// their rule's escalation window. Each violation escalates at most once.
func (m *Monitor) RunEscalationScan(ctx context.Context) (ScanReport, error) {
	now := m.now().UTC()
	report := ScanReport{Scan: "escalation", StartedAt: now}

	ctx, span := otelhelper.StartSpan(ctx, m.tracer, "sla.escalation_scan")
	defer span.End()

	candidates, err := m.violations.ListEscalationCandidates(ctx)
	if err != nil {
		otelhelper.SetError(span, err)

		return report, fmt.Errorf("failed to list escalation candidates: %w", err)
	}

	report.Items = len(candidates)
	rules := make(map[string]*models.SLARule)

	for _, violation := range candidates {
		escalated, err := m.escalate(ctx, rules, violation, now)
		if err != nil {
			report.Errors++
			m.logger.ErrorContext(ctx, "Escalation failed",
				"violation_id", violation.ID,
				"rule_id", violation.RuleID,
				"error", err)

			continue
		}

		if escalated {
			report.Escalated++
		}
	}

	report.Duration = m.now().UTC().Sub(now)
	span.SetAttributes(attribute.Int("atsflow.sla.violations.escalated", report.Escalated))

	m.logger.InfoContext(ctx, "Escalation scan finished",
		"candidates", report.Items,
		"escalated", report.Escalated,
		"errors", report.Errors)

	return report, nil
}

func (m *Monitor) escalate(
	ctx context.Context,
	rules map[string]*models.SLARule,
	violation *models.Violation,
	now time.Time,
) (bool, error) {
	rule, ok := rules[violation.RuleID]
	if !ok {
		loaded, err := m.rules.GetByID(ctx, violation.RuleID)
		if err != nil {
			return false, err
		}

		rules[violation.RuleID] = loaded
		rule = loaded
	}

	if rule.EscalationHours == nil {
		return false, nil
	}

	if models.ElapsedHours(violation.ViolatedAt, now) < *rule.EscalationHours {
		return false, nil
	}

	flipped, err := m.violations.MarkEscalated(ctx, violation.ID, now)
	if err != nil {
		return false, err
	}

	if !flipped {
		return false, nil
	}

	violation.Escalated = true
	violation.EscalatedAt = &now
	violation.UpdatedAt = now

	m.logger.InfoContext(ctx, "SLA violation escalated",
		"violation_id", violation.ID,
		"rule_id", rule.ID,
		"entity_id", violation.EntityID)

	m.notifyEscalated(ctx, rule, violation)

	return true, nil
}

func (m *Monitor) notifyEscalated(ctx context.Context, rule *models.SLARule, violation *models.Violation) {
	ctx = context.WithoutCancel(ctx)
	logger := m.logger.With("rule_id", rule.ID, "violation_id", violation.ID)

	if len(rule.EscalationRecipients) > 0 {
		m.pending.Add(1)

		go func() {
			defer m.pending.Done()

			err := m.alerts.SendEscalation(ctx, rule.EscalationRecipients, violation)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to send SLA escalation", "error", err)
			}
		}()
	} else {
		logger.WarnContext(ctx, "Rule has no escalation recipients")
	}

	if m.publisher != nil {
		err := m.publisher.Publish(ctx, violation.EntityID,
			events.NewSLAViolationEscalated(rule.Name, violation, rule.EscalationRecipients))
		if err != nil {
			logger.WarnContext(ctx, "Failed to publish escalation event", "error", err)
		}
	}

	m.triggerWorkflows(ctx, rule, violation, "escalated")
}
