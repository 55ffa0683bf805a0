// Package sla watches the recruiting pipeline for entities that overran an
// organization's SLA rules, records violations and escalates them.
package sla

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atsflow/atsflow/pkg/eventbus"
	"github.com/atsflow/atsflow/pkg/events"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/otelhelper"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// WorkflowTrigger starts sla_violation workflows. workflow.Engine implements it.
type WorkflowTrigger interface {
	TriggerWorkflows(
		ctx context.Context,
		organizationID string,
		triggerType models.TriggerType,
		entityType, entityID string,
		triggerData map[string]any,
	) ([]*models.WorkflowExecution, error)
}

// ScanReport summarises one compliance or escalation scan.
type ScanReport struct {
	Scan      string        `json:"scan"`
	Items     int           `json:"items"` // rules for compliance, candidates for escalation
	Matched   int           `json:"matched"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Escalated int           `json:"escalated"`
	Errors    int           `json:"errors"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

type Monitor struct {
	rules      persistence.RuleRepository
	violations persistence.ViolationRepository
	pipeline   persistence.PipelineRepository
	alerts     protocol.AlertSender
	publisher  eventbus.EventPublisher
	workflows  WorkflowTrigger
	tracer     trace.Tracer
	now        func() time.Time
	logger     *slog.Logger
	pending    sync.WaitGroup
}

type Option func(*Monitor)

func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(m *Monitor) {
		m.publisher = publisher
	}
}

// WithWorkflowTrigger runs sla_violation workflows when violations open or escalate.
func WithWorkflowTrigger(workflows WorkflowTrigger) Option {
	return func(m *Monitor) {
		m.workflows = workflows
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(m *Monitor) {
		m.tracer = tracer
	}
}

func NewMonitor(p persistence.Persistence, alerts protocol.AlertSender, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		rules:      p.RuleRepository(),
		violations: p.ViolationRepository(),
		pipeline:   p.PipelineRepository(),
		alerts:     alerts,
		tracer:     otelhelper.NoopTracer(),
		now:        time.Now,
		logger:     logger.With("module", "sla_monitor"),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// RunComplianceScan checks every active rule and records a violation for
// each overdue entity. A failing rule is logged and counted; the scan
// carries on with the next one.
func (m *Monitor) RunComplianceScan(ctx context.Context) (ScanReport, error) {
	now := m.now().UTC()
	report := ScanReport{Scan: "compliance", StartedAt: now}

	ctx, span := otelhelper.StartSpan(ctx, m.tracer, "sla.compliance_scan")
	defer span.End()

	rules, err := m.rules.ListActive(ctx)
	if err != nil {
		otelhelper.SetError(span, err)

		return report, fmt.Errorf("failed to list active rules: %w", err)
	}

	report.Items = len(rules)

	for _, rule := range rules {
		err := m.checkRule(ctx, rule, now, &report)
		if err != nil {
			report.Errors++
			m.logger.ErrorContext(ctx, "Compliance check failed",
				"rule_id", rule.ID,
				"rule_type", rule.Type,
				"organization_id", rule.OrganizationID,
				"error", err)
		}
	}

	report.Duration = m.now().UTC().Sub(now)
	span.SetAttributes(
		attribute.Int("atsflow.sla.rules", report.Items),
		attribute.Int("atsflow.sla.violations.created", report.Created),
	)

	m.logger.InfoContext(ctx, "Compliance scan finished",
		"rules", report.Items,
		"matched", report.Matched,
		"created", report.Created,
		"updated", report.Updated,
		"errors", report.Errors)

	return report, nil
}

func (m *Monitor) checkRule(ctx context.Context, rule *models.SLARule, now time.Time, report *ScanReport) error {
	ctx, span := otelhelper.StartSpan(ctx, m.tracer, "sla.check_rule",
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.RuleTypeKey, string(rule.Type)),
		attribute.String(otelhelper.OrganizationIDKey, rule.OrganizationID),
	)
	defer span.End()

	check, err := m.checkFor(rule.Type)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	threshold := rule.Threshold()

	found, err := check(ctx, rule, now.Add(-threshold))
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	report.Matched += len(found)

	for _, entity := range found {
		violation := &models.Violation{
			ID:             uuid.NewString(),
			OrganizationID: rule.OrganizationID,
			RuleID:         rule.ID,
			EntityType:     entity.entityType,
			EntityID:       entity.entityID,
			ViolatedAt:     now,
			ExpectedAt:     entity.start.Add(threshold),
			ActualHours:    models.ElapsedHours(entity.start, now),
			Status:         models.ViolationOpen,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		created, err := m.violations.Upsert(ctx, violation)
		if err != nil {
			otelhelper.SetError(span, err)

			return fmt.Errorf("failed to record violation for %s %s: %w", entity.entityType, entity.entityID, err)
		}

		if !created {
			report.Updated++

			continue
		}

		report.Created++
		m.logger.InfoContext(ctx, "SLA violation opened",
			"rule_id", rule.ID,
			"violation_id", violation.ID,
			"entity_type", violation.EntityType,
			"entity_id", violation.EntityID,
			"actual_hours", violation.ActualHours)

		m.notifyOpened(ctx, rule, violation)
	}

	return nil
}

// notifyOpened fires the alert, event and workflows for a new violation
// without blocking the scan.
func (m *Monitor) notifyOpened(ctx context.Context, rule *models.SLARule, violation *models.Violation) {
	ctx = context.WithoutCancel(ctx)
	logger := m.logger.With("rule_id", rule.ID, "violation_id", violation.ID)

	m.pending.Add(1)

	go func() {
		defer m.pending.Done()

		err := m.alerts.SendAlert(ctx, rule.AlertRecipients, violation)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to send SLA alert", "error", err)
		}
	}()

	if m.publisher != nil {
		err := m.publisher.Publish(ctx, violation.EntityID,
			events.NewSLAViolationOpened(rule, violation, rule.AlertRecipients))
		if err != nil {
			logger.WarnContext(ctx, "Failed to publish violation event", "error", err)
		}
	}

	m.triggerWorkflows(ctx, rule, violation, "opened")
}

func (m *Monitor) triggerWorkflows(ctx context.Context, rule *models.SLARule, violation *models.Violation, transition string) {
	if m.workflows == nil {
		return
	}

	_, err := m.workflows.TriggerWorkflows(ctx, violation.OrganizationID, models.TriggerSLAViolation,
		string(violation.EntityType), violation.EntityID, ViolationPayload(rule, violation, transition))
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to trigger sla_violation workflows",
			"violation_id", violation.ID, "error", err)
	}
}

// ViolationPayload is the trigger data handed to sla_violation workflows.
func ViolationPayload(rule *models.SLARule, violation *models.Violation, transition string) map[string]any {
	return map[string]any{
		"event":           transition,
		"violation_id":    violation.ID,
		"rule_id":         rule.ID,
		"rule_name":       rule.Name,
		"rule_type":       string(rule.Type),
		"threshold_hours": rule.ThresholdHours,
		"entity_type":     string(violation.EntityType),
		"entity_id":       violation.EntityID,
		"actual_hours":    violation.ActualHours,
		"escalated":       violation.Escalated,
	}
}

// Wait blocks until notifications fired by earlier scans have returned.
func (m *Monitor) Wait() {
	m.pending.Wait()
}
