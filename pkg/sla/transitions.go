package sla

import (
	"context"
	"fmt"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
)

// AcknowledgeViolation moves an open violation to acknowledged. Acknowledging
// again refreshes the actor and timestamp; a resolved violation cannot be
// acknowledged. Only the status columns are written, so an escalation
// recorded concurrently is kept.
func (m *Monitor) AcknowledgeViolation(ctx context.Context, id, userID string) (*models.Violation, error) {
	violation, err := m.violations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if violation.Status == models.ViolationResolved {
		return nil, fmt.Errorf("%w: violation %s is resolved", ErrInvalidTransition, id)
	}

	now := m.now().UTC()
	violation.Status = models.ViolationAcknowledged
	violation.AcknowledgedBy = userID
	violation.AcknowledgedAt = &now
	violation.UpdatedAt = now

	updated, err := m.violations.UpdateStatus(ctx, violation, models.ViolationOpen, models.ViolationAcknowledged)
	if err != nil {
		return nil, fmt.Errorf("failed to acknowledge violation %s: %w", id, err)
	}

	if !updated {
		return nil, fmt.Errorf("%w: violation %s was resolved", ErrInvalidTransition, id)
	}

	m.logger.InfoContext(ctx, "Violation acknowledged", "violation_id", id, "user_id", userID)

	return violation, nil
}

// ResolveViolation closes a violation from any status.
func (m *Monitor) ResolveViolation(ctx context.Context, id, userID, notes string) (*models.Violation, error) {
	violation, err := m.violations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	violation.Status = models.ViolationResolved
	violation.ResolvedBy = userID
	violation.ResolvedAt = &now
	violation.UpdatedAt = now

	if notes != "" {
		violation.Notes = notes
	}

	_, err = m.violations.UpdateStatus(ctx, violation,
		models.ViolationOpen, models.ViolationAcknowledged, models.ViolationResolved)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve violation %s: %w", id, err)
	}

	m.logger.InfoContext(ctx, "Violation resolved", "violation_id", id, "user_id", userID)

	return violation, nil
}

func (m *Monitor) GetViolation(ctx context.Context, id string) (*models.Violation, error) {
	return m.violations.GetByID(ctx, id)
}

func (m *Monitor) ListViolations(ctx context.Context, filter persistence.ViolationFilter) ([]*models.Violation, error) {
	return m.violations.List(ctx, filter)
}
