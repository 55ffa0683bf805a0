package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
)

// overdue is an entity that crossed a rule threshold.
type overdue struct {
	entityType models.EntityType
	entityID   string
	start      time.Time
}

type check func(ctx context.Context, rule *models.SLARule, cutoff time.Time) ([]overdue, error)

// applicationCheck describes which application timestamp starts the clock
// and which milestone stops it.
type applicationCheck struct {
	start     persistence.ApplicationTimestamp
	pending   persistence.ApplicationMilestone
	stageType string
}

var applicationChecks = map[models.SLARuleType]applicationCheck{
	models.SLATimeToFirstReview: {
		start:   persistence.AppliedAt,
		pending: persistence.MilestoneReviewed,
	},
	models.SLATimeToScheduleInterview: {
		start:   persistence.StageEnteredAt,
		pending: persistence.MilestoneInterview,
	},
	models.SLATimeToOffer: {
		start:     persistence.StageEnteredAt,
		pending:   persistence.MilestoneOfferExtended,
		stageType: models.StageTypeOffer,
	},
	models.SLATimeToHire: {
		start:   persistence.AppliedAt,
		pending: persistence.MilestoneHired,
	},
}

func (m *Monitor) checkFor(ruleType models.SLARuleType) (check, error) {
	if ruleType == models.SLATimeToProvideFeedback {
		return m.checkFeedback, nil
	}

	spec, ok := applicationChecks[ruleType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRuleType, ruleType)
	}

	return func(ctx context.Context, rule *models.SLARule, cutoff time.Time) ([]overdue, error) {
		return m.checkApplications(ctx, rule, cutoff, spec)
	}, nil
}

func (m *Monitor) checkApplications(
	ctx context.Context,
	rule *models.SLARule,
	cutoff time.Time,
	spec applicationCheck,
) ([]overdue, error) {
	applications, err := m.pipeline.FindApplications(ctx, persistence.ApplicationQuery{
		OrganizationID: rule.OrganizationID,
		JobIDs:         rule.JobIDs,
		DepartmentIDs:  rule.DepartmentIDs,
		Statuses:       []models.ApplicationStatus{models.ApplicationActive},
		StartField:     spec.start,
		StartedBefore:  cutoff,
		StageType:      spec.stageType,
		Pending:        spec.pending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}

	found := make([]overdue, 0, len(applications))
	for _, app := range applications {
		start := app.AppliedAt
		if spec.start == persistence.StageEnteredAt {
			start = app.StageEnteredAt
		}

		found = append(found, overdue{entityType: models.EntityApplication, entityID: app.ID, start: start})
	}

	return found, nil
}

func (m *Monitor) checkFeedback(ctx context.Context, rule *models.SLARule, cutoff time.Time) ([]overdue, error) {
	interviews, err := m.pipeline.FindInterviewsAwaitingFeedback(ctx, persistence.InterviewQuery{
		OrganizationID:  rule.OrganizationID,
		JobIDs:          rule.JobIDs,
		DepartmentIDs:   rule.DepartmentIDs,
		Statuses:        []models.InterviewStatus{models.InterviewScheduled, models.InterviewCompleted},
		ScheduledBefore: cutoff,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query interviews: %w", err)
	}

	found := make([]overdue, 0, len(interviews))
	for _, interview := range interviews {
		found = append(found, overdue{entityType: models.EntityInterview, entityID: interview.ID, start: interview.ScheduledAt})
	}

	return found, nil
}
