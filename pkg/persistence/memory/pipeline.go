package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
)

type pipelineRepository struct {
	mu           sync.RWMutex
	applications map[string]*models.Application
	interviews   map[string]*models.Interview
}

func newPipelineRepository() *pipelineRepository {
	return &pipelineRepository{
		applications: make(map[string]*models.Application),
		interviews:   make(map[string]*models.Interview),
	}
}

func (r *pipelineRepository) SaveApplication(_ context.Context, application *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.applications[application.ID] = copyApplication(application)

	return nil
}

func (r *pipelineRepository) SaveInterview(_ context.Context, interview *models.Interview) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interviews[interview.ID] = copyInterview(interview)

	return nil
}

func (r *pipelineRepository) FindApplications(
	_ context.Context,
	query persistence.ApplicationQuery,
) ([]*models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Application, 0)

	for _, app := range r.applications {
		if app.OrganizationID != query.OrganizationID ||
			!inScope(query.JobIDs, app.JobID) ||
			!inScope(query.DepartmentIDs, app.DepartmentID) {
			continue
		}

		if len(query.Statuses) > 0 && !slices.Contains(query.Statuses, app.Status) {
			continue
		}

		if query.StageType != "" && app.StageType != query.StageType {
			continue
		}

		if !query.StartedBefore.IsZero() && startOf(app, query.StartField).After(query.StartedBefore) {
			continue
		}

		if reached(app, query.Pending) {
			continue
		}

		result = append(result, copyApplication(app))
	}

	slices.SortFunc(result, func(a, b *models.Application) int {
		return a.AppliedAt.Compare(b.AppliedAt)
	})

	return result, nil
}

func (r *pipelineRepository) FindInterviewsAwaitingFeedback(
	_ context.Context,
	query persistence.InterviewQuery,
) ([]*models.Interview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Interview, 0)

	for _, interview := range r.interviews {
		if interview.OrganizationID != query.OrganizationID ||
			!inScope(query.JobIDs, interview.JobID) ||
			!inScope(query.DepartmentIDs, interview.DepartmentID) ||
			interview.FeedbackSubmittedAt != nil ||
			interview.ScheduledAt.After(query.ScheduledBefore) {
			continue
		}

		if len(query.Statuses) > 0 && !slices.Contains(query.Statuses, interview.Status) {
			continue
		}

		result = append(result, copyInterview(interview))
	}

	slices.SortFunc(result, func(a, b *models.Interview) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	})

	return result, nil
}

// inScope treats an empty scope as matching everything.
func inScope(scope []string, id string) bool {
	return len(scope) == 0 || slices.Contains(scope, id)
}

func startOf(app *models.Application, field persistence.ApplicationTimestamp) time.Time {
	if field == persistence.StageEnteredAt {
		return app.StageEnteredAt
	}

	return app.AppliedAt
}

func reached(app *models.Application, milestone persistence.ApplicationMilestone) bool {
	switch milestone {
	case persistence.MilestoneReviewed:
		return app.ReviewedAt != nil
	case persistence.MilestoneInterview:
		return app.InterviewCount > 0
	case persistence.MilestoneOfferExtended:
		return app.OfferExtendedAt != nil
	case persistence.MilestoneHired:
		return app.HiredAt != nil
	default:
		return false
	}
}
