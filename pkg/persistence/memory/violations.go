package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
)

type violationKey struct {
	ruleID     string
	entityType models.EntityType
	entityID   string
}

type violationRepository struct {
	mu         sync.RWMutex
	violations map[string]*models.Violation
	byKey      map[violationKey]string
}

func newViolationRepository() *violationRepository {
	return &violationRepository{
		violations: make(map[string]*models.Violation),
		byKey:      make(map[violationKey]string),
	}
}

func keyOf(v *models.Violation) violationKey {
	return violationKey{ruleID: v.RuleID, entityType: v.EntityType, entityID: v.EntityID}
}

func (r *violationRepository) Upsert(_ context.Context, v *models.Violation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyOf(v)
	if id, ok := r.byKey[key]; ok {
		existing := r.violations[id]
		if existing.Status == models.ViolationOpen {
			existing.ActualHours = v.ActualHours
			existing.UpdatedAt = v.UpdatedAt
		}

		*v = *copyViolation(existing)

		return false, nil
	}

	stored := copyViolation(v)
	r.violations[stored.ID] = stored
	r.byKey[key] = stored.ID

	return true, nil
}

func (r *violationRepository) Save(_ context.Context, v *models.Violation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.violations[v.ID]; ok {
		delete(r.byKey, keyOf(existing))
	}

	r.violations[v.ID] = copyViolation(v)
	r.byKey[keyOf(v)] = v.ID

	return nil
}

func (r *violationRepository) UpdateStatus(
	_ context.Context,
	v *models.Violation,
	from ...models.ViolationStatus,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.violations[v.ID]
	if !ok {
		return false, persistence.NewEntityError("UpdateStatus", "violation", v.ID, persistence.ErrViolationNotFound)
	}

	if !slices.Contains(from, stored.Status) {
		return false, nil
	}

	stored.Status = v.Status
	stored.AcknowledgedBy = v.AcknowledgedBy
	stored.AcknowledgedAt = copyPtr(v.AcknowledgedAt)
	stored.ResolvedBy = v.ResolvedBy
	stored.ResolvedAt = copyPtr(v.ResolvedAt)
	stored.Notes = v.Notes
	stored.UpdatedAt = v.UpdatedAt

	*v = *copyViolation(stored)

	return true, nil
}

func (r *violationRepository) GetByID(_ context.Context, id string) (*models.Violation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.violations[id]
	if !ok {
		return nil, persistence.NewEntityError("GetByID", "violation", id, persistence.ErrViolationNotFound)
	}

	return copyViolation(v), nil
}

func (r *violationRepository) List(_ context.Context, filter persistence.ViolationFilter) ([]*models.Violation, error) {
	result := r.filter(func(v *models.Violation) bool {
		switch {
		case filter.OrganizationID != "" && v.OrganizationID != filter.OrganizationID:
			return false
		case filter.RuleID != "" && v.RuleID != filter.RuleID:
			return false
		case filter.Status != "" && v.Status != filter.Status:
			return false
		case filter.Escalated != nil && v.Escalated != *filter.Escalated:
			return false
		}

		return true
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

func (r *violationRepository) ListEscalationCandidates(_ context.Context) ([]*models.Violation, error) {
	return r.filter(func(v *models.Violation) bool {
		return v.Status == models.ViolationOpen && !v.Escalated
	}), nil
}

func (r *violationRepository) MarkEscalated(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.violations[id]
	if !ok {
		return false, persistence.NewEntityError("MarkEscalated", "violation", id, persistence.ErrViolationNotFound)
	}

	if v.Escalated {
		return false, nil
	}

	v.Escalated = true
	v.EscalatedAt = &at
	v.UpdatedAt = at

	return true, nil
}

func (r *violationRepository) filter(keep func(*models.Violation) bool) []*models.Violation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Violation, 0)
	for _, v := range r.violations {
		if keep(v) {
			result = append(result, copyViolation(v))
		}
	}

	slices.SortFunc(result, func(a, b *models.Violation) int {
		return a.ViolatedAt.Compare(b.ViolatedAt)
	})

	return result
}
