package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
)

type ruleRepository struct {
	mu    sync.RWMutex
	rules map[string]*models.SLARule
}

func newRuleRepository() *ruleRepository {
	return &ruleRepository{
		rules: make(map[string]*models.SLARule),
	}
}

func (r *ruleRepository) Save(_ context.Context, rule *models.SLARule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules[rule.ID] = copyRule(rule)

	return nil
}

func (r *ruleRepository) GetByID(_ context.Context, id string) (*models.SLARule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	if !ok {
		return nil, persistence.NewEntityError("GetByID", "sla rule", id, persistence.ErrRuleNotFound)
	}

	return copyRule(rule), nil
}

func (r *ruleRepository) List(_ context.Context, organizationID string) ([]*models.SLARule, error) {
	return r.filter(func(rule *models.SLARule) bool {
		return organizationID == "" || rule.OrganizationID == organizationID
	}), nil
}

func (r *ruleRepository) ListActive(_ context.Context) ([]*models.SLARule, error) {
	return r.filter(func(rule *models.SLARule) bool {
		return rule.Active
	}), nil
}

func (r *ruleRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[id]; !ok {
		return persistence.NewEntityError("Delete", "sla rule", id, persistence.ErrRuleNotFound)
	}

	delete(r.rules, id)

	return nil
}

func (r *ruleRepository) filter(keep func(*models.SLARule) bool) []*models.SLARule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.SLARule, 0, len(r.rules))
	for _, rule := range r.rules {
		if keep(rule) {
			result = append(result, copyRule(rule))
		}
	}

	slices.SortFunc(result, func(a, b *models.SLARule) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return result
}
