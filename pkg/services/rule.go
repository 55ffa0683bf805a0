package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Rule manages SLA rules.
type Rule struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	now         func() time.Time
}

func NewRule(persistence persistence.Persistence) *Rule {
	return &Rule{
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
	}
}

func (r *Rule) List(ctx context.Context, organizationID string) ([]*models.SLARule, error) {
	if organizationID == "" {
		return nil, NewValidationError("List", "ORGANIZATION_REQUIRED", "organization_id is required", ErrInvalidRequest)
	}

	rules, err := r.persistence.RuleRepository().List(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sla rules: %w", err)
	}

	slices.SortFunc(rules, func(a, b *models.SLARule) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return rules, nil
}

func (r *Rule) FetchByID(ctx context.Context, id string) (*models.SLARule, error) {
	return r.persistence.RuleRepository().GetByID(ctx, id)
}

func (r *Rule) Create(ctx context.Context, rule *models.SLARule) (*models.SLARule, error) {
	if rule != nil && rule.Name == "" {
		rule.Name = string(rule.Type)
	}

	err := r.Validate(rule)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	rule.ID = uuid.NewString()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	err = r.persistence.RuleRepository().Save(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to create sla rule: %w", err)
	}

	return rule, nil
}

// Update replaces an existing rule. Open violations keep pointing at it.
func (r *Rule) Update(ctx context.Context, ruleID string, rule *models.SLARule) (*models.SLARule, error) {
	existing, err := r.persistence.RuleRepository().GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	if rule.OrganizationID != "" && rule.OrganizationID != existing.OrganizationID {
		return nil, fmt.Errorf("%w: sla rule %s", ErrOrganizationMismatch, ruleID)
	}

	rule.ID = ruleID
	rule.OrganizationID = existing.OrganizationID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = r.now().UTC()

	err = r.Validate(rule)
	if err != nil {
		return nil, err
	}

	err = r.persistence.RuleRepository().Save(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to update sla rule: %w", err)
	}

	return rule, nil
}

func (r *Rule) Delete(ctx context.Context, ruleID string) error {
	err := r.persistence.RuleRepository().Delete(ctx, ruleID)
	if err != nil {
		if persistence.IsRuleNotFound(err) {
			return err
		}

		return fmt.Errorf("failed to delete sla rule: %w", err)
	}

	return nil
}

func (r *Rule) Validate(rule *models.SLARule) error {
	if rule == nil {
		return NewValidationError("Validate", "RULE_NIL", "sla rule cannot be nil", ErrInvalidRule)
	}

	err := r.validate.Struct(rule)
	if err != nil {
		return NewValidationError("Validate", "INVALID_RULE", err.Error(), ErrInvalidRule)
	}

	return nil
}
