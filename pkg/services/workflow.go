package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var knownOperators = []models.ConditionOperator{
	models.OperatorEquals,
	models.OperatorNotEquals,
	models.OperatorContains,
	models.OperatorNotContains,
	models.OperatorGreaterThan,
	models.OperatorLessThan,
	models.OperatorIn,
	models.OperatorNotIn,
	models.OperatorIsEmpty,
	models.OperatorIsNotEmpty,
}

type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
	now         func() time.Time
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, reg *registry.Registry) *Workflow {
	return &Workflow{
		persistence: persistence,
		registry:    reg,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns the workflows of an organization, newest first.
func (w *Workflow) List(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	if organizationID == "" {
		return nil, NewValidationError("List", "ORGANIZATION_REQUIRED", "organization_id is required", ErrInvalidRequest)
	}

	workflows, err := w.persistence.WorkflowRepository().List(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	slices.SortFunc(workflows, func(a, b *models.Workflow) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create validates and stores a new workflow.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	err := w.Validate(workflow)
	if err != nil {
		return nil, err
	}

	now := w.now().UTC()
	workflow.ID = uuid.NewString()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update replaces an existing workflow. The organization of a workflow never changes.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.OrganizationID != "" && workflow.OrganizationID != existing.OrganizationID {
		return nil, fmt.Errorf("%w: workflow %s", ErrOrganizationMismatch, workflowID)
	}

	workflow.ID = workflowID
	workflow.OrganizationID = existing.OrganizationID
	workflow.CreatedAt = existing.CreatedAt
	workflow.CreatedBy = existing.CreatedBy
	workflow.UpdatedAt = w.now().UTC()

	err = w.Validate(workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	err := w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return err
		}

		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// Validate checks struct constraints, the trigger type, condition operators
// and every action config against its schema.
func (w *Workflow) Validate(workflow *models.Workflow) error {
	if workflow == nil {
		return NewValidationError("Validate", "WORKFLOW_NIL", "workflow cannot be nil", ErrInvalidRequest)
	}

	err := w.validate.Struct(workflow)
	if err != nil {
		return NewValidationError("Validate", "INVALID_WORKFLOW", err.Error(), ErrInvalidRequest)
	}

	if !slices.Contains(models.TriggerTypes(), workflow.TriggerType) {
		return NewValidationError("Validate", "INVALID_TRIGGER_TYPE",
			fmt.Sprintf("unknown trigger type '%s'", workflow.TriggerType), ErrInvalidTriggerType)
	}

	for i, condition := range workflow.Conditions {
		if !slices.Contains(knownOperators, condition.Operator) {
			return NewValidationError("Validate", "INVALID_CONDITION",
				fmt.Sprintf("condition %d: unknown operator '%s'", i, condition.Operator), ErrInvalidCondition)
		}
	}

	for i, action := range workflow.Actions {
		err := w.registry.ValidateActionConfig(string(action.Type), action.Config)
		if err != nil {
			code := "INVALID_ACTION_CONFIG"
			if errors.Is(err, registry.ErrUnknownActionType) {
				code = "UNKNOWN_ACTION_TYPE"
			}

			return NewValidationError("Validate", code, fmt.Sprintf("action %d: %v", i, err), ErrInvalidAction)
		}
	}

	return nil
}
