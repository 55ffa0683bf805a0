package services

import (
	"context"
	"fmt"

	"github.com/atsflow/atsflow/pkg/models"
)

// Activate makes a workflow eligible for triggering after re-validating it
// against the currently registered actions.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.setActive(ctx, workflowID, true)
}

// Deactivate stops a workflow from being triggered. Executions already
// created keep running.
func (w *Workflow) Deactivate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.setActive(ctx, workflowID, false)
}

func (w *Workflow) setActive(ctx context.Context, workflowID string, active bool) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Active == active {
		return workflow, nil
	}

	if active {
		err := w.Validate(workflow)
		if err != nil {
			return nil, fmt.Errorf("workflow cannot be activated: %w", err)
		}
	}

	workflow.Active = active
	workflow.UpdatedAt = w.now().UTC()

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}
