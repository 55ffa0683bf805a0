package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
)

type workflowRepository struct {
	mu        sync.RWMutex
	workflows map[string]*models.Workflow
}

func newWorkflowRepository() *workflowRepository {
	return &workflowRepository{
		workflows: make(map[string]*models.Workflow),
	}
}

func (r *workflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.workflows[workflow.ID] = copyWorkflow(workflow)

	return nil
}

func (r *workflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow, ok := r.workflows[id]
	if !ok {
		return nil, persistence.NewEntityError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return copyWorkflow(workflow), nil
}

func (r *workflowRepository) List(_ context.Context, organizationID string) ([]*models.Workflow, error) {
	return r.filter(func(w *models.Workflow) bool {
		return organizationID == "" || w.OrganizationID == organizationID
	}), nil
}

func (r *workflowRepository) ListActiveByTrigger(
	_ context.Context,
	organizationID string,
	triggerType models.TriggerType,
) ([]*models.Workflow, error) {
	return r.filter(func(w *models.Workflow) bool {
		return w.Active && w.OrganizationID == organizationID && w.TriggerType == triggerType
	}), nil
}

func (r *workflowRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workflows[id]; !ok {
		return persistence.NewEntityError("Delete", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	delete(r.workflows, id)

	return nil
}

func (r *workflowRepository) filter(keep func(*models.Workflow) bool) []*models.Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Workflow, 0)
	for _, w := range r.workflows {
		if keep(w) {
			result = append(result, copyWorkflow(w))
		}
	}

	slices.SortFunc(result, func(a, b *models.Workflow) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return result
}
