package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
)

type executionRepository struct {
	mu         sync.RWMutex
	executions map[string]*models.WorkflowExecution
}

func newExecutionRepository() *executionRepository {
	return &executionRepository{
		executions: make(map[string]*models.WorkflowExecution),
	}
}

func (r *executionRepository) Save(_ context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.executions[execution.ID] = copyExecution(execution)

	return nil
}

func (r *executionRepository) Transition(
	_ context.Context,
	execution *models.WorkflowExecution,
	from models.ExecutionStatus,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.executions[execution.ID]
	if !ok {
		return false, persistence.NewEntityError("Transition", "execution", execution.ID, persistence.ErrExecutionNotFound)
	}

	if current.Status != from {
		return false, nil
	}

	r.executions[execution.ID] = copyExecution(execution)

	return true, nil
}

func (r *executionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.executions[id]
	if !ok {
		return nil, persistence.NewEntityError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
	}

	return copyExecution(execution), nil
}

func (r *executionRepository) ListByEntity(_ context.Context, entityType, entityID string) ([]*models.WorkflowExecution, error) {
	return r.filter(func(e *models.WorkflowExecution) bool {
		return e.EntityType == entityType && e.EntityID == entityID
	}, 0), nil
}

func (r *executionRepository) ListByStatus(
	_ context.Context,
	status models.ExecutionStatus,
	limit int,
) ([]*models.WorkflowExecution, error) {
	return r.filter(func(e *models.WorkflowExecution) bool {
		return e.Status == status
	}, limit), nil
}

func (r *executionRepository) filter(keep func(*models.WorkflowExecution) bool, limit int) []*models.WorkflowExecution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.WorkflowExecution, 0)
	for _, e := range r.executions {
		if keep(e) {
			result = append(result, copyExecution(e))
		}
	}

	slices.SortFunc(result, func(a, b *models.WorkflowExecution) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result
}
