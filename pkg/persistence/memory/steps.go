package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
)

type stepKey struct {
	executionID string
	stepIndex   int
}

type scheduledStepRepository struct {
	mu    sync.Mutex
	steps map[stepKey]models.ScheduledStep
}

func newScheduledStepRepository() *scheduledStepRepository {
	return &scheduledStepRepository{
		steps: make(map[stepKey]models.ScheduledStep),
	}
}

func (r *scheduledStepRepository) Schedule(_ context.Context, step *models.ScheduledStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps[stepKey{step.ExecutionID, step.StepIndex}] = *step

	return nil
}

func (r *scheduledStepRepository) ScheduleIfAbsent(_ context.Context, step *models.ScheduledStep) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := stepKey{step.ExecutionID, step.StepIndex}
	if _, ok := r.steps[key]; ok {
		return false, nil
	}

	r.steps[key] = *step

	return true, nil
}

func (r *scheduledStepRepository) Claim(_ context.Context, executionID string, stepIndex int, now, until time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := stepKey{executionID, stepIndex}

	step, ok := r.steps[key]
	if !ok || step.DueAt.After(now) {
		return false, nil
	}

	step.DueAt = until
	r.steps[key] = step

	return true, nil
}

func (r *scheduledStepRepository) Due(_ context.Context, now time.Time, limit int) ([]*models.ScheduledStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	due := make([]*models.ScheduledStep, 0)
	for _, step := range r.steps {
		if !step.DueAt.After(now) {
			due = append(due, &step)
		}
	}

	slices.SortFunc(due, func(a, b *models.ScheduledStep) int {
		return a.DueAt.Compare(b.DueAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (r *scheduledStepRepository) Delete(_ context.Context, executionID string, stepIndex int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := stepKey{executionID, stepIndex}
	if _, ok := r.steps[key]; !ok {
		return false, nil
	}

	delete(r.steps, key)

	return true, nil
}

func (r *scheduledStepRepository) DeleteByExecution(_ context.Context, executionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.steps {
		if key.executionID == executionID {
			delete(r.steps, key)
		}
	}

	return nil
}
