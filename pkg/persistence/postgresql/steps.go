package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
)

// ScheduledStepRepository stores delayed workflow actions.
type ScheduledStepRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ScheduledStepRepository) Schedule(ctx context.Context, step *models.ScheduledStep) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workflow_scheduled_steps (execution_id, step_index, due_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (execution_id, step_index) DO UPDATE SET due_at = EXCLUDED.due_at
	`, step.ExecutionID, step.StepIndex, step.DueAt, step.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to schedule step: %w", err)
	}

	return nil
}

func (r *ScheduledStepRepository) ScheduleIfAbsent(ctx context.Context, step *models.ScheduledStep) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO workflow_scheduled_steps (execution_id, step_index, due_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (execution_id, step_index) DO NOTHING
	`, step.ExecutionID, step.StepIndex, step.DueAt, step.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to schedule step: %w", err)
	}

	return affectedOne(result)
}

func (r *ScheduledStepRepository) Claim(
	ctx context.Context,
	executionID string,
	stepIndex int,
	now, until time.Time,
) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_scheduled_steps
		SET due_at = $4
		WHERE execution_id = $1 AND step_index = $2 AND due_at <= $3
	`, executionID, stepIndex, now, until)
	if err != nil {
		return false, fmt.Errorf("failed to claim scheduled step: %w", err)
	}

	return affectedOne(result)
}

func (r *ScheduledStepRepository) Due(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledStep, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT execution_id, step_index, due_at, created_at
		FROM workflow_scheduled_steps
		WHERE due_at <= $1
		ORDER BY due_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due steps: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	steps := make([]*models.ScheduledStep, 0)

	for rows.Next() {
		var step models.ScheduledStep

		err := rows.Scan(&step.ExecutionID, &step.StepIndex, &step.DueAt, &step.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled step: %w", err)
		}

		steps = append(steps, &step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating scheduled steps: %w", err)
	}

	return steps, nil
}

func (r *ScheduledStepRepository) Delete(ctx context.Context, executionID string, stepIndex int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM workflow_scheduled_steps WHERE execution_id = $1 AND step_index = $2`,
		executionID, stepIndex,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete scheduled step: %w", err)
	}

	return affectedOne(result)
}

func (r *ScheduledStepRepository) DeleteByExecution(ctx context.Context, executionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM workflow_scheduled_steps WHERE execution_id = $1`, executionID)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled steps: %w", err)
	}

	return nil
}

func affectedOne(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}
