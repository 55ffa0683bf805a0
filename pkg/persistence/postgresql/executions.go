package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
)

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const executionColumns = `
	id
  , workflow_id
  , organization_id
  , entity_type
  , entity_id
  , status
  , trigger_data
  , steps
  , next_step
  , error_message
  , started_at
  , completed_at
  , created_at
`

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerData, err := marshalJSON(execution.TriggerData)
	if err != nil {
		return err
	}

	stepData, err := stepsJSON(execution.Steps)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
		  , steps = EXCLUDED.steps
		  , next_step = EXCLUDED.next_step
		  , error_message = EXCLUDED.error_message
		  , started_at = EXCLUDED.started_at
		  , completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.OrganizationID,
		execution.EntityType,
		execution.EntityID,
		string(execution.Status),
		triggerData,
		stepData,
		execution.NextStep,
		nullString(execution.Error),
		execution.StartedAt,
		execution.CompletedAt,
		execution.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) Transition(
	ctx context.Context,
	execution *models.WorkflowExecution,
	from models.ExecutionStatus,
) (bool, error) {
	stepData, err := stepsJSON(execution.Steps)
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_executions
		SET status = $2
		  , steps = $3
		  , next_step = $4
		  , error_message = $5
		  , started_at = $6
		  , completed_at = $7
		WHERE id = $1 AND status = $8
	`,
		execution.ID,
		string(execution.Status),
		stepData,
		execution.NextStep,
		nullString(execution.Error),
		execution.StartedAt,
		execution.CompletedAt,
		string(from),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update workflow execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 1 {
		return true, nil
	}

	var exists bool

	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM workflow_executions WHERE id = $1)`, execution.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check workflow execution: %w", err)
	}

	if !exists {
		return false, persistence.NewEntityError("Transition", "execution", execution.ID, persistence.ErrExecutionNotFound)
	}

	return false, nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM workflow_executions WHERE id = $1`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow execution: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.WorkflowExecution, error) {
	return r.query(ctx, `
		SELECT `+executionColumns+`
		FROM workflow_executions
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at
	`, entityType, entityID)
}

func (r *ExecutionRepository) ListByStatus(
	ctx context.Context,
	status models.ExecutionStatus,
	limit int,
) ([]*models.WorkflowExecution, error) {
	if limit <= 0 {
		return r.query(ctx, `
			SELECT `+executionColumns+` FROM workflow_executions WHERE status = $1 ORDER BY created_at
		`, string(status))
	}

	return r.query(ctx, `
		SELECT `+executionColumns+` FROM workflow_executions WHERE status = $1 ORDER BY created_at LIMIT $2
	`, string(status), limit)
}

func (r *ExecutionRepository) query(ctx context.Context, query string, args ...any) ([]*models.WorkflowExecution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row scanner) (*models.WorkflowExecution, error) {
	var (
		execution    models.WorkflowExecution
		status       string
		triggerData  []byte
		steps        []byte
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.OrganizationID,
		&execution.EntityType,
		&execution.EntityID,
		&status,
		&triggerData,
		&steps,
		&execution.NextStep,
		&errorMessage,
		&startedAt,
		&completedAt,
		&execution.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)
	execution.Error = errorMessage.String
	execution.StartedAt = timePtr(startedAt)
	execution.CompletedAt = timePtr(completedAt)

	err = unmarshalJSON(triggerData, &execution.TriggerData)
	if err != nil {
		return nil, err
	}

	err = unmarshalJSON(steps, &execution.Steps)
	if err != nil {
		return nil, err
	}

	return &execution, nil
}

func stepsJSON(steps []models.ExecutionStep) ([]byte, error) {
	if steps == nil {
		steps = []models.ExecutionStep{}
	}

	return marshalJSON(steps)
}
