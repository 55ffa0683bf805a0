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

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const workflowColumns = `
	id
  , organization_id
  , name
  , description
  , trigger_type
  , trigger_config
  , conditions
  , actions
  , active
  , created_by
  , created_at
  , updated_at
`

// Save saves a workflow to the database.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	triggerConfig, err := marshalJSON(workflow.TriggerConfig)
	if err != nil {
		return err
	}

	conditions, err := marshalJSON(workflow.Conditions)
	if err != nil {
		return err
	}

	actions, err := marshalJSON(workflow.Actions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , trigger_type = EXCLUDED.trigger_type
		  , trigger_config = EXCLUDED.trigger_config
		  , conditions = EXCLUDED.conditions
		  , actions = EXCLUDED.actions
		  , active = EXCLUDED.active
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.OrganizationID,
		workflow.Name,
		workflow.Description,
		string(workflow.TriggerType),
		triggerConfig,
		conditions,
		actions,
		workflow.Active,
		nullString(workflow.CreatedBy),
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	return r.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE ($1 = '' OR organization_id = $1) ORDER BY created_at, id`,
		organizationID,
	)
}

func (r *WorkflowRepository) ListActiveByTrigger(
	ctx context.Context,
	organizationID string,
	triggerType models.TriggerType,
) ([]*models.Workflow, error) {
	return r.query(ctx, `
		SELECT `+workflowColumns+`
		FROM workflows
		WHERE active AND organization_id = $1 AND trigger_type = $2
		ORDER BY created_at, id
	`, organizationID, string(triggerType))
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("Delete", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow      models.Workflow
		triggerType   string
		triggerConfig []byte
		conditions    []byte
		actions       []byte
		createdBy     sql.NullString
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.OrganizationID,
		&workflow.Name,
		&workflow.Description,
		&triggerType,
		&triggerConfig,
		&conditions,
		&actions,
		&workflow.Active,
		&createdBy,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.TriggerType = models.TriggerType(triggerType)
	workflow.CreatedBy = createdBy.String

	err = unmarshalJSON(triggerConfig, &workflow.TriggerConfig)
	if err != nil {
		return nil, err
	}

	err = unmarshalJSON(conditions, &workflow.Conditions)
	if err != nil {
		return nil, err
	}

	err = unmarshalJSON(actions, &workflow.Actions)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}
