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

// RuleRepository handles SLA rule database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const ruleColumns = `
	id
  , organization_id
  , name
  , rule_type
  , threshold_hours
  , alert_recipients
  , escalation_recipients
  , escalation_hours
  , active
  , job_ids
  , department_ids
  , created_at
  , updated_at
`

func (r *RuleRepository) Save(ctx context.Context, rule *models.SLARule) error {
	alertRecipients, err := marshalJSON(rule.AlertRecipients)
	if err != nil {
		return err
	}

	escalationRecipients, err := marshalJSON(rule.EscalationRecipients)
	if err != nil {
		return err
	}

	jobIDs, err := marshalJSON(rule.JobIDs)
	if err != nil {
		return err
	}

	departmentIDs, err := marshalJSON(rule.DepartmentIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sla_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id
		  , name = EXCLUDED.name
		  , rule_type = EXCLUDED.rule_type
		  , threshold_hours = EXCLUDED.threshold_hours
		  , alert_recipients = EXCLUDED.alert_recipients
		  , escalation_recipients = EXCLUDED.escalation_recipients
		  , escalation_hours = EXCLUDED.escalation_hours
		  , active = EXCLUDED.active
		  , job_ids = EXCLUDED.job_ids
		  , department_ids = EXCLUDED.department_ids
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.OrganizationID,
		rule.Name,
		string(rule.Type),
		rule.ThresholdHours,
		alertRecipients,
		escalationRecipients,
		rule.EscalationHours,
		rule.Active,
		jobIDs,
		departmentIDs,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save sla rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.SLARule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM sla_rules WHERE id = $1`, id)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "sla rule", id, persistence.ErrRuleNotFound)
		}

		return nil, fmt.Errorf("failed to scan sla rule: %w", err)
	}

	return rule, nil
}

func (r *RuleRepository) List(ctx context.Context, organizationID string) ([]*models.SLARule, error) {
	return r.query(ctx,
		`SELECT `+ruleColumns+` FROM sla_rules WHERE ($1 = '' OR organization_id = $1) ORDER BY created_at, id`,
		organizationID,
	)
}

func (r *RuleRepository) ListActive(ctx context.Context) ([]*models.SLARule, error) {
	return r.query(ctx, `SELECT `+ruleColumns+` FROM sla_rules WHERE active ORDER BY created_at, id`)
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sla_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sla rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("Delete", "sla rule", id, persistence.ErrRuleNotFound)
	}

	return nil
}

func (r *RuleRepository) query(ctx context.Context, query string, args ...any) ([]*models.SLARule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sla rules: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	rules := make([]*models.SLARule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sla rule: %w", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating sla rules: %w", err)
	}

	return rules, nil
}

func scanRule(row scanner) (*models.SLARule, error) {
	var (
		rule                 models.SLARule
		ruleType             string
		alertRecipients      []byte
		escalationRecipients []byte
		escalationHours      sql.NullFloat64
		jobIDs               []byte
		departmentIDs        []byte
	)

	err := row.Scan(
		&rule.ID,
		&rule.OrganizationID,
		&rule.Name,
		&ruleType,
		&rule.ThresholdHours,
		&alertRecipients,
		&escalationRecipients,
		&escalationHours,
		&rule.Active,
		&jobIDs,
		&departmentIDs,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Type = models.SLARuleType(ruleType)

	if escalationHours.Valid {
		rule.EscalationHours = &escalationHours.Float64
	}

	for column, target := range map[*[]byte]any{
		&alertRecipients:      &rule.AlertRecipients,
		&escalationRecipients: &rule.EscalationRecipients,
		&jobIDs:               &rule.JobIDs,
		&departmentIDs:        &rule.DepartmentIDs,
	} {
		err = unmarshalJSON(*column, target)
		if err != nil {
			return nil, err
		}
	}

	return &rule, nil
}
