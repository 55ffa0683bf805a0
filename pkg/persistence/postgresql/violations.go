package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/lib/pq"
)

// ViolationRepository handles SLA violation database operations.
type ViolationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const violationColumns = `
	id
  , organization_id
  , rule_id
  , entity_type
  , entity_id
  , violated_at
  , expected_at
  , actual_hours
  , status
  , escalated
  , escalated_at
  , acknowledged_by
  , acknowledged_at
  , resolved_by
  , resolved_at
  , notes
  , created_at
  , updated_at
`

// Upsert relies on the unique (rule_id, entity_type, entity_id) index. xmax is
// zero only for a freshly inserted tuple.
func (r *ViolationRepository) Upsert(ctx context.Context, v *models.Violation) (bool, error) {
	query := `
		INSERT INTO sla_violations (` + violationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (rule_id, entity_type, entity_id) DO UPDATE SET
			actual_hours = CASE WHEN sla_violations.status = 'open'
				THEN EXCLUDED.actual_hours ELSE sla_violations.actual_hours END
		  , updated_at = CASE WHEN sla_violations.status = 'open'
				THEN EXCLUDED.updated_at ELSE sla_violations.updated_at END
		RETURNING ` + violationColumns + `, (xmax = 0) AS inserted
	`

	row := r.db.QueryRowContext(ctx, query, violationArgs(v)...)

	stored, inserted, err := scanViolationWith(row, true)
	if err != nil {
		return false, fmt.Errorf("failed to upsert violation: %w", err)
	}

	*v = *stored

	return inserted, nil
}

func (r *ViolationRepository) Save(ctx context.Context, v *models.Violation) error {
	query := `
		INSERT INTO sla_violations (` + violationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			actual_hours = EXCLUDED.actual_hours
		  , status = EXCLUDED.status
		  , escalated = EXCLUDED.escalated
		  , escalated_at = EXCLUDED.escalated_at
		  , acknowledged_by = EXCLUDED.acknowledged_by
		  , acknowledged_at = EXCLUDED.acknowledged_at
		  , resolved_by = EXCLUDED.resolved_by
		  , resolved_at = EXCLUDED.resolved_at
		  , notes = EXCLUDED.notes
		  , updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, violationArgs(v)...)
	if err != nil {
		return fmt.Errorf("failed to save violation: %w", err)
	}

	return nil
}

func (r *ViolationRepository) UpdateStatus(
	ctx context.Context,
	v *models.Violation,
	from ...models.ViolationStatus,
) (bool, error) {
	statuses := make([]string, len(from))
	for i, status := range from {
		statuses[i] = string(status)
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE sla_violations
		SET status = $2
		  , acknowledged_by = $3
		  , acknowledged_at = $4
		  , resolved_by = $5
		  , resolved_at = $6
		  , notes = $7
		  , updated_at = $8
		WHERE id = $1 AND status = ANY($9)
		RETURNING `+violationColumns,
		v.ID,
		string(v.Status),
		nullString(v.AcknowledgedBy),
		v.AcknowledgedAt,
		nullString(v.ResolvedBy),
		v.ResolvedAt,
		nullString(v.Notes),
		v.UpdatedAt,
		pq.Array(statuses),
	)

	stored, _, err := scanViolationWith(row, false)
	if err == nil {
		*v = *stored

		return true, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to update violation status: %w", err)
	}

	return false, r.ensureExists(ctx, "UpdateStatus", v.ID)
}

func (r *ViolationRepository) GetByID(ctx context.Context, id string) (*models.Violation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+violationColumns+` FROM sla_violations WHERE id = $1`, id)

	v, _, err := scanViolationWith(row, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "violation", id, persistence.ErrViolationNotFound)
		}

		return nil, fmt.Errorf("failed to scan violation: %w", err)
	}

	return v, nil
}

func (r *ViolationRepository) List(ctx context.Context, filter persistence.ViolationFilter) ([]*models.Violation, error) {
	where := &whereBuilder{}
	where.raw("TRUE")

	if filter.OrganizationID != "" {
		where.add("organization_id = ?", filter.OrganizationID)
	}

	if filter.RuleID != "" {
		where.add("rule_id = ?", filter.RuleID)
	}

	if filter.Status != "" {
		where.add("status = ?", string(filter.Status))
	}

	if filter.Escalated != nil {
		where.add("escalated = ?", *filter.Escalated)
	}

	query := `SELECT ` + violationColumns + ` FROM sla_violations WHERE ` + where.String() + ` ORDER BY violated_at`
	args := where.args

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	return r.query(ctx, query, args...)
}

func (r *ViolationRepository) ListEscalationCandidates(ctx context.Context) ([]*models.Violation, error) {
	return r.query(ctx, `
		SELECT `+violationColumns+`
		FROM sla_violations
		WHERE status = 'open' AND NOT escalated
		ORDER BY violated_at
	`)
}

func (r *ViolationRepository) MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sla_violations
		SET escalated = true, escalated_at = $2, updated_at = $2
		WHERE id = $1 AND NOT escalated
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark violation escalated: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 1 {
		return true, nil
	}

	return false, r.ensureExists(ctx, "MarkEscalated", id)
}

func (r *ViolationRepository) ensureExists(ctx context.Context, op, id string) error {
	var exists bool

	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sla_violations WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check violation: %w", err)
	}

	if !exists {
		return persistence.NewEntityError(op, "violation", id, persistence.ErrViolationNotFound)
	}

	return nil
}

func (r *ViolationRepository) query(ctx context.Context, query string, args ...any) ([]*models.Violation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	violations := make([]*models.Violation, 0)

	for rows.Next() {
		v, _, err := scanViolationWith(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}

		violations = append(violations, v)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating violations: %w", err)
	}

	return violations, nil
}

func violationArgs(v *models.Violation) []any {
	return []any{
		v.ID,
		v.OrganizationID,
		v.RuleID,
		string(v.EntityType),
		v.EntityID,
		v.ViolatedAt,
		v.ExpectedAt,
		v.ActualHours,
		string(v.Status),
		v.Escalated,
		v.EscalatedAt,
		nullString(v.AcknowledgedBy),
		v.AcknowledgedAt,
		nullString(v.ResolvedBy),
		v.ResolvedAt,
		nullString(v.Notes),
		v.CreatedAt,
		v.UpdatedAt,
	}
}

func scanViolationWith(row scanner, withInserted bool) (*models.Violation, bool, error) {
	var (
		v              models.Violation
		entityType     string
		status         string
		escalatedAt    sql.NullTime
		acknowledgedBy sql.NullString
		acknowledgedAt sql.NullTime
		resolvedBy     sql.NullString
		resolvedAt     sql.NullTime
		notes          sql.NullString
		inserted       bool
	)

	dest := []any{
		&v.ID,
		&v.OrganizationID,
		&v.RuleID,
		&entityType,
		&v.EntityID,
		&v.ViolatedAt,
		&v.ExpectedAt,
		&v.ActualHours,
		&status,
		&v.Escalated,
		&escalatedAt,
		&acknowledgedBy,
		&acknowledgedAt,
		&resolvedBy,
		&resolvedAt,
		&notes,
		&v.CreatedAt,
		&v.UpdatedAt,
	}
	if withInserted {
		dest = append(dest, &inserted)
	}

	err := row.Scan(dest...)
	if err != nil {
		return nil, false, err
	}

	v.EntityType = models.EntityType(entityType)
	v.Status = models.ViolationStatus(status)
	v.EscalatedAt = timePtr(escalatedAt)
	v.AcknowledgedBy = acknowledgedBy.String
	v.AcknowledgedAt = timePtr(acknowledgedAt)
	v.ResolvedBy = resolvedBy.String
	v.ResolvedAt = timePtr(resolvedAt)
	v.Notes = notes.String

	return &v, inserted, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	return &t.Time
}
