package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/lib/pq"
)

// PipelineRepository reads and writes the application and interview read models.
type PipelineRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const applicationColumns = `
	id
  , organization_id
  , job_id
  , department_id
  , candidate_id
  , status
  , stage_type
  , applied_at
  , stage_entered_at
  , reviewed_at
  , offer_extended_at
  , hired_at
  , interview_count
`

const interviewColumns = `
	id
  , organization_id
  , application_id
  , job_id
  , department_id
  , status
  , scheduled_at
  , feedback_submitted_at
`

var milestoneClauses = map[persistence.ApplicationMilestone]string{
	persistence.MilestoneReviewed:      "reviewed_at IS NULL",
	persistence.MilestoneInterview:     "interview_count = 0",
	persistence.MilestoneOfferExtended: "offer_extended_at IS NULL",
	persistence.MilestoneHired:         "hired_at IS NULL",
}

// whereBuilder numbers positional parameters as clauses are added.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *whereBuilder) raw(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *whereBuilder) String() string {
	return strings.Join(w.clauses, " AND ")
}

func (r *PipelineRepository) FindApplications(
	ctx context.Context,
	query persistence.ApplicationQuery,
) ([]*models.Application, error) {
	where := &whereBuilder{}
	where.add("organization_id = ?", query.OrganizationID)

	if len(query.JobIDs) > 0 {
		where.add("job_id = ANY(?)", pq.Array(query.JobIDs))
	}

	if len(query.DepartmentIDs) > 0 {
		where.add("department_id = ANY(?)", pq.Array(query.DepartmentIDs))
	}

	if len(query.Statuses) > 0 {
		statuses := make([]string, len(query.Statuses))
		for i, status := range query.Statuses {
			statuses[i] = string(status)
		}

		where.add("status = ANY(?)", pq.Array(statuses))
	}

	if query.StageType != "" {
		where.add("stage_type = ?", query.StageType)
	}

	if !query.StartedBefore.IsZero() {
		column := "applied_at"
		if query.StartField == persistence.StageEnteredAt {
			column = "stage_entered_at"
		}

		where.add(column+" <= ?", query.StartedBefore)
	}

	if clause, ok := milestoneClauses[query.Pending]; ok {
		where.raw(clause)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE `+where.String()+` ORDER BY applied_at`,
		where.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	applications := make([]*models.Application, 0)

	for rows.Next() {
		var (
			app             models.Application
			departmentID    sql.NullString
			status          string
			reviewedAt      sql.NullTime
			offerExtendedAt sql.NullTime
			hiredAt         sql.NullTime
		)

		err := rows.Scan(
			&app.ID,
			&app.OrganizationID,
			&app.JobID,
			&departmentID,
			&app.CandidateID,
			&status,
			&app.StageType,
			&app.AppliedAt,
			&app.StageEnteredAt,
			&reviewedAt,
			&offerExtendedAt,
			&hiredAt,
			&app.InterviewCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}

		app.DepartmentID = departmentID.String
		app.Status = models.ApplicationStatus(status)
		app.ReviewedAt = timePtr(reviewedAt)
		app.OfferExtendedAt = timePtr(offerExtendedAt)
		app.HiredAt = timePtr(hiredAt)

		applications = append(applications, &app)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return applications, nil
}

func (r *PipelineRepository) FindInterviewsAwaitingFeedback(
	ctx context.Context,
	query persistence.InterviewQuery,
) ([]*models.Interview, error) {
	where := &whereBuilder{}
	where.add("organization_id = ?", query.OrganizationID)
	where.add("scheduled_at <= ?", query.ScheduledBefore)
	where.raw("feedback_submitted_at IS NULL")

	if len(query.JobIDs) > 0 {
		where.add("job_id = ANY(?)", pq.Array(query.JobIDs))
	}

	if len(query.DepartmentIDs) > 0 {
		where.add("department_id = ANY(?)", pq.Array(query.DepartmentIDs))
	}

	if len(query.Statuses) > 0 {
		statuses := make([]string, len(query.Statuses))
		for i, status := range query.Statuses {
			statuses[i] = string(status)
		}

		where.add("status = ANY(?)", pq.Array(statuses))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE `+where.String()+` ORDER BY scheduled_at`,
		where.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query interviews: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	interviews := make([]*models.Interview, 0)

	for rows.Next() {
		var (
			interview    models.Interview
			departmentID sql.NullString
			status       string
			feedbackAt   sql.NullTime
		)

		err := rows.Scan(
			&interview.ID,
			&interview.OrganizationID,
			&interview.ApplicationID,
			&interview.JobID,
			&departmentID,
			&status,
			&interview.ScheduledAt,
			&feedbackAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}

		interview.DepartmentID = departmentID.String
		interview.Status = models.InterviewStatus(status)
		interview.FeedbackSubmittedAt = timePtr(feedbackAt)

		interviews = append(interviews, &interview)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating interviews: %w", err)
	}

	return interviews, nil
}

func (r *PipelineRepository) SaveApplication(ctx context.Context, app *models.Application) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
		  , stage_type = EXCLUDED.stage_type
		  , stage_entered_at = EXCLUDED.stage_entered_at
		  , reviewed_at = EXCLUDED.reviewed_at
		  , offer_extended_at = EXCLUDED.offer_extended_at
		  , hired_at = EXCLUDED.hired_at
		  , interview_count = EXCLUDED.interview_count
	`,
		app.ID,
		app.OrganizationID,
		app.JobID,
		nullString(app.DepartmentID),
		app.CandidateID,
		string(app.Status),
		app.StageType,
		app.AppliedAt,
		app.StageEnteredAt,
		app.ReviewedAt,
		app.OfferExtendedAt,
		app.HiredAt,
		app.InterviewCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save application: %w", err)
	}

	return nil
}

func (r *PipelineRepository) SaveInterview(ctx context.Context, interview *models.Interview) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO interviews (`+interviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
		  , scheduled_at = EXCLUDED.scheduled_at
		  , feedback_submitted_at = EXCLUDED.feedback_submitted_at
	`,
		interview.ID,
		interview.OrganizationID,
		interview.ApplicationID,
		interview.JobID,
		nullString(interview.DepartmentID),
		string(interview.Status),
		interview.ScheduledAt,
		interview.FeedbackSubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save interview: %w", err)
	}

	return nil
}
