package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Children first, parents last
	for _, table := range []string{
		"workflow_scheduled_steps", "workflow_executions", "workflows",
		"sla_violations", "sla_rules", "interviews", "applications", "schema_migrations",
	} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("atsflow_test"),
			postgres.WithUsername("atsflow"),
			postgres.WithPassword("atsflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx
}

func saveRule(ctx context.Context, t *testing.T, p *postgresql.Persistence) *models.SLARule {
	t.Helper()

	escalation := 48.0
	now := time.Now().UTC().Truncate(time.Millisecond)
	rule := &models.SLARule{
		ID:                   uuid.NewString(),
		OrganizationID:       "org-1",
		Name:                 "Hire within 30 days",
		Type:                 models.SLATimeToHire,
		ThresholdHours:       720,
		AlertRecipients:      []string{"lead@example.com"},
		EscalationRecipients: []string{"vp@example.com"},
		EscalationHours:      &escalation,
		Active:               true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	require.NoError(t, p.RuleRepository().Save(ctx, rule))

	return rule
}

func TestRuleRepository_RoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)
	rule := saveRule(ctx, t, p)

	got, err := p.RuleRepository().GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.Type, got.Type)
	assert.Equal(t, rule.AlertRecipients, got.AlertRecipients)
	require.NotNil(t, got.EscalationHours)
	assert.InDelta(t, 48.0, *got.EscalationHours, 0.001)
	assert.Nil(t, got.JobIDs)

	active, err := p.RuleRepository().ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = p.RuleRepository().GetByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, persistence.ErrRuleNotFound)
}

func TestViolationRepository_UpsertUsesUniqueKey(t *testing.T) {
	p, ctx := setupTestDB(t)
	rule := saveRule(ctx, t, p)
	repo := p.ViolationRepository()
	now := time.Now().UTC().Truncate(time.Millisecond)

	build := func(hours float64) *models.Violation {
		return &models.Violation{
			ID:             uuid.NewString(),
			OrganizationID: "org-1",
			RuleID:         rule.ID,
			EntityType:     models.EntityApplication,
			EntityID:       "app-1",
			ViolatedAt:     now,
			ExpectedAt:     now.Add(-24 * time.Hour),
			ActualHours:    hours,
			Status:         models.ViolationOpen,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	first := build(744)
	created, err := repo.Upsert(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := build(745.5)
	created, err = repo.Upsert(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.InDelta(t, 745.5, second.ActualHours, 0.001)

	all, err := repo.List(ctx, persistence.ViolationFilter{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	ok, err := repo.MarkEscalated(ctx, first.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkEscalated(ctx, first.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.MarkEscalated(ctx, uuid.NewString(), now)
	require.ErrorIs(t, err, persistence.ErrViolationNotFound)

	// second was read before the escalation; its write must not undo it
	acked := now.Add(time.Minute)
	second.Status = models.ViolationAcknowledged
	second.AcknowledgedBy = "user-1"
	second.AcknowledgedAt = &acked
	second.UpdatedAt = acked

	ok, err = repo.UpdateStatus(ctx, second, models.ViolationOpen, models.ViolationAcknowledged)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, second.Escalated)

	stored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ViolationAcknowledged, stored.Status)
	assert.Equal(t, "user-1", stored.AcknowledgedBy)
	assert.True(t, stored.Escalated)

	second.Status = models.ViolationResolved
	ok, err = repo.UpdateStatus(ctx, second, models.ViolationOpen)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.UpdateStatus(ctx, &models.Violation{ID: uuid.NewString()}, models.ViolationOpen)
	require.ErrorIs(t, err, persistence.ErrViolationNotFound)
}

func TestWorkflowAndExecutionRepositories(t *testing.T) {
	p, ctx := setupTestDB(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	workflow := &models.Workflow{
		ID:             uuid.NewString(),
		OrganizationID: "org-1",
		Name:           "Phone screen follow-up",
		TriggerType:    models.TriggerApplicationStageChanged,
		TriggerConfig:  map[string]any{"toStageType": "phone_screen"},
		Conditions: []models.Condition{
			{Field: "score", Operator: models.OperatorGreaterThan, Value: float64(70)},
		},
		Actions: []models.WorkflowAction{
			{Type: models.ActionAddTag, Config: map[string]any{"tag": "screened"}},
			{Type: models.ActionSendEmail, Config: map[string]any{"templateId": "t1"}, DelayMinutes: 60},
		},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	matching, err := p.WorkflowRepository().ListActiveByTrigger(ctx, "org-1", models.TriggerApplicationStageChanged)
	require.NoError(t, err)
	require.Len(t, matching, 1)
	assert.Equal(t, "phone_screen", matching[0].TriggerConfig["toStageType"])
	assert.Equal(t, 60, matching[0].Actions[1].DelayMinutes)

	execution := &models.WorkflowExecution{
		ID:             uuid.NewString(),
		WorkflowID:     workflow.ID,
		OrganizationID: "org-1",
		EntityType:     "application",
		EntityID:       "app-1",
		Status:         models.ExecutionStatusPending,
		TriggerData:    map[string]any{"toStageType": "phone_screen"},
		CreatedAt:      now,
	}
	require.NoError(t, p.ExecutionRepository().Save(ctx, execution))

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &now
	execution.NextStep = 1
	execution.Steps = []models.ExecutionStep{{
		ActionType: models.ActionAddTag, Status: models.StepStatusCompleted,
		StartedAt: now, CompletedAt: now, Result: map[string]any{"success": true},
	}}

	started, err := p.ExecutionRepository().Transition(ctx, execution, models.ExecutionStatusPending)
	require.NoError(t, err)
	assert.True(t, started)

	started, err = p.ExecutionRepository().Transition(ctx, execution, models.ExecutionStatusPending)
	require.NoError(t, err)
	assert.False(t, started, "no longer pending")

	_, err = p.ExecutionRepository().Transition(ctx, &models.WorkflowExecution{ID: uuid.NewString()},
		models.ExecutionStatusPending)
	require.ErrorIs(t, err, persistence.ErrExecutionNotFound)

	got, err := p.ExecutionRepository().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, got.Status)
	assert.Equal(t, 1, got.NextStep)
	require.Len(t, got.Steps, 1)

	byEntity, err := p.ExecutionRepository().ListByEntity(ctx, "application", "app-1")
	require.NoError(t, err)
	assert.Len(t, byEntity, 1)

	steps := p.ScheduledStepRepository()
	require.NoError(t, steps.Schedule(ctx, &models.ScheduledStep{
		ExecutionID: execution.ID, StepIndex: 1, DueAt: now.Add(-time.Second), CreatedAt: now,
	}))

	due, err := steps.Due(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	lease := now.Add(5 * time.Minute)

	claimed, err := steps.Claim(ctx, execution.ID, 1, now, lease)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = steps.Claim(ctx, execution.ID, 1, now, lease)
	require.NoError(t, err)
	assert.False(t, claimed)

	due, err = steps.Due(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	added, err := steps.ScheduleIfAbsent(ctx, &models.ScheduledStep{
		ExecutionID: execution.ID, StepIndex: 1, DueAt: now, CreatedAt: now,
	})
	require.NoError(t, err)
	assert.False(t, added)

	due, err = steps.Due(ctx, lease, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	deleted, err := steps.Delete(ctx, execution.ID, 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = steps.Delete(ctx, execution.ID, 1)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPipelineRepository_FindApplications(t *testing.T) {
	p, ctx := setupTestDB(t)
	now := time.Now().UTC().Truncate(time.Millisecond)
	repo := p.PipelineRepository()

	require.NoError(t, repo.SaveApplication(ctx, &models.Application{
		ID: "app-old", OrganizationID: "org-1", JobID: "job-1", CandidateID: "c-1",
		Status: models.ApplicationActive, AppliedAt: now.Add(-31 * 24 * time.Hour), StageEnteredAt: now,
	}))
	require.NoError(t, repo.SaveApplication(ctx, &models.Application{
		ID: "app-new", OrganizationID: "org-1", JobID: "job-1", CandidateID: "c-2",
		Status: models.ApplicationActive, AppliedAt: now, StageEnteredAt: now,
	}))

	found, err := repo.FindApplications(ctx, persistence.ApplicationQuery{
		OrganizationID: "org-1",
		JobIDs:         []string{"job-1", "job-2"},
		Statuses:       []models.ApplicationStatus{models.ApplicationActive},
		StartField:     persistence.AppliedAt,
		StartedBefore:  now.Add(-720 * time.Hour),
		Pending:        persistence.MilestoneHired,
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "app-old", found[0].ID)

	require.NoError(t, repo.SaveInterview(ctx, &models.Interview{
		ID: "int-1", OrganizationID: "org-1", ApplicationID: "app-old", JobID: "job-1",
		Status: models.InterviewCompleted, ScheduledAt: now.Add(-72 * time.Hour),
	}))

	interviews, err := repo.FindInterviewsAwaitingFeedback(ctx, persistence.InterviewQuery{
		OrganizationID:  "org-1",
		Statuses:        []models.InterviewStatus{models.InterviewScheduled, models.InterviewCompleted},
		ScheduledBefore: now.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, interviews, 1)
}
