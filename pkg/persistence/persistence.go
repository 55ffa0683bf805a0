// Package persistence provides the storage abstraction for SLA rules, violations,
// workflows, executions and the pipeline read models.
package persistence

import (
	"context"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
)

type Persistence interface {
	RuleRepository() RuleRepository
	ViolationRepository() ViolationRepository
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	ScheduledStepRepository() ScheduledStepRepository
	PipelineRepository() PipelineRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type RuleRepository interface {
	Save(ctx context.Context, rule *models.SLARule) error
	GetByID(ctx context.Context, id string) (*models.SLARule, error)
	List(ctx context.Context, organizationID string) ([]*models.SLARule, error)
	ListActive(ctx context.Context) ([]*models.SLARule, error)
	Delete(ctx context.Context, id string) error
}

// ViolationFilter narrows ListViolations. Zero values match everything.
type ViolationFilter struct {
	OrganizationID string
	RuleID         string
	Status         models.ViolationStatus
	Escalated      *bool
	Limit          int
}

type ViolationRepository interface {
	// Upsert inserts the violation or, when one already exists for
	// (RuleID, EntityType, EntityID), refreshes ActualHours on it while it is
	// open. It reports whether a new row was created and fills v with the
	// stored state.
	Upsert(ctx context.Context, v *models.Violation) (bool, error)
	Save(ctx context.Context, v *models.Violation) error
	// UpdateStatus writes the status, acknowledgement, resolution and notes
	// fields of v when the stored status is one of from. Other columns are
	// left alone. On success v is filled with the stored state.
	UpdateStatus(ctx context.Context, v *models.Violation, from ...models.ViolationStatus) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Violation, error)
	List(ctx context.Context, filter ViolationFilter) ([]*models.Violation, error)
	// ListEscalationCandidates returns open violations that have not been escalated.
	ListEscalationCandidates(ctx context.Context) ([]*models.Violation, error)
	// MarkEscalated flips escalated from false to true. It returns false when
	// another caller already escalated the violation.
	MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error)
}

type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context, organizationID string) ([]*models.Workflow, error)
	ListActiveByTrigger(ctx context.Context, organizationID string, triggerType models.TriggerType) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.WorkflowExecution) error
	// Transition writes execution only when the stored status is still from.
	// It returns false when another caller moved the execution first.
	Transition(ctx context.Context, execution *models.WorkflowExecution, from models.ExecutionStatus) (bool, error)
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.WorkflowExecution, error)
	ListByStatus(ctx context.Context, status models.ExecutionStatus, limit int) ([]*models.WorkflowExecution, error)
}

type ScheduledStepRepository interface {
	// Schedule inserts the step or moves an existing one to step.DueAt.
	Schedule(ctx context.Context, step *models.ScheduledStep) error
	// ScheduleIfAbsent inserts the step unless one exists for the same
	// execution and index. It reports whether the step was inserted.
	ScheduleIfAbsent(ctx context.Context, step *models.ScheduledStep) (bool, error)
	// Due returns steps with DueAt at or before now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledStep, error)
	// Claim leases a due step by moving its DueAt to until. Only one caller
	// sees true for a given due time. A step that is never deleted becomes
	// due again when the lease runs out.
	Claim(ctx context.Context, executionID string, stepIndex int, now, until time.Time) (bool, error)
	// Delete removes one step and reports whether it existed.
	Delete(ctx context.Context, executionID string, stepIndex int) (bool, error)
	DeleteByExecution(ctx context.Context, executionID string) error
}

// ApplicationQuery selects applications for a compliance check. StartField
// names the timestamp compared against StartedBefore; Pending restricts
// results to applications whose milestone has not been reached.
type ApplicationQuery struct {
	OrganizationID string
	JobIDs         []string
	DepartmentIDs  []string
	Statuses       []models.ApplicationStatus
	StartField     ApplicationTimestamp
	StartedBefore  time.Time
	StageType      string
	Pending        ApplicationMilestone
}

type ApplicationTimestamp string

const (
	AppliedAt      ApplicationTimestamp = "applied_at"
	StageEnteredAt ApplicationTimestamp = "stage_entered_at"
)

type ApplicationMilestone string

const (
	MilestoneNone          ApplicationMilestone = ""
	MilestoneReviewed      ApplicationMilestone = "reviewed_at"
	MilestoneInterview     ApplicationMilestone = "interview"
	MilestoneOfferExtended ApplicationMilestone = "offer_extended_at"
	MilestoneHired         ApplicationMilestone = "hired_at"
)

// InterviewQuery selects interviews still waiting for feedback.
type InterviewQuery struct {
	OrganizationID  string
	JobIDs          []string
	DepartmentIDs   []string
	Statuses        []models.InterviewStatus
	ScheduledBefore time.Time
}

type PipelineRepository interface {
	FindApplications(ctx context.Context, query ApplicationQuery) ([]*models.Application, error)
	FindInterviewsAwaitingFeedback(ctx context.Context, query InterviewQuery) ([]*models.Interview, error)
	SaveApplication(ctx context.Context, application *models.Application) error
	SaveInterview(ctx context.Context, interview *models.Interview) error
}
