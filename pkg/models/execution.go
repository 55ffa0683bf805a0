package models

import "time"

type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// ExecutionStep records the outcome of one executed action.
type ExecutionStep struct {
	ActionType  ActionType     `json:"action_type"`
	Status      StepStatus     `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Error       string         `json:"error,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
}

// WorkflowExecution is one run of a workflow for one triggering event.
type WorkflowExecution struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	OrganizationID string          `json:"organization_id"`
	EntityType     string          `json:"entity_type"`
	EntityID       string          `json:"entity_id"`
	Status         ExecutionStatus `json:"status"`
	TriggerData    map[string]any  `json:"trigger_data,omitempty"`
	Steps          []ExecutionStep `json:"steps"`
	NextStep       int             `json:"next_step"` // index of the next action to run
	Error          string          `json:"error,omitempty"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// HasFailedStep reports whether any recorded step failed.
func (e *WorkflowExecution) HasFailedStep() bool {
	for _, step := range e.Steps {
		if step.Status == StepStatusFailed {
			return true
		}
	}

	return false
}

// ScheduledStep is a durable marker that the action at StepIndex of an
// execution becomes runnable at DueAt.
type ScheduledStep struct {
	ExecutionID string    `json:"execution_id"`
	StepIndex   int       `json:"step_index"`
	DueAt       time.Time `json:"due_at"`
	CreatedAt   time.Time `json:"created_at"`
}
