// Package models defines the domain models for SLA monitoring and workflow automation
package models

import "time"

// TriggerType is the domain event a workflow reacts to.
type TriggerType string

const (
	TriggerApplicationCreated       TriggerType = "application_created"
	TriggerApplicationStageChanged  TriggerType = "application_stage_changed"
	TriggerApplicationStatusChanged TriggerType = "application_status_changed"
	TriggerInterviewScheduled       TriggerType = "interview_scheduled"
	TriggerInterviewCompleted       TriggerType = "interview_completed"
	TriggerOfferCreated             TriggerType = "offer_created"
	TriggerOfferAccepted            TriggerType = "offer_accepted"
	TriggerOfferDeclined            TriggerType = "offer_declined"
	TriggerCandidateCreated         TriggerType = "candidate_created"
	TriggerSLAViolation             TriggerType = "sla_violation"
)

// TriggerTypes lists every trigger a workflow can be bound to.
func TriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerApplicationCreated,
		TriggerApplicationStageChanged,
		TriggerApplicationStatusChanged,
		TriggerInterviewScheduled,
		TriggerInterviewCompleted,
		TriggerOfferCreated,
		TriggerOfferAccepted,
		TriggerOfferDeclined,
		TriggerCandidateCreated,
		TriggerSLAViolation,
	}
}

// ConditionOperator compares a payload field against a condition value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorIn          ConditionOperator = "in"
	OperatorNotIn       ConditionOperator = "not_in"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
)

// LogicalOperator joins a condition with the one that follows it.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// Condition is a single predicate over the trigger payload.
type Condition struct {
	Field           string            `json:"field"                      validate:"required"`
	Operator        ConditionOperator `json:"operator"                   validate:"required"`
	Value           any               `json:"value,omitempty"`
	LogicalOperator LogicalOperator   `json:"logical_operator,omitempty" validate:"omitempty,oneof=AND OR"`
}

// ActionType identifies which collaborator a workflow action is dispatched to.
type ActionType string

const (
	ActionSendEmail        ActionType = "send_email"
	ActionMoveStage        ActionType = "move_stage"
	ActionAddTag           ActionType = "add_tag"
	ActionRemoveTag        ActionType = "remove_tag"
	ActionUpdateField      ActionType = "update_field"
	ActionAssignUser       ActionType = "assign_user"
	ActionCreateTask       ActionType = "create_task"
	ActionSendNotification ActionType = "send_notification"
)

// WorkflowAction is one ordered step of a workflow.
type WorkflowAction struct {
	Type         ActionType     `json:"type"                    validate:"required"`
	Config       map[string]any `json:"config"`
	DelayMinutes int            `json:"delay_minutes,omitempty" validate:"min=0"`
}

// Delay returns the wall-clock delay before the action may run.
func (a WorkflowAction) Delay() time.Duration {
	return time.Duration(a.DelayMinutes) * time.Minute
}

// Workflow is an organization-scoped automation rule bound to a domain event.
type Workflow struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id" validate:"required"`
	Name           string           `json:"name"            validate:"required,min=3"`
	Description    string           `json:"description"`
	TriggerType    TriggerType      `json:"trigger_type"    validate:"required"`
	TriggerConfig  map[string]any   `json:"trigger_config,omitempty"`
	Conditions     []Condition      `json:"conditions"      validate:"dive"`
	Actions        []WorkflowAction `json:"actions"         validate:"required,min=1,dive"`
	Active         bool             `json:"active"`
	CreatedBy      string           `json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
