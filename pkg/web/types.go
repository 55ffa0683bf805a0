// Package web provides HTTP request and response types for the automation API.
package web

import "github.com/atsflow/atsflow/pkg/models"

// TriggerRequest reports a pipeline change that may start workflows.
type TriggerRequest struct {
	OrganizationID string             `json:"organization_id" validate:"required"`
	TriggerType    models.TriggerType `json:"trigger_type"    validate:"required"`
	EntityType     string             `json:"entity_type"     validate:"required"`
	EntityID       string             `json:"entity_id"       validate:"required"`
	Payload        map[string]any     `json:"payload"`
}

// TriggerResponse lists the executions created for a trigger. They run
// after the response is sent.
type TriggerResponse struct {
	Executions []*models.WorkflowExecution `json:"executions"`
}

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	OrganizationID string                  `json:"organization_id" validate:"required"`
	Name           string                  `json:"name"            validate:"required,min=3"`
	Description    string                  `json:"description"`
	TriggerType    models.TriggerType      `json:"trigger_type"    validate:"required"`
	TriggerConfig  map[string]any          `json:"trigger_config"`
	Conditions     []models.Condition      `json:"conditions"`
	Actions        []models.WorkflowAction `json:"actions"         validate:"required,min=1"`
	Active         *bool                   `json:"active"`
	CreatedBy      string                  `json:"created_by"`
}

// UpdateWorkflowRequest represents the request body for updating an existing workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name          *string                 `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description   *string                 `json:"description,omitempty"`
	TriggerType   *models.TriggerType     `json:"trigger_type,omitempty"`
	TriggerConfig map[string]any          `json:"trigger_config,omitempty"`
	Conditions    []models.Condition      `json:"conditions,omitempty"`
	Actions       []models.WorkflowAction `json:"actions,omitempty"`
	Active        *bool                   `json:"active,omitempty"`
}

type CreateRuleRequest struct {
	OrganizationID       string             `json:"organization_id"       validate:"required"`
	Name                 string             `json:"name"`
	Type                 models.SLARuleType `json:"type"                  validate:"required"`
	ThresholdHours       float64            `json:"threshold_hours"       validate:"gt=0"`
	AlertRecipients      []string           `json:"alert_recipients"      validate:"required,min=1"`
	EscalationRecipients []string           `json:"escalation_recipients"`
	EscalationHours      *float64           `json:"escalation_hours"`
	JobIDs               []string           `json:"job_ids"`
	DepartmentIDs        []string           `json:"department_ids"`
	Active               *bool              `json:"active"`
}

type UpdateRuleRequest struct {
	Name                 *string  `json:"name,omitempty"`
	ThresholdHours       *float64 `json:"threshold_hours,omitempty"       validate:"omitempty,gt=0"`
	AlertRecipients      []string `json:"alert_recipients,omitempty"`
	EscalationRecipients []string `json:"escalation_recipients,omitempty"`
	EscalationHours      *float64 `json:"escalation_hours,omitempty"`
	JobIDs               []string `json:"job_ids,omitempty"`
	DepartmentIDs        []string `json:"department_ids,omitempty"`
	Active               *bool    `json:"active,omitempty"`
}

type AcknowledgeRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type ResolveRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Notes  string `json:"notes"`
}

// ToWorkflow converts the request into a workflow. Workflows are active
// unless the request says otherwise.
func (r CreateWorkflowRequest) ToWorkflow() *models.Workflow {
	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return &models.Workflow{
		OrganizationID: r.OrganizationID,
		Name:           r.Name,
		Description:    r.Description,
		TriggerType:    r.TriggerType,
		TriggerConfig:  r.TriggerConfig,
		Conditions:     r.Conditions,
		Actions:        r.Actions,
		Active:         active,
		CreatedBy:      r.CreatedBy,
	}
}

// Apply merges the set fields of r into workflow.
func (r UpdateWorkflowRequest) Apply(workflow *models.Workflow) {
	if r.Name != nil {
		workflow.Name = *r.Name
	}

	if r.Description != nil {
		workflow.Description = *r.Description
	}

	if r.TriggerType != nil {
		workflow.TriggerType = *r.TriggerType
	}

	if r.TriggerConfig != nil {
		workflow.TriggerConfig = r.TriggerConfig
	}

	if r.Conditions != nil {
		workflow.Conditions = r.Conditions
	}

	if r.Actions != nil {
		workflow.Actions = r.Actions
	}

	if r.Active != nil {
		workflow.Active = *r.Active
	}
}

func (r CreateRuleRequest) ToRule() *models.SLARule {
	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return &models.SLARule{
		OrganizationID:       r.OrganizationID,
		Name:                 r.Name,
		Type:                 r.Type,
		ThresholdHours:       r.ThresholdHours,
		AlertRecipients:      r.AlertRecipients,
		EscalationRecipients: r.EscalationRecipients,
		EscalationHours:      r.EscalationHours,
		JobIDs:               r.JobIDs,
		DepartmentIDs:        r.DepartmentIDs,
		Active:               active,
	}
}

func (r UpdateRuleRequest) Apply(rule *models.SLARule) {
	if r.Name != nil {
		rule.Name = *r.Name
	}

	if r.ThresholdHours != nil {
		rule.ThresholdHours = *r.ThresholdHours
	}

	if r.AlertRecipients != nil {
		rule.AlertRecipients = r.AlertRecipients
	}

	if r.EscalationRecipients != nil {
		rule.EscalationRecipients = r.EscalationRecipients
	}

	if r.EscalationHours != nil {
		rule.EscalationHours = r.EscalationHours
	}

	if r.JobIDs != nil {
		rule.JobIDs = r.JobIDs
	}

	if r.DepartmentIDs != nil {
		rule.DepartmentIDs = r.DepartmentIDs
	}

	if r.Active != nil {
		rule.Active = *r.Active
	}
}
