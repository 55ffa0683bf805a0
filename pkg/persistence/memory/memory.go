// Package memory provides an in-process implementation of persistence.Persistence,
// used by tests and single-node deployments started with DATABASE_URL=memory://.
package memory

import (
	"context"
	"maps"
	"slices"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
)

type Persistence struct {
	rules      *ruleRepository
	violations *violationRepository
	workflows  *workflowRepository
	executions *executionRepository
	steps      *scheduledStepRepository
	pipeline   *pipelineRepository
}

func NewPersistence() *Persistence {
	return &Persistence{
		rules:      newRuleRepository(),
		violations: newViolationRepository(),
		workflows:  newWorkflowRepository(),
		executions: newExecutionRepository(),
		steps:      newScheduledStepRepository(),
		pipeline:   newPipelineRepository(),
	}
}

func (p *Persistence) RuleRepository() persistence.RuleRepository {
	return p.rules
}

func (p *Persistence) ViolationRepository() persistence.ViolationRepository {
	return p.violations
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executions
}

func (p *Persistence) ScheduledStepRepository() persistence.ScheduledStepRepository {
	return p.steps
}

func (p *Persistence) PipelineRepository() persistence.PipelineRepository {
	return p.pipeline
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}

	c := *v

	return &c
}

func copyRule(r *models.SLARule) *models.SLARule {
	c := *r
	c.AlertRecipients = slices.Clone(r.AlertRecipients)
	c.EscalationRecipients = slices.Clone(r.EscalationRecipients)
	c.EscalationHours = copyPtr(r.EscalationHours)
	c.JobIDs = slices.Clone(r.JobIDs)
	c.DepartmentIDs = slices.Clone(r.DepartmentIDs)

	return &c
}

func copyViolation(v *models.Violation) *models.Violation {
	c := *v
	c.EscalatedAt = copyPtr(v.EscalatedAt)
	c.AcknowledgedAt = copyPtr(v.AcknowledgedAt)
	c.ResolvedAt = copyPtr(v.ResolvedAt)

	return &c
}

func copyWorkflow(w *models.Workflow) *models.Workflow {
	c := *w
	c.TriggerConfig = maps.Clone(w.TriggerConfig)
	c.Conditions = slices.Clone(w.Conditions)

	c.Actions = make([]models.WorkflowAction, len(w.Actions))
	for i, action := range w.Actions {
		action.Config = maps.Clone(action.Config)
		c.Actions[i] = action
	}

	return &c
}

func copyExecution(e *models.WorkflowExecution) *models.WorkflowExecution {
	c := *e
	c.TriggerData = maps.Clone(e.TriggerData)
	c.StartedAt = copyPtr(e.StartedAt)
	c.CompletedAt = copyPtr(e.CompletedAt)

	c.Steps = make([]models.ExecutionStep, len(e.Steps))
	for i, step := range e.Steps {
		step.Result = maps.Clone(step.Result)
		c.Steps[i] = step
	}

	return &c
}

func copyApplication(a *models.Application) *models.Application {
	c := *a
	c.ReviewedAt = copyPtr(a.ReviewedAt)
	c.OfferExtendedAt = copyPtr(a.OfferExtendedAt)
	c.HiredAt = copyPtr(a.HiredAt)

	return &c
}

func copyInterview(i *models.Interview) *models.Interview {
	c := *i
	c.FeedbackSubmittedAt = copyPtr(i.FeedbackSubmittedAt)

	return &c
}
