package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecutionStatus_IsTerminal(t *testing.T) {
	assert.False(t, ExecutionStatusPending.IsTerminal())
	assert.False(t, ExecutionStatusRunning.IsTerminal())
	assert.True(t, ExecutionStatusCompleted.IsTerminal())
	assert.True(t, ExecutionStatusFailed.IsTerminal())
	assert.True(t, ExecutionStatusCancelled.IsTerminal())
}

func TestWorkflowExecution_HasFailedStep(t *testing.T) {
	execution := &WorkflowExecution{Steps: []ExecutionStep{{Status: StepStatusCompleted}}}
	assert.False(t, execution.HasFailedStep())

	execution.Steps = append(execution.Steps, ExecutionStep{Status: StepStatusFailed})
	assert.True(t, execution.HasFailedStep())
}

func TestElapsedHours(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.InDelta(t, 744.0, ElapsedHours(start, start.Add(31*24*time.Hour)), 0.001)
	assert.InDelta(t, 1.33, ElapsedHours(start, start.Add(80*time.Minute)), 0.001)
}

func TestDurations(t *testing.T) {
	rule := &SLARule{ThresholdHours: 1.5}
	assert.Equal(t, 90*time.Minute, rule.Threshold())

	assert.Equal(t, 2*time.Hour, WorkflowAction{DelayMinutes: 120}.Delay())
	assert.Zero(t, WorkflowAction{}.Delay())
}

func TestTriggerTypes(t *testing.T) {
	types := TriggerTypes()

	assert.Contains(t, types, TriggerApplicationCreated)
	assert.Contains(t, types, TriggerApplicationStageChanged)
}
