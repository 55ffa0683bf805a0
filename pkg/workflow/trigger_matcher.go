package workflow

import (
	"log/slog"

	"github.com/atsflow/atsflow/pkg/conditions"
	"github.com/atsflow/atsflow/pkg/models"
)

// TriggerMatcher decides whether a workflow applies to a trigger payload.
type TriggerMatcher struct {
	logger    *slog.Logger
	evaluator *conditions.Evaluator
}

func NewTriggerMatcher(logger *slog.Logger) *TriggerMatcher {
	logger = logger.With("module", "trigger_matcher")

	return &TriggerMatcher{
		logger:    logger,
		evaluator: conditions.NewEvaluator(logger),
	}
}

// MatchesConfig requires every trigger config key to be present in data with
// an equal value. An empty config matches any payload.
func (tm *TriggerMatcher) MatchesConfig(workflow *models.Workflow, data map[string]any) bool {
	for key, want := range workflow.TriggerConfig {
		got, ok := data[key]
		if !ok || !conditions.Equal(want, got) {
			tm.logger.Debug("Trigger config mismatch",
				"workflow_id", workflow.ID,
				"key", key,
				"want", want,
				"got", got)

			return false
		}
	}

	return true
}

// Matches applies the trigger config and then the workflow conditions.
func (tm *TriggerMatcher) Matches(workflow *models.Workflow, data map[string]any) bool {
	if !tm.MatchesConfig(workflow, data) {
		return false
	}

	if !tm.evaluator.Evaluate(workflow.Conditions, data) {
		tm.logger.Debug("Workflow conditions not met", "workflow_id", workflow.ID)

		return false
	}

	return true
}

// Match filters workflows down to those that apply to data.
func (tm *TriggerMatcher) Match(workflows []*models.Workflow, data map[string]any) []*models.Workflow {
	matched := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if tm.Matches(workflow, data) {
			matched = append(matched, workflow)
		}
	}

	return matched
}
