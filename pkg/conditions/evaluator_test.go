package conditions

import (
	"log/slog"
	"testing"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/stretchr/testify/assert"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(slog.Default())
}

func TestEvaluator_EmptyConditions(t *testing.T) {
	evaluator := newTestEvaluator()

	assert.True(t, evaluator.Evaluate(nil, map[string]any{"a": 1}))
	assert.True(t, evaluator.Evaluate([]models.Condition{}, nil))
}

func TestEvaluator_LeftToRightFold(t *testing.T) {
	evaluator := newTestEvaluator()

	tests := []struct {
		name       string
		conditions []models.Condition
		data       map[string]any
		expected   bool
	}{
		{
			name: "first matches and is ORed forward",
			conditions: []models.Condition{
				{Field: "a", Operator: models.OperatorEquals, Value: 1, LogicalOperator: models.LogicalOr},
				{Field: "b", Operator: models.OperatorEquals, Value: 2},
			},
			data:     map[string]any{"a": 1, "b": 0},
			expected: true,
		},
		{
			name: "default AND between conditions",
			conditions: []models.Condition{
				{Field: "a", Operator: models.OperatorEquals, Value: 1},
				{Field: "b", Operator: models.OperatorEquals, Value: 2},
			},
			data:     map[string]any{"a": 1, "b": 0},
			expected: false,
		},
		{
			// (true OR false) AND false; precedence would give true OR (false AND false).
			name: "fold differs from precedence",
			conditions: []models.Condition{
				{Field: "a", Operator: models.OperatorEquals, Value: 0, LogicalOperator: models.LogicalOr},
				{Field: "b", Operator: models.OperatorEquals, Value: 0, LogicalOperator: models.LogicalAnd},
				{Field: "c", Operator: models.OperatorEquals, Value: 0},
			},
			data:     map[string]any{"a": 0, "b": 1, "c": 1},
			expected: false,
		},
		{
			name: "operator on last condition is ignored",
			conditions: []models.Condition{
				{Field: "a", Operator: models.OperatorEquals, Value: 2, LogicalOperator: models.LogicalOr},
			},
			data:     map[string]any{"a": 1},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluator.Evaluate(tt.conditions, tt.data))
		})
	}
}

func TestEvaluator_Operators(t *testing.T) {
	evaluator := newTestEvaluator()

	data := map[string]any{
		"stage":  "phone_screen",
		"score":  float64(82),
		"count":  3,
		"name":   "Ada Lovelace",
		"tags":   []any{"senior"},
		"empty":  "",
		"none":   nil,
		"nested": map[string]any{"customFields": map[string]any{"matchScore": 91}},
	}

	tests := []struct {
		name      string
		condition models.Condition
		expected  bool
	}{
		{"equals string", models.Condition{Field: "stage", Operator: models.OperatorEquals, Value: "phone_screen"}, true},
		{"equals int against float", models.Condition{Field: "score", Operator: models.OperatorEquals, Value: 82}, true},
		{"equals is type aware", models.Condition{Field: "count", Operator: models.OperatorEquals, Value: "3"}, false},
		{"not equals", models.Condition{Field: "stage", Operator: models.OperatorNotEquals, Value: "technical"}, true},
		{"contains", models.Condition{Field: "name", Operator: models.OperatorContains, Value: "Love"}, true},
		{"contains on non-string", models.Condition{Field: "count", Operator: models.OperatorContains, Value: "3"}, false},
		{"not contains", models.Condition{Field: "name", Operator: models.OperatorNotContains, Value: "Turing"}, true},
		{"not contains on non-string", models.Condition{Field: "count", Operator: models.OperatorNotContains, Value: "9"}, false},
		{"greater than", models.Condition{Field: "score", Operator: models.OperatorGreaterThan, Value: 80}, true},
		{"greater than false", models.Condition{Field: "count", Operator: models.OperatorGreaterThan, Value: 3}, false},
		{"less than", models.Condition{Field: "count", Operator: models.OperatorLessThan, Value: 4.5}, true},
		{"less than lexicographic", models.Condition{Field: "stage", Operator: models.OperatorLessThan, Value: "technical"}, true},
		{"greater than mismatched types", models.Condition{Field: "stage", Operator: models.OperatorGreaterThan, Value: 1}, false},
		{"in", models.Condition{Field: "stage", Operator: models.OperatorIn, Value: []any{"onsite", "phone_screen"}}, true},
		{"in typed slice", models.Condition{Field: "stage", Operator: models.OperatorIn, Value: []string{"onsite"}}, false},
		{"in non-list", models.Condition{Field: "stage", Operator: models.OperatorIn, Value: "phone_screen"}, false},
		{"not in", models.Condition{Field: "stage", Operator: models.OperatorNotIn, Value: []any{"onsite"}}, true},
		{"not in non-list", models.Condition{Field: "stage", Operator: models.OperatorNotIn, Value: "onsite"}, false},
		{"is empty string", models.Condition{Field: "empty", Operator: models.OperatorIsEmpty}, true},
		{"is empty nil", models.Condition{Field: "none", Operator: models.OperatorIsEmpty}, true},
		{"is empty missing", models.Condition{Field: "missing.deep", Operator: models.OperatorIsEmpty}, true},
		{"is empty list", models.Condition{Field: "tags", Operator: models.OperatorIsEmpty}, false},
		{"is not empty", models.Condition{Field: "tags", Operator: models.OperatorIsNotEmpty}, true},
		{"dot path", models.Condition{Field: "nested.customFields.matchScore", Operator: models.OperatorGreaterThan, Value: 90}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluator.Evaluate([]models.Condition{tt.condition}, data))
		})
	}
}

func TestEvaluator_UnknownOperatorFailsClosed(t *testing.T) {
	evaluator := newTestEvaluator()

	payloads := []map[string]any{
		{},
		{"a": 1},
		{"a": "anything"},
	}

	for _, payload := range payloads {
		result := evaluator.Evaluate([]models.Condition{
			{Field: "a", Operator: "matches_regex", Value: ".*"},
		}, payload)
		assert.False(t, result)
	}
}

func TestLookup(t *testing.T) {
	data := map[string]any{
		"application": map[string]any{
			"stage": "offer",
		},
		"flat": "value",
	}

	assert.Equal(t, "offer", Lookup(data, "application.stage"))
	assert.Equal(t, "value", Lookup(data, "flat"))
	assert.Nil(t, Lookup(data, "application.missing"))
	assert.Nil(t, Lookup(data, "flat.child"))
	assert.Nil(t, Lookup(nil, "a"))
}
