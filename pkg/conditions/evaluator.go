// Package conditions evaluates workflow conditions against trigger payloads.
package conditions

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/atsflow/atsflow/pkg/models"
)

type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{
		logger: logger.With("module", "conditions"),
	}
}

// Evaluate folds the conditions left to right. The operator joining
// condition i into the accumulator is the one set on condition i-1, so
// there is no AND/OR precedence.
func (e *Evaluator) Evaluate(conditions []models.Condition, data map[string]any) bool {
	result := true
	join := models.LogicalAnd

	for _, cond := range conditions {
		matched := e.evaluateCondition(cond, data)

		if join == models.LogicalOr {
			result = result || matched
		} else {
			result = result && matched
		}

		join = cond.LogicalOperator
	}

	return result
}

func (e *Evaluator) evaluateCondition(cond models.Condition, data map[string]any) bool {
	value := Lookup(data, cond.Field)

	switch cond.Operator {
	case models.OperatorEquals:
		return Equal(value, cond.Value)
	case models.OperatorNotEquals:
		return !Equal(value, cond.Value)
	case models.OperatorContains:
		s, ok := value.(string)
		if !ok {
			return false
		}

		sub, ok := cond.Value.(string)

		return ok && strings.Contains(s, sub)
	case models.OperatorNotContains:
		s, ok := value.(string)
		if !ok {
			return false
		}

		sub, ok := cond.Value.(string)

		return ok && !strings.Contains(s, sub)
	case models.OperatorGreaterThan:
		cmp, ok := compare(value, cond.Value)

		return ok && cmp > 0
	case models.OperatorLessThan:
		cmp, ok := compare(value, cond.Value)

		return ok && cmp < 0
	case models.OperatorIn:
		list, ok := asList(cond.Value)

		return ok && contains(list, value)
	case models.OperatorNotIn:
		list, ok := asList(cond.Value)

		return ok && !contains(list, value)
	case models.OperatorIsEmpty:
		return isEmpty(value)
	case models.OperatorIsNotEmpty:
		return !isEmpty(value)
	default:
		e.logger.Warn("Unknown condition operator", "operator", cond.Operator, "field", cond.Field)

		return false
	}
}

// Lookup resolves a dot separated path inside data. Any missing or
// non-map intermediate yields nil.
func Lookup(data map[string]any, path string) any {
	var current any = data

	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}

		current, ok = m[key]
		if !ok {
			return nil
		}
	}

	return current
}

// Equal compares two payload values. Numbers compare by value regardless of
// their Go type; everything else must be deeply equal and of the same type.
func Equal(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)

		return ok && af == bf
	}

	return reflect.DeepEqual(a, b)
}

func compare(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}

		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	as, ok := a.(string)
	if !ok {
		return 0, false
	}

	bs, ok := b.(string)
	if !ok {
		return 0, false
	}

	return strings.Compare(as, bs), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}

	if list, ok := v.([]any); ok {
		return list, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}

	return list, true
}

func contains(list []any, value any) bool {
	for _, item := range list {
		if Equal(item, value) {
			return true
		}
	}

	return false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}

	if s, ok := v.(string); ok {
		return s == ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	default:
		return false
	}
}
