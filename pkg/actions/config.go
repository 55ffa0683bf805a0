// Package actions holds helpers shared by the workflow action implementations.
package actions

import (
	"errors"
	"fmt"
	"maps"
)

var ErrMissingConfig = errors.New("missing required config")

// String returns config[key] when it is a string, or "".
func String(config map[string]any, key string) string {
	s, _ := config[key].(string)

	return s
}

// RequireString returns config[key] or ErrMissingConfig when it is absent or empty.
func RequireString(config map[string]any, key string) (string, error) {
	s := String(config, key)
	if s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingConfig, key)
	}

	return s, nil
}

// Strings accepts a []string, a []any of strings or a single string.
func Strings(config map[string]any, key string) []string {
	switch v := config[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}

		return out
	case string:
		if v == "" {
			return nil
		}

		return []string{v}
	default:
		return nil
	}
}

// Float returns config[key] as a float64 for any numeric value.
func Float(config map[string]any, key string) (float64, bool) {
	switch n := config[key].(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Result echoes the action config and marks the step successful.
func Result(config map[string]any) map[string]any {
	result := make(map[string]any, len(config)+1)
	maps.Copy(result, config)
	result["success"] = true

	return result
}
