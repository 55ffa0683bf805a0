// Package template renders workflow action configuration against the data of
// the triggering event.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Data is what an action config template can reference:
//
//	{{ .trigger.to_stage }}  {{ .entity.id }}  {{ now }}
type Data struct {
	EntityType  string
	EntityID    string
	TriggerData map[string]any
}

func (d Data) values() map[string]any {
	trigger := d.TriggerData
	if trigger == nil {
		trigger = map[string]any{}
	}

	return map[string]any{
		"trigger": trigger,
		"entity": map[string]any{
			"type": d.EntityType,
			"id":   d.EntityID,
		},
	}
}

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"default": func(fallback, value any) any {
		if value == nil || value == "" {
			return fallback
		}

		return value
	},
}

// NeedsTemplating reports whether input contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{") && strings.Contains(input, "}}")
}

// Render executes templateStr against data. Missing keys render as empty.
func Render(templateStr string, data Data) (string, error) {
	tmpl, err := template.New("action").Funcs(funcs).Option("missingkey=zero").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data.values())
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// RenderConfig returns a copy of config with every templated string rendered.
// Nested maps and slices are walked; other values are copied as is.
func RenderConfig(config map[string]any, data Data) (map[string]any, error) {
	if config == nil {
		return nil, nil
	}

	out := make(map[string]any, len(config))

	for key, value := range config {
		rendered, err := renderValue(value, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}

		out[key] = rendered
	}

	return out, nil
}

func renderValue(value any, data Data) (any, error) {
	switch v := value.(type) {
	case string:
		if !NeedsTemplating(v) {
			return v, nil
		}

		return Render(v, data)
	case map[string]any:
		return RenderConfig(v, data)
	case []any:
		out := make([]any, len(v))

		for i, item := range v {
			rendered, err := renderValue(item, data)
			if err != nil {
				return nil, err
			}

			out[i] = rendered
		}

		return out, nil
	default:
		return value, nil
	}
}
