// Package registry keeps the action factories known to the workflow engine.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrUnknownActionType = errors.New("unknown action type")
	ErrInvalidConfig     = errors.New("invalid action config")
)

type Registry struct {
	logger          *slog.Logger
	mu              sync.RWMutex
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log.With("module", "registry"),
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actionFactories[actionFactory.ID()] = actionFactory
	r.logger.Debug("Registered action", "action_type", actionFactory.ID())
}

func (r *Registry) factory(actionType string) (protocol.ActionFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownActionType, actionType)
	}

	return factory, nil
}

func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, err := r.factory(actionType)
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = map[string]any{}
	}

	return factory.Create(config)
}

// ValidateActionConfig checks config against the JSON schema published by
// the action's factory.
func (r *Registry) ValidateActionConfig(actionType string, config map[string]any) error {
	factory, err := r.factory(actionType)
	if err != nil {
		return err
	}

	if config == nil {
		config = map[string]any{}
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("validating %s config: %w", actionType, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return fmt.Errorf("%w for %s: %s", ErrInvalidConfig, actionType, strings.Join(messages, "; "))
	}

	return nil
}

// ActionTypes returns the registered action types in lexical order.
func (r *Registry) ActionTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	slices.Sort(types)

	return types
}

func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.actionFactories) == 0 {
		return "no actions registered", false
	}

	return "ok", true
}
