package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/atsflow/atsflow/pkg/commands"
	"github.com/atsflow/atsflow/pkg/eventbus"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/registry"
	"github.com/atsflow/atsflow/pkg/sla"
	"github.com/atsflow/atsflow/pkg/workflow"
)

// RuntimeConfig is the configuration shared by every atsflow binary.
type RuntimeConfig struct {
	ServiceName   string
	DatabaseURL   string
	RedisURL      string
	EventBus      EventBusConfig
	Communicator  CommunicatorConfig
	ActionTimeout time.Duration
	OTELEnabled   bool
}

// Runtime holds the wired components of a running process.
type Runtime struct {
	Persistence persistence.Persistence
	EventBus    eventbus.EventBus
	Registry    *registry.Registry
	Engine      *workflow.Engine
	Monitor     *sla.Monitor
	Steps       persistence.ScheduledStepRepository

	closers []func(ctx context.Context) error
}

// NewRuntime connects storage and the event bus and builds the workflow engine
// and SLA monitor on top of them. Executions are dispatched through the bus.
func NewRuntime(ctx context.Context, logger *slog.Logger, config RuntimeConfig) (*Runtime, error) {
	rt := &Runtime{}

	tracer, shutdown, err := NewTracer(ctx, logger, config.OTELEnabled, config.ServiceName)
	if err != nil {
		return nil, err
	}

	rt.closers = append(rt.closers, shutdown)

	rt.Persistence, err = NewPersistence(ctx, logger, config.DatabaseURL)
	if err != nil {
		return nil, rt.abort(ctx, err)
	}

	rt.closers = append(rt.closers, rt.Persistence.Close)

	config.EventBus.ServiceName = config.ServiceName
	config.EventBus.OTELEnabled = config.OTELEnabled

	rt.EventBus, err = NewEventBus(config.EventBus, logger)
	if err != nil {
		return nil, rt.abort(ctx, err)
	}

	rt.closers = append(rt.closers, func(context.Context) error { return rt.EventBus.Close() })

	rt.Steps = rt.Persistence.ScheduledStepRepository()

	engineOpts := []workflow.Option{
		workflow.WithDispatcher(workflow.NewEventBusDispatcher(rt.EventBus)),
		workflow.WithEventPublisher(rt.EventBus),
		workflow.WithTracer(tracer),
		workflow.WithActionTimeout(config.ActionTimeout),
	}

	stepStore, err := NewStepStore(ctx, logger, config.RedisURL)
	if err != nil {
		return nil, rt.abort(ctx, err)
	}

	if stepStore != nil {
		rt.Steps = stepStore
		rt.closers = append(rt.closers, func(context.Context) error { return stepStore.Close() })
		engineOpts = append(engineOpts, workflow.WithStepStore(stepStore))
	}

	mutators := commands.NewPublisher(rt.EventBus, logger).Mutators()

	communicator, err := NewCommunicator(logger, mutators.Email, config.Communicator)
	if err != nil {
		return nil, rt.abort(ctx, err)
	}

	rt.Registry = NewRegistry(logger, mutators)
	rt.Engine = workflow.NewEngine(rt.Persistence, rt.Registry, logger, engineOpts...)
	rt.Monitor = sla.NewMonitor(rt.Persistence, communicator, logger,
		sla.WithEventPublisher(rt.EventBus),
		sla.WithWorkflowTrigger(rt.Engine),
		sla.WithTracer(tracer),
	)

	return rt, nil
}

func (rt *Runtime) abort(ctx context.Context, cause error) error {
	return errors.Join(cause, rt.Close(ctx))
}

// Close waits for in-flight SLA notifications and releases every resource in
// reverse order of acquisition.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt.Monitor != nil {
		rt.Monitor.Wait()
	}

	var errs []error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	rt.closers = nil

	return errors.Join(errs...)
}
