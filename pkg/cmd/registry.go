// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/atsflow/atsflow/pkg/actions/assign"
	"github.com/atsflow/atsflow/pkg/actions/email"
	"github.com/atsflow/atsflow/pkg/actions/field"
	"github.com/atsflow/atsflow/pkg/actions/notification"
	"github.com/atsflow/atsflow/pkg/actions/stage"
	"github.com/atsflow/atsflow/pkg/actions/tag"
	"github.com/atsflow/atsflow/pkg/actions/task"
	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/atsflow/atsflow/pkg/registry"
)

// NewRegistry registers every native action against the given collaborators.
func NewRegistry(log *slog.Logger, mutators protocol.Mutators) *registry.Registry {
	reg := registry.NewRegistry(log)

	reg.RegisterAction(email.NewActionFactory(mutators.Email))
	reg.RegisterAction(stage.NewActionFactory(mutators.Stages))
	reg.RegisterAction(tag.NewAddActionFactory(mutators.Tags))
	reg.RegisterAction(tag.NewRemoveActionFactory(mutators.Tags))
	reg.RegisterAction(field.NewActionFactory(mutators.Fields))
	reg.RegisterAction(assign.NewActionFactory(mutators.Assigner))
	reg.RegisterAction(task.NewActionFactory(mutators.Tasks))
	reg.RegisterAction(notification.NewActionFactory(mutators.Notifier))

	return reg
}
