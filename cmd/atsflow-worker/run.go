package main

import (
	"context"

	"github.com/atsflow/atsflow/pkg/cmd"
	"github.com/atsflow/atsflow/pkg/log"
	"github.com/atsflow/atsflow/pkg/sla"
	"github.com/atsflow/atsflow/pkg/workflow"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultWorkers   = 10
	defaultQueueSize = 100
)

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start workers to execute workflows and schedule SLA scans",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Maximum concurrent workflow executions",
				Value:   defaultWorkers,
				Sources: cli.EnvVars("WORKFLOW_WORKERS"),
			},
			&cli.IntFlag{
				Name:    "queue-size",
				Usage:   "Executions buffered before new dispatches are rejected",
				Value:   defaultQueueSize,
				Sources: cli.EnvVars("WORKFLOW_QUEUE_SIZE"),
			},
			&cli.StringFlag{
				Name:    "compliance-schedule",
				Usage:   "Cron spec of the SLA compliance scan",
				Value:   sla.DefaultComplianceSchedule,
				Sources: cli.EnvVars("COMPLIANCE_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "escalation-schedule",
				Usage:   "Cron spec of the SLA escalation scan",
				Value:   sla.DefaultEscalationSchedule,
				Sources: cli.EnvVars("ESCALATION_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "step-poll-schedule",
				Usage:   "Cron spec of the delayed step poller",
				Value:   workflow.DefaultStepPollSchedule,
				Sources: cli.EnvVars("STEP_POLL_SCHEDULE"),
			},
		}, cmd.RuntimeFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("atsflow-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing atsflow worker")

			rt, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeConfigFrom(command, "atsflow-worker"))
			if err != nil {
				return err
			}

			defer func() {
				if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			worker := NewWorkerManager(
				workerID,
				rt,
				workflow.NewPool(command.Int("workers"), command.Int("queue-size"), logger),
				Schedules{
					Compliance: command.String("compliance-schedule"),
					Escalation: command.String("escalation-schedule"),
					StepPoll:   command.String("step-poll-schedule"),
				},
				logger,
			)

			return worker.Start(ctx)
		},
	}
}
