package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/atsflow/atsflow/pkg/cmd"
	"github.com/atsflow/atsflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "atsflow-api",
		Usage:                 "Manage workflows and SLA rules and receive pipeline triggers",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		}, cmd.RuntimeFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("atsflow-api")

			logger.InfoContext(ctx, "Initializing atsflow API")

			rt, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeConfigFrom(command, "atsflow-api"))
			if err != nil {
				return err
			}

			defer func() {
				if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			api := NewAPI(logger, rt)

			return api.Start(ctx, command.Int("port"))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		log.WithModule("atsflow-api").Error("atsflow-api stopped", "error", err)
		os.Exit(1)
	}
}
