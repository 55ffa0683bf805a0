package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/atsflow/atsflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "atsflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Execute workflows and run SLA scans",
		Commands: []*cli.Command{
			NewRunCommand(),
			NewScanCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		log.WithModule("atsflow-worker").Error("atsflow-worker stopped", "error", err)
		os.Exit(1)
	}
}
