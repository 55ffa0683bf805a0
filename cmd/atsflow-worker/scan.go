package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/atsflow/atsflow/pkg/cmd"
	"github.com/atsflow/atsflow/pkg/log"
	"github.com/atsflow/atsflow/pkg/sla"
	cli "github.com/urfave/cli/v3"
)

var errUnknownScan = errors.New("unknown scan type")

// NewScanCommand runs the SLA scans once and prints their reports.
func NewScanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Run SLA scans once and exit",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "Scan to run (compliance, escalation, all)",
				Value: "all",
			},
		}, cmd.RuntimeFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("atsflow-scan")

			rt, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeConfigFrom(command, "atsflow-scan"))
			if err != nil {
				return err
			}

			defer func() {
				if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			reports, err := runScans(ctx, rt.Monitor, command.String("type"))
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(reports)
		},
	}
}

func runScans(ctx context.Context, monitor *sla.Monitor, scanType string) ([]sla.ScanReport, error) {
	var scans []func(context.Context) (sla.ScanReport, error)

	switch scanType {
	case "compliance":
		scans = append(scans, monitor.RunComplianceScan)
	case "escalation":
		scans = append(scans, monitor.RunEscalationScan)
	case "all":
		scans = append(scans, monitor.RunComplianceScan, monitor.RunEscalationScan)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownScan, scanType)
	}

	reports := make([]sla.ScanReport, 0, len(scans))

	for _, scan := range scans {
		report, err := scan(ctx)
		if err != nil {
			return reports, err
		}

		reports = append(reports, report)
	}

	monitor.Wait()

	return reports, nil
}
