package sla

import (
	"context"

	"github.com/atsflow/atsflow/pkg/scheduler"
)

const (
	DefaultComplianceSchedule = "@every 10m"
	DefaultEscalationSchedule = "@every 1h"
)

// Jobs returns the compliance and escalation scans as scheduler jobs. Empty
// specs fall back to the defaults.
func (m *Monitor) Jobs(complianceSpec, escalationSpec string) []scheduler.Job {
	if complianceSpec == "" {
		complianceSpec = DefaultComplianceSchedule
	}

	if escalationSpec == "" {
		escalationSpec = DefaultEscalationSchedule
	}

	return []scheduler.Job{
		{
			Name: "sla_compliance",
			Spec: complianceSpec,
			Run: func(ctx context.Context) {
				_, err := m.RunComplianceScan(ctx)
				if err != nil {
					m.logger.ErrorContext(ctx, "Compliance scan failed", "error", err)
				}
			},
		},
		{
			Name: "sla_escalation",
			Spec: escalationSpec,
			Run: func(ctx context.Context) {
				_, err := m.RunEscalationScan(ctx)
				if err != nil {
					m.logger.ErrorContext(ctx, "Escalation scan failed", "error", err)
				}
			},
		},
	}
}
