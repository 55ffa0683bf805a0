package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE sla_rules (
				id UUID PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				rule_type VARCHAR(64) NOT NULL,
				threshold_hours DOUBLE PRECISION NOT NULL CHECK (threshold_hours > 0),
				alert_recipients JSONB NOT NULL DEFAULT '[]',
				escalation_recipients JSONB NOT NULL DEFAULT '[]',
				escalation_hours DOUBLE PRECISION,
				active BOOLEAN NOT NULL DEFAULT true,
				job_ids JSONB,
				department_ids JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_sla_rules_org ON sla_rules(organization_id);
			CREATE INDEX idx_sla_rules_active ON sla_rules(active);

			CREATE TABLE sla_violations (
				id UUID PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				rule_id UUID NOT NULL REFERENCES sla_rules(id) ON DELETE CASCADE,
				entity_type VARCHAR(32) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				violated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				expected_at TIMESTAMP WITH TIME ZONE NOT NULL,
				actual_hours DOUBLE PRECISION NOT NULL,
				status VARCHAR(32) NOT NULL CHECK (status IN ('open', 'acknowledged', 'resolved')),
				escalated BOOLEAN NOT NULL DEFAULT false,
				escalated_at TIMESTAMP WITH TIME ZONE,
				acknowledged_by VARCHAR(255),
				acknowledged_at TIMESTAMP WITH TIME ZONE,
				resolved_by VARCHAR(255),
				resolved_at TIMESTAMP WITH TIME ZONE,
				notes TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_sla_violations_rule_entity ON sla_violations(rule_id, entity_type, entity_id);
			CREATE INDEX idx_sla_violations_org_status ON sla_violations(organization_id, status);
			CREATE INDEX idx_sla_violations_open ON sla_violations(status, escalated);
		`,
		2: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_type VARCHAR(64) NOT NULL,
				trigger_config JSONB,
				conditions JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				active BOOLEAN NOT NULL DEFAULT true,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_org_trigger ON workflows(organization_id, trigger_type) WHERE active;

			CREATE TABLE workflow_executions (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				organization_id VARCHAR(255) NOT NULL,
				entity_type VARCHAR(32) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				status VARCHAR(32) NOT NULL,
				trigger_data JSONB DEFAULT '{}',
				steps JSONB NOT NULL DEFAULT '[]',
				next_step INT NOT NULL DEFAULT 0,
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_executions_entity ON workflow_executions(entity_type, entity_id);
			CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);

			CREATE TABLE workflow_scheduled_steps (
				execution_id UUID NOT NULL REFERENCES workflow_executions(id) ON DELETE CASCADE,
				step_index INT NOT NULL,
				due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (execution_id, step_index)
			);

			CREATE INDEX idx_workflow_scheduled_steps_due ON workflow_scheduled_steps(due_at);
		`,
		3: `
			CREATE TABLE applications (
				id VARCHAR(255) PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				job_id VARCHAR(255) NOT NULL,
				department_id VARCHAR(255),
				candidate_id VARCHAR(255) NOT NULL,
				status VARCHAR(32) NOT NULL,
				stage_type VARCHAR(64) NOT NULL DEFAULT '',
				applied_at TIMESTAMP WITH TIME ZONE NOT NULL,
				stage_entered_at TIMESTAMP WITH TIME ZONE NOT NULL,
				reviewed_at TIMESTAMP WITH TIME ZONE,
				offer_extended_at TIMESTAMP WITH TIME ZONE,
				hired_at TIMESTAMP WITH TIME ZONE,
				interview_count INT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_applications_org_status ON applications(organization_id, status);

			CREATE TABLE interviews (
				id VARCHAR(255) PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				application_id VARCHAR(255) NOT NULL,
				job_id VARCHAR(255) NOT NULL,
				department_id VARCHAR(255),
				status VARCHAR(32) NOT NULL,
				scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
				feedback_submitted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_interviews_org_status ON interviews(organization_id, status);
		`,
	}
}
