package events

import (
	"time"

	"github.com/atsflow/atsflow/pkg/models"
)

const (
	SLAViolationOpenedEvent    EventType = "sla.violation.opened"
	SLAViolationEscalatedEvent EventType = "sla.violation.escalated"
)

// SLAViolationOpened is published once, when a violation record is first created.
type SLAViolationOpened struct {
	BaseEvent

	Violation  models.Violation   `json:"violation"`
	RuleName   string             `json:"rule_name"`
	RuleType   models.SLARuleType `json:"rule_type"`
	Recipients []string           `json:"recipients"`
}

func (s SLAViolationOpened) GetType() EventType {
	return SLAViolationOpenedEvent
}

func NewSLAViolationOpened(rule *models.SLARule, violation *models.Violation, recipients []string) *SLAViolationOpened {
	return &SLAViolationOpened{
		BaseEvent:  NewBaseEvent(SLAViolationOpenedEvent, violation.OrganizationID),
		Violation:  *violation,
		RuleName:   rule.Name,
		RuleType:   rule.Type,
		Recipients: recipients,
	}
}

type SLAViolationEscalated struct {
	BaseEvent

	Violation   models.Violation `json:"violation"`
	RuleName    string           `json:"rule_name"`
	Recipients  []string         `json:"recipients"`
	EscalatedAt time.Time        `json:"escalated_at"`
}

func (s SLAViolationEscalated) GetType() EventType {
	return SLAViolationEscalatedEvent
}

func NewSLAViolationEscalated(ruleName string, violation *models.Violation, recipients []string) *SLAViolationEscalated {
	escalatedAt := time.Now().UTC()
	if violation.EscalatedAt != nil {
		escalatedAt = *violation.EscalatedAt
	}

	return &SLAViolationEscalated{
		BaseEvent:   NewBaseEvent(SLAViolationEscalatedEvent, violation.OrganizationID),
		Violation:   *violation,
		RuleName:    ruleName,
		Recipients:  recipients,
		EscalatedAt: escalatedAt,
	}
}
