package models

import (
	"math"
	"time"
)

// SLARuleType names the pipeline stage timer a rule monitors.
type SLARuleType string

const (
	SLATimeToFirstReview       SLARuleType = "time_to_first_review"
	SLATimeToScheduleInterview SLARuleType = "time_to_schedule_interview"
	SLATimeToProvideFeedback   SLARuleType = "time_to_provide_feedback"
	SLATimeToOffer             SLARuleType = "time_to_offer"
	SLATimeToHire              SLARuleType = "time_to_hire"
)

// SLARule is an organization-scoped threshold on one pipeline stage.
type SLARule struct {
	ID                   string      `json:"id"`
	OrganizationID       string      `json:"organization_id"                validate:"required"`
	Name                 string      `json:"name"`
	Type                 SLARuleType `json:"type"                           validate:"required,oneof=time_to_first_review time_to_schedule_interview time_to_provide_feedback time_to_offer time_to_hire"`
	ThresholdHours       float64     `json:"threshold_hours"                validate:"gt=0"`
	AlertRecipients      []string    `json:"alert_recipients"               validate:"required,min=1,dive,required"`
	EscalationRecipients []string    `json:"escalation_recipients"          validate:"dive,required"`
	EscalationHours      *float64    `json:"escalation_hours,omitempty"     validate:"omitempty,gt=0"`
	Active               bool        `json:"active"`
	JobIDs               []string    `json:"job_ids,omitempty"`
	DepartmentIDs        []string    `json:"department_ids,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// Threshold returns ThresholdHours as a duration.
func (r *SLARule) Threshold() time.Duration {
	return HoursToDuration(r.ThresholdHours)
}

type EntityType string

const (
	EntityApplication EntityType = "application"
	EntityInterview   EntityType = "interview"
)

type ViolationStatus string

const (
	ViolationOpen         ViolationStatus = "open"
	ViolationAcknowledged ViolationStatus = "acknowledged"
	ViolationResolved     ViolationStatus = "resolved"
)

// Violation records that an entity overran a rule's threshold. There is at
// most one violation per (RuleID, EntityType, EntityID).
type Violation struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	RuleID         string          `json:"rule_id"`
	EntityType     EntityType      `json:"entity_type"`
	EntityID       string          `json:"entity_id"`
	ViolatedAt     time.Time       `json:"violated_at"`
	ExpectedAt     time.Time       `json:"expected_at"`
	ActualHours    float64         `json:"actual_hours"`
	Status         ViolationStatus `json:"status"`
	Escalated      bool            `json:"escalated"`
	EscalatedAt    *time.Time      `json:"escalated_at,omitempty"`
	AcknowledgedBy string          `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at,omitempty"`
	ResolvedBy     string          `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// HoursToDuration converts fractional hours into a duration.
func HoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// ElapsedHours returns the hours between start and now, rounded to two decimals.
func ElapsedHours(start, now time.Time) float64 {
	return math.Round(now.Sub(start).Hours()*100) / 100
}
