package models

import "time"

type ApplicationStatus string

const (
	ApplicationActive    ApplicationStatus = "active"
	ApplicationHired     ApplicationStatus = "hired"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

// StageTypeOffer is the pipeline stage in which an offer is being prepared.
const StageTypeOffer = "offer"

// Application is the read model of a candidate's application to a job.
type Application struct {
	ID              string            `json:"id"`
	OrganizationID  string            `json:"organization_id"`
	JobID           string            `json:"job_id"`
	DepartmentID    string            `json:"department_id,omitempty"`
	CandidateID     string            `json:"candidate_id"`
	Status          ApplicationStatus `json:"status"`
	StageType       string            `json:"stage_type"`
	AppliedAt       time.Time         `json:"applied_at"`
	StageEnteredAt  time.Time         `json:"stage_entered_at"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	OfferExtendedAt *time.Time        `json:"offer_extended_at,omitempty"`
	HiredAt         *time.Time        `json:"hired_at,omitempty"`
	InterviewCount  int               `json:"interview_count"`
}

type InterviewStatus string

const (
	InterviewScheduled InterviewStatus = "scheduled"
	InterviewCompleted InterviewStatus = "completed"
	InterviewCancelled InterviewStatus = "cancelled"
	InterviewNoShow    InterviewStatus = "no_show"
)

// Interview is the read model of an interview attached to an application.
type Interview struct {
	ID                  string          `json:"id"`
	OrganizationID      string          `json:"organization_id"`
	ApplicationID       string          `json:"application_id"`
	JobID               string          `json:"job_id"`
	DepartmentID        string          `json:"department_id,omitempty"`
	Status              InterviewStatus `json:"status"`
	ScheduledAt         time.Time       `json:"scheduled_at"`
	FeedbackSubmittedAt *time.Time      `json:"feedback_submitted_at,omitempty"`
}
