package models

import "time"

const (
	OutcomePending     = "Pending"
	OutcomePassed      = "Passed"
	OutcomeFailed      = "Failed"
	OutcomeRescheduled = "Rescheduled"
	OutcomeCancelled   = "Cancelled"
)

// Interview is a structured interview record attached to one Application.
type Interview struct {
	ID              int64      `json:"id"`
	ApplicationID   int64      `json:"application_id"`
	Stage           string     `json:"step"`
	Outcome         string     `json:"outcome"`
	Rating          *int       `json:"rating,omitempty"`
	Feedback        string     `json:"feedback,omitempty"`
	InterviewerID   *int64     `json:"interviewer_id,omitempty"`
	InterviewerName string     `json:"interviewer_name,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ActivityLogEntry is a generic, append-only event recorded for an Application.
type ActivityLogEntry struct {
	ID            int64          `json:"id"`
	ApplicationID int64          `json:"application_id"`
	Action        string         `json:"action"`
	ActorID       *int64         `json:"user_id,omitempty"`
	ActorName     string         `json:"user_name,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
