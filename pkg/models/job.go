package models

import "time"

// Job is a pipeline definition. It is read-only here and supplies assignment targets.
type Job struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Department string    `json:"department,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
