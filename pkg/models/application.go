package models

import "time"

const (
	MinRating = 0
	MaxRating = 10
)

// Application links one Profile to one Job and carries its pipeline status.
// At most one Application exists per (profile, job) pair.
type Application struct {
	ID             int64     `json:"id"`
	ProfileID      int64     `json:"cv_id"`
	JobID          int64     `json:"job_id"`
	Status         string    `json:"status"`
	Rating         *int      `json:"rating,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CurrentSalary  *int64    `json:"current_salary,omitempty"`
	ExpectedSalary *int64    `json:"expected_salary,omitempty"`
	MatchScore     *float64  `json:"match_score,omitempty"`
	AppliedAt      time.Time `json:"applied_at"`
}

func (a Application) Clone() Application {
	out := a
	if a.Rating != nil {
		v := *a.Rating
		out.Rating = &v
	}
	if a.CurrentSalary != nil {
		v := *a.CurrentSalary
		out.CurrentSalary = &v
	}
	if a.ExpectedSalary != nil {
		v := *a.ExpectedSalary
		out.ExpectedSalary = &v
	}
	if a.MatchScore != nil {
		v := *a.MatchScore
		out.MatchScore = &v
	}
	return out
}

// ApplicationPatch is the body of PATCH /applications/{id}. Nil fields are left untouched.
type ApplicationPatch struct {
	Status         *string `json:"status,omitempty"`
	Rating         *int    `json:"rating,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	CurrentSalary  *int64  `json:"current_salary,omitempty"`
	ExpectedSalary *int64  `json:"expected_salary,omitempty"`
}

// StatusPatch is the patch a Kanban drop issues.
func StatusPatch(status string) ApplicationPatch {
	return ApplicationPatch{Status: &status}
}

func (p ApplicationPatch) Empty() bool {
	return p.Status == nil && p.Rating == nil && p.Notes == nil &&
		p.CurrentSalary == nil && p.ExpectedSalary == nil
}

func (p ApplicationPatch) Validate() error {
	if p.Empty() {
		return &ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	if p.Status != nil && *p.Status == "" {
		return &ValidationError{Field: "status", Reason: "must not be empty"}
	}
	if p.Rating != nil && (*p.Rating < MinRating || *p.Rating > MaxRating) {
		return &ValidationError{Field: "rating", Reason: "must be between 0 and 10"}
	}
	if p.CurrentSalary != nil && *p.CurrentSalary < 0 {
		return &ValidationError{Field: "current_salary", Reason: "must not be negative"}
	}
	if p.ExpectedSalary != nil && *p.ExpectedSalary < 0 {
		return &ValidationError{Field: "expected_salary", Reason: "must not be negative"}
	}
	return nil
}

func (p ApplicationPatch) Apply(app *Application) {
	if p.Status != nil {
		app.Status = *p.Status
	}
	if p.Rating != nil {
		v := *p.Rating
		app.Rating = &v
	}
	if p.Notes != nil {
		app.Notes = *p.Notes
	}
	if p.CurrentSalary != nil {
		v := *p.CurrentSalary
		app.CurrentSalary = &v
	}
	if p.ExpectedSalary != nil {
		v := *p.ExpectedSalary
		app.ExpectedSalary = &v
	}
}
