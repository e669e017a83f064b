// Package models contains the recruitment pipeline data shared across the dashboard codebase.
package models

import (
	"encoding/json"
	"time"
)

// Profile is a candidate: a parsed résumé plus the applications that place it in job pipelines.
// ParsedData is the opaque extraction blob produced by the upload pipeline.
type Profile struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	Skills          []string        `json:"skills,omitempty"`
	ExperienceYears float64         `json:"experience_years"`
	Department      string          `json:"department,omitempty"`
	ParsedData      json.RawMessage `json:"parsed_data,omitempty"`
	IsReprocessing  bool            `json:"is_reprocessing"`
	UploadedAt      time.Time       `json:"uploaded_at"`
	Applications    []Application   `json:"applications"`
}

// ApplicationFor returns the profile's application for jobID, or nil.
func (p *Profile) ApplicationFor(jobID int64) *Application {
	for i := range p.Applications {
		if p.Applications[i].JobID == jobID {
			return &p.Applications[i]
		}
	}
	return nil
}

// MatchScore returns the match score of the application for jobID, or -1 when unscored.
func (p *Profile) MatchScore(jobID int64) float64 {
	app := p.ApplicationFor(jobID)
	if app == nil || app.MatchScore == nil {
		return -1
	}
	return *app.MatchScore
}

// Clone returns a deep copy safe to hand out of the roster.
func (p Profile) Clone() Profile {
	out := p
	if p.Skills != nil {
		out.Skills = append([]string(nil), p.Skills...)
	}
	if p.ParsedData != nil {
		out.ParsedData = append(json.RawMessage(nil), p.ParsedData...)
	}
	if p.Applications != nil {
		out.Applications = make([]Application, len(p.Applications))
		for i, app := range p.Applications {
			out.Applications[i] = app.Clone()
		}
	}
	return out
}

// ProfilePatch carries the editable profile fields. Nil fields are left untouched.
type ProfilePatch struct {
	Name            *string   `json:"name,omitempty"`
	Email           *string   `json:"email,omitempty"`
	Phone           *string   `json:"phone,omitempty"`
	Skills          *[]string `json:"skills,omitempty"`
	ExperienceYears *float64  `json:"experience_years,omitempty"`
	Department      *string   `json:"department,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Skills == nil &&
		p.ExperienceYears == nil && p.Department == nil
}

func (p ProfilePatch) Validate() error {
	if p.Empty() {
		return &ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.ExperienceYears != nil && *p.ExperienceYears < 0 {
		return &ValidationError{Field: "experience_years", Reason: "must not be negative"}
	}
	return nil
}

// Apply writes the patch onto profile.
func (p ProfilePatch) Apply(profile *Profile) {
	if p.Name != nil {
		profile.Name = *p.Name
	}
	if p.Email != nil {
		profile.Email = *p.Email
	}
	if p.Phone != nil {
		profile.Phone = *p.Phone
	}
	if p.Skills != nil {
		profile.Skills = append([]string(nil), (*p.Skills)...)
	}
	if p.ExperienceYears != nil {
		profile.ExperienceYears = *p.ExperienceYears
	}
	if p.Department != nil {
		profile.Department = *p.Department
	}
}
