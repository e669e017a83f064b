package models

import "strings"

// SortKey selects the roster ordering.
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortExperience SortKey = "experience"
	SortMatchScore SortKey = "match_score"
	SortName       SortKey = "name"
)

var validSortKeys = map[SortKey]bool{
	SortNewest:     true,
	SortOldest:     true,
	SortExperience: true,
	SortMatchScore: true,
	SortName:       true,
}

// ProfileQuery is the filter scope of the roster. JobID 0 means no job is selected.
type ProfileQuery struct {
	Search     string  `json:"search"`
	Department string  `json:"department"`
	Sort       SortKey `json:"sort"`
	JobID      int64   `json:"job_id"`
}

// Normalize trims the search term and fills in the default sort.
func (q ProfileQuery) Normalize() ProfileQuery {
	q.Search = strings.TrimSpace(q.Search)
	q.Department = strings.TrimSpace(q.Department)
	if q.Sort == "" {
		q.Sort = SortNewest
	}
	return q
}

func (q ProfileQuery) Validate() error {
	if !validSortKeys[q.Sort] {
		return &ValidationError{Field: "sort", Reason: "unknown sort key " + string(q.Sort)}
	}
	if q.Sort == SortMatchScore && q.JobID == 0 {
		return &ValidationError{Field: "sort", Reason: "match_score sort requires a selected job"}
	}
	if q.JobID < 0 {
		return &ValidationError{Field: "job_id", Reason: "must not be negative"}
	}
	return nil
}

// PageRequest is one GET /profiles call.
type PageRequest struct {
	Query  ProfileQuery
	Cursor int
	Limit  int
}
