// Package activity merges an application's interview records and activity log into
// one newest-first feed.
package activity

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

type Kind string

const (
	KindInterview Kind = "interview"
	KindActivity  Kind = "activity"
)

// interviewActionPrefix marks log entries that the interview records already cover,
// such as interview_scheduled or interview_completed.
const interviewActionPrefix = "interview"

// Item is one feed entry. Exactly one of Interview and Activity is set.
type Item struct {
	ID        string                   `json:"id"`
	Kind      Kind                     `json:"kind"`
	Timestamp time.Time                `json:"timestamp"`
	Interview *models.Interview        `json:"interview,omitempty"`
	Activity  *models.ActivityLogEntry `json:"activity,omitempty"`
}

// Priority orders items with equal timestamps; lower comes first.
func (it Item) Priority() int {
	if it.Kind == KindInterview {
		return 1
	}
	return 2
}

// IsInterviewAction reports whether a log action duplicates an interview record.
func IsInterviewAction(action string) bool {
	return strings.HasPrefix(strings.ToLower(action), interviewActionPrefix)
}

func fromInterview(iv models.Interview) Item {
	ts := iv.CreatedAt
	if iv.ScheduledAt != nil {
		ts = *iv.ScheduledAt
	}
	return Item{
		ID:        fmt.Sprintf("interview-%d", iv.ID),
		Kind:      KindInterview,
		Timestamp: ts,
		Interview: &iv,
	}
}

func fromEntry(e models.ActivityLogEntry) Item {
	return Item{
		ID:        fmt.Sprintf("activity-%d", e.ID),
		Kind:      KindActivity,
		Timestamp: e.CreatedAt,
		Activity:  &e,
	}
}

func compare(a, b Item) int {
	if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
		return c
	}
	return a.Priority() - b.Priority()
}

// Merge builds the feed. Log entries with an interview action are dropped; the rest
// are sorted newest first with interviews ahead of log entries at equal timestamps.
// Merge is pure: the same inputs always give the same feed.
func Merge(interviews []models.Interview, entries []models.ActivityLogEntry) []Item {
	items := make([]Item, 0, len(interviews)+len(entries))
	for _, iv := range interviews {
		items = append(items, fromInterview(iv))
	}
	for _, e := range entries {
		if IsInterviewAction(e.Action) {
			continue
		}
		items = append(items, fromEntry(e))
	}
	slices.SortStableFunc(items, compare)
	return items
}
