// Package kanban buckets the roster into pipeline-stage columns for one job and moves
// cards between them through the roster's optimistic mutation.
package kanban

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// Roster is the part of the roster store the board reads and writes.
type Roster interface {
	Profiles() []models.Profile
	ApplicationFor(profileID, jobID int64) (models.Application, bool)
	MutateApplication(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error)
}

// ColumnFor returns the column an application belongs in. A profile with no
// application for the viewed job sits in New.
func ColumnFor(app *models.Application) string {
	if app == nil || app.Status == "" {
		return models.StageNew
	}
	return app.Status
}

type Card struct {
	ProfileID     int64    `json:"profile_id"`
	ApplicationID int64    `json:"application_id,omitempty"`
	Name          string   `json:"name"`
	Status        string   `json:"status"`
	Rating        *int     `json:"rating,omitempty"`
	MatchScore    *float64 `json:"match_score,omitempty"`
	Dragging      bool     `json:"dragging,omitempty"`
}

type Column struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Cards []Card `json:"cards"`
}

// Board is the column read model for the active job.
type Board struct {
	JobID        int64    `json:"job_id"`
	ShowArchived bool     `json:"show_archived"`
	HiddenCount  int      `json:"hidden_count"`
	Columns      []Column `json:"columns"`
}

// DropResult describes what a drop did. Moved is false for no-op drops.
type DropResult struct {
	Moved       bool                `json:"moved"`
	From        string              `json:"from,omitempty"`
	To          string              `json:"to"`
	Application *models.Application `json:"application,omitempty"`
}

// Controller is the drag-and-drop state for one board. It never writes application
// records itself; every move goes through Roster.MutateApplication.
type Controller struct {
	roster Roster
	stages []string

	mu           sync.Mutex
	activeJob    int64
	showArchived bool
	dragging     int64
}

// New returns a controller for the ordered stage list, which must contain New.
func New(r Roster, stages []string) (*Controller, error) {
	if len(stages) == 0 {
		return nil, errors.New("kanban: no pipeline stages")
	}
	if !slices.Contains(stages, models.StageNew) {
		return nil, fmt.Errorf("kanban: stages must include %q", models.StageNew)
	}
	return &Controller{roster: r, stages: slices.Clone(stages)}, nil
}

func (c *Controller) Stages() []string { return slices.Clone(c.stages) }

func (c *Controller) SetActiveJob(jobID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeJob != jobID {
		c.dragging = 0
	}
	c.activeJob = jobID
}

func (c *Controller) ActiveJob() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeJob
}

// SetShowArchived shows or hides the terminal columns. Applications are untouched.
func (c *Controller) SetShowArchived(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showArchived = show
}

// BeginDrag records the card being dragged.
func (c *Controller) BeginDrag(profileID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = profileID
}

// Dragging returns the card being dragged, or 0.
func (c *Controller) Dragging() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

func (c *Controller) endDrag(profileID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dragging == profileID {
		c.dragging = 0
	}
}

// Drop moves a card to target. The new status is visible in Board as soon as the
// roster applies it, before the backend answers. Drop returns once the backend has
// resolved the move; on failure the roster has already restored the old column.
// A card without an application for the active job is a no-op, as is dropping a
// card onto its own column.
func (c *Controller) Drop(ctx context.Context, profileID int64, target string) (DropResult, error) {
	defer c.endDrag(profileID)

	if !slices.Contains(c.stages, target) {
		return DropResult{}, &models.ValidationError{Field: "column", Reason: fmt.Sprintf("unknown column %q", target)}
	}

	jobID := c.ActiveJob()
	if jobID == 0 {
		return DropResult{To: target}, nil
	}
	app, ok := c.roster.ApplicationFor(profileID, jobID)
	if !ok {
		return DropResult{To: target}, nil
	}
	from := ColumnFor(&app)
	if from == target {
		return DropResult{From: from, To: target, Application: &app}, nil
	}

	saved, err := c.roster.MutateApplication(ctx, app.ID, models.StatusPatch(target))
	if err != nil {
		slog.Warn("kanban move failed", "profile_id", profileID, "application_id", app.ID,
			"from", from, "to", target, "error", err)
		return DropResult{From: from, To: target}, fmt.Errorf("move profile %d to %s: %w", profileID, target, err)
	}

	slog.Info("kanban card moved", "profile_id", profileID, "application_id", app.ID, "from", from, "to", target)
	return DropResult{Moved: true, From: from, To: target, Application: saved}, nil
}

// Board recomputes the columns from the current roster. Statuses that are not a
// configured stage land in New.
func (c *Controller) Board() Board {
	c.mu.Lock()
	jobID, showArchived, dragging := c.activeJob, c.showArchived, c.dragging
	c.mu.Unlock()

	b := Board{JobID: jobID, ShowArchived: showArchived}
	position := make(map[string]int, len(c.stages))
	for _, stage := range c.stages {
		if !showArchived && models.ArchivedStages[stage] {
			continue
		}
		position[stage] = len(b.Columns)
		b.Columns = append(b.Columns, Column{Name: stage, Cards: []Card{}})
	}

	for _, p := range c.roster.Profiles() {
		app := p.ApplicationFor(jobID)
		status := ColumnFor(app)

		i, ok := position[status]
		if !ok {
			if slices.Contains(c.stages, status) {
				b.HiddenCount++
				continue
			}
			i = position[models.StageNew]
		}

		card := Card{ProfileID: p.ID, Name: p.Name, Status: status, Dragging: p.ID == dragging}
		if app != nil {
			card.ApplicationID = app.ID
			card.Rating = app.Rating
			card.MatchScore = app.MatchScore
		}
		b.Columns[i].Cards = append(b.Columns[i].Cards, card)
	}

	for i := range b.Columns {
		b.Columns[i].Count = len(b.Columns[i].Cards)
	}
	return b
}
