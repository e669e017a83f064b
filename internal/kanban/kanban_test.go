package kanban_test

import (
	"context"
	"testing"
	"time"

	"github.com/samtoma/Headhunter-sub000/internal/backend"
	"github.com/samtoma/Headhunter-sub000/internal/backend/mock"
	"github.com/samtoma/Headhunter-sub000/internal/kanban"
	"github.com/samtoma/Headhunter-sub000/internal/roster"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobID = 7

// --- helpers ---

func profile(id int64, name string, apps ...models.Application) models.Profile {
	return models.Profile{
		ID:           id,
		Name:         name,
		UploadedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
		Applications: apps,
	}
}

func app(id, profileID int64, status string) models.Application {
	return models.Application{ID: id, ProfileID: profileID, JobID: jobID, Status: status}
}

func setup(t *testing.T, profiles ...models.Profile) (*kanban.Controller, *roster.Store, *mock.Client) {
	t.Helper()
	m := mock.NewClient()
	m.ListProfilesFunc = func(_ context.Context, _ models.PageRequest) ([]models.Profile, error) {
		out := make([]models.Profile, len(profiles))
		for i, p := range profiles {
			out[i] = p.Clone()
		}
		return out, nil
	}
	s := roster.New(m, 50)
	_, err := s.LoadPage(context.Background())
	require.NoError(t, err)

	c, err := kanban.New(s, models.DefaultStages)
	require.NoError(t, err)
	c.SetActiveJob(jobID)
	return c, s, m
}

func columnOf(b kanban.Board, profileID int64) string {
	for _, col := range b.Columns {
		for _, card := range col.Cards {
			if card.ProfileID == profileID {
				return col.Name
			}
		}
	}
	return ""
}

func column(b kanban.Board, name string) kanban.Column {
	for _, col := range b.Columns {
		if col.Name == name {
			return col
		}
	}
	return kanban.Column{}
}

// --- tests ---

func TestColumnFor(t *testing.T) {
	assert.Equal(t, models.StageNew, kanban.ColumnFor(nil))
	assert.Equal(t, models.StageNew, kanban.ColumnFor(&models.Application{}))
	assert.Equal(t, models.StageOffer, kanban.ColumnFor(&models.Application{Status: models.StageOffer}))
}

func TestNew_RequiresNewStage(t *testing.T) {
	_, err := kanban.New(nil, nil)
	assert.Error(t, err)
	_, err = kanban.New(nil, []string{"Screening", "Hired"})
	assert.Error(t, err)
}

func TestBoard_BucketsByStatus(t *testing.T) {
	other := models.Application{ID: 99, ProfileID: 4, JobID: 8, Status: models.StageOffer}
	c, _, _ := setup(t,
		profile(1, "Ada", app(10, 1, models.StageTechnical)),
		profile(2, "Linus", app(20, 2, models.StageTechnical)),
		profile(3, "Grace", app(30, 3, "Legacy Stage")),
		profile(4, "Ken", other),
	)

	b := c.Board()

	assert.Equal(t, int64(jobID), b.JobID)
	tech := column(b, models.StageTechnical)
	assert.Equal(t, 2, tech.Count)
	assert.Equal(t, []int64{2, 1}, []int64{tech.Cards[0].ProfileID, tech.Cards[1].ProfileID}, "roster order")
	assert.Equal(t, models.StageNew, columnOf(b, 3), "unknown status falls back to New")
	assert.Equal(t, models.StageNew, columnOf(b, 4), "no application for the viewed job")
	assert.Zero(t, column(b, models.StageNew).Cards[0].ApplicationID)
}

func TestBoard_ArchiveToggle(t *testing.T) {
	c, _, m := setup(t,
		profile(1, "Ada", app(10, 1, models.StageHired)),
		profile(2, "Linus", app(20, 2, models.StageRejected)),
		profile(3, "Grace", app(30, 3, models.StageScreening)),
	)

	b := c.Board()
	assert.Len(t, b.Columns, 6)
	assert.Equal(t, 2, b.HiddenCount)
	assert.Empty(t, column(b, models.StageHired).Name)

	c.SetShowArchived(true)
	b = c.Board()
	assert.Len(t, b.Columns, len(models.DefaultStages))
	assert.Equal(t, models.StageHired, columnOf(b, 1))
	assert.Equal(t, models.StageRejected, columnOf(b, 2))
	assert.Zero(t, m.Calls("PatchApplication"), "the toggle never mutates applications")
}

func TestDrop_MovesImmediatelyThenPersists(t *testing.T) {
	c, _, m := setup(t, profile(1, "Ada", app(10, 1, models.StageNew)))
	release := make(chan struct{})
	m.PatchApplicationFunc = func(_ context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error) {
		<-release
		saved := app(id, 1, *patch.Status)
		return &saved, nil
	}

	c.BeginDrag(1)
	assert.Equal(t, int64(1), c.Dragging())

	done := make(chan kanban.DropResult, 1)
	go func() {
		res, err := c.Drop(context.Background(), 1, models.StageTechnical)
		assert.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, func() bool { return columnOf(c.Board(), 1) == models.StageTechnical },
		time.Second, 5*time.Millisecond)

	close(release)
	res := <-done
	assert.True(t, res.Moved)
	assert.Equal(t, models.StageNew, res.From)
	assert.Equal(t, models.StageTechnical, res.Application.Status)
	assert.Zero(t, c.Dragging())
}

func TestDrop_FailureReturnsCardAndOnlyThatCard(t *testing.T) {
	c, _, m := setup(t,
		profile(1, "Ada", app(10, 1, models.StageNew)),
		profile(2, "Linus", app(20, 2, models.StageScreening)),
	)
	m.PatchApplicationFunc = func(_ context.Context, _ int64, _ models.ApplicationPatch) (*models.Application, error) {
		return nil, backend.ErrNetwork
	}

	res, err := c.Drop(context.Background(), 1, models.StageTechnical)

	require.ErrorIs(t, err, roster.ErrMutationFailed)
	require.ErrorIs(t, err, backend.ErrNetwork)
	assert.False(t, res.Moved)
	b := c.Board()
	assert.Equal(t, models.StageNew, columnOf(b, 1))
	assert.Equal(t, models.StageScreening, columnOf(b, 2))
}

func TestDrop_NoApplicationIsNoop(t *testing.T) {
	c, _, m := setup(t, profile(1, "Ada"))

	res, err := c.Drop(context.Background(), 1, models.StageOffer)

	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Zero(t, m.Calls("PatchApplication"))
}

func TestDrop_NoActiveJobIsNoop(t *testing.T) {
	c, _, m := setup(t, profile(1, "Ada", app(10, 1, models.StageNew)))
	c.SetActiveJob(0)

	res, err := c.Drop(context.Background(), 1, models.StageOffer)

	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Zero(t, m.Calls("PatchApplication"))
}

func TestDrop_UnknownColumn(t *testing.T) {
	c, _, m := setup(t, profile(1, "Ada", app(10, 1, models.StageNew)))

	_, err := c.Drop(context.Background(), 1, "Limbo")

	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Zero(t, m.Calls("PatchApplication"))
}

func TestDrop_SameColumnSendsNothing(t *testing.T) {
	c, _, m := setup(t, profile(1, "Ada", app(10, 1, models.StageOffer)))

	res, err := c.Drop(context.Background(), 1, models.StageOffer)

	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Zero(t, m.Calls("PatchApplication"))
}

func TestDrop_StaleRefreshDoesNotUndoMove(t *testing.T) {
	c, s, m := setup(t, profile(1, "Ada", app(10, 1, models.StageNew)))

	// automatic refresh issued before the drop resolves, answered with the old column
	started := make(chan struct{})
	release := make(chan struct{})
	m.ListProfilesFunc = func(_ context.Context, _ models.PageRequest) ([]models.Profile, error) {
		close(started)
		<-release
		return []models.Profile{profile(1, "Ada", app(10, 1, models.StageNew))}, nil
	}
	refreshed := make(chan error, 1)
	go func() { refreshed <- s.Refresh(context.Background()) }()
	<-started

	_, err := c.Drop(context.Background(), 1, models.StageTechnical)
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-refreshed)

	assert.Equal(t, models.StageTechnical, columnOf(c.Board(), 1))
}

func TestSetActiveJob_ClearsDrag(t *testing.T) {
	c, _, _ := setup(t, profile(1, "Ada", app(10, 1, models.StageNew)))
	c.BeginDrag(1)

	c.SetActiveJob(8)

	assert.Zero(t, c.Dragging())
	assert.Equal(t, int64(8), c.ActiveJob())
}
