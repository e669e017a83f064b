package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/samtoma/Headhunter-sub000/internal/api/response"
	"github.com/samtoma/Headhunter-sub000/internal/grid"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// Roster is the roster store surface the handlers drive.
type Roster interface {
	Query() models.ProfileQuery
	Profiles() []models.Profile
	Len() int
	Cursor() int
	HasMore() bool
	SetQuery(ctx context.Context, q models.ProfileQuery) error
	LoadPage(ctx context.Context) (int, error)
	Refresh(ctx context.Context) error
	Reload(ctx context.Context) error
}

// JobSelector follows the roster's selected job.
type JobSelector interface {
	SetActiveJob(jobID int64)
}

// Scroller is the grid renderer.
type Scroller interface {
	Scroll(ctx context.Context, vp grid.Viewport) (grid.Window, error)
}

func pageMeta(r Roster) response.PageMeta {
	return response.PageMeta{Cursor: r.Cursor(), Loaded: r.Len(), HasMore: r.HasMore()}
}

// NewListRosterHandler returns GET /api/v1/roster: every loaded profile.
func NewListRosterHandler(rs Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.Collection(w, rs.Profiles(), pageMeta(rs))
	}
}

// NewSetQueryHandler returns PUT /api/v1/roster/query. The roster is reset and the
// first page of the new scope is loaded; the board follows the selected job.
func NewSetQueryHandler(rs Roster, board JobSelector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q models.ProfileQuery
		if !decodeJSON(w, r, &q) {
			return
		}

		err := rs.SetQuery(r.Context(), q)
		if err != nil && models.IsValidation(err) {
			writeError(w, r, err)
			return
		}
		if board != nil {
			board.SetActiveJob(rs.Query().JobID)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.Collection(w, rs.Profiles(), pageMeta(rs))
	}
}

type pageResult struct {
	Added int `json:"added"`
	response.PageMeta
}

// NewLoadPageHandler returns POST /api/v1/roster/pages.
func NewLoadPageHandler(rs Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		added, err := rs.LoadPage(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, pageResult{Added: added, PageMeta: pageMeta(rs)})
	}
}

// NewRefreshHandler returns POST /api/v1/roster/refresh[?reset=true]. A plain
// refresh merges the first page into what is loaded; reset replaces the roster with
// the first page.
func NewRefreshHandler(rs Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refresh := rs.Refresh
		if reset, _ := strconv.ParseBool(r.URL.Query().Get("reset")); reset {
			refresh = rs.Reload
		}
		if err := refresh(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, pageMeta(rs))
	}
}

type windowResponse struct {
	grid.Window
	Profiles  []models.Profile `json:"profiles"`
	LoadError string           `json:"load_error,omitempty"`
}

// NewWindowHandler returns GET /api/v1/roster/window?width=&height=&offset=. It
// scrolls the grid, which may load the next page, and returns the profiles behind
// the materialized cells in cell order. A failed page load still returns the window.
func NewWindowHandler(rs Roster, sc Scroller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vp, ok := parseViewport(w, r)
		if !ok {
			return
		}

		win, err := sc.Scroll(r.Context(), vp)
		resp := windowResponse{Window: win, Profiles: make([]models.Profile, 0, len(win.Cells))}
		if err != nil {
			resp.LoadError = err.Error()
		}

		profiles := rs.Profiles()
		for _, cell := range win.Cells {
			if cell.Index < len(profiles) {
				resp.Profiles = append(resp.Profiles, profiles[cell.Index])
			}
		}
		response.JSON(w, resp)
	}
}

func parseViewport(w http.ResponseWriter, r *http.Request) (grid.Viewport, bool) {
	q := r.URL.Query()
	var vp grid.Viewport
	fields := []struct {
		name     string
		dst      *float64
		required bool
	}{
		{"width", &vp.Width, true},
		{"height", &vp.Height, true},
		{"offset", &vp.ScrollOffset, false},
	}
	for _, f := range fields {
		raw := q.Get(f.name)
		if raw == "" {
			if f.required {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", f.name+" is required", nil)
				return vp, false
			}
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", f.name+" must be a non-negative number", nil)
			return vp, false
		}
		*f.dst = v
	}
	return vp, true
}
