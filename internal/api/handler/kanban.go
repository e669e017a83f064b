package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/samtoma/Headhunter-sub000/internal/api/response"
	"github.com/samtoma/Headhunter-sub000/internal/kanban"
)

// Board is the Kanban controller.
type Board interface {
	Board() kanban.Board
	SetShowArchived(show bool)
	BeginDrag(profileID int64)
	Drop(ctx context.Context, profileID int64, target string) (kanban.DropResult, error)
}

// NewBoardHandler returns GET /api/v1/kanban[?archived=]. The archived flag, when
// given, persists for later reads.
func NewBoardHandler(b Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := r.URL.Query().Get("archived"); raw != "" {
			show, err := strconv.ParseBool(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "archived must be true or false", nil)
				return
			}
			b.SetShowArchived(show)
		}
		response.JSON(w, b.Board())
	}
}

// NewDragHandler returns POST /api/v1/kanban/drag.
func NewDragHandler(b Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProfileID int64 `json:"profile_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ProfileID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "profile_id is required", nil)
			return
		}
		b.BeginDrag(req.ProfileID)
		response.NoContent(w)
	}
}

// NewDropHandler returns POST /api/v1/kanban/drop.
func NewDropHandler(b Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProfileID int64  `json:"profile_id"`
			Column    string `json:"column"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ProfileID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "profile_id is required", nil)
			return
		}

		res, err := b.Drop(r.Context(), req.ProfileID, req.Column)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}
