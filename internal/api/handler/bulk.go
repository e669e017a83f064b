package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/samtoma/Headhunter-sub000/internal/api/response"
	"github.com/samtoma/Headhunter-sub000/internal/backend"
	"github.com/samtoma/Headhunter-sub000/internal/bulk"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// Selection is the bulk coordinator.
type Selection interface {
	Toggle(id int64) (bool, error)
	SelectAll() int
	Clear()
	Selected() []int64
	BulkReprocess(ctx context.Context, ids []int64) (*backend.BatchResult, error)
	BulkDelete(ctx context.Context, ids []int64, confirm bulk.Confirmer) (*backend.BatchResult, error)
	BulkAssign(ctx context.Context, ids []int64, jobID int64) ([]models.Application, error)
}

type selectionState struct {
	IDs   []int64 `json:"ids"`
	Count int     `json:"count"`
}

func stateOf(s Selection) selectionState {
	ids := s.Selected()
	return selectionState{IDs: ids, Count: len(ids)}
}

// NewGetSelectionHandler returns GET /api/v1/selection.
func NewGetSelectionHandler(s Selection) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, stateOf(s))
	}
}

// NewClearSelectionHandler returns DELETE /api/v1/selection.
func NewClearSelectionHandler(s Selection) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.Clear()
		response.NoContent(w)
	}
}

// NewToggleSelectionHandler returns POST /api/v1/selection/toggle/{id}.
func NewToggleSelectionHandler(s Selection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		selected, err := s.Toggle(id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, map[string]any{"id": id, "selected": selected})
	}
}

// NewSelectAllHandler returns POST /api/v1/selection/all.
func NewSelectAllHandler(s Selection) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.SelectAll()
		response.JSON(w, stateOf(s))
	}
}

// bulkRequest names the target profiles. Without ids the current selection is used.
type bulkRequest struct {
	IDs   []int64 `json:"ids"`
	JobID int64   `json:"job_id"`
}

func decodeBulk(w http.ResponseWriter, r *http.Request, s Selection) (bulkRequest, bool) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return req, false
	}
	if len(req.IDs) == 0 {
		req.IDs = s.Selected()
	}
	return req, true
}

// NewBulkReprocessHandler returns POST /api/v1/bulk/reprocess.
func NewBulkReprocessHandler(s Selection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeBulk(w, r, s)
		if !ok {
			return
		}
		res, err := s.BulkReprocess(r.Context(), req.IDs)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Accepted(w, res)
	}
}

// NewBulkAssignHandler returns POST /api/v1/bulk/assign.
func NewBulkAssignHandler(s Selection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeBulk(w, r, s)
		if !ok {
			return
		}
		apps, err := s.BulkAssign(r.Context(), req.IDs, req.JobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, apps)
	}
}

// NewBulkDeleteHandler returns POST /api/v1/bulk/delete?confirm=true. Without the
// confirm flag the request is refused with CONFIRMATION_REQUIRED.
func NewBulkDeleteHandler(s Selection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeBulk(w, r, s)
		if !ok {
			return
		}
		confirm := bulk.ConfirmFunc(func(context.Context, string) bool { return confirmed(r) })

		res, err := s.BulkDelete(r.Context(), req.IDs, confirm)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}
