// Package handler holds the dashboard's HTTP handlers. Each constructor returns an
// http.HandlerFunc bound to the narrow interface it drives.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	mw "github.com/samtoma/Headhunter-sub000/internal/api/middleware"
	"github.com/samtoma/Headhunter-sub000/internal/api/response"
	"github.com/samtoma/Headhunter-sub000/internal/backend"
	"github.com/samtoma/Headhunter-sub000/internal/bulk"
	"github.com/samtoma/Headhunter-sub000/internal/roster"
	"github.com/samtoma/Headhunter-sub000/internal/upload"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// writeError maps domain errors onto the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *models.ValidationError
	var se *backend.StatusError

	switch {
	case errors.As(err, &ve):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", ve.Error(),
			map[string]string{"field": ve.Field})
	case errors.Is(err, bulk.ErrNotConfirmed), errors.Is(err, upload.ErrNotConfirmed):
		response.Error(w, http.StatusConflict, "CONFIRMATION_REQUIRED",
			"Repeat the request with confirm=true to proceed", nil)
	case errors.Is(err, upload.ErrBusy):
		response.Error(w, http.StatusConflict, "UPLOAD_IN_PROGRESS", err.Error(), nil)
	case errors.Is(err, upload.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, roster.ErrMutationFailed):
		response.Error(w, http.StatusConflict, "MUTATION_FAILED",
			"The change was rejected and has been rolled back", map[string]string{"reason": err.Error()})
	case errors.Is(err, bulk.ErrBatchFailed):
		response.Error(w, http.StatusBadGateway, "BATCH_FAILED",
			"The batch failed; nothing was changed", map[string]string{"reason": err.Error()})
	case errors.Is(err, roster.ErrNotFound), errors.Is(err, backend.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, backend.ErrNetwork):
		response.Error(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE",
			"The recruitment backend is not reachable", nil)
	case errors.As(err, &se):
		response.Error(w, http.StatusBadGateway, "BACKEND_REJECTED", se.Error(),
			map[string]int{"status": se.Code})
	default:
		slog.Error("request failed", "path", r.URL.Path, "request_id", mw.GetRequestID(r), "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Sprintf("%s must be a positive integer", name), nil)
		return 0, false
	}
	return id, true
}

// confirmed reads ?confirm=true, the API's answer to a confirmation prompt.
func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}
