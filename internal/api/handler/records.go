package handler

import (
	"context"
	"net/http"

	"github.com/samtoma/Headhunter-sub000/internal/api/response"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// Mutator is the roster's write path for single records.
type Mutator interface {
	MutateApplication(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error)
	MutateProfile(ctx context.Context, id int64, patch models.ProfilePatch) (*models.Profile, error)
	DeleteProfile(ctx context.Context, id int64) error
	RemoveApplication(ctx context.Context, id int64) error
}

// NewPatchApplicationHandler returns PATCH /api/v1/applications/{id}. The response
// is the backend's record; a rejected change comes back as MUTATION_FAILED after
// the roster has rolled it back.
func NewPatchApplicationHandler(m Mutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var patch models.ApplicationPatch
		if !decodeJSON(w, r, &patch) {
			return
		}

		app, err := m.MutateApplication(r.Context(), id, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, app)
	}
}

// NewRemoveApplicationHandler returns DELETE /api/v1/applications/{id}.
func NewRemoveApplicationHandler(m Mutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if err := m.RemoveApplication(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}

// NewPatchProfileHandler returns PATCH /api/v1/profiles/{id}.
func NewPatchProfileHandler(m Mutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var patch models.ProfilePatch
		if !decodeJSON(w, r, &patch) {
			return
		}

		p, err := m.MutateProfile(r.Context(), id, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, p)
	}
}

// NewDeleteProfileHandler returns DELETE /api/v1/profiles/{id}.
func NewDeleteProfileHandler(m Mutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if err := m.DeleteProfile(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}
