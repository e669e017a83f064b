package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/samtoma/Headhunter-sub000/internal/api/middleware"
	"github.com/samtoma/Headhunter-sub000/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	// RateLimit may be nil, which disables limiting.
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc
	JobsHandler   http.HandlerFunc

	ListRoster     http.HandlerFunc
	SetQuery       http.HandlerFunc
	LoadPage       http.HandlerFunc
	Refresh        http.HandlerFunc
	Window         http.HandlerFunc
	PatchProfile   http.HandlerFunc
	DeleteProfile  http.HandlerFunc
	PatchApp       http.HandlerFunc
	RemoveApp      http.HandlerFunc
	ActivityFeed   http.HandlerFunc
	ToggleActivity http.HandlerFunc

	Board http.HandlerFunc
	Drag  http.HandlerFunc
	Drop  http.HandlerFunc

	GetSelection    http.HandlerFunc
	ClearSelection  http.HandlerFunc
	ToggleSelection http.HandlerFunc
	SelectAll       http.HandlerFunc
	BulkReprocess   http.HandlerFunc
	BulkAssign      http.HandlerFunc
	BulkDelete      http.HandlerFunc

	StartUpload   http.HandlerFunc
	UploadStatus  http.HandlerFunc
	DismissUpload http.HandlerFunc

	Events http.Handler
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// The event stream is long-lived and is not counted against the request budget.
	if deps.Events != nil {
		r.Handle("/api/v1/events", deps.Events)
	} else {
		r.Get("/api/v1/events", orNotImplemented(nil))
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/jobs", orNotImplemented(deps.JobsHandler))

		r.Route("/api/v1/roster", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.ListRoster))
			r.Put("/query", orNotImplemented(deps.SetQuery))
			r.Post("/pages", orNotImplemented(deps.LoadPage))
			r.Post("/refresh", orNotImplemented(deps.Refresh))
			r.Get("/window", orNotImplemented(deps.Window))
		})

		r.Patch("/api/v1/profiles/{id}", orNotImplemented(deps.PatchProfile))
		r.Delete("/api/v1/profiles/{id}", orNotImplemented(deps.DeleteProfile))

		r.Route("/api/v1/applications/{id}", func(r chi.Router) {
			r.Patch("/", orNotImplemented(deps.PatchApp))
			r.Delete("/", orNotImplemented(deps.RemoveApp))
			r.Get("/activity", orNotImplemented(deps.ActivityFeed))
			r.Post("/activity/{itemID}/toggle", orNotImplemented(deps.ToggleActivity))
		})

		r.Get("/api/v1/kanban", orNotImplemented(deps.Board))
		r.Post("/api/v1/kanban/drag", orNotImplemented(deps.Drag))
		r.Post("/api/v1/kanban/drop", orNotImplemented(deps.Drop))

		r.Route("/api/v1/selection", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.GetSelection))
			r.Delete("/", orNotImplemented(deps.ClearSelection))
			r.Post("/toggle/{id}", orNotImplemented(deps.ToggleSelection))
			r.Post("/all", orNotImplemented(deps.SelectAll))
		})

		r.Post("/api/v1/bulk/reprocess", orNotImplemented(deps.BulkReprocess))
		r.Post("/api/v1/bulk/assign", orNotImplemented(deps.BulkAssign))
		r.Post("/api/v1/bulk/delete", orNotImplemented(deps.BulkDelete))

		r.Post("/api/v1/uploads", orNotImplemented(deps.StartUpload))
		r.Get("/api/v1/uploads/current", orNotImplemented(deps.UploadStatus))
		r.Delete("/api/v1/uploads/current", orNotImplemented(deps.DismissUpload))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
