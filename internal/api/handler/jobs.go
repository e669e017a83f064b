package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/samtoma/Headhunter-sub000/internal/api/response"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

type JobLister interface {
	ListJobs(ctx context.Context) ([]models.Job, error)
}

// NewListJobsHandler returns GET /api/v1/jobs[?active=true], the assignment targets.
func NewListJobsHandler(jl JobLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

		jobs, err := jl.ListJobs(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]models.Job, 0, len(jobs))
		for _, j := range jobs {
			if !activeOnly || j.IsActive {
				out = append(out, j)
			}
		}
		response.JSON(w, out)
	}
}
