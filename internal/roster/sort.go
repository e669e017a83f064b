package roster

import (
	"cmp"
	"strings"

	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// comparator returns the ordering for q. Ties always fall back to ID descending
// so two loads of the same data produce the same order.
func comparator(q models.ProfileQuery) func(a, b models.Profile) int {
	var primary func(a, b models.Profile) int
	switch q.Sort {
	case models.SortOldest:
		primary = func(a, b models.Profile) int { return a.UploadedAt.Compare(b.UploadedAt) }
	case models.SortExperience:
		primary = func(a, b models.Profile) int { return cmp.Compare(b.ExperienceYears, a.ExperienceYears) }
	case models.SortMatchScore:
		jobID := q.JobID
		primary = func(a, b models.Profile) int { return cmp.Compare(b.MatchScore(jobID), a.MatchScore(jobID)) }
	case models.SortName:
		primary = func(a, b models.Profile) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	default:
		primary = func(a, b models.Profile) int { return b.UploadedAt.Compare(a.UploadedAt) }
	}

	return func(a, b models.Profile) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	}
}
