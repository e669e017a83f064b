package activity

import (
	"context"
	"fmt"

	"github.com/samtoma/Headhunter-sub000/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Source supplies the two streams for one application.
type Source interface {
	ListInterviews(ctx context.Context, applicationID int64) ([]models.Interview, error)
	Timeline(ctx context.Context, applicationID int64) ([]models.ActivityLogEntry, error)
}

// Feed loads both streams concurrently and merges them.
type Feed struct {
	source Source
}

func NewFeed(source Source) *Feed {
	return &Feed{source: source}
}

// Load fails if either stream fails; a partial feed is never returned.
func (f *Feed) Load(ctx context.Context, applicationID int64) ([]Item, error) {
	var (
		interviews []models.Interview
		entries    []models.ActivityLogEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		interviews, err = f.source.ListInterviews(gctx, applicationID)
		if err != nil {
			return fmt.Errorf("list interviews: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		entries, err = f.source.Timeline(gctx, applicationID)
		if err != nil {
			return fmt.Errorf("load timeline: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("activity feed for application %d: %w", applicationID, err)
	}

	return Merge(interviews, entries), nil
}
