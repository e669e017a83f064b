package roster

import (
	"context"
	"log/slog"
	"time"
)

type refresher interface {
	Refresh(ctx context.Context) error
}

// Refresher periodically merges the first roster page from the backend so new
// uploads and changes made elsewhere show up. Failures are logged and the next tick
// tries again.
type Refresher struct {
	store    refresher
	interval time.Duration
}

func NewRefresher(store refresher, interval time.Duration) *Refresher {
	return &Refresher{store: store, interval: interval}
}

// Run blocks until ctx is done. A non-positive interval disables refreshing.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		slog.Info("roster refresh disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("roster refresher started", "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.store.Refresh(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("roster refresh failed", "error", err)
			}
		}
	}
}
