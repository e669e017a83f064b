// Package bulk keeps a multi-select set over the roster and dispatches batch commands
// for it. Every batch is one backend round trip with an all-or-nothing outcome.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samtoma/Headhunter-sub000/internal/backend"
	"github.com/samtoma/Headhunter-sub000/internal/roster"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

var (
	ErrBatchFailed  = errors.New("batch failed")
	ErrNotConfirmed = errors.New("action not confirmed")
)

// BatchError reports a batch command that failed as a whole. No local change from
// the batch is kept.
type BatchError struct {
	Op  string
	IDs []int64
	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s %d profiles: %v: %v", e.Op, len(e.IDs), ErrBatchFailed, e.Err)
}

func (e *BatchError) Unwrap() []error {
	return []error{ErrBatchFailed, e.Err}
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Roster is the part of the roster store the coordinator needs.
type Roster interface {
	IDs() []int64
	Subscribe(fn func(roster.Event)) func()
	MarkReprocessing(ids []int64) (commit, restore func())
	AttachApplications(apps []models.Application) []int64
	RemoveProfiles(ids []int64) []int64
}

// BatchClient is the set of batch endpoints.
type BatchClient interface {
	ReprocessBulk(ctx context.Context, ids []int64) (*backend.BatchResult, error)
	AssignBulk(ctx context.Context, jobID int64, ids []int64) ([]models.Application, error)
	DeleteBulk(ctx context.Context, ids []int64) (*backend.BatchResult, error)
}

// Coordinator holds the selection. The selection only ever contains profiles that
// are in the roster; it is pruned whenever the roster changes shape.
type Coordinator struct {
	roster Roster
	client BatchClient

	mu       sync.Mutex
	selected map[int64]bool

	unsubscribe func()
}

func New(r Roster, client BatchClient) *Coordinator {
	c := &Coordinator{roster: r, client: client, selected: make(map[int64]bool)}
	c.unsubscribe = r.Subscribe(c.onRosterEvent)
	return c
}

// Close stops following roster changes.
func (c *Coordinator) Close() {
	c.unsubscribe()
}

func (c *Coordinator) onRosterEvent(ev roster.Event) {
	switch ev.Type {
	case roster.EventRemoved, roster.EventReset, roster.EventLoaded:
	default:
		return
	}

	present := make(map[int64]bool)
	for _, id := range c.roster.IDs() {
		present[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.selected {
		if !present[id] {
			delete(c.selected, id)
		}
	}
}

// Toggle flips id in the selection and reports whether it is now selected.
func (c *Coordinator) Toggle(id int64) (bool, error) {
	if !slices.Contains(c.roster.IDs(), id) {
		return false, &models.ValidationError{Field: "id", Reason: fmt.Sprintf("profile %d is not in the roster", id)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected[id] {
		delete(c.selected, id)
		return false, nil
	}
	c.selected[id] = true
	return true, nil
}

// SelectAll selects exactly the current filtered roster and returns its size.
func (c *Coordinator) SelectAll() int {
	ids := c.roster.IDs()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[int64]bool, len(ids))
	for _, id := range ids {
		c.selected[id] = true
	}
	return len(c.selected)
}

func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[int64]bool)
}

// Selected returns the selection in roster order.
func (c *Coordinator) Selected() []int64 {
	ids := c.roster.IDs()

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, 0, len(c.selected))
	for _, id := range ids {
		if c.selected[id] {
			out = append(out, id)
		}
	}
	return out
}

func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.selected)
}

// BulkReprocess marks ids as pending reprocess and sends one batch request. The
// markers survive refreshes while the batch runs. If it fails every marker is
// restored. The selection is kept.
func (c *Coordinator) BulkReprocess(ctx context.Context, ids []int64) (*backend.BatchResult, error) {
	ids, err := normalize(ids)
	if err != nil {
		return nil, err
	}

	commit, restore := c.roster.MarkReprocessing(ids)
	res, err := c.client.ReprocessBulk(context.WithoutCancel(ctx), ids)
	if err != nil {
		restore()
		slog.Warn("bulk reprocess failed", "count", len(ids), "error", err)
		return nil, &BatchError{Op: "reprocess", IDs: ids, Err: err}
	}

	commit()
	slog.Info("bulk reprocess queued", "count", len(ids), "processed", res.Processed)
	return res, nil
}

// BulkDelete asks confirm before deleting ids. On success the profiles leave the
// roster and the selection is cleared; on failure nothing is removed.
func (c *Coordinator) BulkDelete(ctx context.Context, ids []int64, confirm Confirmer) (*backend.BatchResult, error) {
	ids, err := normalize(ids)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Delete %d candidates? This cannot be undone.", len(ids))
	if confirm == nil || !confirm.Confirm(ctx, prompt) {
		return nil, ErrNotConfirmed
	}

	res, err := c.client.DeleteBulk(context.WithoutCancel(ctx), ids)
	if err != nil {
		slog.Warn("bulk delete failed", "count", len(ids), "error", err)
		return nil, &BatchError{Op: "delete", IDs: ids, Err: err}
	}

	c.roster.RemoveProfiles(ids)
	c.Clear()
	slog.Info("bulk delete completed", "count", len(ids))
	return res, nil
}

// BulkAssign adds ids to the job pipeline in one request and attaches the created
// applications. The selection is kept.
func (c *Coordinator) BulkAssign(ctx context.Context, ids []int64, jobID int64) ([]models.Application, error) {
	ids, err := normalize(ids)
	if err != nil {
		return nil, err
	}
	if jobID <= 0 {
		return nil, &models.ValidationError{Field: "job_id", Reason: "a job must be selected"}
	}

	apps, err := c.client.AssignBulk(context.WithoutCancel(ctx), jobID, ids)
	if err != nil {
		slog.Warn("bulk assign failed", "count", len(ids), "job_id", jobID, "error", err)
		return nil, &BatchError{Op: "assign", IDs: ids, Err: err}
	}

	c.roster.AttachApplications(apps)
	slog.Info("bulk assign completed", "count", len(ids), "job_id", jobID, "created", len(apps))
	return apps, nil
}

// normalize drops duplicates, keeping first-seen order.
func normalize(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, &models.ValidationError{Field: "ids", Reason: "no profiles selected"}
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}
