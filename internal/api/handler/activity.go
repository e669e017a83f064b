package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru"
	"github.com/samtoma/Headhunter-sub000/internal/activity"
	"github.com/samtoma/Headhunter-sub000/internal/api/response"
)

// FeedLoader loads the merged activity feed of one application.
type FeedLoader interface {
	Load(ctx context.Context, applicationID int64) ([]activity.Item, error)
}

type feedItem struct {
	activity.Item
	Expanded bool `json:"expanded"`
}

// DefaultExpansionTables bounds how many applications keep expansion state.
const DefaultExpansionTables = 512

// Activity serves the merged feed and remembers which entries are expanded, one
// side-table per application. The least recently viewed tables are forgotten.
type Activity struct {
	feed FeedLoader

	mu         sync.Mutex
	expansions *lru.Cache
}

func NewActivity(feed FeedLoader) *Activity {
	return NewActivityWithLimit(feed, DefaultExpansionTables)
}

// NewActivityWithLimit keeps expansion state for at most tables applications.
func NewActivityWithLimit(feed FeedLoader, tables int) *Activity {
	if tables <= 0 {
		tables = DefaultExpansionTables
	}
	// New only fails on a non-positive size
	cache, _ := lru.New(tables)
	return &Activity{feed: feed, expansions: cache}
}

func (a *Activity) expansion(applicationID int64) *activity.Expansion {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.expansions.Get(applicationID); ok {
		return v.(*activity.Expansion)
	}
	e := activity.NewExpansion()
	a.expansions.Add(applicationID, e)
	return e
}

// Feed handles GET /api/v1/applications/{id}/activity.
func (a *Activity) Feed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	items, err := a.feed.Load(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	exp := a.expansion(id)
	exp.Retain(items)
	out := make([]feedItem, len(items))
	for i, it := range items {
		out[i] = feedItem{Item: it, Expanded: exp.IsExpanded(it.ID)}
	}
	response.JSON(w, out)
}

// Toggle handles POST /api/v1/applications/{id}/activity/{itemID}/toggle.
func (a *Activity) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "itemID is required", nil)
		return
	}

	expanded := a.expansion(id).Toggle(itemID)
	response.JSON(w, map[string]any{"id": itemID, "expanded": expanded})
}
